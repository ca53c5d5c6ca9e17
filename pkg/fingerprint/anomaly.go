package fingerprint

import (
	"fmt"
	"strings"
)

// Plausible hardware ranges for reported values. Values outside these bounds
// do not occur on real consumer devices.
const (
	minHardwareConcurrency = 1
	maxHardwareConcurrency = 128
	minDeviceMemoryGB      = 0.25
	maxDeviceMemoryGB      = 1024.0
)

// minHashLen is the shortest rendering hash accepted as non-degenerate.
const minHashLen = 8

// maxPixelScaledWidth bounds width*pixelRatio; beyond it the claimed geometry
// and pixel ratio cannot both be real.
const maxPixelScaledWidth = 16384

// rendererConflicts maps a platform keyword to renderer substrings that cannot
// appear together with it on a real device.
var rendererConflicts = []struct {
	platform  string
	renderers []string
}{
	{"win", []string{"apple gpu", "apple m", "metal"}},
	{"mac", []string{"direct3d", "d3d11", "d3d9"}},
	{"linux", []string{"direct3d", "d3d11", "d3d9", "metal"}},
}

// DetectAnomalies inspects a single characteristics snapshot for internally
// inconsistent or implausible values. It needs no stored baseline and is fully
// deterministic: the same input always yields the same descriptor list, in the
// same order. An empty slice means no anomalies.
//
// Detected anomalies are advisory. They feed the trust-score penalty downstream
// but never block registration or validation on their own.
func DetectAnomalies(c Characteristics) []string {
	var anomalies []string

	if c.Canvas != nil && len(c.Canvas.Hash) < minHashLen {
		anomalies = append(anomalies, "canvas hash is empty or degenerate")
	}
	if c.Audio != nil && len(c.Audio.Hash) < minHashLen {
		anomalies = append(anomalies, "audio hash is empty or degenerate")
	}

	if c.System != nil {
		if n := c.System.HardwareConcurrency; n < minHardwareConcurrency || n > maxHardwareConcurrency {
			anomalies = append(anomalies, fmt.Sprintf("hardware concurrency %d outside plausible range [%d,%d]",
				n, minHardwareConcurrency, maxHardwareConcurrency))
		}
		if m := c.System.DeviceMemoryGB; m < minDeviceMemoryGB || m > maxDeviceMemoryGB {
			anomalies = append(anomalies, fmt.Sprintf("device memory %gGB outside plausible range [%g,%g]",
				m, minDeviceMemoryGB, maxDeviceMemoryGB))
		}
	}

	if c.System != nil && c.WebGL != nil {
		if desc := rendererPlatformConflict(c.System.Platform, c.WebGL.Renderer); desc != "" {
			anomalies = append(anomalies, desc)
		}
	}

	if c.Screen != nil {
		if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
			anomalies = append(anomalies, fmt.Sprintf("screen dimensions %dx%d are not positive",
				c.Screen.Width, c.Screen.Height))
		}
		if c.Screen.PixelRatio <= 0 {
			anomalies = append(anomalies, fmt.Sprintf("pixel ratio %g is not positive", c.Screen.PixelRatio))
		} else if float64(c.Screen.Width)*c.Screen.PixelRatio > maxPixelScaledWidth {
			anomalies = append(anomalies, fmt.Sprintf("screen width %d inconsistent with pixel ratio %g",
				c.Screen.Width, c.Screen.PixelRatio))
		}
	}

	if dup := duplicateFontCount(c.Fonts); dup > 0 {
		anomalies = append(anomalies, fmt.Sprintf("font list contains %d duplicate entries", dup))
	}

	return anomalies
}

func rendererPlatformConflict(platform, renderer string) string {
	p := strings.ToLower(platform)
	r := strings.ToLower(renderer)
	for _, conflict := range rendererConflicts {
		if !strings.Contains(p, conflict.platform) {
			continue
		}
		for _, bad := range conflict.renderers {
			if strings.Contains(r, bad) {
				return fmt.Sprintf("webgl renderer %q inconsistent with platform %q", renderer, platform)
			}
		}
	}
	return ""
}

func duplicateFontCount(fonts []string) int {
	seen := make(map[string]bool, len(fonts))
	dup := 0
	for _, f := range fonts {
		if seen[f] {
			dup++
		}
		seen[f] = true
	}
	return dup
}
