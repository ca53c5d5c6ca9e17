package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAnomalies_CleanSnapshot(t *testing.T) {
	assert.Empty(t, DetectAnomalies(testCharacteristics()))
}

func TestDetectAnomalies_Deterministic(t *testing.T) {
	chars := testCharacteristics()
	chars.Canvas.Hash = "ab"
	chars.System.HardwareConcurrency = 0
	chars.Fonts = []string{"Arial", "Arial", "Calibri"}

	first := DetectAnomalies(chars)
	second := DetectAnomalies(chars)
	require.Len(t, first, 3)
	assert.Equal(t, first, second)
}

func TestDetectAnomalies_DegenerateHashes(t *testing.T) {
	chars := testCharacteristics()
	chars.Canvas.Hash = ""
	chars.Audio.Hash = "abc"

	anomalies := DetectAnomalies(chars)
	require.Len(t, anomalies, 2)
	assert.Contains(t, anomalies[0], "canvas hash")
	assert.Contains(t, anomalies[1], "audio hash")
}

func TestDetectAnomalies_ImplausibleHardware(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		memoryGB    float64
		want        string
	}{
		{name: "zero cores", concurrency: 0, memoryGB: 16, want: "hardware concurrency"},
		{name: "absurd core count", concurrency: 4096, memoryGB: 16, want: "hardware concurrency"},
		{name: "no memory", concurrency: 8, memoryGB: 0, want: "device memory"},
		{name: "absurd memory", concurrency: 8, memoryGB: 2048, want: "device memory"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chars := testCharacteristics()
			chars.System.HardwareConcurrency = tc.concurrency
			chars.System.DeviceMemoryGB = tc.memoryGB

			anomalies := DetectAnomalies(chars)
			require.Len(t, anomalies, 1)
			assert.Contains(t, anomalies[0], tc.want)
		})
	}
}

func TestDetectAnomalies_RendererPlatformConflict(t *testing.T) {
	tests := []struct {
		name     string
		platform string
		renderer string
		conflict bool
	}{
		{name: "windows with metal", platform: "Win32", renderer: "Apple M2 Pro (Metal)", conflict: true},
		{name: "mac with direct3d", platform: "MacIntel", renderer: "ANGLE (Direct3D11 vs_5_0)", conflict: true},
		{name: "linux with d3d9", platform: "Linux x86_64", renderer: "ANGLE (D3D9)", conflict: true},
		{name: "windows with direct3d", platform: "Win32", renderer: "ANGLE (Direct3D11 vs_5_0)", conflict: false},
		{name: "mac with metal", platform: "MacIntel", renderer: "Apple GPU (Metal)", conflict: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chars := testCharacteristics()
			chars.System.Platform = tc.platform
			chars.WebGL.Renderer = tc.renderer

			anomalies := DetectAnomalies(chars)
			if tc.conflict {
				require.Len(t, anomalies, 1)
				assert.Contains(t, anomalies[0], "inconsistent with platform")
			} else {
				assert.Empty(t, anomalies)
			}
		})
	}
}

func TestDetectAnomalies_ScreenGeometry(t *testing.T) {
	chars := testCharacteristics()
	chars.Screen.Width = 0
	chars.Screen.PixelRatio = -1

	anomalies := DetectAnomalies(chars)
	require.Len(t, anomalies, 2)
	assert.Contains(t, anomalies[0], "screen dimensions")
	assert.Contains(t, anomalies[1], "pixel ratio")

	// A huge claimed width combined with a high pixel ratio cannot both be real.
	chars = testCharacteristics()
	chars.Screen.Width = 7680
	chars.Screen.PixelRatio = 3.0

	anomalies = DetectAnomalies(chars)
	require.Len(t, anomalies, 1)
	assert.Contains(t, anomalies[0], "inconsistent with pixel ratio")
}

func TestDetectAnomalies_DuplicateFonts(t *testing.T) {
	chars := testCharacteristics()
	chars.Fonts = []string{"Arial", "Arial", "Calibri", "Calibri", "Segoe UI"}

	anomalies := DetectAnomalies(chars)
	require.Len(t, anomalies, 1)
	assert.Contains(t, anomalies[0], "2 duplicate entries")
}

func TestDetectAnomalies_MissingGroupsAreSkipped(t *testing.T) {
	// Detection never dereferences absent groups; validation elsewhere is
	// responsible for rejecting incomplete snapshots.
	anomalies := DetectAnomalies(Characteristics{})
	assert.Empty(t, anomalies)
}
