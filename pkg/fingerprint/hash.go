package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash produces the canonical content hash of a characteristics snapshot.
// The result is a 64-character lowercase hex SHA-256 digest.
//
// Fields are serialized in a fixed key order and map keys are sorted before
// hashing, so two snapshots with identical values always produce the same
// digest regardless of how the caller's representation was ordered.
func Hash(c Characteristics) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("canvas.hash=" + c.Canvas.Hash + ";")

	b.WriteString("webgl.renderer=" + c.WebGL.Renderer + ";")
	b.WriteString("webgl.vendor=" + c.WebGL.Vendor + ";")
	b.WriteString("webgl.version=" + c.WebGL.Version + ";")
	for _, k := range sortedKeys(c.WebGL.Parameters) {
		fmt.Fprintf(&b, "webgl.param.%s=%s;", k, c.WebGL.Parameters[k])
	}

	b.WriteString("audio.hash=" + c.Audio.Hash + ";")
	fmt.Fprintf(&b, "audio.sample_rate=%d;", c.Audio.SampleRate)
	fmt.Fprintf(&b, "audio.buffer_size=%d;", c.Audio.BufferSize)

	fmt.Fprintf(&b, "screen.width=%d;", c.Screen.Width)
	fmt.Fprintf(&b, "screen.height=%d;", c.Screen.Height)
	fmt.Fprintf(&b, "screen.color_depth=%d;", c.Screen.ColorDepth)
	fmt.Fprintf(&b, "screen.pixel_ratio=%g;", c.Screen.PixelRatio)

	b.WriteString("system.platform=" + c.System.Platform + ";")
	b.WriteString("system.language=" + c.System.Language + ";")
	b.WriteString("system.timezone=" + c.System.Timezone + ";")
	fmt.Fprintf(&b, "system.concurrency=%d;", c.System.HardwareConcurrency)
	fmt.Fprintf(&b, "system.memory=%g;", c.System.DeviceMemoryGB)

	for _, f := range normalizeList(c.Fonts, MaxFonts) {
		b.WriteString("font=" + f + ";")
	}
	for _, p := range normalizeList(c.Plugins, MaxPlugins) {
		b.WriteString("plugin=" + p + ";")
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

// normalizeList caps the list, then sorts a copy so list order reported by
// the client does not change the digest. Truncation happens before sorting.
func normalizeList(items []string, max int) []string {
	if len(items) > max {
		items = items[:max]
	}
	out := make([]string, len(items))
	copy(out, items)
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
