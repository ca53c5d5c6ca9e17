package fingerprint

import "math"

// Component weights used by Similarity. They must sum to 1.0.
const (
	WeightCanvas = 0.25
	WeightWebGL  = 0.25
	WeightAudio  = 0.20
	WeightScreen = 0.15
	WeightSystem = 0.15
)

// hashPrefixLen is the number of leading hex characters that must agree for a
// canvas or audio hash to earn partial credit.
const hashPrefixLen = 8

// Tolerance bands for the screen comparator. Fields within the band score
// half credit; exact matches score full credit.
const (
	screenDimensionTolerance  = 120 // pixels
	screenPixelRatioTolerance = 0.1
)

// Similarity compares a stored characteristics snapshot against a presented
// one and returns a weighted score in [0,100], rounded to two decimals.
//
// The function is pure: it reads no persisted state and comparing a snapshot
// to itself always yields exactly 100.
func Similarity(stored, presented Characteristics) (float64, error) {
	if err := stored.Validate(); err != nil {
		return 0, err
	}
	if err := presented.Validate(); err != nil {
		return 0, err
	}

	score := WeightCanvas*hashScore(stored.Canvas.Hash, presented.Canvas.Hash) +
		WeightWebGL*webglScore(*stored.WebGL, *presented.WebGL) +
		WeightAudio*hashScore(stored.Audio.Hash, presented.Audio.Hash) +
		WeightScreen*screenScore(*stored.Screen, *presented.Screen) +
		WeightSystem*systemScore(*stored.System, *presented.System)

	return math.Round(score*100) / 100, nil
}

// hashScore compares opaque rendering hashes: exact match scores 100,
// agreement on the leading prefix earns partial credit, anything else is 0.
func hashScore(a, b string) float64 {
	if a == b {
		return 100
	}
	if len(a) >= hashPrefixLen && len(b) >= hashPrefixLen && a[:hashPrefixLen] == b[:hashPrefixLen] {
		return 60
	}
	return 0
}

// webglScore is a field-agreement ratio over renderer, vendor, version and the
// union of parameter keys. Exact agreement on every field yields 100, total
// disagreement 0, and the score grows monotonically with the match count.
func webglScore(a, b WebGL) float64 {
	matched, total := 0, 3
	if a.Renderer == b.Renderer {
		matched++
	}
	if a.Vendor == b.Vendor {
		matched++
	}
	if a.Version == b.Version {
		matched++
	}

	seen := make(map[string]bool)
	for k, av := range a.Parameters {
		total++
		seen[k] = true
		if bv, ok := b.Parameters[k]; ok && av == bv {
			matched++
		}
	}
	for k := range b.Parameters {
		if !seen[k] {
			total++
		}
	}

	return float64(matched) / float64(total) * 100
}

// screenScore compares screen geometry with tolerance bands. Each of the four
// fields contributes equally; a field scores full credit on exact match, half
// credit inside the tolerance band, nothing outside it.
func screenScore(a, b Screen) float64 {
	score := bandedScore(float64(a.Width), float64(b.Width), screenDimensionTolerance)
	score += bandedScore(float64(a.Height), float64(b.Height), screenDimensionTolerance)
	score += bandedScore(float64(a.ColorDepth), float64(b.ColorDepth), 0)
	score += bandedScore(a.PixelRatio, b.PixelRatio, screenPixelRatioTolerance)
	return score / 4 * 100
}

func bandedScore(a, b, tolerance float64) float64 {
	diff := math.Abs(a - b)
	switch {
	case diff == 0:
		return 1
	case diff <= tolerance:
		return 0.5
	default:
		return 0
	}
}

// systemScore is a per-field agreement ratio over the five system attributes.
// Each field requires an exact match and earns equal partial credit.
func systemScore(a, b System) float64 {
	matched := 0
	if a.Platform == b.Platform {
		matched++
	}
	if a.Language == b.Language {
		matched++
	}
	if a.Timezone == b.Timezone {
		matched++
	}
	if a.HardwareConcurrency == b.HardwareConcurrency {
		matched++
	}
	if a.DeviceMemoryGB == b.DeviceMemoryGB {
		matched++
	}
	return float64(matched) / 5 * 100
}
