package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentWeightsSumToOne(t *testing.T) {
	sum := WeightCanvas + WeightWebGL + WeightAudio + WeightScreen + WeightSystem
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestSimilarity_Reflexive(t *testing.T) {
	chars := testCharacteristics()

	score, err := Similarity(chars, chars)
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)
}

func TestSimilarity_Deterministic(t *testing.T) {
	stored := testCharacteristics()
	presented := testCharacteristics()
	presented.Canvas = &Canvas{Hash: "ffffffffffffffffffffffffffffffff"}
	presented.System.Language = "de-DE"

	first, err := Similarity(stored, presented)
	require.NoError(t, err)
	second, err := Similarity(stored, presented)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSimilarity_CanvasOnlyMismatch(t *testing.T) {
	stored := testCharacteristics()
	presented := testCharacteristics()
	presented.Canvas = &Canvas{Hash: "ffffffffffffffffffffffffffffffff"}

	score, err := Similarity(stored, presented)
	require.NoError(t, err)

	// Losing only the canvas component drops exactly its weight, which
	// must land the attempt below the auto-approve band.
	assert.Equal(t, 75.0, score)
	assert.Less(t, score, 95.0)
}

func TestSimilarity_HashPrefixPartialCredit(t *testing.T) {
	stored := testCharacteristics()
	presented := testCharacteristics()

	// Same leading prefix, different tail.
	presented.Canvas = &Canvas{Hash: stored.Canvas.Hash[:hashPrefixLen] + "0000000000000000"}

	score, err := Similarity(stored, presented)
	require.NoError(t, err)

	// 60/100 canvas credit loses 40% of the canvas weight.
	assert.Equal(t, 90.0, score)
}

func TestSimilarity_WebGLFieldAgreementMonotonic(t *testing.T) {
	stored := testCharacteristics()

	prev := 101.0
	mutations := []func(*Characteristics){
		func(c *Characteristics) { c.WebGL.Version = "WebGL 1.0" },
		func(c *Characteristics) { c.WebGL.Vendor = "Other Vendor" },
		func(c *Characteristics) { c.WebGL.Renderer = "Other Renderer" },
		func(c *Characteristics) { c.WebGL.Parameters = map[string]string{"max_texture_size": "8192", "max_vertex_attribs": "8"} },
	}

	presented := testCharacteristics()
	for _, mutate := range mutations {
		mutate(&presented)
		score, err := Similarity(stored, presented)
		require.NoError(t, err)
		assert.Less(t, score, prev, "score must shrink as fewer webgl fields agree")
		prev = score
	}
}

func TestSimilarity_TotalWebGLMismatchScoresZeroComponent(t *testing.T) {
	stored := testCharacteristics()
	presented := testCharacteristics()
	presented.WebGL = &WebGL{
		Renderer:   "Apple GPU",
		Vendor:     "Apple Inc.",
		Version:    "WebGL 1.0",
		Parameters: map[string]string{"other_param": "1"},
	}

	score, err := Similarity(stored, presented)
	require.NoError(t, err)

	// All webgl fields disagree, so exactly the webgl weight is lost.
	assert.Equal(t, 75.0, score)
}

func TestSimilarity_ScreenToleranceBands(t *testing.T) {
	stored := testCharacteristics()

	t.Run("small delta scores high", func(t *testing.T) {
		presented := testCharacteristics()
		presented.Screen.Width = stored.Screen.Width + 80 // inside tolerance

		score, err := Similarity(stored, presented)
		require.NoError(t, err)
		assert.Greater(t, score, 95.0)
		assert.Less(t, score, 100.0)
	})

	t.Run("large delta scores low", func(t *testing.T) {
		presented := testCharacteristics()
		presented.Screen.Width = 800
		presented.Screen.Height = 600

		score, err := Similarity(stored, presented)
		require.NoError(t, err)
		assert.Less(t, score, 95.0)
	})
}

func TestSimilarity_SystemPartialCredit(t *testing.T) {
	stored := testCharacteristics()
	presented := testCharacteristics()
	presented.System.Language = "de-DE"
	presented.System.Timezone = "Europe/Berlin"

	score, err := Similarity(stored, presented)
	require.NoError(t, err)

	// 2 of 5 system fields mismatch: lose 40% of the system weight.
	assert.Equal(t, 94.0, score)
}

func TestSimilarity_MissingComponent(t *testing.T) {
	stored := testCharacteristics()
	presented := testCharacteristics()
	presented.Audio = nil

	_, err := Similarity(stored, presented)
	var missing MissingComponentError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "audio", missing.Component)
}

func TestSimilarity_BoundedRange(t *testing.T) {
	stored := testCharacteristics()
	presented := Characteristics{
		Canvas:  &Canvas{Hash: "0000000000000000"},
		WebGL:   &WebGL{Renderer: "x", Vendor: "y", Version: "z"},
		Audio:   &Audio{Hash: "1111111111111111", SampleRate: 44100, BufferSize: 256},
		Screen:  &Screen{Width: 320, Height: 240, ColorDepth: 8, PixelRatio: 3.0},
		System:  &System{Platform: "other", Language: "xx", Timezone: "UTC", HardwareConcurrency: 2, DeviceMemoryGB: 1},
		Fonts:   []string{"Courier"},
	}

	score, err := Similarity(stored, presented)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
}
