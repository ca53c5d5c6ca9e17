package fingerprint

// Limits applied to the open-ended list components before hashing and storage.
// Excess entries are truncated, never rejected.
const (
	MaxFonts   = 100
	MaxPlugins = 50
)

// Canvas holds the canvas-rendering fingerprint component.
type Canvas struct {
	Hash string `json:"hash"`
}

// WebGL holds the WebGL renderer fingerprint component.
type WebGL struct {
	Renderer   string            `json:"renderer"`
	Vendor     string            `json:"vendor"`
	Version    string            `json:"version"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Audio holds the audio-processing fingerprint component.
type Audio struct {
	Hash       string `json:"hash"`
	SampleRate int    `json:"sample_rate"`
	BufferSize int    `json:"buffer_size"`
}

// Screen holds the screen geometry fingerprint component.
type Screen struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	ColorDepth int     `json:"color_depth"`
	PixelRatio float64 `json:"pixel_ratio"`
}

// System holds the system attribute fingerprint component.
type System struct {
	Platform            string  `json:"platform"`
	Language            string  `json:"language"`
	Timezone            string  `json:"timezone"`
	HardwareConcurrency int     `json:"hardware_concurrency"`
	DeviceMemoryGB      float64 `json:"device_memory_gb"`
}

// Characteristics is the structured snapshot of device signals collected by the
// client. Canvas, WebGL, Audio, Screen, System and Fonts are required; Plugins
// is optional.
type Characteristics struct {
	Canvas  *Canvas  `json:"canvas"`
	WebGL   *WebGL   `json:"webgl"`
	Audio   *Audio   `json:"audio"`
	Screen  *Screen  `json:"screen"`
	System  *System  `json:"system"`
	Fonts   []string `json:"fonts"`
	Plugins []string `json:"plugins,omitempty"`
}

// Validate checks that all required component groups are present.
// A missing group is a caller error, never silently defaulted.
func (c Characteristics) Validate() error {
	switch {
	case c.Canvas == nil:
		return MissingComponentError{Component: "canvas"}
	case c.WebGL == nil:
		return MissingComponentError{Component: "webgl"}
	case c.Audio == nil:
		return MissingComponentError{Component: "audio"}
	case c.Screen == nil:
		return MissingComponentError{Component: "screen"}
	case c.System == nil:
		return MissingComponentError{Component: "system"}
	case len(c.Fonts) == 0:
		return MissingComponentError{Component: "fonts"}
	}
	return nil
}
