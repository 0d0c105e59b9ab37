package ocr

import (
	"fmt"
	"strings"
)

// Decoder selects the recognizer's decoding algorithm
type Decoder int

const (
	Greedy Decoder = iota
	BeamSearch
	WordBeamSearch
)

// Decoders lists every decoder in presentation order
var Decoders = []Decoder{Greedy, BeamSearch, WordBeamSearch}

// String returns the name the EasyOCR CLI expects
func (d Decoder) String() string {
	switch d {
	case BeamSearch:
		return "beamsearch"
	case WordBeamSearch:
		return "wordbeamsearch"
	default:
		return "greedy"
	}
}

// Label returns a human readable name
func (d Decoder) Label() string {
	switch d {
	case BeamSearch:
		return "Beam Search (Accurate)"
	case WordBeamSearch:
		return "Word Beam Search (Most Accurate)"
	default:
		return "Greedy (Fast)"
	}
}

// ParseDecoder parses a decoder name case-insensitively
func ParseDecoder(s string) (Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "greedy":
		return Greedy, nil
	case "beamsearch", "beam_search", "beam-search":
		return BeamSearch, nil
	case "wordbeamsearch", "word_beam_search", "word-beam-search":
		return WordBeamSearch, nil
	}
	return Greedy, fmt.Errorf("unknown decoder: %q (valid: %s)", s, strings.Join(DecoderNames(), ", "))
}

// DecoderNames returns the CLI names of every decoder
func DecoderNames() []string {
	names := make([]string, 0, len(Decoders))
	for _, d := range Decoders {
		names = append(names, d.String())
	}
	return names
}

// MarshalText implements encoding.TextMarshaler
func (d Decoder) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Decoder) UnmarshalText(text []byte) error {
	parsed, err := ParseDecoder(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Settings is a snapshot of every EasyOCR tunable for one run. It is passed
// by value so a caller may keep editing its own copy while a run is in flight.
type Settings struct {
	// Languages is a free-form list of language codes, e.g. "en,ch_sim"
	Languages string `json:"languages" yaml:"languages"`

	// GPU enables GPU acceleration
	GPU bool `json:"gpu" yaml:"gpu"`

	// Workers is the number of CPU workers (0 = auto)
	Workers int `json:"workers" yaml:"workers"`

	Decoder   Decoder `json:"decoder" yaml:"decoder"`
	BeamWidth int     `json:"beam_width" yaml:"beam_width"`
	BatchSize int     `json:"batch_size" yaml:"batch_size"`

	// MinSize is the minimum text box size in pixels
	MinSize int `json:"min_size" yaml:"min_size"`

	TextThreshold  float64 `json:"text_threshold" yaml:"text_threshold"`
	LowText        float64 `json:"low_text" yaml:"low_text"`
	LinkThreshold  float64 `json:"link_threshold" yaml:"link_threshold"`
	ContrastThs    float64 `json:"contrast_ths" yaml:"contrast_ths"`
	AdjustContrast float64 `json:"adjust_contrast" yaml:"adjust_contrast"`

	// AddMargin extends bounding boxes by this ratio
	AddMargin float64 `json:"add_margin" yaml:"add_margin"`

	// Paragraph merges results into paragraphs. The tool drops per-box
	// confidence in this mode.
	Paragraph bool `json:"paragraph" yaml:"paragraph"`

	// Quantize enables dynamic quantization
	Quantize bool `json:"quantize" yaml:"quantize"`

	// ModelStorageDirectory overrides where EasyOCR keeps its weights.
	// A leading ~ is expanded.
	ModelStorageDirectory string `json:"model_storage_directory" yaml:"model_storage_directory"`

	// Executable overrides command resolution
	Executable string `json:"executable" yaml:"executable"`
}

// DefaultSettings returns the EasyOCR defaults
func DefaultSettings() Settings {
	return Settings{
		Languages:      "en",
		GPU:            false,
		Workers:        0,
		Decoder:        Greedy,
		BeamWidth:      5,
		BatchSize:      1,
		MinSize:        20,
		TextThreshold:  0.7,
		LowText:        0.4,
		LinkThreshold:  0.4,
		ContrastThs:    0.1,
		AdjustContrast: 0.5,
		AddMargin:      0.1,
		Paragraph:      false,
		Quantize:       true,
	}
}

// Validate checks that thresholds are in range and counts are non-negative
func (s Settings) Validate() error {
	thresholds := []struct {
		name string
		val  float64
	}{
		{"text_threshold", s.TextThreshold},
		{"low_text", s.LowText},
		{"link_threshold", s.LinkThreshold},
		{"contrast_ths", s.ContrastThs},
		{"adjust_contrast", s.AdjustContrast},
		{"add_margin", s.AddMargin},
	}
	for _, t := range thresholds {
		if t.val < 0 || t.val > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %.4f", t.name, t.val)
		}
	}

	if s.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", s.Workers)
	}
	if s.BeamWidth < 1 {
		return fmt.Errorf("beam_width must be at least 1, got %d", s.BeamWidth)
	}
	if s.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", s.BatchSize)
	}
	if s.MinSize < 0 {
		return fmt.Errorf("min_size must not be negative, got %d", s.MinSize)
	}

	return nil
}
