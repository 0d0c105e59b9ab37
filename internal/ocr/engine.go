package ocr

import (
	"context"
	"fmt"
	"strings"
)

// Point is a corner of a recognized region in image pixel space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is the quadrilateral around a recognized region, clockwise from top-left
type Box [4]Point

// Record represents one recognized text region
type Record struct {
	// Box is the region quadrilateral
	Box Box `json:"box"`

	// Text is the recognized text with the surrounding quotes removed
	Text string `json:"text"`

	// Confidence is the recognition score (0.0 to 1.0). It is nil when the
	// output format carries no score, e.g. paragraph mode.
	Confidence *float64 `json:"confidence,omitempty"`
}

// HasConfidence reports whether the record carries a real score
func (r Record) HasConfidence() bool {
	return r.Confidence != nil
}

// Outcome is the terminal result of a recognition run: either records or a
// diagnostic, never both.
type Outcome struct {
	Records []Record  `json:"records,omitempty"`
	Err     *RunError `json:"error,omitempty"`
}

// Failed reports whether the outcome carries a diagnostic
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Message returns the diagnostic text, or "" for a successful outcome
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Message
}

// Text joins the recognized text of all records, one per line
func (o Outcome) Text() string {
	lines := make([]string, 0, len(o.Records))
	for _, r := range o.Records {
		lines = append(lines, r.Text)
	}
	return strings.Join(lines, "\n")
}

// Availability describes whether the external tool is currently reachable
type Availability int

const (
	Checking Availability = iota
	Available
	Unavailable
)

func (a Availability) String() string {
	switch a {
	case Checking:
		return "checking"
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("availability(%d)", int(a))
	}
}

// Engine is the interface for text recognition engines
type Engine interface {
	// Name identifies the engine in logs and traces
	Name() string

	// Available probes whether the engine can currently be launched
	Available(ctx context.Context) bool

	// Recognize runs recognition on the image file at path
	Recognize(ctx context.Context, image string, settings Settings) Outcome
}
