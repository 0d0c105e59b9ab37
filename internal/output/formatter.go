package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emmett/lens/internal/ocr"
)

// RecognitionResult represents the outcome of recognizing one image
type RecognitionResult struct {
	Index     int           `json:"index"`
	RunID     string        `json:"run_id,omitempty"`
	Image     string        `json:"image"`
	Records   []ocr.Record  `json:"records,omitempty"`
	Error     *ocr.RunError `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewRecognitionResult builds a result from an engine outcome
func NewRecognitionResult(index int, image string, outcome ocr.Outcome) RecognitionResult {
	return RecognitionResult{
		Index:     index,
		Image:     image,
		Records:   outcome.Records,
		Error:     outcome.Err,
		Timestamp: time.Now(),
	}
}

// Outcome returns the engine outcome the result was built from
func (r RecognitionResult) Outcome() ocr.Outcome {
	return ocr.Outcome{Records: r.Records, Err: r.Error}
}

// Event represents a system event
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for output formatters
type Formatter interface {
	// WriteResult writes the result for one image
	WriteResult(result RecognitionResult) error

	// WriteEvent writes a system event (e.g., availability changes)
	WriteEvent(eventType, message string) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close closes the formatter and releases resources
	Close() error
}

// Formats lists the names accepted by NewFormatter
var Formats = []string{"console", "json", "text", "tsv"}

// NewFormatter creates a formatter by name
func NewFormatter(format string, writer io.Writer) (Formatter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONFormatter(writer), nil
	case "text":
		return NewPlainTextFormatter(writer), nil
	case "tsv":
		return NewTSVFormatter(writer), nil
	case "console", "":
		return NewConsoleOutput(ConsoleConfig{Writer: writer, ShowMetadata: true}), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (valid: %s)", format, strings.Join(Formats, ", "))
	}
}

// JSONFormatter outputs one JSON document per image
type JSONFormatter struct {
	writer  io.Writer
	encoder *json.Encoder
	results []RecognitionResult
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	return &JSONFormatter{
		writer:  writer,
		encoder: encoder,
		results: make([]RecognitionResult, 0),
	}
}

// WriteResult writes a recognition result in JSON format
func (j *JSONFormatter) WriteResult(result RecognitionResult) error {
	j.results = append(j.results, result)
	return j.encoder.Encode(result)
}

// WriteEvent writes a system event
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	event := Event{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
	return j.encoder.Encode(event)
}

// Flush ensures all buffered output is written
func (j *JSONFormatter) Flush() error {
	// JSON encoder writes immediately, nothing to flush
	return nil
}

// Close closes the formatter
func (j *JSONFormatter) Close() error {
	return nil
}

// GetResults returns every result written so far
func (j *JSONFormatter) GetResults() []RecognitionResult {
	return j.results
}

// PlainTextFormatter outputs only the recognized text, one region per line
type PlainTextFormatter struct {
	writer io.Writer
	count  int
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{
		writer: writer,
	}
}

// WriteResult writes a recognition result in plain text. Results for
// different images are separated by a blank line.
func (p *PlainTextFormatter) WriteResult(result RecognitionResult) error {
	var b strings.Builder

	if p.count > 0 {
		b.WriteString("\n")
	}
	p.count++

	if result.Error != nil {
		fmt.Fprintf(&b, "[%s] %s\n", result.Error.Code, firstLine(result.Error.Message))
	}
	for _, r := range result.Records {
		b.WriteString(r.Text)
		b.WriteString("\n")
	}

	_, err := io.WriteString(p.writer, b.String())
	return err
}

// WriteEvent is a no-op for plain text
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	return nil
}

// Flush ensures all buffered output is written
func (p *PlainTextFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (p *PlainTextFormatter) Close() error {
	return nil
}

// TSVFormatter outputs one row per region:
// image, index, confidence, text, then the four corners as x,y pairs.
type TSVFormatter struct {
	writer io.Writer
	header bool
}

// NewTSVFormatter creates a new tab separated formatter
func NewTSVFormatter(writer io.Writer) *TSVFormatter {
	return &TSVFormatter{writer: writer}
}

// WriteResult writes one row per record. Failed results produce no rows.
func (f *TSVFormatter) WriteResult(result RecognitionResult) error {
	var b strings.Builder

	if !f.header {
		b.WriteString("image\tindex\tconfidence\ttext\tbox\n")
		f.header = true
	}

	for i, r := range result.Records {
		confidence := ""
		if r.Confidence != nil {
			confidence = strconv.FormatFloat(*r.Confidence, 'f', 4, 64)
		}

		corners := make([]string, 0, len(r.Box))
		for _, p := range r.Box {
			corners = append(corners, formatCoord(p.X)+","+formatCoord(p.Y))
		}

		fmt.Fprintf(&b, "%s\t%d\t%s\t%s\t%s\n",
			escapeTSV(result.Image), i+1, confidence, escapeTSV(r.Text), strings.Join(corners, " "))
	}

	_, err := io.WriteString(f.writer, b.String())
	return err
}

// WriteEvent is a no-op for tsv
func (f *TSVFormatter) WriteEvent(eventType, message string) error {
	return nil
}

// Flush ensures all buffered output is written
func (f *TSVFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (f *TSVFormatter) Close() error {
	return nil
}

var tsvEscaper = strings.NewReplacer("\\", "\\\\", "\t", "\\t", "\n", "\\n", "\r", "\\r")

func escapeTSV(s string) string {
	return tsvEscaper.Replace(s)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
