package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ConsoleOutput handles human readable output on a terminal
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	errWriter     io.Writer
	showTimestamp bool
	showMetadata  bool
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes each line with a timestamp
	ShowTimestamp bool

	// ShowMetadata displays confidence scores next to the text
	ShowMetadata bool

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer

	// ErrWriter receives error messages (default: os.Stderr)
	ErrWriter io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}

	errWriter := config.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}

	return &ConsoleOutput{
		writer:        writer,
		errWriter:     errWriter,
		showTimestamp: config.ShowTimestamp,
		showMetadata:  config.ShowMetadata,
	}
}

// DefaultConsoleOutput creates a console output with default settings
func DefaultConsoleOutput() *ConsoleOutput {
	return NewConsoleOutput(ConsoleConfig{
		ShowTimestamp: false,
		ShowMetadata:  true,
		Writer:        os.Stdout,
	})
}

// Write writes a line of text
func (c *ConsoleOutput) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "%s%s\n", c.timestamp(), text)
	return nil
}

// WriteWithMetadata writes recognized text with its confidence
func (c *ConsoleOutput) WriteWithMetadata(text string, confidence *float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	metadata := ""
	if c.showMetadata && confidence != nil {
		metadata = fmt.Sprintf(" (confidence: %.2f)", *confidence)
	}

	fmt.Fprintf(c.writer, "%s%s%s\n", c.timestamp(), text, metadata)
	return nil
}

// WriteResult implements Formatter
func (c *ConsoleOutput) WriteResult(result RecognitionResult) error {
	c.Write(result.Image)
	c.Write(strings.Repeat("=", 72))

	if result.Error != nil {
		c.Write(result.Error.Message)
		return c.Finalize()
	}

	for i, r := range result.Records {
		c.WriteWithMetadata(fmt.Sprintf("[%d] %s", i+1, r.Text), r.Confidence)
	}

	return c.Finalize()
}

// WriteEvent implements Formatter
func (c *ConsoleOutput) WriteEvent(eventType, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "%s[%s] %s\n", c.timestamp(), eventType, message)
	return nil
}

// Flush implements Formatter
func (c *ConsoleOutput) Flush() error {
	return nil
}

// Close implements Formatter
func (c *ConsoleOutput) Close() error {
	return nil
}

// Finalize ends a status line
func (c *ConsoleOutput) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.writer)
	return nil
}

// Clear clears the current line
func (c *ConsoleOutput) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r%80s\r", " ") // Clear line
	return nil
}

// Info writes an informational message
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "[INFO] %s\n", msg)
}

// Error writes an error message
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.errWriter, "[ERROR] %s\n", msg)
}

// Status writes a status message (typically overwritten)
func (c *ConsoleOutput) Status(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r[*] %s", msg)
}

func (c *ConsoleOutput) timestamp() string {
	if !c.showTimestamp {
		return ""
	}
	return fmt.Sprintf("[%s] ", time.Now().Format("15:04:05"))
}
