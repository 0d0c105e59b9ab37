package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emmett/lens/internal/ocr"
	"github.com/emmett/lens/internal/output"
	"github.com/emmett/lens/internal/service"

	"github.com/google/uuid"
)

// ErrUnavailable is returned when EasyOCR cannot be launched
var ErrUnavailable = errors.New("EasyOCR is not available")

const pollInterval = 100 * time.Millisecond

var spinner = []string{"|", "/", "-", "\\"}

// RecognizerConfig holds configuration for a recognition session
type RecognizerConfig struct {
	Images       []string
	Settings     ocr.Settings
	OutputFormat string
	OutputFile   string
	AutoDownload bool

	// CheckOnly reports availability and exits
	CheckOnly bool

	Stdout io.Writer
	Stderr io.Writer
}

// Recognizer orchestrates recognition of a batch of images
type Recognizer struct {
	config RecognizerConfig
	runner *ocr.Runner
	models *ModelManager

	stdout io.Writer
	stderr io.Writer
}

// NewRecognizer creates a new Recognizer instance
func NewRecognizer(config RecognizerConfig) *Recognizer {
	stdout := config.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	stderr := config.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	return &Recognizer{
		config: config,
		runner: ocr.NewRunner(),
		models: NewModelManager(config.Settings.ModelStorageDirectory, stderr),
		stdout: stdout,
		stderr: stderr,
	}
}

// Run checks availability and recognizes every configured image
func (r *Recognizer) Run(ctx context.Context) error {
	status := output.NewConsoleOutput(output.ConsoleConfig{
		Writer:    r.stderr,
		ErrWriter: r.stderr,
	})

	available, err := r.checkAvailability(ctx, status)
	if err != nil {
		return err
	}

	if !available {
		r.printInstallGuide()
		return ErrUnavailable
	}

	status.Info("EasyOCR is available")

	if r.config.CheckOnly {
		return nil
	}

	if len(r.config.Images) == 0 {
		return fmt.Errorf("no images given")
	}

	if r.config.AutoDownload {
		if err := r.models.Prefetch(ctx, r.config.Settings.Languages); err != nil {
			return err
		}
	}

	writer := r.stdout
	if r.config.OutputFile != "" {
		f, err := os.Create(r.config.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	formatter, err := output.NewFormatter(r.config.OutputFormat, writer)
	if err != nil {
		return err
	}
	defer formatter.Close()

	settings := r.config.Settings
	status.Info(fmt.Sprintf("Languages: %s, decoder: %s", strings.Join(ocr.SplitLanguages(settings.Languages), ","), settings.Decoder.Label()))

	if err := formatter.WriteEvent("availability", r.runner.Name()+" is available"); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	failed := 0

	for i, image := range r.config.Images {
		if err := service.CheckImage(image); err != nil {
			status.Error(err.Error())
			failed++
			continue
		}

		result := r.recognize(ctx, i+1, image, status)

		if err := formatter.WriteResult(result); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}

		if result.Error != nil {
			failed++

			if result.Error.Code == ocr.ErrorCancelled {
				formatter.WriteEvent("cancelled", fmt.Sprintf("stopped after %d of %d images", i+1, len(r.config.Images)))
				break
			}
		}
	}

	if err := formatter.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(r.config.Images))
	}

	return nil
}

// checkAvailability probes for the tool in the background while a spinner
// runs on the status line
func (r *Recognizer) checkAvailability(ctx context.Context, status *output.ConsoleOutput) (bool, error) {
	tracker := ocr.NewTracker(r.runner.Resolver)
	tracker.Refresh(r.config.Settings.Executable)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		if state := tracker.State(); state != ocr.Checking {
			status.Clear()
			return state == ocr.Available, nil
		}

		status.Status("Checking for EasyOCR... " + spinner[frame%len(spinner)])

		select {
		case <-ctx.Done():
			status.Finalize()
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// recognize runs one image through the async bridge, polling for the result
func (r *Recognizer) recognize(ctx context.Context, index int, image string, status *output.ConsoleOutput) output.RecognitionResult {
	start := time.Now()
	settings := r.config.Settings

	pending := ocr.Go(func() ocr.Outcome {
		return r.runner.Run(ctx, image, settings)
	})

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var outcome ocr.Outcome

	for frame := 0; ; frame++ {
		var done bool
		if outcome, done = pending.Poll(); done {
			break
		}

		status.Status(fmt.Sprintf("Recognizing %s (%.1fs) %s", image, time.Since(start).Seconds(), spinner[frame%len(spinner)]))
		<-ticker.C
	}

	status.Clear()

	result := output.NewRecognitionResult(index, image, outcome)
	result.RunID = uuid.NewString()
	result.Duration = time.Since(start)

	return result
}

func (r *Recognizer) printInstallGuide() {
	tried := r.runner.Resolver.Tried(r.config.Settings.Executable)

	fmt.Fprintf(r.stderr, "EasyOCR could not be launched (tried %s).\n", tried)
	fmt.Fprintln(r.stderr)
	fmt.Fprintln(r.stderr, "Install it with:")
	fmt.Fprintln(r.stderr, "  pip install easyocr")
	fmt.Fprintln(r.stderr)
	fmt.Fprintln(r.stderr, "Or point lens at an existing installation:")
	fmt.Fprintln(r.stderr, "  lens --executable /path/to/easyocr IMAGE")
}
