package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/emmett/lens/internal/ocr"

	"github.com/stretchr/testify/require"
)

func writeTool(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	path := filepath.Join(t.TempDir(), "easyocr")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--help\" ]; then exit 0; fi\n" +
		body + "\n"

	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeImage(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("image"), 0o644))
	return path
}

func newTestRecognizer(executable, format string, images ...string) (*Recognizer, *bytes.Buffer, *bytes.Buffer) {
	settings := ocr.DefaultSettings()
	settings.Executable = executable

	var stdout, stderr bytes.Buffer

	r := NewRecognizer(RecognizerConfig{
		Images:       images,
		Settings:     settings,
		OutputFormat: format,
		Stdout:       &stdout,
		Stderr:       &stderr,
	})

	return r, &stdout, &stderr
}

func TestRecognizerRun(t *testing.T) {
	tool := writeTool(t, `echo "([[0, 0], [9, 0], [9, 9], [0, 9]], 'Hello', 0.9)"`)
	image := writeImage(t, "a.png")

	r, stdout, stderr := newTestRecognizer(tool, "text", image)

	require.NoError(t, r.Run(context.Background()))
	require.Equal(t, "Hello\n", stdout.String())
	require.Contains(t, stderr.String(), "EasyOCR is available")
}

func TestRecognizerRunJSON(t *testing.T) {
	tool := writeTool(t, `echo "([[0, 0], [9, 0], [9, 9], [0, 9]], 'Hello', 0.9)"`)
	image := writeImage(t, "a.png")

	r, stdout, stderr := newTestRecognizer(tool, "json", image)
	require.NoError(t, r.Run(context.Background()))
	require.Contains(t, stderr.String(), "Languages: en, decoder: Greedy (Fast)")

	dec := json.NewDecoder(stdout)

	var event struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	require.NoError(t, dec.Decode(&event))
	require.Equal(t, "availability", event.Type)
	require.Equal(t, "easyocr is available", event.Message)

	var result struct {
		Index   int    `json:"index"`
		RunID   string `json:"run_id"`
		Image   string `json:"image"`
		Records []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"records"`
	}

	require.NoError(t, dec.Decode(&result))
	require.False(t, dec.More())
	require.Equal(t, 1, result.Index)
	require.Equal(t, image, result.Image)
	require.NotEmpty(t, result.RunID)
	require.Len(t, result.Records, 1)
	require.Equal(t, 0.9, result.Records[0].Confidence)
}

func TestRecognizerReportsFailures(t *testing.T) {
	tool := writeTool(t, `echo "no boxes here"`)
	image := writeImage(t, "a.png")
	missing := filepath.Join(t.TempDir(), "missing.png")

	r, stdout, stderr := newTestRecognizer(tool, "text", image, missing)

	err := r.Run(context.Background())
	require.EqualError(t, err, "2 of 2 images failed")

	require.Contains(t, stdout.String(), "[NO_TEXT]")
	require.Contains(t, stderr.String(), "[ERROR] cannot read image")
}

func TestRecognizerWritesOutputFile(t *testing.T) {
	tool := writeTool(t, `echo "([[0, 0], [9, 0], [9, 9], [0, 9]], 'Saved', 0.5)"`)
	image := writeImage(t, "a.png")
	out := filepath.Join(t.TempDir(), "result.txt")

	r, stdout, _ := newTestRecognizer(tool, "text", image)
	r.config.OutputFile = out

	require.NoError(t, r.Run(context.Background()))
	require.Empty(t, stdout.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "Saved\n", string(data))
}

func TestRecognizerUnavailable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "easyocr")
	r, stdout, stderr := newTestRecognizer(missing, "text", "a.png")

	err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)

	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "pip install easyocr")
	require.Contains(t, stderr.String(), missing)
}

func TestRecognizerCheckOnly(t *testing.T) {
	tool := writeTool(t, `exit 1`)

	r, stdout, stderr := newTestRecognizer(tool, "text")
	r.config.CheckOnly = true

	require.NoError(t, r.Run(context.Background()))
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "EasyOCR is available")
}

func TestRecognizerNoImages(t *testing.T) {
	tool := writeTool(t, `exit 1`)

	r, _, _ := newTestRecognizer(tool, "text")
	require.EqualError(t, r.Run(context.Background()), "no images given")
}

func TestRecognizerUnknownFormat(t *testing.T) {
	tool := writeTool(t, `exit 1`)

	r, _, _ := newTestRecognizer(tool, "xml", writeImage(t, "a.png"))
	require.ErrorContains(t, r.Run(context.Background()), "unknown output format")
}

func TestRecognizerCancelled(t *testing.T) {
	tool := writeTool(t, `exec sleep 10`)
	first := writeImage(t, "a.png")
	second := writeImage(t, "b.png")

	r, stdout, _ := newTestRecognizer(tool, "console", first, second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(time.Second)
		cancel()
	}()

	err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Contains(t, stdout.String(), "[availability] easyocr is available")
	require.Contains(t, stdout.String(), "Recognition cancelled.")
	require.Contains(t, stdout.String(), "[cancelled] stopped after 1 of 2 images")
	require.NotContains(t, stdout.String(), second)
}
