package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/emmett/lens/internal/ocr"

	"github.com/stretchr/testify/require"
)

func conf(v float64) *float64 {
	return &v
}

func sampleResult() RecognitionResult {
	return NewRecognitionResult(1, "shot.png", ocr.Outcome{Records: []ocr.Record{
		{
			Box:        ocr.Box{{X: 10, Y: 20}, {X: 110, Y: 20}, {X: 110, Y: 50}, {X: 10, Y: 50}},
			Text:       "Hello",
			Confidence: conf(0.98),
		},
		{
			Box:  ocr.Box{{X: 0, Y: 0}, {X: 1.5, Y: 0}, {X: 1.5, Y: 1}, {X: 0, Y: 1}},
			Text: "tab\there",
		},
	}})
}

func TestNewFormatter(t *testing.T) {
	for _, name := range Formats {
		f, err := NewFormatter(name, &bytes.Buffer{})
		require.NoError(t, err)
		require.NotNil(t, f)
	}

	_, err := NewFormatter("xml", &bytes.Buffer{})
	require.ErrorContains(t, err, "unknown output format")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)

	require.NoError(t, f.WriteResult(sampleResult()))
	require.Len(t, f.GetResults(), 1)

	var decoded RecognitionResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "shot.png", decoded.Image)
	require.Len(t, decoded.Records, 2)
	require.InDelta(t, 0.98, *decoded.Records[0].Confidence, 1e-9)
	require.Nil(t, decoded.Records[1].Confidence)
	require.NotContains(t, buf.String(), `"confidence": null`)
}

func TestJSONFormatterError(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)

	result := NewRecognitionResult(1, "x.png", ocr.Outcome{Err: &ocr.RunError{Code: ocr.ErrorNoText, Message: "No text recognized."}})
	require.NoError(t, f.WriteResult(result))
	require.Contains(t, buf.String(), `"code": "NO_TEXT"`)
}

func TestPlainTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewPlainTextFormatter(&buf)

	require.NoError(t, f.WriteResult(sampleResult()))
	require.NoError(t, f.WriteResult(NewRecognitionResult(2, "b.png", ocr.Outcome{
		Err: &ocr.RunError{Code: ocr.ErrorToolExit, Message: "EasyOCR exited with error:\nboom"},
	})))

	require.Equal(t, "Hello\ntab\there\n\n[TOOL_EXIT] EasyOCR exited with error:\n", buf.String())
}

func TestTSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTSVFormatter(&buf)

	require.NoError(t, f.WriteResult(sampleResult()))
	require.NoError(t, f.WriteResult(NewRecognitionResult(2, "empty.png", ocr.Outcome{})))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Equal(t, []string{
		"image\tindex\tconfidence\ttext\tbox",
		"shot.png\t1\t0.9800\tHello\t10,20 110,20 110,50 10,50",
		"shot.png\t2\t\ttab\\there\t0,0 1.5,0 1.5,1 0,1",
	}, lines)
}

func TestConsoleOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsoleOutput(ConsoleConfig{Writer: &out, ErrWriter: &errOut, ShowMetadata: true})

	require.NoError(t, c.WriteResult(sampleResult()))
	require.Contains(t, out.String(), "[1] Hello (confidence: 0.98)\n")
	require.Contains(t, out.String(), "[2] tab\there\n")

	c.Error("broken")
	require.Equal(t, "[ERROR] broken\n", errOut.String())

	out.Reset()
	c.Status("checking")
	require.Equal(t, "\r[*] checking", out.String())
}

func TestJSONFormatterEvent(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)

	require.NoError(t, f.WriteEvent("availability", "easyocr is available"))

	var event Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	require.Equal(t, "availability", event.Type)
	require.Equal(t, "easyocr is available", event.Message)
	require.False(t, event.Timestamp.IsZero())
}

func TestConsoleOutputError(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleOutput(ConsoleConfig{Writer: &out})

	result := NewRecognitionResult(1, "x.png", ocr.Outcome{Err: &ocr.RunError{Code: ocr.ErrorNoText, Message: "No text recognized."}})
	require.NoError(t, c.WriteResult(result))
	require.NoError(t, c.WriteEvent("cancelled", "stopped after 1 of 2 images"))

	require.Equal(t, "x.png\n"+strings.Repeat("=", 72)+"\nNo text recognized.\n\n[cancelled] stopped after 1 of 2 images\n", out.String())
}
