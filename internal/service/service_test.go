package service

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/emmett/lens/internal/ocr"

	"github.com/stretchr/testify/require"
)

type mockEngine struct {
	available bool
	outcome   ocr.Outcome

	image    string
	settings ocr.Settings
}

func (m *mockEngine) Name() string {
	return "mock"
}

func (m *mockEngine) Available(ctx context.Context) bool {
	return m.available
}

func (m *mockEngine) Recognize(ctx context.Context, image string, settings ocr.Settings) ocr.Outcome {
	m.image = image
	m.settings = settings
	return m.outcome
}

func newTestService(t *testing.T, engine *mockEngine, resolvable bool) *Service {
	t.Helper()
	return newTestServiceWithDefaults(t, engine, resolvable, ocr.DefaultSettings())
}

func newTestServiceWithDefaults(t *testing.T, engine *mockEngine, resolvable bool, defaults ocr.Settings) *Service {
	t.Helper()

	resolver := ocr.DefaultResolver()
	resolver.Probe = func(ctx context.Context, program string, args ...string) bool {
		return resolvable
	}

	return NewWithEngine(engine, ocr.NewTracker(resolver), Config{Settings: defaults})
}

func TestRecognize(t *testing.T) {
	engine := &mockEngine{outcome: ocr.Outcome{Records: []ocr.Record{{Text: "hi"}}}}
	s := newTestService(t, engine, true)

	result, err := s.Recognize(context.Background(), "a.png", s.Settings())
	require.NoError(t, err)

	require.Equal(t, "a.png", engine.image)
	require.Equal(t, "a.png", result.Image)
	require.Len(t, result.Records, 1)
	require.Nil(t, result.Error)
	require.Len(t, result.RunID, 36)
}

func TestRecognizeRejectsInvalidSettings(t *testing.T) {
	engine := &mockEngine{}
	s := newTestService(t, engine, true)

	settings := s.Settings()
	settings.BatchSize = 0

	_, err := s.Recognize(context.Background(), "a.png", settings)
	require.Error(t, err)
	require.Empty(t, engine.image)
}

func TestAvailability(t *testing.T) {
	s := newTestService(t, &mockEngine{available: true}, false)

	require.Eventually(t, func() bool {
		return s.Availability() == ocr.Unavailable
	}, 5*time.Second, 5*time.Millisecond)

	require.True(t, s.CheckAvailability(context.Background()))
	require.Equal(t, "mock", s.EngineName())
}

func TestMerge(t *testing.T) {
	s := newTestService(t, &mockEngine{}, true)

	settings, err := s.Merge(map[string]any{
		"languages": "ja,en",
		"decoder":   "beamsearch",
		"workers":   float64(2),
		"paragraph": true,
	})
	require.NoError(t, err)
	require.Equal(t, "ja,en", settings.Languages)
	require.Equal(t, ocr.BeamSearch, settings.Decoder)
	require.Equal(t, 2, settings.Workers)
	require.True(t, settings.Paragraph)

	// defaults are untouched
	require.Equal(t, ocr.DefaultSettings(), s.Settings())

	settings, err = s.Merge(nil)
	require.NoError(t, err)
	require.Equal(t, ocr.DefaultSettings(), settings)
}

func TestMergeRejects(t *testing.T) {
	s := newTestService(t, &mockEngine{}, true)

	tests := []map[string]any{
		{"executable": "/bin/sh"},
		{"Executable": "/bin/sh"},
		{"EXECUTABLE": "/bin/sh"},
		{"model_storage_directory": "/etc/lens"},
		{"Model_Storage_Directory": "/etc/lens"},
		{"colour": "blue"},
		{"decoder": "viterbi"},
		{"text_threshold": 3.0},
		{"workers": "many"},
	}

	for _, overrides := range tests {
		_, err := s.Merge(overrides)
		require.Error(t, err, "overrides %v", overrides)
	}
}

func TestStage(t *testing.T) {
	path, cleanup, err := Stage(strings.NewReader("png bytes"), "shot.PNG")
	require.NoError(t, err)

	require.Equal(t, ".png", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "png bytes", string(data))

	cleanup()
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestStageRejectsEmpty(t *testing.T) {
	_, _, err := Stage(strings.NewReader(""), "x.png")
	require.ErrorContains(t, err, "empty")
}

func TestStageBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))

	for _, input := range []string{encoded, "data:image/jpeg;base64," + encoded} {
		path, cleanup, err := StageBase64(input, "photo.jpg")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "jpeg bytes", string(data))
		require.Equal(t, ".jpg", filepath.Ext(path))

		cleanup()
	}

	_, _, err := StageBase64("!!not base64!!", "x.png")
	require.Error(t, err)
}

func TestCheckImage(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	require.NoError(t, CheckImage(file))
	require.Error(t, CheckImage(""))
	require.Error(t, CheckImage(dir))
	require.Error(t, CheckImage(filepath.Join(dir, "missing.png")))
}

func TestMergeKeepsServerSettings(t *testing.T) {
	defaults := ocr.DefaultSettings()
	defaults.Executable = "/opt/easyocr/bin/easyocr"
	defaults.ModelStorageDirectory = "/var/lib/lens/models"

	s := newTestServiceWithDefaults(t, &mockEngine{}, true, defaults)

	settings, err := s.Merge(map[string]any{"Languages": "ja", "gpu": true})
	require.NoError(t, err)

	require.Equal(t, "ja", settings.Languages)
	require.True(t, settings.GPU)
	require.Equal(t, "/opt/easyocr/bin/easyocr", settings.Executable)
	require.Equal(t, "/var/lib/lens/models", settings.ModelStorageDirectory)
}

func TestCheckAvailabilityRecordsState(t *testing.T) {
	s := newTestService(t, &mockEngine{available: true}, false)

	require.Eventually(t, func() bool {
		return s.Availability() == ocr.Unavailable
	}, 5*time.Second, 5*time.Millisecond)

	require.True(t, s.CheckAvailability(context.Background()))
	require.Equal(t, ocr.Available, s.Availability())
	require.False(t, s.Rechecking())
}
