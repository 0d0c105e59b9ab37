package mcp

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/emmett/lens/internal/ocr"
	"github.com/emmett/lens/internal/service"

	"github.com/stretchr/testify/require"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type mockEngine struct {
	available bool
	outcome   ocr.Outcome

	content  string
	settings ocr.Settings
}

func (m *mockEngine) Name() string {
	return "mock"
}

func (m *mockEngine) Available(ctx context.Context) bool {
	return m.available
}

func (m *mockEngine) Recognize(ctx context.Context, image string, settings ocr.Settings) ocr.Outcome {
	data, _ := os.ReadFile(image)
	m.content = string(data)
	m.settings = settings
	return m.outcome
}

func connect(t *testing.T, engine *mockEngine, settings ocr.Settings) *sdk.ClientSession {
	t.Helper()

	resolver := ocr.DefaultResolver()
	resolver.Probe = func(ctx context.Context, program string, args ...string) bool { return false }

	svc := service.NewWithEngine(engine, ocr.NewTracker(resolver), service.Config{Settings: settings})

	server, err := NewServer(Config{ServerName: "lens-test", ServerVersion: "test", Service: svc})
	require.NoError(t, err)

	ctx := context.Background()
	clientTransport, serverTransport := sdk.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "client", Version: "test"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return session
}

func callTool(t *testing.T, session *sdk.ClientSession, name string, args map[string]any) *sdk.CallToolResult {
	t.Helper()

	result, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)

	return result
}

func text(t *testing.T, result *sdk.CallToolResult, i int) string {
	t.Helper()

	require.Greater(t, len(result.Content), i)
	content, ok := result.Content[i].(*sdk.TextContent)
	require.True(t, ok)

	return content.Text
}

func TestListTools(t *testing.T) {
	session := connect(t, &mockEngine{}, ocr.DefaultSettings())

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}

	require.ElementsMatch(t, []string{"recognize_image", "check_availability", "list_models"}, names)
}

func TestRecognizeImage(t *testing.T) {
	confidence := 0.5
	engine := &mockEngine{outcome: ocr.Outcome{Records: []ocr.Record{
		{Text: "first", Confidence: &confidence},
		{Text: "second"},
	}}}
	session := connect(t, engine, ocr.DefaultSettings())

	result := callTool(t, session, "recognize_image", map[string]any{
		"image":     base64.StdEncoding.EncodeToString([]byte("pixels")),
		"filename":  "a.png",
		"languages": "ja",
		"paragraph": true,
	})

	require.False(t, result.IsError)
	require.Equal(t, "first\nsecond", text(t, result, 0))
	require.Contains(t, text(t, result, 1), `"confidence":0.5`)

	require.Equal(t, "pixels", engine.content)
	require.Equal(t, "ja", engine.settings.Languages)
	require.True(t, engine.settings.Paragraph)
}

func TestRecognizeImagePath(t *testing.T) {
	engine := &mockEngine{outcome: ocr.Outcome{Records: []ocr.Record{{Text: "x"}}}}
	session := connect(t, engine, ocr.DefaultSettings())

	image := filepath.Join(t.TempDir(), "local.png")
	require.NoError(t, os.WriteFile(image, []byte("local"), 0o644))

	result := callTool(t, session, "recognize_image", map[string]any{"path": image})
	require.False(t, result.IsError)
	require.Equal(t, "local", engine.content)
}

func TestRecognizeImageDiagnostic(t *testing.T) {
	engine := &mockEngine{outcome: ocr.Outcome{Err: &ocr.RunError{
		Code:    ocr.ErrorResolutionFailed,
		Message: "EasyOCR command not found (tried 'easyocr').",
	}}}
	session := connect(t, engine, ocr.DefaultSettings())

	result := callTool(t, session, "recognize_image", map[string]any{
		"image": base64.StdEncoding.EncodeToString([]byte("pixels")),
	})

	require.True(t, result.IsError)
	require.Contains(t, text(t, result, 0), "EasyOCR command not found")
	require.JSONEq(t, `{"code":"RESOLUTION_FAILED","message":"EasyOCR command not found (tried 'easyocr')."}`, text(t, result, 1))
}

func TestRecognizeImageBadArguments(t *testing.T) {
	session := connect(t, &mockEngine{}, ocr.DefaultSettings())

	for _, args := range []map[string]any{
		{},
		{"path": "/does/not/exist.png"},
		{"image": "aGk=", "decoder": "viterbi"},
	} {
		result := callTool(t, session, "recognize_image", args)
		require.True(t, result.IsError, "arguments %v", args)
	}
}

func TestCheckAvailability(t *testing.T) {
	session := connect(t, &mockEngine{available: false}, ocr.DefaultSettings())

	result := callTool(t, session, "check_availability", map[string]any{})
	require.Contains(t, text(t, result, 0), "pip install easyocr")
}

func TestListModels(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "english_g2.pth"), []byte("w"), 0o644))

	settings := ocr.DefaultSettings()
	settings.ModelStorageDirectory = dir

	session := connect(t, &mockEngine{}, settings)

	result := callTool(t, session, "list_models", map[string]any{})
	listing := text(t, result, 0)

	require.Contains(t, listing, "Models directory: "+dir)
	require.Contains(t, listing, "- english_g2 (recognizer, 14M): English recognizer [downloaded]")
	require.Contains(t, listing, "- craft (detector, 79M)")
}
