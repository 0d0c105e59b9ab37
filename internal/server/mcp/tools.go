package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/emmett/lens/internal/models"
	"github.com/emmett/lens/internal/service"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type RecognizeArgs struct {
	Path      string `json:"path,omitempty" jsonschema:"Absolute path of an image file readable by the server"`
	Image     string `json:"image,omitempty" jsonschema:"Base64-encoded image data, used when path is empty"`
	Filename  string `json:"filename,omitempty" jsonschema:"Original file name of the base64 image"`
	Languages string `json:"languages,omitempty" jsonschema:"Comma separated EasyOCR language codes, e.g. en,ch_sim"`
	Decoder   string `json:"decoder,omitempty" jsonschema:"greedy, beamsearch or wordbeamsearch"`
	Paragraph *bool  `json:"paragraph,omitempty" jsonschema:"Merge results into paragraphs (drops confidence)"`
	GPU       *bool  `json:"gpu,omitempty" jsonschema:"Use GPU acceleration"`
}

type CheckAvailabilityArgs struct{}

type ListModelsArgs struct{}

func (a RecognizeArgs) overrides() map[string]any {
	overrides := map[string]any{}

	if a.Languages != "" {
		overrides["languages"] = a.Languages
	}
	if a.Decoder != "" {
		overrides["decoder"] = a.Decoder
	}
	if a.Paragraph != nil {
		overrides["paragraph"] = *a.Paragraph
	}
	if a.GPU != nil {
		overrides["gpu"] = *a.GPU
	}

	return overrides
}

func (s *Server) handleRecognizeImage(ctx context.Context, req *sdk.CallToolRequest, args RecognizeArgs) (*sdk.CallToolResult, any, error) {
	settings, err := s.service.Merge(args.overrides())
	if err != nil {
		return nil, nil, err
	}

	var image string
	cleanup := func() {}

	switch {
	case args.Path != "":
		if err := service.CheckImage(args.Path); err != nil {
			return nil, nil, err
		}
		image = args.Path

	case args.Image != "":
		image, cleanup, err = service.StageBase64(args.Image, args.Filename)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid image: %w", err)
		}

	default:
		return nil, nil, fmt.Errorf("either path or image is required")
	}
	defer cleanup()

	result, err := s.service.Recognize(ctx, image, settings)
	if err != nil {
		return nil, nil, err
	}

	if result.Error != nil {
		diagnostic, err := json.Marshal(result.Error.ToMap())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode diagnostic: %w", err)
		}

		return &sdk.CallToolResult{
			IsError: true,
			Content: []sdk.Content{
				&sdk.TextContent{Text: result.Error.Message},
				&sdk.TextContent{Text: string(diagnostic)},
			},
		}, nil, nil
	}

	detail, err := json.Marshal(result.Records)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode records: %w", err)
	}

	return &sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: result.Outcome().Text()},
			&sdk.TextContent{Text: string(detail)},
		},
	}, nil, nil
}

func (s *Server) handleCheckAvailability(ctx context.Context, req *sdk.CallToolRequest, args CheckAvailabilityArgs) (*sdk.CallToolResult, any, error) {
	text := "EasyOCR is available."

	if !s.service.CheckAvailability(ctx) {
		text = "EasyOCR is not available.\n\nMake sure EasyOCR is installed:\n  pip install easyocr"
	}

	return &sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: text},
		},
	}, nil, nil
}

func (s *Server) handleListModels(ctx context.Context, req *sdk.CallToolRequest, args ListModelsArgs) (*sdk.CallToolResult, any, error) {
	dir := models.Dir(s.service.Settings().ModelStorageDirectory)

	var b strings.Builder
	fmt.Fprintf(&b, "Models directory: %s\n", dir)

	for _, model := range models.AvailableModels {
		status := "not downloaded"
		if ok, _ := models.IsModelDownloaded(dir, model.Name); ok {
			status = "downloaded"
		}

		fmt.Fprintf(&b, "- %s (%s, %s): %s [%s]\n", model.Name, model.Kind, model.Size, model.Description, status)
	}

	return &sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: b.String()},
		},
	}, nil, nil
}
