package grpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/emmett/lens/internal/ocr"
	"github.com/emmett/lens/internal/service"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ RecognizerServer = (*RecognizerService)(nil)

// RecognizerService implements the gRPC recognizer service
type RecognizerService struct {
	service *service.Service
}

// NewRecognizerService creates a new recognizer service
func NewRecognizerService(s *service.Service) *RecognizerService {
	return &RecognizerService{service: s}
}

// CheckAvailability reports the tracked availability, checking first when
// the request asks for a refresh
func (s *RecognizerService) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()

	if refresh, _ := fields["refresh"].(bool); refresh {
		s.service.CheckAvailability(ctx)
	}

	state := s.service.Availability()

	return structpb.NewStruct(map[string]interface{}{
		"available": state == ocr.Available,
		"state":     state.String(),
		"engine":    s.service.EngineName(),
	})
}

// Recognize runs a recognition. A failed run is reported in the response's
// "error" field; gRPC errors are reserved for bad requests.
func (s *RecognizerService) Recognize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()

	overrides, _ := fields["settings"].(map[string]interface{})
	settings, err := s.service.Merge(overrides)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	image, cleanup, err := stageRequestImage(fields)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	defer cleanup()

	result, err := s.service.Recognize(ctx, image, settings)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if path, _ := fields["path"].(string); path == "" {
		result.Image, _ = fields["filename"].(string)
	}

	return toStruct(result)
}

func stageRequestImage(fields map[string]interface{}) (string, func(), error) {
	if path, _ := fields["path"].(string); path != "" {
		if err := service.CheckImage(path); err != nil {
			return "", nil, err
		}
		return path, func() {}, nil
	}

	data, _ := fields["image"].(string)
	if data == "" {
		return "", nil, fmt.Errorf("either path or image is required")
	}

	name, _ := fields["filename"].(string)
	return service.StageBase64(data, name)
}

// toStruct converts any JSON-encodable value to a Struct
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return structpb.NewStruct(m)
}
