package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the recognizer service
const ServiceName = "lens.v1.Recognizer"

const (
	checkAvailabilityMethod = "/" + ServiceName + "/CheckAvailability"
	recognizeMethod         = "/" + ServiceName + "/Recognize"
)

// RecognizerServer is the server API for the recognizer service. Requests and
// responses are google.protobuf.Struct messages so that clients in any
// language can call it without generated stubs.
type RecognizerServer interface {
	// CheckAvailability reports whether EasyOCR can be launched.
	// Request: {"refresh": bool}
	// Response: {"available": bool, "state": string, "engine": string}
	CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

	// Recognize runs EasyOCR on an image.
	// Request: {"path": string} or {"image": base64, "filename": string},
	// plus optional "settings" overrides.
	// Response: {"run_id", "image", "records": [...], "error": {...}}
	Recognize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RecognizerServiceDesc describes the recognizer service for grpc.Server
var RecognizerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecognizerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CheckAvailability",
			Handler:    checkAvailabilityHandler,
		},
		{
			MethodName: "Recognize",
			Handler:    recognizeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lens/v1/recognizer.proto",
}

// RegisterRecognizerServer registers srv with s
func RegisterRecognizerServer(s grpc.ServiceRegistrar, srv RecognizerServer) {
	s.RegisterService(&RecognizerServiceDesc, srv)
}

func checkAvailabilityHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(RecognizerServer).CheckAvailability(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: checkAvailabilityMethod,
	}

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RecognizerServer).CheckAvailability(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func recognizeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(RecognizerServer).Recognize(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: recognizeMethod,
	}

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RecognizerServer).Recognize(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

// RecognizerClient calls the recognizer service
type RecognizerClient struct {
	cc grpc.ClientConnInterface
}

// NewRecognizerClient creates a client on an existing connection
func NewRecognizerClient(cc grpc.ClientConnInterface) *RecognizerClient {
	return &RecognizerClient{cc: cc}
}

func (c *RecognizerClient) CheckAvailability(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, checkAvailabilityMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecognizerClient) Recognize(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, recognizeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
