package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/emmett/lens/internal/service"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type Config struct {
	ServerName    string
	ServerVersion string
	Service       *service.Service
}

type Server struct {
	config    Config
	mcpServer *sdk.Server
	service   *service.Service

	cancel context.CancelFunc
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("service is required")
	}

	s := &Server{
		config:  cfg,
		service: cfg.Service,
	}

	// Create MCP server
	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	// Register tools
	s.registerTools()

	return s, nil
}

// Start serves on stdin/stdout until the client disconnects or Stop is called
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Connect serves a single session over t
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

// Handler serves the tools over streamable HTTP
func (s *Server) Handler() http.Handler {
	return sdk.NewStreamableHTTPHandler(func(r *http.Request) *sdk.Server {
		return s.mcpServer
	}, &sdk.StreamableHTTPOptions{
		Stateless: true,
	})
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "recognize_image",
		Description: "Recognize text in an image with EasyOCR. Pass either a local file path or base64 image data.",
	}, s.handleRecognizeImage)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "check_availability",
		Description: "Check whether the EasyOCR command line tool can be launched",
	}, s.handleCheckAvailability)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_models",
		Description: "List EasyOCR model weights and whether they are downloaded",
	}, s.handleListModels)
}
