package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/emmett/lens/internal/config"
	"github.com/emmett/lens/internal/server/mcp"
	"github.com/emmett/lens/internal/service"
)

// MCPHandler handles MCP server operations
type MCPHandler struct {
	config    *config.Config
	version   string
	gitCommit string
}

// NewMCPHandler creates a new MCP handler
func NewMCPHandler(cfg *config.Config, version, gitCommit string) *MCPHandler {
	return &MCPHandler{
		config:    cfg,
		version:   version,
		gitCommit: gitCommit,
	}
}

// Run starts the MCP server on stdin/stdout. Everything else goes to stderr.
func (h *MCPHandler) Run() error {
	fmt.Fprintf(os.Stderr, "Starting MCP server...\n")
	fmt.Fprintf(os.Stderr, "Protocol: Model Context Protocol (stdio transport)\n")
	fmt.Fprintf(os.Stderr, "Version: %s (commit: %s)\n\n", h.version, h.gitCommit)

	settings := h.config.Settings()
	fmt.Fprintf(os.Stderr, "Languages: %s\n\n", settings.Languages)

	// Get absolute path to lens-mcp binary
	execPath, err := os.Executable()
	if err != nil {
		execPath = "./build/lens-mcp"
	}

	// Print MCP client configuration
	type MCPServerConfig struct {
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}
	type MCPClientConfig struct {
		MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	}

	clientConfig := MCPClientConfig{
		MCPServers: map[string]MCPServerConfig{
			"lens-ocr": {
				Command: execPath,
				Args:    []string{},
			},
		},
	}

	configJSON, err := json.MarshalIndent(clientConfig, "", "  ")
	if err == nil {
		fmt.Fprintf(os.Stderr, "MCP Client Configuration:\n%s\n\n", string(configJSON))
	}

	svc := service.New(service.Config{
		Settings:  settings,
		RateLimit: h.config.Server.RateLimit,
		RateBurst: h.config.Server.RateBurst,
		Logger:    slog.Default(),
	})

	// Create MCP server
	serverConfig := mcp.Config{
		ServerName:    "lens-mcp",
		ServerVersion: h.version,
		Service:       svc,
	}

	server, err := mcp.NewServer(serverConfig)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	fmt.Fprintf(os.Stderr, "MCP server ready. Listening on stdin/stdout...\n")
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop.\n\n")

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		fmt.Fprintf(os.Stderr, "\nShutting down MCP server...\n")
		if err := server.Stop(); err != nil {
			return fmt.Errorf("error stopping server: %w", err)
		}
		return nil
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}
