package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/emmett/lens/internal/app"
	"github.com/emmett/lens/internal/config"
	"github.com/emmett/lens/internal/otel"

	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.lensrc or /etc/lens/config.yaml)")
	languages   = flag.String("lang", "", "Default language codes for recognize_image")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Lens MCP v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	godotenv.Load()

	// stdout carries the protocol
	shutdown, err := otel.Setup(context.Background(), "lens-mcp", Version, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to set up telemetry: %v\n", err)
	} else {
		defer shutdown(context.Background())
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	if *languages != "" {
		cfg.Recognition.Languages = *languages
	}

	handler := app.NewMCPHandler(cfg, Version, GitCommit)
	if err := handler.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
