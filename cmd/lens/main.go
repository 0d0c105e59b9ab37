package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emmett/lens/internal/app"
	"github.com/emmett/lens/internal/config"
	"github.com/emmett/lens/internal/ocr"
	"github.com/emmett/lens/internal/otel"

	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var defaults = ocr.DefaultSettings()

var (
	configFile     = flag.String("config", "", "Path to configuration file (default: ~/.lensrc or /etc/lens/config.yaml)")
	initConfig     = flag.Bool("init-config", false, "Write a default configuration file (to -config, or ~/.lensrc) and exit")
	listModels     = flag.Bool("list-models", false, "List all EasyOCR models")
	listDownloaded = flag.Bool("list-downloaded", false, "List all downloaded model weights")
	downloadModel  = flag.String("download-model", "", "Download a specific model by name")
	prefetch       = flag.Bool("prefetch", false, "Download the models the configured languages need")
	outputFormat   = flag.String("format", "console", "Output format: console, json, text, tsv")
	outputFile     = flag.String("output", "", "Output file (default: stdout)")
	autoDownload   = flag.Bool("auto-download", false, "Download missing models before recognizing")
	checkOnly      = flag.Bool("check", false, "Only check whether EasyOCR can be launched")
	showVersion    = flag.Bool("version", false, "Show version information")

	executable     = flag.String("executable", "", "EasyOCR command or Python interpreter (default: auto-detect)")
	languages      = flag.String("lang", defaults.Languages, "Comma separated language codes, e.g. en,ch_sim")
	gpu            = flag.Bool("gpu", defaults.GPU, "Use GPU acceleration")
	workers        = flag.Int("workers", defaults.Workers, "Number of CPU workers (0 = auto)")
	decoder        = flag.String("decoder", defaults.Decoder.String(), "Decoder: greedy, beamsearch, wordbeamsearch")
	beamWidth      = flag.Int("beam-width", defaults.BeamWidth, "Beam width for beam search decoders")
	batchSize      = flag.Int("batch-size", defaults.BatchSize, "Recognition batch size")
	minSize        = flag.Int("min-size", defaults.MinSize, "Minimum text box size in pixels")
	textThreshold  = flag.Float64("text-threshold", defaults.TextThreshold, "Text confidence threshold")
	lowText        = flag.Float64("low-text", defaults.LowText, "Text low-bound score")
	linkThreshold  = flag.Float64("link-threshold", defaults.LinkThreshold, "Link confidence threshold")
	contrastThs    = flag.Float64("contrast-ths", defaults.ContrastThs, "Contrast threshold for a second pass")
	adjustContrast = flag.Float64("adjust-contrast", defaults.AdjustContrast, "Target contrast for low contrast regions")
	addMargin      = flag.Float64("add-margin", defaults.AddMargin, "Extend bounding boxes by this ratio")
	paragraph      = flag.Bool("paragraph", defaults.Paragraph, "Merge results into paragraphs")
	quantize       = flag.Bool("quantize", defaults.Quantize, "Use dynamic quantization")
	modelDir       = flag.String("model-dir", "", "EasyOCR model storage directory (default: ~/.EasyOCR/model)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: lens [flags] IMAGE...\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("Lens CLI v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if *initConfig {
		path, err := config.Init(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		os.Exit(0)
	}

	godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := otel.Setup(ctx, "lens", Version, os.Stderr)
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

	settings, err := applyConfigDefaults(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	mgr := app.NewModelManager(settings.ModelStorageDirectory, os.Stdout)

	if *listModels {
		if err := mgr.ListModels(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *listDownloaded {
		if err := mgr.ListDownloaded(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *downloadModel != "" {
		if err := mgr.Download(ctx, *downloadModel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *prefetch {
		if err := mgr.Prefetch(ctx, settings.Languages); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	recognizer := app.NewRecognizer(app.RecognizerConfig{
		Images:       flag.Args(),
		Settings:     settings,
		OutputFormat: *outputFormat,
		OutputFile:   *outputFile,
		AutoDownload: *autoDownload,
		CheckOnly:    *checkOnly,
	})

	if err := recognizer.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyConfigDefaults fills flags the user did not set from the config file
// and returns the effective recognition settings
func applyConfigDefaults(cfg *config.Config) (ocr.Settings, error) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if !flagsSet["format"] && cfg.Output.Format != "" {
		*outputFormat = cfg.Output.Format
	}
	if !flagsSet["output"] && cfg.Output.File != "" {
		*outputFile = cfg.Output.File
	}
	if !flagsSet["auto-download"] {
		*autoDownload = cfg.Models.AutoDownload
	}

	settings := cfg.Settings()

	if flagsSet["executable"] {
		settings.Executable = *executable
	}
	if flagsSet["lang"] {
		settings.Languages = *languages
	}
	if flagsSet["gpu"] {
		settings.GPU = *gpu
	}
	if flagsSet["workers"] {
		settings.Workers = *workers
	}
	if flagsSet["decoder"] {
		d, err := ocr.ParseDecoder(*decoder)
		if err != nil {
			return settings, err
		}
		settings.Decoder = d
	}
	if flagsSet["beam-width"] {
		settings.BeamWidth = *beamWidth
	}
	if flagsSet["batch-size"] {
		settings.BatchSize = *batchSize
	}
	if flagsSet["min-size"] {
		settings.MinSize = *minSize
	}
	if flagsSet["text-threshold"] {
		settings.TextThreshold = *textThreshold
	}
	if flagsSet["low-text"] {
		settings.LowText = *lowText
	}
	if flagsSet["link-threshold"] {
		settings.LinkThreshold = *linkThreshold
	}
	if flagsSet["contrast-ths"] {
		settings.ContrastThs = *contrastThs
	}
	if flagsSet["adjust-contrast"] {
		settings.AdjustContrast = *adjustContrast
	}
	if flagsSet["add-margin"] {
		settings.AddMargin = *addMargin
	}
	if flagsSet["paragraph"] {
		settings.Paragraph = *paragraph
	}
	if flagsSet["quantize"] {
		settings.Quantize = *quantize
	}
	if flagsSet["model-dir"] {
		settings.ModelStorageDirectory = *modelDir
	}

	return settings, settings.Validate()
}
