package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emmett/lens/internal/limiter"
	"github.com/emmett/lens/internal/ocr"
	"github.com/emmett/lens/internal/otel"
	"github.com/emmett/lens/internal/output"

	"github.com/google/uuid"
)

// Config holds the service configuration
type Config struct {
	// Settings are the defaults every request starts from
	Settings ocr.Settings

	// RateLimit caps recognition runs per second (0 = unlimited)
	RateLimit float64
	RateBurst int

	Logger *slog.Logger
}

// Service runs recognitions for the network surfaces. It owns the engine
// stack and a background availability tracker.
type Service struct {
	engine   ocr.Engine
	tracker  *ocr.Tracker
	settings ocr.Settings
	logger   *slog.Logger
}

// New creates a service around the EasyOCR runner
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver := ocr.DefaultResolver()
	resolver.Logger = logger

	runner := &ocr.Runner{
		Resolver:   resolver,
		Executable: cfg.Settings.Executable,
		Logger:     logger,
	}

	var engine ocr.Engine = otel.NewEngine(runner)
	engine = limiter.NewEngine(limiter.New(cfg.RateLimit, cfg.RateBurst), engine)

	return NewWithEngine(engine, ocr.NewTracker(resolver), cfg)
}

// NewWithEngine creates a service around an arbitrary engine
func NewWithEngine(engine ocr.Engine, tracker *ocr.Tracker, cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		engine:   engine,
		tracker:  tracker,
		settings: cfg.Settings,
		logger:   logger,
	}

	s.Refresh()
	return s
}

// Settings returns a copy of the default settings
func (s *Service) Settings() ocr.Settings {
	return s.settings
}

// EngineName identifies the underlying engine
func (s *Service) EngineName() string {
	return s.engine.Name()
}

// Availability returns the last known availability without blocking
func (s *Service) Availability() ocr.Availability {
	return s.tracker.State()
}

// Rechecking reports whether a background availability check is running
func (s *Service) Rechecking() bool {
	return s.tracker.InFlight()
}

// Refresh starts a background availability probe
func (s *Service) Refresh() {
	s.tracker.Refresh(s.settings.Executable)
}

// CheckAvailability checks the engine synchronously and records the result
// as the tracked availability
func (s *Service) CheckAvailability(ctx context.Context) bool {
	ok := s.engine.Available(ctx)
	s.logger.Debug("availability checked", "engine", s.engine.Name(), "available", ok)

	if ctx.Err() == nil {
		s.tracker.Record(ok)
	}
	return ok
}

// Recognize runs the engine on a local image file
func (s *Service) Recognize(ctx context.Context, image string, settings ocr.Settings) (output.RecognitionResult, error) {
	if err := settings.Validate(); err != nil {
		return output.RecognitionResult{}, fmt.Errorf("invalid settings: %w", err)
	}

	id := uuid.NewString()
	start := time.Now()

	s.logger.Info("recognition started", "run_id", id, "image", image, "languages", ocr.SplitLanguages(settings.Languages))

	outcome := s.engine.Recognize(ctx, image, settings)

	result := output.NewRecognitionResult(0, image, outcome)
	result.RunID = id
	result.Duration = time.Since(start)

	if outcome.Failed() {
		s.logger.Warn("recognition failed", "run_id", id, "code", outcome.Err.Code, "duration", result.Duration)
	} else {
		s.logger.Info("recognition finished", "run_id", id, "records", len(outcome.Records), "duration", result.Duration)
	}

	return result, nil
}

// Overrides are the settings a request may change. The executable and the
// model storage directory stay as configured on the server.
type Overrides struct {
	Languages      *string      `json:"languages"`
	GPU            *bool        `json:"gpu"`
	Workers        *int         `json:"workers"`
	Decoder        *ocr.Decoder `json:"decoder"`
	BeamWidth      *int         `json:"beam_width"`
	BatchSize      *int         `json:"batch_size"`
	MinSize        *int         `json:"min_size"`
	TextThreshold  *float64     `json:"text_threshold"`
	LowText        *float64     `json:"low_text"`
	LinkThreshold  *float64     `json:"link_threshold"`
	ContrastThs    *float64     `json:"contrast_ths"`
	AdjustContrast *float64     `json:"adjust_contrast"`
	AddMargin      *float64     `json:"add_margin"`
	Paragraph      *bool        `json:"paragraph"`
	Quantize       *bool        `json:"quantize"`
}

// serverOnly names settings a request is never allowed to touch
var serverOnly = []string{"executable", "model_storage_directory"}

func (o Overrides) apply(s *ocr.Settings) {
	set(&s.Languages, o.Languages)
	set(&s.GPU, o.GPU)
	set(&s.Workers, o.Workers)
	set(&s.Decoder, o.Decoder)
	set(&s.BeamWidth, o.BeamWidth)
	set(&s.BatchSize, o.BatchSize)
	set(&s.MinSize, o.MinSize)
	set(&s.TextThreshold, o.TextThreshold)
	set(&s.LowText, o.LowText)
	set(&s.LinkThreshold, o.LinkThreshold)
	set(&s.ContrastThs, o.ContrastThs)
	set(&s.AdjustContrast, o.AdjustContrast)
	set(&s.AddMargin, o.AddMargin)
	set(&s.Paragraph, o.Paragraph)
	set(&s.Quantize, o.Quantize)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Merge applies overrides, keyed by the settings' json names, to a copy of
// the defaults. Server-only settings are rejected in any letter case.
func (s *Service) Merge(overrides map[string]any) (ocr.Settings, error) {
	settings := s.settings

	if len(overrides) == 0 {
		return settings, nil
	}

	for key := range overrides {
		for _, name := range serverOnly {
			if strings.EqualFold(strings.TrimSpace(key), name) {
				return settings, fmt.Errorf("%s cannot be set per request", name)
			}
		}
	}

	data, err := json.Marshal(overrides)
	if err != nil {
		return settings, fmt.Errorf("invalid settings: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var o Overrides
	if err := decoder.Decode(&o); err != nil {
		return s.settings, fmt.Errorf("invalid settings: %w", err)
	}

	o.apply(&settings)

	if err := settings.Validate(); err != nil {
		return s.settings, fmt.Errorf("invalid settings: %w", err)
	}

	return settings, nil
}
