package limiter

import (
	"context"

	"github.com/emmett/lens/internal/ocr"

	"golang.org/x/time/rate"
)

type Limiter interface {
	limiterSetup()
}

type Engine interface {
	Limiter
	ocr.Engine
}

type limitedEngine struct {
	limiter *rate.Limiter
	engine  ocr.Engine
}

// NewEngine caps how often e is started. A nil limiter passes calls through.
func NewEngine(l *rate.Limiter, e ocr.Engine) Engine {
	return &limitedEngine{
		limiter: l,
		engine:  e,
	}
}

// New returns a limiter for perSecond runs, or nil when perSecond is not positive
func New(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}

	if burst < 1 {
		burst = 1
	}

	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (e *limitedEngine) limiterSetup() {
}

func (e *limitedEngine) Name() string {
	return e.engine.Name()
}

func (e *limitedEngine) Available(ctx context.Context) bool {
	return e.engine.Available(ctx)
}

func (e *limitedEngine) Recognize(ctx context.Context, image string, settings ocr.Settings) ocr.Outcome {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return ocr.Outcome{Err: ocr.NewCancelledError(err)}
		}
	}

	return e.engine.Recognize(ctx, image, settings)
}
