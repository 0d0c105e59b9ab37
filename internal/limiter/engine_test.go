package limiter

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emmett/lens/internal/ocr"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type mockEngine struct {
	calls atomic.Int64
}

func (m *mockEngine) Name() string {
	return "mock"
}

func (m *mockEngine) Available(ctx context.Context) bool {
	return true
}

func (m *mockEngine) Recognize(ctx context.Context, image string, settings ocr.Settings) ocr.Outcome {
	m.calls.Add(1)
	return ocr.Outcome{Records: []ocr.Record{{Text: image}}}
}

func TestNew(t *testing.T) {
	require.Nil(t, New(0, 1))
	require.Nil(t, New(-1, 1))

	l := New(2, 0)
	require.NotNil(t, l)
	require.Equal(t, 1, l.Burst())
}

func TestEnginePassThrough(t *testing.T) {
	mock := &mockEngine{}
	e := NewEngine(nil, mock)

	require.Equal(t, "mock", e.Name())
	require.True(t, e.Available(context.Background()))

	outcome := e.Recognize(context.Background(), "a.png", ocr.DefaultSettings())
	require.Equal(t, "a.png", outcome.Text())
	require.EqualValues(t, 1, mock.calls.Load())
}

func TestEngineWaits(t *testing.T) {
	mock := &mockEngine{}
	e := NewEngine(rate.NewLimiter(rate.Every(50*time.Millisecond), 1), mock)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.False(t, e.Recognize(context.Background(), "a.png", ocr.DefaultSettings()).Failed())
	}

	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	require.EqualValues(t, 3, mock.calls.Load())
}

func TestEngineCancelledWhileWaiting(t *testing.T) {
	mock := &mockEngine{}
	e := NewEngine(rate.NewLimiter(rate.Every(time.Hour), 1), mock)

	require.False(t, e.Recognize(context.Background(), "a.png", ocr.DefaultSettings()).Failed())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	outcome := e.Recognize(ctx, "b.png", ocr.DefaultSettings())
	require.True(t, outcome.Failed())
	require.Equal(t, ocr.ErrorCancelled, outcome.Err.Code)
	require.EqualValues(t, 1, mock.calls.Load())
}
