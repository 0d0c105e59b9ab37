package ocr

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPendingPollAndWait(t *testing.T) {
	release := make(chan struct{})
	p := Go(func() int {
		<-release
		return 42
	})

	_, ok := p.Poll()
	require.False(t, ok)

	close(release)

	v, err := p.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, v)

	// the result stays available after it was taken
	v, ok = p.Poll()
	require.True(t, ok)
	require.Equal(t, 42, v)
}

func TestPendingWaitCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	p := Go(func() string {
		<-release
		return "late"
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPendingAbandoned(t *testing.T) {
	done := make(chan struct{})
	Go(func() int {
		defer close(done)
		return 1
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker blocked on an abandoned result")
	}
}

func TestCheckAvailability(t *testing.T) {
	f := &fakeProbe{succeed: map[string]bool{"python -m easyocr.cli --help": true}}

	ok, err := CheckAvailability(newTestResolver(f), "").Wait(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRunRecognitionCopiesSettings(t *testing.T) {
	script := writeScript(t, `
echo "$@" > "$(dirname "$0")/args"
echo "([[1, 1], [2, 1], [2, 2], [1, 2]], 'ok', 0.5)"
`)

	s := testSettings(script)
	p := RunRecognition(NewRunner(), "image.png", s)
	s.Languages = "ja"

	outcome, err := p.Wait(context.Background())
	require.NoError(t, err)
	require.False(t, outcome.Failed(), outcome.Message())
	require.Equal(t, "ok", outcome.Text())

	data, err := os.ReadFile(filepath.Join(filepath.Dir(script), "args"))
	require.NoError(t, err)
	require.Contains(t, string(data), "-l en -f image.png")
}

// stubResolver reports a candidate launchable when launchable returns true
func stubResolver(launchable func(program string) bool) *Resolver {
	r := DefaultResolver()
	r.Probe = func(ctx context.Context, program string, args ...string) bool {
		return launchable(program)
	}
	return r
}

func TestTracker(t *testing.T) {
	release := make(chan struct{})
	r := DefaultResolver()
	r.Probe = func(ctx context.Context, program string, args ...string) bool {
		<-release
		return program == "easyocr"
	}

	tracker := NewTracker(r)
	require.Equal(t, Checking, tracker.State())

	tracker.Refresh("")
	require.Equal(t, Checking, tracker.State())

	close(release)
	require.Eventually(t, func() bool {
		return tracker.State() == Available
	}, 5*time.Second, 5*time.Millisecond)
}

func TestTrackerRefreshSupersedes(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	r := DefaultResolver()
	r.Probe = func(ctx context.Context, program string, args ...string) bool {
		if program == "/slow" {
			<-block
			return true
		}
		return false
	}

	tracker := NewTracker(r)
	tracker.Refresh("/slow")
	tracker.Refresh("/fast")

	require.Eventually(t, func() bool {
		return tracker.State() == Unavailable
	}, 5*time.Second, 5*time.Millisecond)
}

func TestTrackerWait(t *testing.T) {
	r := DefaultResolver()
	r.Probe = func(ctx context.Context, program string, args ...string) bool { return false }

	tracker := NewTracker(r)

	state, err := tracker.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, Checking, state)

	tracker.Refresh("")
	state, err = tracker.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, Unavailable, state)
	require.Equal(t, Unavailable, tracker.State())
}

func TestTrackerKeepsStateWhileRechecking(t *testing.T) {
	release := make(chan struct{})
	calls := 0

	tracker := NewTracker(stubResolver(func(program string) bool {
		calls++
		if calls > 1 {
			<-release
		}
		return program == "easyocr"
	}))
	tracker.Refresh("")

	state, err := tracker.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, Available, state)

	tracker.Refresh("")
	require.True(t, tracker.InFlight())
	require.Equal(t, Available, tracker.State())

	close(release)
	state, err = tracker.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, Available, state)
	require.False(t, tracker.InFlight())
}

func TestTrackerRecord(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	tracker := NewTracker(stubResolver(func(string) bool {
		<-block
		return true
	}))
	tracker.Refresh("")
	require.Equal(t, Checking, tracker.State())

	tracker.Record(false)
	require.Equal(t, Unavailable, tracker.State())
	require.False(t, tracker.InFlight())

	state, err := tracker.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, Unavailable, state)
}
