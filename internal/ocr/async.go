package ocr

import (
	"context"
	"sync"
)

// Pending is a one-shot result produced by a background worker. The worker
// never blocks on delivery, so a Pending may be dropped at any time, and any
// number of goroutines may poll or wait on it.
type Pending[T any] struct {
	done  chan struct{}
	value T
}

// Go starts fn on its own goroutine and returns a handle to its result
func Go[T any](fn func() T) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{})}
	go func() {
		p.value = fn()
		close(p.done)
	}()
	return p
}

// Poll returns the result if the worker has finished. It never blocks.
func (p *Pending[T]) Poll() (T, bool) {
	select {
	case <-p.done:
		return p.value, true
	default:
		var zero T
		return zero, false
	}
}

// Wait blocks until the result is ready or ctx is done
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// CheckAvailability probes for the tool in the background
func CheckAvailability(r *Resolver, explicit string) *Pending[bool] {
	return Go(func() bool {
		_, ok := r.Resolve(context.Background(), explicit)
		return ok
	})
}

// RunRecognition runs the tool in the background. Settings are copied at
// call time; later edits by the caller do not affect the run.
func RunRecognition(rn *Runner, image string, s Settings) *Pending[Outcome] {
	return Go(func() Outcome {
		return rn.Run(context.Background(), image, s)
	})
}

// Tracker keeps the last known availability of the tool for a UI or a
// health endpoint. Only a completed probe changes the state.
type Tracker struct {
	Resolver *Resolver

	mu      sync.Mutex
	state   Availability
	pending *Pending[bool]
}

// NewTracker creates a tracker in the Checking state
func NewTracker(r *Resolver) *Tracker {
	return &Tracker{Resolver: r, state: Checking}
}

// Refresh starts a new availability check, superseding any check still in
// flight. A settled state is kept until the new check completes; only a
// tracker that never settled reports Checking.
func (t *Tracker) Refresh(explicit string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.Resolver
	if r == nil {
		r = DefaultResolver()
	}

	t.pending = CheckAvailability(r, explicit)
}

// Record settles the state from a check the caller ran itself. Any check
// still in flight is superseded.
func (t *Tracker) Record(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.settle(ok)
}

// InFlight reports whether a check started by Refresh has not finished
func (t *Tracker) InFlight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == nil {
		return false
	}

	ok, done := t.pending.Poll()
	if done {
		t.settle(ok)
	}
	return !done
}

// State returns the current availability, folding in a finished probe
func (t *Tracker) State() Availability {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == nil {
		return t.state
	}

	ok, done := t.pending.Poll()
	if !done {
		return t.state
	}

	t.settle(ok)
	return t.state
}

// Wait blocks until the outstanding probe finishes or ctx is done and
// returns the resulting state
func (t *Tracker) Wait(ctx context.Context) (Availability, error) {
	t.mu.Lock()
	pending := t.pending
	t.mu.Unlock()

	if pending == nil {
		return t.State(), nil
	}

	ok, err := pending.Wait(ctx)
	if err != nil {
		return t.State(), err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// a newer Refresh owns the state now
	if t.pending == pending {
		t.settle(ok)
	}
	return t.state, nil
}

func (t *Tracker) settle(ok bool) {
	t.pending = nil
	if ok {
		t.state = Available
	} else {
		t.state = Unavailable
	}
}
