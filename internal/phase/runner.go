package phase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/duskhollow/duskhollow/internal/game"
	"github.com/duskhollow/duskhollow/internal/logging"
)

// ReasonCompleted and ReasonDeadline name the two ways a phase ends.
const (
	ReasonCompleted = "completed"
	ReasonDeadline  = "deadline"
)

// CompletionFunc reports whether the running phase has functionally
// finished (all votes in, every speaker done, and so on). Polled in the
// background; must be cheap and safe to call repeatedly.
type CompletionFunc func() bool

// TransitionFunc receives the single end-of-phase notification with the
// reason the phase ended.
type TransitionFunc func(reason string)

// Runner starts phase instances. Each instance gets a completion poller
// and a hard deadline timer; whichever fires first wins and the other is
// discarded, so the transition callback runs at most once per instance.
type Runner struct {
	logger       *logging.Logger
	pollInterval time.Duration
}

// NewRunner creates a Runner. Poll interval defaults to one second.
func NewRunner(logger *logging.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{logger: logger, pollInterval: time.Second}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPollInterval sets how often completion is checked.
func WithPollInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.pollInterval = d }
}

// Instance is one running phase's timer pair. Stop cancels both without
// firing the transition. The fired flag is claimed by whichever of
// fire/Stop gets there first; it is a CAS rather than a sync.Once so
// the transition callback may itself call Stop without deadlocking.
type Instance struct {
	phase  game.Phase
	cancel context.CancelFunc
	fired  atomic.Bool
	done   chan struct{}
}

// Start launches the poller and deadline timer for one phase instance.
// The transition callback is invoked from a background goroutine,
// exactly once, unless Stop wins first.
func (r *Runner) Start(ctx context.Context, p game.Phase, deadline time.Time, complete CompletionFunc, transition TransitionFunc) *Instance {
	runCtx, cancel := context.WithCancel(ctx)
	inst := &Instance{
		phase:  p,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	fire := func(reason string) {
		if !inst.fired.CompareAndSwap(false, true) {
			return
		}
		defer close(inst.done)
		cancel()
		r.logger.Debug("phase ending", "phase", p, "reason", reason)
		transition(reason)
	}

	go func() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()

		if complete != nil && complete() {
			fire(ReasonCompleted)
			return
		}
		for {
			select {
			case <-runCtx.Done():
				return
			case <-timer.C:
				fire(ReasonDeadline)
				return
			case <-ticker.C:
				if complete != nil && complete() {
					fire(ReasonCompleted)
					return
				}
			}
		}
	}()
	return inst
}

// Phase returns the phase this instance is timing.
func (i *Instance) Phase() game.Phase { return i.phase }

// Stop cancels the instance's timers. A transition already in flight is
// not undone; one that has not fired never will. Safe to call from
// within the transition callback itself.
func (i *Instance) Stop() {
	if i.fired.CompareAndSwap(false, true) {
		close(i.done)
	}
	i.cancel()
}

// Done is closed once the instance has either fired its transition or
// been stopped.
func (i *Instance) Done() <-chan struct{} { return i.done }
