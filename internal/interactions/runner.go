package interactions

import (
	"log/slog"
	"sync"
	"time"
)

// Runner executes deferred-command completions on a bounded set of
// goroutines so a burst of slash commands cannot pile up unbounded work.
type Runner struct {
	sem    chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewRunner creates a Runner allowing up to maxConcurrent tasks.
// If maxConcurrent is <= 0, it defaults to 16.
func NewRunner(maxConcurrent int) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 16
	}
	return &Runner{
		sem:    make(chan struct{}, maxConcurrent),
		logger: slog.Default(),
	}
}

// Submit starts fn on its own goroutine. It reports false when every slot
// is busy; no goroutine is started in that case.
func (r *Runner) Submit(fn func()) bool {
	select {
	case r.sem <- struct{}{}:
	default:
		return false
	}

	r.wg.Add(1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("background task panicked", "panic", rec)
			}
			<-r.sem
			r.wg.Done()
		}()
		fn()
	}()
	return true
}

// Drain blocks until all running tasks finish or the timeout passes. It
// reports whether the runner emptied in time.
func (r *Runner) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
