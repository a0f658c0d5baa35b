// Package governor bounds how many generation jobs run at once and drains
// in-flight work on shutdown. Admission is a counting semaphore with a
// bounded wait; a trigger that cannot get a slot in time is told to retry
// later rather than queue unboundedly in-process.
package governor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Defaults per the concurrency model: ten simultaneous upstream AI calls,
// five minutes of admission patience, two minutes of drain grace.
const (
	DefaultCapacity  = 10
	DefaultAdmitWait = 300 * time.Second
	DefaultGrace     = 120 * time.Second
)

// ErrTimeout means no slot freed up within the admission wait. The job never
// started and nothing was charged.
var ErrTimeout = errors.New("no generation slot available within the admission wait")

// ErrDraining means the process is shutting down and admits no new jobs.
var ErrDraining = errors.New("shutting down, not admitting new jobs")

// Governor is the concurrency gate for generation jobs.
type Governor struct {
	sem       *semaphore.Weighted
	admitWait time.Duration
	log       *logrus.Logger

	mu       sync.Mutex
	draining bool

	inflight atomic.Int64
	wg       sync.WaitGroup

	jobsCtx    context.Context
	cancelJobs context.CancelFunc
}

// New creates a Governor with the given capacity and admission wait.
// Non-positive arguments fall back to the defaults.
func New(capacity int, admitWait time.Duration, log *logrus.Logger) *Governor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if admitWait <= 0 {
		admitWait = DefaultAdmitWait
	}
	jobsCtx, cancel := context.WithCancel(context.Background())
	return &Governor{
		sem:        semaphore.NewWeighted(int64(capacity)),
		admitWait:  admitWait,
		log:        log,
		jobsCtx:    jobsCtx,
		cancelJobs: cancel,
	}
}

// Acquire blocks until a slot frees up, the admission wait elapses, or ctx is
// cancelled. On success it returns a release function that must be called
// exactly once when the job resolves.
func (g *Governor) Acquire(ctx context.Context) (func(), error) {
	g.mu.Lock()
	draining := g.draining
	g.mu.Unlock()
	if draining {
		return nil, ErrDraining
	}

	waitCtx, cancel := context.WithTimeout(ctx, g.admitWait)
	defer cancel()

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrTimeout
	}

	// Drain may have started while this caller was waiting on the semaphore.
	// Re-checking under the mutex before wg.Add keeps Shutdown's wg.Wait from
	// racing with a late admit.
	g.mu.Lock()
	if g.draining {
		g.mu.Unlock()
		g.sem.Release(1)
		return nil, ErrDraining
	}
	g.inflight.Add(1)
	g.wg.Add(1)
	g.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.inflight.Add(-1)
			g.wg.Done()
			g.sem.Release(1)
		})
	}
	return release, nil
}

// JobContext derives a cancellable context for an admitted job. It is bound
// to the governor, not the triggering request, so a dropped webhook
// connection does not abort a charged generation; it is cancelled when the
// drain grace expires.
func (g *Governor) JobContext(deadline time.Duration) (context.Context, context.CancelFunc) {
	if deadline <= 0 {
		return context.WithCancel(g.jobsCtx)
	}
	return context.WithTimeout(g.jobsCtx, deadline)
}

// Draining reports whether admission has stopped.
func (g *Governor) Draining() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.draining
}

// InFlight returns the number of admitted, unresolved jobs.
func (g *Governor) InFlight() int {
	return int(g.inflight.Load())
}

// Shutdown stops admission, waits up to grace for in-flight jobs to resolve,
// then cancels the contexts of any still running. It returns how many jobs
// were force-aborted; the caller owns refunding them.
func (g *Governor) Shutdown(grace time.Duration) int {
	g.mu.Lock()
	g.draining = true
	g.mu.Unlock()

	if grace <= 0 {
		grace = DefaultGrace
	}

	g.log.WithFields(logrus.Fields{
		"in_flight": g.InFlight(),
		"grace":     grace.String(),
	}).Info("draining generation jobs")

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
	}

	remaining := g.InFlight()
	g.cancelJobs()
	if remaining > 0 {
		g.log.WithField("aborted", remaining).Warn("grace window expired, aborting in-flight jobs")
	}
	return remaining
}
