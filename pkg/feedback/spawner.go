package feedback

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Spawner starts unsupervised background work. Tasks may overlap; callers
// get no handle to join a single task. Wait exists for process shutdown.
type Spawner struct {
	logger  *slog.Logger
	wg      sync.WaitGroup
	active  atomic.Int64
	started atomic.Int64
}

// NewSpawner creates a Spawner.
func NewSpawner(logger *slog.Logger) *Spawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spawner{logger: logger.With("component", "spawner")}
}

// Go runs fn on a new goroutine with ctx. A panic in fn is logged and
// swallowed.
func (s *Spawner) Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	s.active.Add(1)
	s.started.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.active.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("background task panicked", "task", name, "panic", r)
			}
		}()
		fn(ctx)
	}()
}

// Active returns the number of running tasks.
func (s *Spawner) Active() int {
	return int(s.active.Load())
}

// Started returns the number of tasks started so far.
func (s *Spawner) Started() int {
	return int(s.started.Load())
}

// Wait blocks until every started task returned.
func (s *Spawner) Wait() {
	s.wg.Wait()
}
