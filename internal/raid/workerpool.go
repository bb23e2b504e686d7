package raid

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

// WorkerState is what the single background worker slot is doing, if
// anything.
type WorkerState int

const (
	WorkerIdle WorkerState = iota
	WorkerRebuilding
	WorkerRebalancing
)

func (s WorkerState) String() string {
	switch s {
	case WorkerRebuilding:
		return "rebuild"
	case WorkerRebalancing:
		return "rebalance"
	default:
		return "idle"
	}
}

// workerGate enforces the engine's single-worker rule: at most one of
// rebuild/rebalance may run at a time, and foreground writes are refused
// while either runs. It is backed by a capacity-1 ants pool, the same
// mechanism docdb's HealingService uses to bound its own background
// healing to one goroutine at a time, plus a cancel func so Cleanup can
// interrupt an in-flight run.
type workerGate struct {
	mu     sync.Mutex
	state  WorkerState
	cancel context.CancelFunc
	pool   *ants.Pool
}

func newWorkerGate() (*workerGate, error) {
	pool, err := ants.NewPool(1, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &workerGate{pool: pool}, nil
}

// Busy reports whether a worker is currently running.
func (g *workerGate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state != WorkerIdle
}

// State returns the current worker state.
func (g *workerGate) State() WorkerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Start submits fn to run under the given state, refusing if a worker is
// already active. fn receives a context cancelled by Stop or Close.
func (g *workerGate) Start(state WorkerState, fn func(ctx context.Context)) error {
	g.mu.Lock()
	if g.state != WorkerIdle {
		g.mu.Unlock()
		return ErrWorkerBusy
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.state = state
	g.cancel = cancel
	g.mu.Unlock()

	err := g.pool.Submit(func() {
		defer g.finish()
		fn(ctx)
	})
	if err != nil {
		g.finish()
		if err == ants.ErrPoolOverload {
			return ErrWorkerBusy
		}
		return err
	}
	return nil
}

func (g *workerGate) finish() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = WorkerIdle
	g.cancel = nil
}

// Stop cancels any in-flight worker. It does not wait for it to observe
// cancellation; callers that need to block until quiescent should poll
// Busy.
func (g *workerGate) Stop() {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close releases the underlying pool. Call once, at array teardown.
func (g *workerGate) Close() {
	g.Stop()
	if err := g.pool.ReleaseTimeout(0); err != nil {
		logrus.Debugf("worker gate: pool release: %v", err)
	}
}
