package table

import (
	"context"
	"sync"
	"time"

	"github.com/feltworks/deckhand/internal/domain"
	"github.com/feltworks/deckhand/pkg/log"
)

// RunState is the lifecycle state of the agent.
type RunState int

const (
	StateStopped RunState = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable state name.
func (s RunState) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// Lifecycle is the start/stop state machine shared by the embeddable
// facade. It also tracks background workers for bounded shutdown.
type Lifecycle struct {
	mu     sync.RWMutex
	state  RunState
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger log.Logger
}

// NewLifecycle creates a lifecycle in StateStopped.
func NewLifecycle(logger log.Logger) *Lifecycle {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Lifecycle{state: StateStopped, logger: logger}
}

// State returns the current state.
func (l *Lifecycle) State() RunState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to a new state, rejecting invalid transitions.
func (l *Lifecycle) TransitionTo(next RunState, reason string) error {
	l.mu.Lock()
	prev := l.state

	valid := false
	switch prev {
	case StateStopped, StateCrashed:
		valid = next == StateStarting
	case StateStarting:
		valid = next == StateRunning || next == StateCrashed
	case StateRunning:
		valid = next == StateStopping || next == StateCrashed
	case StateStopping:
		valid = next == StateStopped || next == StateCrashed
	}
	if !valid {
		l.mu.Unlock()
		if prev == StateStopped || prev == StateCrashed {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}

	l.state = next
	l.mu.Unlock()

	l.logger.Info("state transition",
		log.Str("from", prev.String()),
		log.Str("to", next.String()),
		log.Str("reason", reason))
	return nil
}

// CanStart reports whether Start() may be called.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateStopped || l.state == StateCrashed
}

// CanStop reports whether Stop() may be called.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning || l.state == StateStarting
}

// SetCancel stores the cancel function triggered on Stop.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel triggers shutdown of the running context.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// AddWorker registers a background goroutine.
func (l *Lifecycle) AddWorker() { l.wg.Add(1) }

// WorkerDone marks a background goroutine finished.
func (l *Lifecycle) WorkerDone() { l.wg.Done() }

// WaitWithTimeout blocks until all workers finish or the timeout
// elapses, returning ErrShutdownTimeout in the latter case.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit", log.Dur("timeout", timeout))
		return domain.ErrShutdownTimeout
	}
}
