package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/canopy-network/plugin-playground/internal/domain"
	"github.com/canopy-network/plugin-playground/pkg/log"
)

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

func TestNewLifecycle(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)

	if l.State() != StateStopped {
		t.Errorf("initial state = %v, want StateStopped", l.State())
	}
	if !l.CanStart() {
		t.Error("CanStart() = false for a fresh lifecycle")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "Stopped"},
		{StateStarting, "Starting"},
		{StateRunning, "Running"},
		{StateShuttingDown, "ShuttingDown"},
		{StateTerminated, "Terminated"},
		{StateCrashed, "Crashed"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestLifecycle_TransitionTo_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"stopped to starting", StateStopped, StateStarting},
		{"stopped to shutting down", StateStopped, StateShuttingDown},
		{"starting to running", StateStarting, StateRunning},
		{"starting to shutting down", StateStarting, StateShuttingDown},
		{"starting to crashed", StateStarting, StateCrashed},
		{"running to shutting down", StateRunning, StateShuttingDown},
		{"running to crashed", StateRunning, StateCrashed},
		{"shutting down to terminated", StateShuttingDown, StateTerminated},
		{"crashed to shutting down", StateCrashed, StateShuttingDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(log.NewNoopLogger(), nil)
			l.state = tt.from

			if err := l.TransitionTo(tt.to, "test"); err != nil {
				t.Fatalf("TransitionTo() error = %v", err)
			}
			if l.State() != tt.to {
				t.Errorf("state = %v after transition, want %v", l.State(), tt.to)
			}
		})
	}
}

func TestLifecycle_TransitionTo_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"stopped to running", StateStopped, StateRunning},
		{"stopped to terminated", StateStopped, StateTerminated},
		{"starting to terminated", StateStarting, StateTerminated},
		{"running to starting", StateRunning, StateStarting},
		{"running to terminated", StateRunning, StateTerminated},
		{"shutting down to running", StateShuttingDown, StateRunning},
		{"shutting down to crashed", StateShuttingDown, StateCrashed},
		{"crashed to starting", StateCrashed, StateStarting},
		{"terminated to starting", StateTerminated, StateStarting},
		{"terminated to shutting down", StateTerminated, StateShuttingDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(log.NewNoopLogger(), nil)
			l.state = tt.from

			err := l.TransitionTo(tt.to, "test")
			if !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("TransitionTo() error = %v, want ErrInvalidTransition", err)
			}
			if l.State() != tt.from {
				t.Errorf("state changed to %v on invalid transition, want %v", l.State(), tt.from)
			}
		})
	}
}

func TestLifecycle_TransitionTo_EmitsEvents(t *testing.T) {
	emitter := &mockEmitter{}
	l := NewLifecycle(log.NewNoopLogger(), emitter)

	_ = l.TransitionTo(StateStarting, "start")
	_ = l.TransitionTo(StateRunning, "handshake complete")
	_ = l.TransitionTo(StateTerminated, "not allowed")

	events := emitter.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].previous != StateStopped || events[0].current != StateStarting {
		t.Errorf("event 0: got %v->%v, want Stopped->Starting", events[0].previous, events[0].current)
	}
	if events[1].reason != "handshake complete" {
		t.Errorf("event 1 reason = %q", events[1].reason)
	}
}

func TestLifecycle_TerminatedCannotStart(t *testing.T) {
	l := NewLifecycle(nil, nil)
	_ = l.TransitionTo(StateShuttingDown, "close before start")
	_ = l.TransitionTo(StateTerminated, "released")
	if got := l.State(); got != StateTerminated {
		t.Errorf("State() = %v, want Terminated", got)
	}
	if l.CanStart() {
		t.Error("CanStart() = true after terminate")
	}
}

func TestLifecycle_SetCancel_And_Cancel(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	l.SetCancel(cancel)

	select {
	case <-ctx.Done():
		t.Fatal("context canceled before Cancel()")
	default:
	}

	l.Cancel()

	select {
	case <-ctx.Done():
	default:
		t.Error("context should be canceled after Cancel()")
	}
}

func TestLifecycle_Cancel_NilSafe(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)
	l.Cancel()
}

func TestLifecycle_WaitWithTimeout_Success(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)

	l.AddWorker()
	go func() {
		time.Sleep(10 * time.Millisecond)
		l.WorkerDone()
	}()

	if err := l.WaitWithTimeout(time.Second); err != nil {
		t.Errorf("WaitWithTimeout() = %v, want nil", err)
	}
}

func TestLifecycle_WaitWithTimeout_NoDeadline(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)

	l.AddWorker()
	go func() {
		time.Sleep(20 * time.Millisecond)
		l.WorkerDone()
	}()

	if err := l.WaitWithTimeout(0); err != nil {
		t.Errorf("WaitWithTimeout(0) = %v, want nil", err)
	}
}

func TestLifecycle_WaitWithTimeout_Timeout(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)

	l.AddWorker()
	err := l.WaitWithTimeout(10 * time.Millisecond)
	if !errors.Is(err, domain.ErrShutdownTimeout) {
		t.Errorf("WaitWithTimeout() = %v, want ErrShutdownTimeout", err)
	}
	l.WorkerDone()
}

func TestLifecycle_Concurrency(t *testing.T) {
	l := NewLifecycle(log.NewNoopLogger(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = l.State()
				_ = l.CanStart()
			}
		}()
	}

	// Only one goroutine can win Stopped->Starting.
	var wins int
	var mu sync.Mutex
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TransitionTo(StateStarting, "race") == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	if wins != 1 {
		t.Errorf("%d goroutines entered Starting, want 1", wins)
	}
}
