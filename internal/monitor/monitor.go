// Package monitor tracks whether a background watch task is active within
// this process. The "singleton" is a property of one long-lived Monitor the
// command dispatcher constructs and passes down, not hidden package state,
// so a fresh process can never inherit a stale running flag.
package monitor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the monitor lifecycle position.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateRunning       State = "running"
)

// Handle identifies one watch-task instance.
type Handle struct {
	id        string
	startedAt time.Time
}

// ID returns the instance identifier.
func (h *Handle) ID() string { return h.id }

// StartedAt returns when the instance was started.
func (h *Handle) StartedAt() time.Time { return h.startedAt }

// Monitor is the process-local watch-task tracker. Start and Stop are
// idempotent and the monitor is reusable for the lifetime of the process.
type Monitor struct {
	mu     sync.Mutex
	logger *slog.Logger
	state  State
	active *Handle
}

// New constructs a monitor in the uninitialized state.
func New(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{logger: logger, state: StateUninitialized}
}

// Start returns the running handle, creating one only when none is active.
// A second Start while still active is expected and benign, so it logs at
// debug, never at warning.
func (m *Monitor) Start() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.logger.Debug("watch monitor already running",
			slog.String("id", m.active.id),
			slog.Time("started_at", m.active.startedAt))
		return m.active
	}

	m.active = &Handle{
		id:        uuid.NewString(),
		startedAt: time.Now().UTC(),
	}
	m.state = StateRunning
	m.logger.Info("watch monitor started", slog.String("id", m.active.id))
	return m.active
}

// Stop tears down the active instance and resets the monitor to
// uninitialized, so a subsequent Start deterministically creates a fresh
// instance. Stopping an idle monitor is a no-op.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		m.logger.Debug("watch monitor stop requested while not running")
		return false
	}

	m.logger.Info("watch monitor stopped", slog.String("id", m.active.id))
	m.active = nil
	m.state = StateUninitialized
	return true
}

// State reports the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active returns the running handle, if any.
func (m *Monitor) Active() (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}
