package crawler

import (
	"sync"
)

// Phase identifies the pipeline stage currently executing
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseCollectingSources    Phase = "collecting_sources"
	PhasePreprocessingSources Phase = "preprocessing_sources"
	PhaseCollectingItems      Phase = "collecting_items"
	PhasePreprocessingItems   Phase = "preprocessing_items"
	PhaseInferring            Phase = "inferring"
	PhaseSavingResults        Phase = "saving_results"
)

// collecting reports whether per-source progress is meaningful in p
func (p Phase) collecting() bool {
	return p == PhaseCollectingSources || p == PhaseCollectingItems
}

// RunStatus is the externally visible state of the pipeline
type RunStatus struct {
	Phase         Phase   `json:"phase"`
	CurrentSource *string `json:"current_source"`
	Progress      *int    `json:"progress"`
	LastError     *string `json:"last_error"`
	StopRequested bool    `json:"stop_requested"`
}

// StatusManager owns the single RunStatus instance for the process and
// serializes every read and write behind a mutex. The stop check lives
// inside the mutating setters so cancellation is observed at a bounded set
// of well-known points instead of ad hoc check-then-act sites.
type StatusManager struct {
	mu     sync.RWMutex
	status RunStatus
}

// NewStatusManager returns a manager in the idle state
func NewStatusManager() *StatusManager {
	return &StatusManager{status: RunStatus{Phase: PhaseIdle}}
}

// Reset returns the status to its initial shape: idle, no source, no
// progress, no error, stop flag cleared. Called at run start and clean end.
func (m *StatusManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = RunStatus{Phase: PhaseIdle}
}

// SetPhase transitions the pipeline phase. When a stop has been requested
// and p is not idle the transition fails with ErrStopRequested without
// mutating state; transitioning to idle is always allowed so cleanup after
// a stop cannot itself be blocked. Progress and current source are cleared
// unless p is a collection phase, and the last error is cleared on every
// applied transition.
func (m *StatusManager) SetPhase(p Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p != PhaseIdle && m.status.StopRequested {
		return ErrStopRequested
	}
	m.status.Phase = p
	m.status.LastError = nil
	if !p.collecting() {
		m.status.CurrentSource = nil
		m.status.Progress = nil
	}
	return nil
}

// SetCurrentSource records the source presently being processed, applying
// the same stop check as SetPhase.
func (m *StatusManager) SetCurrentSource(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.StopRequested {
		return ErrStopRequested
	}
	m.status.CurrentSource = &id
	return nil
}

// ClearCurrentSource always succeeds, including after a stop request
func (m *StatusManager) ClearCurrentSource() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.CurrentSource = nil
}

// SetProgress records completion percentage, clamped to [0,100]
func (m *StatusManager) SetProgress(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Progress = &pct
}

// SetError records a terminal status message
func (m *StatusManager) SetError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.LastError = &msg
}

// RequestStop raises the cooperative stop flag; idempotent
func (m *StatusManager) RequestStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.StopRequested = true
}

// ResetStopFlag clears the stop flag without touching other fields. Each
// collection sub-phase calls it before iterating so a stale stop request
// from a previous run cannot cancel a fresh one.
func (m *StatusManager) ResetStopFlag() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.StopRequested = false
}

// ShouldStop reports whether a stop has been requested; non-blocking
func (m *StatusManager) ShouldStop() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.StopRequested
}

// GetStatus returns a snapshot copy. Pointer fields are duplicated so
// callers never share memory with the live status.
func (m *StatusManager) GetStatus() RunStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.status
	if m.status.CurrentSource != nil {
		v := *m.status.CurrentSource
		snap.CurrentSource = &v
	}
	if m.status.Progress != nil {
		v := *m.status.Progress
		snap.Progress = &v
	}
	if m.status.LastError != nil {
		v := *m.status.LastError
		snap.LastError = &v
	}
	return snap
}
