// Package esindex builds and queries the encrypted search index: a
// per-message store of searchable content encrypted at rest, filled by a
// background downloader that pauses and resumes on device conditions.
package esindex

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of one account's index build.
type State int

const (
	// StateDisabled means encrypted search is off and no index exists.
	StateDisabled State = iota
	// StateUndetermined means search was enabled but existing index
	// progress has not been assessed yet.
	StateUndetermined
	// StateDownloading means the builder is actively indexing messages.
	StateDownloading
	// StatePaused means indexing is suspended, either by the user or by a
	// device condition.
	StatePaused
	// StateComplete means every replicated message is indexed.
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateUndetermined:
		return "undetermined"
	case StateDownloading:
		return "downloading"
	case StatePaused:
		return "paused"
	case StateComplete:
		return "complete"
	}
	return "unknown"
}

// PauseReason records why indexing is suspended.
type PauseReason int

const (
	ReasonNone PauseReason = iota
	// ReasonUser is a deliberate pause, tracked apart from interruptions.
	ReasonUser
	ReasonLowBattery
	ReasonThermal
	ReasonLowStorage
	ReasonWiFiRequired
	ReasonNetworkLoss
)

func (r PauseReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonUser:
		return "user"
	case ReasonLowBattery:
		return "low-battery"
	case ReasonThermal:
		return "thermal"
	case ReasonLowStorage:
		return "low-storage"
	case ReasonWiFiRequired:
		return "wifi-required"
	case ReasonNetworkLoss:
		return "network-loss"
	}
	return "unknown"
}

// Machine tracks the index build lifecycle for one account. It is safe
// for concurrent use: the builder and the device signal source drive it
// from different goroutines.
type Machine struct {
	mu            sync.Mutex
	state         State
	reason        PauseReason
	interruptions int
	userPauses    int
}

// NewMachine returns a machine in the disabled state.
func NewMachine() *Machine {
	return &Machine{state: StateDisabled}
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reason returns why the machine is paused, or ReasonNone.
func (m *Machine) Reason() PauseReason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// Interruptions returns how many times a device condition suspended the
// build. Repeated signals while already paused count once.
func (m *Machine) Interruptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interruptions
}

// UserPauses returns how many times the user suspended the build.
func (m *Machine) UserPauses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userPauses
}

// Enable turns search on for an account that had it disabled; progress is
// undetermined until the builder assesses the on-disk index. Enabling an
// already-enabled machine is a no-op.
func (m *Machine) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDisabled {
		m.state = StateUndetermined
	}
}

// StartDownloading moves an assessed or resumed machine into active
// indexing. A complete machine may re-enter downloading: messages that
// replicated after the build finished still need index rows.
func (m *Machine) StartDownloading() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateUndetermined, StatePaused, StateDownloading, StateComplete:
		m.state = StateDownloading
		m.reason = ReasonNone
		return nil
	}
	return fmt.Errorf("cannot start downloading from state %s", m.state)
}

// Pause suspends an active build. Pausing while already paused is
// idempotent and does not bump any counter; the original reason stands.
func (m *Machine) Pause(reason PauseReason) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateDownloading {
		return
	}
	m.state = StatePaused
	m.reason = reason
	if reason == ReasonUser {
		m.userPauses++
	} else {
		m.interruptions++
	}
}

// Resume returns a paused build to downloading. Resuming while already
// downloading is a no-op.
func (m *Machine) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StatePaused {
		m.state = StateDownloading
		m.reason = ReasonNone
	}
}

// ResumeIf resumes only when the machine is paused for the given reason,
// so a cleared device condition does not override a different pause (for
// example a battery-OK signal while paused by the user).
func (m *Machine) ResumeIf(reason PauseReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StatePaused && m.reason == reason {
		m.state = StateDownloading
		m.reason = ReasonNone
	}
}

// Complete marks the build finished: every replicated message is indexed.
func (m *Machine) Complete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateDownloading {
		return fmt.Errorf("cannot complete from state %s", m.state)
	}
	m.state = StateComplete
	return nil
}

// Disable turns search off from any state and clears the counters. The
// caller is responsible for removing on-disk index rows.
func (m *Machine) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateDisabled
	m.reason = ReasonNone
	m.interruptions = 0
	m.userPauses = 0
}
