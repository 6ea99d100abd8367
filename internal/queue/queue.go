// Package queue tracks outbound mutation tasks (sends, draft saves) that
// are queued locally but not yet confirmed by the server. The event
// reconcilers consult it to avoid clobbering in-flight local edits with
// stale server data.
package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type TaskKind string

const (
	TaskSend      TaskKind = "send"
	TaskSaveDraft TaskKind = "save_draft"
	TaskLabel     TaskKind = "label"
)

// Task is one pending outbound operation against a message.
type Task struct {
	ID        string
	AccountID string
	MessageID string
	Kind      TaskKind
	CreatedAt time.Time
}

// PendingChecker is the read side consumed by the reconcilers.
type PendingChecker interface {
	// PendingForMessage reports whether the message has a queued send or
	// draft-save task whose local edits must not be overwritten.
	PendingForMessage(messageID string) bool
}

// Manager is an in-memory outbound task queue, safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	tasks map[string]Task
}

// NewManager returns an empty task queue.
func NewManager() *Manager {
	return &Manager{tasks: make(map[string]Task)}
}

// Enqueue registers a pending task against a message and returns it.
func (m *Manager) Enqueue(accountID, messageID string, kind TaskKind) Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	task := Task{
		ID:        uuid.NewString(),
		AccountID: accountID,
		MessageID: messageID,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	m.tasks[task.ID] = task
	return task
}

// Complete removes a finished task. Completing an unknown task is a no-op.
func (m *Manager) Complete(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
}

// PendingForMessage reports whether any content-bearing task (send or
// draft save) is still queued for the message.
func (m *Manager) PendingForMessage(messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.tasks {
		if task.MessageID != messageID {
			continue
		}
		if task.Kind == TaskSend || task.Kind == TaskSaveDraft {
			return true
		}
	}
	return false
}

// PendingForAccount returns all queued tasks for an account.
func (m *Manager) PendingForAccount(accountID string) []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Task
	for _, task := range m.tasks {
		if task.AccountID == accountID {
			out = append(out, task)
		}
	}
	return out
}

// Reset discards all queued tasks. Used on full sign-out.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = make(map[string]Task)
}
