package queue

import "testing"

func TestPendingForMessage(t *testing.T) {
	m := NewManager()

	if m.PendingForMessage("msg-1") {
		t.Error("empty queue must report no pending tasks")
	}

	task := m.Enqueue("acc-1", "msg-1", TaskSend)
	if !m.PendingForMessage("msg-1") {
		t.Error("expected pending task for msg-1")
	}
	if m.PendingForMessage("msg-2") {
		t.Error("unexpected pending task for msg-2")
	}

	m.Complete(task.ID)
	if m.PendingForMessage("msg-1") {
		t.Error("completed task still reported pending")
	}
}

func TestPendingForMessage_LabelTasksDoNotSuppress(t *testing.T) {
	m := NewManager()
	m.Enqueue("acc-1", "msg-1", TaskLabel)
	if m.PendingForMessage("msg-1") {
		t.Error("label tasks carry no local content edits and must not suppress updates")
	}
}

func TestCompleteUnknown_Noop(t *testing.T) {
	m := NewManager()
	m.Complete("no-such-task")
}

func TestReset(t *testing.T) {
	m := NewManager()
	m.Enqueue("acc-1", "msg-1", TaskSend)
	m.Enqueue("acc-2", "msg-2", TaskSaveDraft)

	if got := len(m.PendingForAccount("acc-1")); got != 1 {
		t.Errorf("PendingForAccount(acc-1) = %d tasks, want 1", got)
	}

	m.Reset()
	if m.PendingForMessage("msg-1") || m.PendingForMessage("msg-2") {
		t.Error("tasks survived Reset")
	}
}
