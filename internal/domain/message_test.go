package domain

import "testing"

func TestAddress_String(t *testing.T) {
	tests := []struct {
		name string
		addr Address
		want string
	}{
		{"with name", Address{Name: "John", Email: "john@example.com"}, "John <john@example.com>"},
		{"email only", Address{Email: "john@example.com"}, "john@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.addr.String(); got != tt.want {
				t.Errorf("Address.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessage_AddLabel_Idempotent(t *testing.T) {
	m := &Message{LabelIDs: []string{LabelInbox, LabelAllMail}}
	m.AddLabel(LabelInbox)
	if len(m.LabelIDs) != 2 {
		t.Errorf("AddLabel(existing) changed label count to %d, want 2", len(m.LabelIDs))
	}
	m.AddLabel(LabelStarred)
	if !m.HasLabel(LabelStarred) {
		t.Error("expected HasLabel(LabelStarred) = true after AddLabel")
	}
}

func TestMessage_RemoveLabel(t *testing.T) {
	m := &Message{LabelIDs: []string{LabelInbox, LabelAllMail}}
	m.RemoveLabel(LabelInbox)
	if m.HasLabel(LabelInbox) {
		t.Error("expected label removed")
	}
	m.RemoveLabel("no-such-label")
	if len(m.LabelIDs) != 1 {
		t.Errorf("RemoveLabel(missing) changed label count to %d, want 1", len(m.LabelIDs))
	}
}

func TestMessageFlag_Has(t *testing.T) {
	f := FlagReceived | FlagReplied
	if !f.Has(FlagReplied) {
		t.Error("expected Has(FlagReplied) = true")
	}
	if f.Has(FlagForwarded) {
		t.Error("expected Has(FlagForwarded) = false")
	}
}

func TestIncomingDefault_Supersedes(t *testing.T) {
	d := &IncomingDefault{Email: "x@example.com", Time: 100}
	if d.Supersedes(99) {
		t.Error("older timestamp must not supersede")
	}
	if d.Supersedes(100) {
		t.Error("equal timestamp must not supersede")
	}
	if !d.Supersedes(101) {
		t.Error("newer timestamp must supersede")
	}
}

func TestConversation_ContextLabel(t *testing.T) {
	c := &Conversation{ContextLabels: []ContextLabel{
		{LabelID: LabelInbox, NumMessages: 2, NumUnread: 1},
		{LabelID: LabelAllMail, NumMessages: 3},
	}}
	cl := c.ContextLabel(LabelInbox)
	if cl == nil || cl.NumMessages != 2 {
		t.Fatalf("ContextLabel(inbox) = %+v, want NumMessages 2", cl)
	}
	if c.HasLabel(LabelStarred) {
		t.Error("expected HasLabel(starred) = false")
	}
}
