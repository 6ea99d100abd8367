package sqlite

import (
	"context"
	"testing"

	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/store"
)

func TestUpsertMessage_Idempotent(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	msg := &domain.Message{
		ID:             "msg-1",
		AccountID:      "acc-1",
		ConversationID: "conv-1",
		Subject:        "Hello",
		Sender:         domain.Address{Name: "Alice", Email: "alice@example.com"},
		ToList:         []domain.Address{{Email: "user@example.com"}},
		Unread:         true,
		Time:           1000,
		Size:           2048,
		LabelIDs:       []string{domain.LabelInbox, domain.LabelAllMail},
	}

	for i := 0; i < 2; i++ {
		mutate(t, db, func(tx store.Tx) error {
			return tx.UpsertMessage(ctx, msg)
		})
	}

	got, err := db.GetMessage(ctx, "msg-1")
	if err != nil {
		t.Fatalf("GetMessage() error: %v", err)
	}
	if got == nil {
		t.Fatal("GetMessage() = nil, want message")
	}
	if got.Subject != "Hello" {
		t.Errorf("Subject = %q, want %q", got.Subject, "Hello")
	}
	if got.Sender.Email != "alice@example.com" {
		t.Errorf("Sender.Email = %q, want %q", got.Sender.Email, "alice@example.com")
	}
	if len(got.LabelIDs) != 2 {
		t.Errorf("labels = %v, want 2 entries", got.LabelIDs)
	}
	if !got.Unread {
		t.Error("expected Unread = true")
	}
}

func TestUpsertMessage_ReplacesLabels(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	msg := &domain.Message{
		ID: "msg-1", AccountID: "acc-1",
		LabelIDs: []string{domain.LabelInbox, domain.LabelAllMail},
	}
	mutate(t, db, func(tx store.Tx) error { return tx.UpsertMessage(ctx, msg) })

	msg.LabelIDs = []string{domain.LabelArchive, domain.LabelAllMail}
	mutate(t, db, func(tx store.Tx) error { return tx.UpsertMessage(ctx, msg) })

	got, err := db.GetMessage(ctx, "msg-1")
	if err != nil {
		t.Fatalf("GetMessage() error: %v", err)
	}
	if got.HasLabel(domain.LabelInbox) {
		t.Error("old label survived label replacement")
	}
	if !got.HasLabel(domain.LabelArchive) {
		t.Error("new label missing after replacement")
	}
}

func TestDeleteMessage_UnknownIsNoop(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	mutate(t, db, func(tx store.Tx) error {
		return tx.DeleteMessage(ctx, "never-seen")
	})
}

func TestListMessages_ByLabel(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	msgs := []domain.Message{
		{ID: "m1", AccountID: "acc-1", Time: 1, LabelIDs: []string{domain.LabelInbox, domain.LabelAllMail}},
		{ID: "m2", AccountID: "acc-1", Time: 2, LabelIDs: []string{domain.LabelAllMail}},
		{ID: "m3", AccountID: "acc-1", Time: 3, LabelIDs: []string{domain.LabelInbox, domain.LabelAllMail}},
	}
	mutate(t, db, func(tx store.Tx) error {
		for i := range msgs {
			if err := tx.UpsertMessage(ctx, &msgs[i]); err != nil {
				return err
			}
		}
		return nil
	})

	inbox, err := db.ListMessages(ctx, store.ListMessageOptions{AccountID: "acc-1", LabelID: domain.LabelInbox})
	if err != nil {
		t.Fatalf("ListMessages() error: %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("ListMessages(inbox) count = %d, want 2", len(inbox))
	}
	// Newest first.
	if inbox[0].ID != "m3" || inbox[1].ID != "m1" {
		t.Errorf("ListMessages(inbox) order = [%s %s], want [m3 m1]", inbox[0].ID, inbox[1].ID)
	}

	all, err := db.ListMessages(ctx, store.ListMessageOptions{AccountID: "acc-1", Limit: 2})
	if err != nil {
		t.Fatalf("ListMessages(all) error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListMessages(limit 2) count = %d, want 2", len(all))
	}

	n, err := db.CountMessages(ctx, "acc-1")
	if err != nil {
		t.Fatalf("CountMessages() error: %v", err)
	}
	if n != 3 {
		t.Errorf("CountMessages() = %d, want 3", n)
	}
}

// A message may reference labels that were never replicated; the reference
// is kept and read back as-is rather than rejected.
func TestMessage_DanglingLabelTolerated(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db)
	ctx := context.Background()

	mutate(t, db, func(tx store.Tx) error {
		return tx.UpsertMessage(ctx, &domain.Message{
			ID: "msg-1", AccountID: "acc-1",
			LabelIDs: []string{"unknown-label", domain.LabelAllMail},
		})
	})

	got, err := db.GetMessage(ctx, "msg-1")
	if err != nil {
		t.Fatalf("GetMessage() error: %v", err)
	}
	if !got.HasLabel("unknown-label") {
		t.Error("dangling label reference was dropped")
	}
}
