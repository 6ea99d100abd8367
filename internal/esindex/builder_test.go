package esindex

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/store"
	"github.com/lu-zhengda/mailsync/internal/store/sqlite"
)

// stubCipher marks ciphertexts with a prefix instead of real encryption,
// and can invoke a hook on every Encrypt call.
type stubCipher struct {
	onEncrypt func()
}

var stubPrefix = []byte("sealed:")

func (c *stubCipher) Encrypt(plaintext []byte) ([]byte, error) {
	if c.onEncrypt != nil {
		c.onEncrypt()
	}
	return append(append([]byte(nil), stubPrefix...), plaintext...), nil
}

func (c *stubCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if !bytes.HasPrefix(ciphertext, stubPrefix) {
		return nil, fmt.Errorf("not a sealed blob")
	}
	return ciphertext[len(stubPrefix):], nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	err = db.CreateAccount(context.Background(), &domain.Account{
		ID:    "acc-1",
		Email: "user@example.com",
	})
	if err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}
	return db
}

func seedMessages(t *testing.T, db *sqlite.DB, n int) {
	t.Helper()
	seedMessageRange(t, db, 0, n)
}

// seedMessageRange stores messages msg-<start> through msg-<start+n-1>,
// each newer than the last.
func seedMessageRange(t *testing.T, db *sqlite.DB, start, n int) {
	t.Helper()
	ctx := context.Background()
	err := db.InTransaction(ctx, func(tx store.Tx) error {
		for i := start; i < start+n; i++ {
			msg := &domain.Message{
				ID:        fmt.Sprintf("msg-%d", i),
				AccountID: "acc-1",
				Subject:   fmt.Sprintf("invoice %d", i),
				Sender:    domain.Address{Name: "Billing", Email: "billing@example.com"},
				Snippet:   fmt.Sprintf("amount due for order %d", i),
				Time:      int64(1700000000 + i),
				LabelIDs:  []string{domain.LabelAllMail},
			}
			if err := tx.UpsertMessage(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed messages error: %v", err)
	}
}

func newTestBuilder(t *testing.T, db *sqlite.DB, cipher Cipher) *Builder {
	t.Helper()
	if cipher == nil {
		cipher = &stubCipher{}
	}
	b := NewBuilder("acc-1", db, cipher, 2, testLogger())
	b.pauseWait = time.Millisecond
	return b
}

func TestRun_IndexesAllMessages(t *testing.T) {
	db := newTestStore(t)
	seedMessages(t, db, 5)
	b := newTestBuilder(t, db, nil)
	ctx := context.Background()

	b.Enable()
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if b.Machine().State() != StateComplete {
		t.Errorf("state = %v, want complete", b.Machine().State())
	}

	n, err := db.CountSearchEntries(ctx, "acc-1")
	if err != nil {
		t.Fatalf("CountSearchEntries() error: %v", err)
	}
	if n != 5 {
		t.Errorf("CountSearchEntries() = %d, want 5", n)
	}

	// Re-running a complete build is a no-op.
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run() on complete index error: %v", err)
	}
}

func TestRun_ResumeCoversMessagesArrivedSinceLastRun(t *testing.T) {
	db := newTestStore(t)
	seedMessages(t, db, 4)
	b := newTestBuilder(t, db, nil)
	ctx := context.Background()

	// A previous run committed the two newest messages before stopping.
	err := db.InTransaction(ctx, func(tx store.Tx) error {
		for _, id := range []string{"msg-2", "msg-3"} {
			cipherDoc, err := b.cipher.Encrypt([]byte(`{"subject":"old run"}`))
			if err != nil {
				return err
			}
			if err := tx.UpsertSearchEntry(ctx, &store.SearchEntry{
				MessageID: id, AccountID: "acc-1", Ciphertext: cipherDoc,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed prior progress error: %v", err)
	}

	// Two newer messages replicated in between. A resumed run must index
	// them along with the older leftovers, not skip past them.
	seedMessageRange(t, db, 4, 2)

	b.Enable()
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	n, err := db.CountSearchEntries(ctx, "acc-1")
	if err != nil {
		t.Fatalf("CountSearchEntries() error: %v", err)
	}
	if n != 6 {
		t.Errorf("CountSearchEntries() = %d, want 6", n)
	}
	left, err := db.ListUnindexedMessages(ctx, "acc-1", 0)
	if err != nil {
		t.Fatalf("ListUnindexedMessages() error: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("%d messages left unindexed: %+v", len(left), left)
	}
}

func TestRun_IndexesMessagesReplicatedAfterCompletion(t *testing.T) {
	db := newTestStore(t)
	seedMessages(t, db, 3)
	b := newTestBuilder(t, db, nil)
	ctx := context.Background()

	b.Enable()
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	seedMessageRange(t, db, 3, 2)
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run() after new messages error: %v", err)
	}
	if b.Machine().State() != StateComplete {
		t.Errorf("state = %v, want complete", b.Machine().State())
	}
	n, err := db.CountSearchEntries(ctx, "acc-1")
	if err != nil {
		t.Fatalf("CountSearchEntries() error: %v", err)
	}
	if n != 5 {
		t.Errorf("CountSearchEntries() = %d, want 5", n)
	}
}

func TestRun_FailsWhileDisabled(t *testing.T) {
	db := newTestStore(t)
	b := newTestBuilder(t, db, nil)

	if err := b.Run(context.Background()); err == nil {
		t.Fatal("Run() succeeded with search disabled")
	}
}

func TestRun_HonorsPauseBetweenPages(t *testing.T) {
	db := newTestStore(t)
	seedMessages(t, db, 6)

	b := newTestBuilder(t, db, nil)
	var paused bool
	b.cipher = &stubCipher{onEncrypt: func() {
		if !paused {
			paused = true
			b.Machine().Pause(ReasonLowBattery)
		}
	}}

	b.Enable()
	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	// The run parks between pages once the pause lands.
	deadline := time.Now().Add(2 * time.Second)
	for b.Machine().State() != StatePaused {
		if time.Now().After(deadline) {
			t.Fatal("machine never paused")
		}
		time.Sleep(time.Millisecond)
	}
	select {
	case err := <-done:
		t.Fatalf("Run() returned %v while paused", err)
	case <-time.After(20 * time.Millisecond):
	}

	b.Machine().ResumeIf(ReasonLowBattery)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not finish after resume")
	}

	if got := b.Machine().Interruptions(); got != 1 {
		t.Errorf("Interruptions() = %d, want 1", got)
	}
	n, err := db.CountSearchEntries(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("CountSearchEntries() error: %v", err)
	}
	if n != 6 {
		t.Errorf("CountSearchEntries() = %d, want 6", n)
	}
}

func TestRun_AbortsWhenDisabledMidBuild(t *testing.T) {
	db := newTestStore(t)
	seedMessages(t, db, 4)

	b := newTestBuilder(t, db, nil)
	var tripped bool
	b.cipher = &stubCipher{onEncrypt: func() {
		if !tripped {
			tripped = true
			b.Machine().Pause(ReasonUser)
		}
	}}

	b.Enable()
	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for b.Machine().State() != StatePaused {
		if time.Now().After(deadline) {
			t.Fatal("machine never paused")
		}
		time.Sleep(time.Millisecond)
	}

	b.Machine().Disable()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Run() returned nil after the index was disabled mid-build")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not abort after disable")
	}
}

func TestSearch(t *testing.T) {
	db := newTestStore(t)
	seedMessages(t, db, 5)
	b := newTestBuilder(t, db, nil)
	ctx := context.Background()

	b.Enable()
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	results, err := b.Search(ctx, "INVOICE 3")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 1 || results[0].MessageID != "msg-3" {
		t.Fatalf("results = %+v, want exactly msg-3", results)
	}

	// Sender matches too.
	results, err = b.Search(ctx, "billing@")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("len(results) = %d for sender query, want 5", len(results))
	}

	results, err = b.Search(ctx, "no such thing")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d for miss, want 0", len(results))
	}
}

func TestSearch_WhileDisabled(t *testing.T) {
	db := newTestStore(t)
	b := newTestBuilder(t, db, nil)
	if _, err := b.Search(context.Background(), "anything"); err == nil {
		t.Fatal("Search() succeeded with search disabled")
	}
}

func TestDeleteIndex(t *testing.T) {
	db := newTestStore(t)
	seedMessages(t, db, 3)
	b := newTestBuilder(t, db, nil)
	ctx := context.Background()

	b.Enable()
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if err := b.DeleteIndex(ctx); err != nil {
		t.Fatalf("DeleteIndex() error: %v", err)
	}
	if b.Machine().State() != StateDisabled {
		t.Errorf("state = %v after delete, want disabled", b.Machine().State())
	}
	n, err := db.CountSearchEntries(ctx, "acc-1")
	if err != nil {
		t.Fatalf("CountSearchEntries() error: %v", err)
	}
	if n != 0 {
		t.Errorf("CountSearchEntries() = %d after delete, want 0", n)
	}
}

func TestOnSignal(t *testing.T) {
	db := newTestStore(t)
	b := newTestBuilder(t, db, nil)
	b.Enable()
	if err := b.Machine().StartDownloading(); err != nil {
		t.Fatalf("StartDownloading() error: %v", err)
	}

	b.OnSignal(SignalBatteryLow)
	if b.Machine().State() != StatePaused || b.Machine().Reason() != ReasonLowBattery {
		t.Fatalf("state = %v/%v, want paused/low-battery", b.Machine().State(), b.Machine().Reason())
	}

	// Clearing a different condition must not resume.
	b.OnSignal(SignalThermalNominal)
	if b.Machine().State() != StatePaused {
		t.Fatal("unrelated cleared condition resumed the build")
	}

	b.OnSignal(SignalBatteryOK)
	if b.Machine().State() != StateDownloading {
		t.Errorf("state = %v after battery OK, want downloading", b.Machine().State())
	}
}

func TestPGPCipher_RoundTrip(t *testing.T) {
	c := NewPGPCipher([]byte("device passphrase"))

	plaintext := []byte(`{"subject":"hello","sender":"a@b.c","snippet":"hi"}`)
	ciphertext, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if bytes.Contains(ciphertext, []byte("hello")) {
		t.Error("ciphertext leaks plaintext")
	}

	got, err := c.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip = %q, want %q", got, plaintext)
	}

	wrong := NewPGPCipher([]byte("other passphrase"))
	if _, err := wrong.Decrypt(ciphertext); err == nil {
		t.Error("Decrypt() with wrong passphrase succeeded")
	}
}
