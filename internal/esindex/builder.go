package esindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lu-zhengda/mailsync/internal/store"
)

// DefaultPageSize is how many messages one index transaction covers when
// the builder is created with a non-positive page size.
const DefaultPageSize = 100

// document is the plaintext content indexed per message. It is JSON
// encoded, encrypted, and stored as one opaque blob.
type document struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Snippet string `json:"snippet"`
}

// Result is one search hit.
type Result struct {
	MessageID string
	Time      int64
}

// Signal is one device condition change feeding the state machine.
type Signal int

const (
	SignalBatteryLow Signal = iota
	SignalBatteryOK
	SignalThermalHot
	SignalThermalNominal
	SignalStorageLow
	SignalStorageOK
	SignalWiFiLost
	SignalWiFiAvailable
	SignalNetworkLost
	SignalNetworkRestored
)

// Builder fills and queries the encrypted search index for one account.
// It walks the replicated messages in pages, one store transaction per
// page, honoring pause requests between pages.
type Builder struct {
	accountID string
	store     store.Store
	cipher    Cipher
	machine   *Machine
	pageSize  int
	// pauseWait is how often Run re-checks the machine while paused.
	pauseWait time.Duration
	log       *logrus.Entry
}

// NewBuilder creates an index builder for one account, starting disabled.
func NewBuilder(accountID string, st store.Store, cipher Cipher, pageSize int, logger *logrus.Logger) *Builder {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Builder{
		accountID: accountID,
		store:     st,
		cipher:    cipher,
		machine:   NewMachine(),
		pageSize:  pageSize,
		pauseWait: 200 * time.Millisecond,
		log:       logger.WithField("account", accountID),
	}
}

// Machine exposes the lifecycle state machine, driven by Run, the device
// signal source, and user pause/resume.
func (b *Builder) Machine() *Machine {
	return b.machine
}

// Enable turns encrypted search on. Progress stays undetermined until Run
// assesses the on-disk index.
func (b *Builder) Enable() {
	b.machine.Enable()
}

// Run drives the index build until every replicated message is indexed.
// It walks the messages still missing an index row, so it resumes from
// whatever a previous run committed and picks up messages that replicated
// after the build last completed: each page is one transaction, so an
// aborted run loses at most the in-flight page. Run returns nil once the
// build is complete.
func (b *Builder) Run(ctx context.Context) error {
	if b.machine.State() == StateDisabled {
		return fmt.Errorf("encrypted search is disabled")
	}

	indexed, err := b.store.CountSearchEntries(ctx, b.accountID)
	if err != nil {
		return fmt.Errorf("failed to assess index progress: %w", err)
	}
	if b.machine.State() == StateComplete {
		total, err := b.store.CountMessages(ctx, b.accountID)
		if err != nil {
			return fmt.Errorf("failed to assess index progress: %w", err)
		}
		if indexed >= total {
			return nil
		}
		// Messages replicated since the last completion: re-enter the
		// build to index the remainder.
	}
	if err := b.machine.StartDownloading(); err != nil {
		return err
	}
	b.log.WithField("indexed", indexed).Info("starting encrypted search indexing")

	for {
		if err := b.waitWhilePaused(ctx); err != nil {
			return err
		}
		n, err := b.indexPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to index page: %w", err)
		}
		if n == 0 {
			break
		}
		indexed += n
	}

	if err := b.machine.Complete(); err != nil {
		return err
	}
	b.log.WithField("indexed", indexed).Info("encrypted search index complete")
	return nil
}

// indexPage encrypts and stores one page of not-yet-indexed messages,
// returning how many it indexed. Zero means the walk is done.
func (b *Builder) indexPage(ctx context.Context) (int, error) {
	msgs, err := b.store.ListUnindexedMessages(ctx, b.accountID, b.pageSize)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	err = b.store.InTransaction(ctx, func(tx store.Tx) error {
		for i := range msgs {
			msg := &msgs[i]
			plaintext, err := json.Marshal(document{
				Subject: msg.Subject,
				Sender:  msg.Sender.String(),
				Snippet: msg.Snippet,
			})
			if err != nil {
				return fmt.Errorf("failed to encode document for %s: %w", msg.ID, err)
			}
			ciphertext, err := b.cipher.Encrypt(plaintext)
			if err != nil {
				return fmt.Errorf("failed to encrypt document for %s: %w", msg.ID, err)
			}
			entry := &store.SearchEntry{
				MessageID:  msg.ID,
				AccountID:  b.accountID,
				Time:       msg.Time,
				Ciphertext: ciphertext,
			}
			if err := tx.UpsertSearchEntry(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(msgs), nil
}

// waitWhilePaused blocks between pages while the machine is paused.
// Disabling the index mid-build aborts the run.
func (b *Builder) waitWhilePaused(ctx context.Context) error {
	for {
		switch b.machine.State() {
		case StateDownloading:
			return nil
		case StateDisabled:
			return fmt.Errorf("encrypted search disabled during indexing")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.pauseWait):
		}
	}
}

// Search decrypts indexed documents and returns the messages whose
// content contains the query, newest first. Matching is case-insensitive.
// Searching a partial index returns partial results.
func (b *Builder) Search(ctx context.Context, query string) ([]Result, error) {
	if b.machine.State() == StateDisabled {
		return nil, fmt.Errorf("encrypted search is disabled")
	}
	needle := strings.ToLower(query)

	var results []Result
	for offset := 0; ; offset += b.pageSize {
		entries, err := b.store.ListSearchEntries(ctx, b.accountID, b.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list index entries: %w", err)
		}
		if len(entries) == 0 {
			return results, nil
		}
		for _, entry := range entries {
			plaintext, err := b.cipher.Decrypt(entry.Ciphertext)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt document for %s: %w", entry.MessageID, err)
			}
			var doc document
			if err := json.Unmarshal(plaintext, &doc); err != nil {
				return nil, fmt.Errorf("failed to decode document for %s: %w", entry.MessageID, err)
			}
			if strings.Contains(strings.ToLower(doc.Subject), needle) ||
				strings.Contains(strings.ToLower(doc.Sender), needle) ||
				strings.Contains(strings.ToLower(doc.Snippet), needle) {
				results = append(results, Result{MessageID: entry.MessageID, Time: entry.Time})
			}
		}
	}
}

// DeleteIndex removes all on-disk index rows and disables the machine,
// regardless of its current state.
func (b *Builder) DeleteIndex(ctx context.Context) error {
	err := b.store.InTransaction(ctx, func(tx store.Tx) error {
		return tx.DropSearchIndex(ctx, b.accountID)
	})
	b.machine.Disable()
	if err != nil {
		return fmt.Errorf("failed to drop search index: %w", err)
	}
	return nil
}

// OnSignal maps one device condition change onto the state machine.
// Adverse conditions pause an active build; cleared conditions resume
// only a build paused for that same condition.
func (b *Builder) OnSignal(sig Signal) {
	switch sig {
	case SignalBatteryLow:
		b.machine.Pause(ReasonLowBattery)
	case SignalBatteryOK:
		b.machine.ResumeIf(ReasonLowBattery)
	case SignalThermalHot:
		b.machine.Pause(ReasonThermal)
	case SignalThermalNominal:
		b.machine.ResumeIf(ReasonThermal)
	case SignalStorageLow:
		b.machine.Pause(ReasonLowStorage)
	case SignalStorageOK:
		b.machine.ResumeIf(ReasonLowStorage)
	case SignalWiFiLost:
		b.machine.Pause(ReasonWiFiRequired)
	case SignalWiFiAvailable:
		b.machine.ResumeIf(ReasonWiFiRequired)
	case SignalNetworkLost:
		b.machine.Pause(ReasonNetworkLoss)
	case SignalNetworkRestored:
		b.machine.ResumeIf(ReasonNetworkLoss)
	}
}
