package events

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lu-zhengda/mailsync/internal/queue"
	"github.com/lu-zhengda/mailsync/internal/store"
)

// changes summarizes which entity groups a tick actually touched, so the
// loop can invalidate only the affected hot-cache keys.
type changes struct {
	Messages         bool
	Conversations    bool
	Labels           bool
	Contacts         bool
	IncomingDefaults bool
	Counts           bool
	Settings         bool
}

func (c changes) any() bool {
	return c.Messages || c.Conversations || c.Labels || c.Contacts ||
		c.IncomingDefaults || c.Counts || c.Settings
}

// Applier reconciles one account's delta pages against the local store.
// Every delta of a page is applied through a single store transaction;
// one bad delta fails the whole page.
type Applier struct {
	accountID string
	pending   queue.PendingChecker
	log       *logrus.Entry
}

// NewApplier creates an Applier for the account. pending reports which
// messages have in-flight outbound tasks whose local edits must win over
// incoming server data.
func NewApplier(accountID string, pending queue.PendingChecker, logger *logrus.Logger) *Applier {
	return &Applier{
		accountID: accountID,
		pending:   pending,
		log:       logger.WithField("account", accountID),
	}
}

// Apply dispatches every delta in the page to its entity reconciler.
// Labels are applied first so that freshly referenced labels usually
// resolve, but no reconciler depends on that ordering: deltas referencing
// entities that arrive later in the same page (or never) are tolerated.
func (a *Applier) Apply(ctx context.Context, tx store.Tx, resp *Response) (changes, error) {
	var chg changes

	if err := a.applyLabels(ctx, tx, resp.Labels); err != nil {
		return chg, fmt.Errorf("failed to apply label events: %w", err)
	}
	chg.Labels = len(resp.Labels) > 0

	if err := a.applyMessages(ctx, tx, resp.Messages); err != nil {
		return chg, fmt.Errorf("failed to apply message events: %w", err)
	}
	chg.Messages = len(resp.Messages) > 0

	if err := a.applyConversations(ctx, tx, resp.Conversations); err != nil {
		return chg, fmt.Errorf("failed to apply conversation events: %w", err)
	}
	chg.Conversations = len(resp.Conversations) > 0

	if err := a.applyContacts(ctx, tx, resp.Contacts); err != nil {
		return chg, fmt.Errorf("failed to apply contact events: %w", err)
	}
	chg.Contacts = len(resp.Contacts) > 0

	if err := a.applyIncomingDefaults(ctx, tx, resp.IncomingDefaults); err != nil {
		return chg, fmt.Errorf("failed to apply incoming default events: %w", err)
	}
	chg.IncomingDefaults = len(resp.IncomingDefaults) > 0

	if err := a.applyCounts(ctx, tx, resp); err != nil {
		return chg, fmt.Errorf("failed to apply counts: %w", err)
	}
	chg.Counts = len(resp.MessageCounts) > 0 || len(resp.ConversationCounts) > 0

	if err := a.applySettings(ctx, tx, resp.MailSettings); err != nil {
		return chg, fmt.Errorf("failed to apply mail settings: %w", err)
	}
	chg.Settings = len(resp.MailSettings) > 0

	return chg, nil
}
