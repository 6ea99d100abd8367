package events

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lu-zhengda/mailsync/internal/cache"
	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/queue"
	"github.com/lu-zhengda/mailsync/internal/store"
)

// Feed is the server's delta stream, keyed by an opaque cursor.
type Feed interface {
	// Fetch returns the page of deltas recorded after cursor. On any
	// transport or decode failure the caller keeps its old cursor.
	Fetch(ctx context.Context, cursor string) (*Response, error)
	// LatestEventID returns the stream's current head cursor.
	LatestEventID(ctx context.Context) (string, error)
}

// Hot-cache keys. The cache is per-loop, so keys need no account prefix.
const (
	keyLabels     = "labels"
	keyMsgCounts  = "counts/message"
	keyConvCounts = "counts/conversation"
)

// Loop is the fetch-and-apply cycle for one account. A Loop is not safe
// for concurrent ticks; the Scheduler serializes them. The hot cache is
// confined to the loop's goroutine for the same reason.
type Loop struct {
	accountID string
	store     store.Store
	feed      Feed
	applier   *Applier
	hot       *cache.Cache[string, any]
	now       func() time.Time
	log       *logrus.Entry
}

// NewLoop creates the event loop for one account.
func NewLoop(accountID string, st store.Store, feed Feed, pending queue.PendingChecker, hot *cache.Cache[string, any], logger *logrus.Logger) *Loop {
	return &Loop{
		accountID: accountID,
		store:     st,
		feed:      feed,
		applier:   NewApplier(accountID, pending, logger),
		hot:       hot,
		now:       time.Now,
		log:       logger.WithField("account", accountID),
	}
}

// ID returns the account this loop syncs.
func (l *Loop) ID() string {
	return l.accountID
}

// Tick runs one fetch-and-apply cycle. All entity mutations and the
// cursor advance commit in a single store transaction; on any failure the
// cursor stays where it was and the whole page is discarded. The returned
// bool reports whether the feed has more pages ready to fetch immediately.
func (l *Loop) Tick(ctx context.Context) (bool, error) {
	acc, err := l.store.GetAccount(ctx, l.accountID)
	if err != nil {
		return false, fmt.Errorf("failed to load account: %w", err)
	}
	if acc == nil {
		return false, fmt.Errorf("account %s not found", l.accountID)
	}

	if !acc.Synced() {
		return false, l.bootstrap(ctx)
	}

	resp, err := l.feed.Fetch(ctx, acc.EventCursor)
	if err != nil {
		return false, fmt.Errorf("failed to fetch events since %s: %w", acc.EventCursor, err)
	}

	if resp.RequiresRefresh() {
		l.log.Warn("server requested full resync, discarding local replica")
		return false, l.resync(ctx)
	}

	for _, notice := range resp.Notices {
		l.log.WithField("notice", notice).Info("server notice")
	}

	var chg changes
	err = l.store.InTransaction(ctx, func(tx store.Tx) error {
		chg, err = l.applier.Apply(ctx, tx, resp)
		if err != nil {
			return err
		}
		return tx.SetEventCursor(ctx, l.accountID, resp.EventID, l.now().Unix())
	})
	if err != nil {
		return false, fmt.Errorf("failed to apply events up to %s: %w", resp.EventID, err)
	}

	l.invalidate(chg)
	if chg.any() {
		l.log.WithField("cursor", resp.EventID).Debug("applied event page")
	}
	return resp.HasMore(), nil
}

// bootstrap records the stream's head cursor for an account that has
// never synced; subsequent ticks pick up deltas from there.
func (l *Loop) bootstrap(ctx context.Context) error {
	head, err := l.feed.LatestEventID(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch latest event ID: %w", err)
	}
	err = l.store.InTransaction(ctx, func(tx store.Tx) error {
		return tx.SetEventCursor(ctx, l.accountID, head, l.now().Unix())
	})
	if err != nil {
		return fmt.Errorf("failed to store initial cursor: %w", err)
	}
	l.hot.Purge()
	l.log.WithField("cursor", head).Info("bootstrapped event cursor")
	return nil
}

// resync wipes the local replica and restarts from the stream head. Wipe
// and cursor reset commit together.
func (l *Loop) resync(ctx context.Context) error {
	head, err := l.feed.LatestEventID(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch latest event ID for resync: %w", err)
	}
	err = l.store.InTransaction(ctx, func(tx store.Tx) error {
		if err := tx.WipeAccountData(ctx, l.accountID); err != nil {
			return err
		}
		return tx.SetEventCursor(ctx, l.accountID, head, l.now().Unix())
	})
	if err != nil {
		return fmt.Errorf("failed to resync account: %w", err)
	}
	l.hot.Purge()
	return nil
}

func (l *Loop) invalidate(chg changes) {
	if chg.Labels {
		l.hot.Remove(keyLabels)
	}
	if chg.Counts || chg.Messages || chg.Conversations {
		l.hot.Remove(keyMsgCounts)
		l.hot.Remove(keyConvCounts)
	}
}

// Labels returns the account's labels, served from the hot cache when the
// last tick did not touch them.
func (l *Loop) Labels(ctx context.Context) ([]domain.Label, error) {
	if v, ok := l.hot.Get(keyLabels); ok {
		return v.([]domain.Label), nil
	}
	labels, err := l.store.ListLabels(ctx, l.accountID)
	if err != nil {
		return nil, err
	}
	l.hot.Set(keyLabels, labels, int64(len(labels))+1)
	return labels, nil
}

// MessageCounts returns the account's per-label message counts through
// the hot cache.
func (l *Loop) MessageCounts(ctx context.Context) ([]domain.LabelCount, error) {
	if v, ok := l.hot.Get(keyMsgCounts); ok {
		return v.([]domain.LabelCount), nil
	}
	counts, err := l.store.GetMessageCounts(ctx, l.accountID)
	if err != nil {
		return nil, err
	}
	l.hot.Set(keyMsgCounts, counts, int64(len(counts))+1)
	return counts, nil
}

// ConversationCounts returns the account's per-label conversation counts
// through the hot cache.
func (l *Loop) ConversationCounts(ctx context.Context) ([]domain.LabelCount, error) {
	if v, ok := l.hot.Get(keyConvCounts); ok {
		return v.([]domain.LabelCount), nil
	}
	counts, err := l.store.GetConversationCounts(ctx, l.accountID)
	if err != nil {
		return nil, err
	}
	l.hot.Set(keyConvCounts, counts, int64(len(counts))+1)
	return counts, nil
}
