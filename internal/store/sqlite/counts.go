package sqlite

import (
	"context"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
)

const (
	countKindMessage      = "message"
	countKindConversation = "conversation"
)

// SetMessageCounts replaces the stored per-label message counts with the
// absolute values supplied.
func (t *Tx) SetMessageCounts(ctx context.Context, accountID string, counts []domain.LabelCount) error {
	return t.setCounts(ctx, accountID, countKindMessage, counts)
}

// SetConversationCounts replaces the stored per-label conversation counts
// with the absolute values supplied.
func (t *Tx) SetConversationCounts(ctx context.Context, accountID string, counts []domain.LabelCount) error {
	return t.setCounts(ctx, accountID, countKindConversation, counts)
}

func (t *Tx) setCounts(ctx context.Context, accountID, kind string, counts []domain.LabelCount) error {
	// The supplied set is the whole truth for this kind: labels absent
	// from it are dropped, not left behind at their old values.
	if _, err := t.db.ExecContext(ctx,
		`DELETE FROM label_counts WHERE account_id = ? AND kind = ?`, accountID, kind,
	); err != nil {
		return fmt.Errorf("failed to clear %s counts: %w", kind, err)
	}
	for _, ct := range counts {
		if _, err := t.db.ExecContext(ctx, `
			INSERT INTO label_counts (account_id, label_id, kind, total, unread)
			VALUES (?, ?, ?, ?, ?)`,
			accountID, ct.LabelID, kind, ct.Total, ct.Unread,
		); err != nil {
			return fmt.Errorf("failed to set %s count for label %s: %w", kind, ct.LabelID, err)
		}
	}
	return nil
}

// GetMessageCounts returns the per-label message counts for an account.
func (c *conn) GetMessageCounts(ctx context.Context, accountID string) ([]domain.LabelCount, error) {
	return c.getCounts(ctx, accountID, countKindMessage)
}

// GetConversationCounts returns the per-label conversation counts for an
// account.
func (c *conn) GetConversationCounts(ctx context.Context, accountID string) ([]domain.LabelCount, error) {
	return c.getCounts(ctx, accountID, countKindConversation)
}

func (c *conn) getCounts(ctx context.Context, accountID, kind string) ([]domain.LabelCount, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT account_id, label_id, total, unread
		FROM label_counts WHERE account_id = ? AND kind = ? ORDER BY label_id`,
		accountID, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s counts: %w", kind, err)
	}
	defer rows.Close()

	var counts []domain.LabelCount
	for rows.Next() {
		var ct domain.LabelCount
		if err := rows.Scan(&ct.AccountID, &ct.LabelID, &ct.Total, &ct.Unread); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", kind, err)
		}
		counts = append(counts, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s counts: %w", kind, err)
	}
	return counts, nil
}
