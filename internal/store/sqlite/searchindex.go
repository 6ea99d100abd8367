package sqlite

import (
	"context"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/store"
)

// UpsertSearchEntry inserts or replaces one encrypted search index row.
func (t *Tx) UpsertSearchEntry(ctx context.Context, entry *store.SearchEntry) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO search_index (message_id, account_id, time, ciphertext)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			time       = excluded.time,
			ciphertext = excluded.ciphertext`,
		entry.MessageID, entry.AccountID, entry.Time, entry.Ciphertext,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert search entry: %w", err)
	}
	return nil
}

// DeleteSearchEntry removes the index row for a message. Unknown message
// IDs are a no-op.
func (t *Tx) DeleteSearchEntry(ctx context.Context, messageID string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM search_index WHERE message_id = ?`, messageID); err != nil {
		return fmt.Errorf("failed to delete search entry %s: %w", messageID, err)
	}
	return nil
}

// DropSearchIndex removes every index row for an account.
func (t *Tx) DropSearchIndex(ctx context.Context, accountID string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM search_index WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("failed to drop search index for %s: %w", accountID, err)
	}
	return nil
}

// ListSearchEntries returns index rows for an account, newest first.
func (c *conn) ListSearchEntries(ctx context.Context, accountID string, limit, offset int) ([]store.SearchEntry, error) {
	query := `
		SELECT message_id, account_id, time, ciphertext
		FROM search_index WHERE account_id = ? ORDER BY time DESC`
	args := []any{accountID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list search entries: %w", err)
	}
	defer rows.Close()

	var entries []store.SearchEntry
	for rows.Next() {
		var e store.SearchEntry
		if err := rows.Scan(&e.MessageID, &e.AccountID, &e.Time, &e.Ciphertext); err != nil {
			return nil, fmt.Errorf("failed to scan search entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search entries: %w", err)
	}
	return entries, nil
}

// ListUnindexedMessages returns messages that have no search index row,
// oldest first.
func (c *conn) ListUnindexedMessages(ctx context.Context, accountID string, limit int) ([]domain.Message, error) {
	query := `
		SELECT m.id, m.account_id, m.conversation_id, m.subject, m.sender_addr, m.sender_name,
			m.flags, m.unread, m.time, m.size, m.num_attachments, m.snippet, m.sort_order
		FROM messages m
		LEFT JOIN search_index si ON si.message_id = m.id
		WHERE m.account_id = ? AND si.message_id IS NULL
		ORDER BY m.time ASC, m.sort_order ASC`
	args := []any{accountID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list unindexed messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var senderAddr, senderName string
		var flags int64
		if err := rows.Scan(
			&m.ID, &m.AccountID, &m.ConversationID, &m.Subject, &senderAddr, &senderName,
			&flags, &m.Unread, &m.Time, &m.Size, &m.NumAttachments, &m.Snippet, &m.Order,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.Sender = domain.Address{Name: senderName, Email: senderAddr}
		m.Flags = domain.MessageFlag(flags)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unindexed messages: %w", err)
	}
	return msgs, nil
}

// CountSearchEntries returns the number of indexed messages for an account.
func (c *conn) CountSearchEntries(ctx context.Context, accountID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM search_index WHERE account_id = ?`, accountID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count search entries: %w", err)
	}
	return n, nil
}
