package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lu-zhengda/mailsync/internal/domain"
)

// CreateAccount inserts a new account record.
func (s *DB) CreateAccount(ctx context.Context, account *domain.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, display_name, event_cursor, last_sync)
		VALUES (?, ?, ?, ?, ?)`,
		account.ID, account.Email, account.DisplayName, account.EventCursor, account.LastSync,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID, or nil if it does not exist.
func (c *conn) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var a domain.Account
	var createdAt time.Time
	err := c.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, event_cursor, last_sync, created_at
		FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.Email, &a.DisplayName, &a.EventCursor, &a.LastSync, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	a.CreatedAt = createdAt
	return &a, nil
}

// ListAccounts returns all accounts ordered by creation time.
func (c *conn) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, email, display_name, event_cursor, last_sync, created_at
		FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		var createdAt time.Time
		if err := rows.Scan(&a.ID, &a.Email, &a.DisplayName, &a.EventCursor, &a.LastSync, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.CreatedAt = createdAt
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// DeleteAccount removes an account and, via foreign keys, all of its
// replicated entities and search index rows. Conversation rollups carry
// no foreign key and are removed explicitly first.
func (s *DB) DeleteAccount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM conversation_labels WHERE conversation_id IN (
			SELECT id FROM conversations WHERE account_id = ?
			UNION
			SELECT conversation_id FROM messages WHERE account_id = ?
		)`, id, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %s rollups: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete account %s: %w", id, err)
	}
	return nil
}

// SetEventCursor advances the account's delta-stream cursor.
func (t *Tx) SetEventCursor(ctx context.Context, accountID, cursor string, lastSync int64) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE accounts SET event_cursor = ?, last_sync = ? WHERE id = ?`,
		cursor, lastSync, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to set event cursor for %s: %w", accountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check cursor update for %s: %w", accountID, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to set event cursor: account %s not found", accountID)
	}
	return nil
}

// WipeAccountData removes every replicated entity and resets the cursor,
// keeping the account record. Used when the server demands a full resync.
func (t *Tx) WipeAccountData(ctx context.Context, accountID string) error {
	// Rollups carry no foreign key, so they do not cascade.
	if _, err := t.db.ExecContext(ctx, `
		DELETE FROM conversation_labels WHERE conversation_id IN (
			SELECT id FROM conversations WHERE account_id = ?
			UNION
			SELECT conversation_id FROM messages WHERE account_id = ?
		)`, accountID, accountID); err != nil {
		return fmt.Errorf("failed to wipe account %s: %w", accountID, err)
	}
	stmts := []string{
		`DELETE FROM messages WHERE account_id = ?`,
		`DELETE FROM conversations WHERE account_id = ?`,
		`DELETE FROM labels WHERE account_id = ?`,
		`DELETE FROM contacts WHERE account_id = ?`,
		`DELETE FROM incoming_defaults WHERE account_id = ?`,
		`DELETE FROM label_counts WHERE account_id = ?`,
		`DELETE FROM mail_settings WHERE account_id = ?`,
		`DELETE FROM search_index WHERE account_id = ?`,
		`UPDATE accounts SET event_cursor = '', last_sync = 0 WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := t.db.ExecContext(ctx, stmt, accountID); err != nil {
			return fmt.Errorf("failed to wipe account %s: %w", accountID, err)
		}
	}
	return nil
}
