package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
)

// UpsertIncomingDefault inserts or updates a sender routing rule. A
// non-soft-deleted rule replaces any prior non-soft-deleted rule for the
// same (account, email) pair; the partial unique index enforces at most one.
func (t *Tx) UpsertIncomingDefault(ctx context.Context, rule *domain.IncomingDefault) error {
	if !rule.SoftDeleted {
		// Clear any other live rule for the same address first, so the
		// unique index never rejects a legitimate replacement.
		if _, err := t.db.ExecContext(ctx, `
			DELETE FROM incoming_defaults
			WHERE account_id = ? AND email = ? AND soft_deleted = FALSE AND id != ?`,
			rule.AccountID, rule.Email, rule.ID,
		); err != nil {
			return fmt.Errorf("failed to clear conflicting incoming default: %w", err)
		}
	}

	_, err := t.db.ExecContext(ctx, `
		INSERT INTO incoming_defaults (id, account_id, email, location, time, soft_deleted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email        = excluded.email,
			location     = excluded.location,
			time         = excluded.time,
			soft_deleted = excluded.soft_deleted`,
		rule.ID, rule.AccountID, rule.Email, int(rule.Location), rule.Time, rule.SoftDeleted,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert incoming default: %w", err)
	}
	return nil
}

// DeleteIncomingDefault removes a rule by ID. Deleting an unknown rule is a
// no-op.
func (t *Tx) DeleteIncomingDefault(ctx context.Context, id string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM incoming_defaults WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete incoming default %s: %w", id, err)
	}
	return nil
}

// GetIncomingDefaultByEmail returns the non-soft-deleted rule for the
// address, or nil if none exists. Addresses match case-sensitively, as
// stored.
func (c *conn) GetIncomingDefaultByEmail(ctx context.Context, accountID, email string) (*domain.IncomingDefault, error) {
	var d domain.IncomingDefault
	var location int
	err := c.db.QueryRowContext(ctx, `
		SELECT id, account_id, email, location, time, soft_deleted
		FROM incoming_defaults
		WHERE account_id = ? AND email = ? AND soft_deleted = FALSE`,
		accountID, email,
	).Scan(&d.ID, &d.AccountID, &d.Email, &location, &d.Time, &d.SoftDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get incoming default for %s: %w", email, err)
	}
	d.Location = domain.Location(location)
	return &d, nil
}

// ListIncomingDefaults returns all rules for an account, including
// soft-deleted ones, ordered by email.
func (c *conn) ListIncomingDefaults(ctx context.Context, accountID string) ([]domain.IncomingDefault, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, account_id, email, location, time, soft_deleted
		FROM incoming_defaults WHERE account_id = ? ORDER BY email`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming defaults: %w", err)
	}
	defer rows.Close()

	var rules []domain.IncomingDefault
	for rows.Next() {
		var d domain.IncomingDefault
		var location int
		if err := rows.Scan(&d.ID, &d.AccountID, &d.Email, &location, &d.Time, &d.SoftDeleted); err != nil {
			return nil, fmt.Errorf("failed to scan incoming default: %w", err)
		}
		d.Location = domain.Location(location)
		rules = append(rules, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate incoming defaults: %w", err)
	}
	return rules, nil
}
