package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
)

// UpsertContact inserts or updates a contact.
func (t *Tx) UpsertContact(ctx context.Context, contact *domain.Contact) error {
	emailsJSON, err := json.Marshal(contact.Emails)
	if err != nil {
		return fmt.Errorf("failed to marshal contact emails: %w", err)
	}
	_, err = t.db.ExecContext(ctx, `
		INSERT INTO contacts (id, account_id, name, emails)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name   = excluded.name,
			emails = excluded.emails`,
		contact.ID, contact.AccountID, contact.Name, string(emailsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}
	return nil
}

// DeleteContact removes a contact by ID. Deleting an unknown contact is a
// no-op.
func (t *Tx) DeleteContact(ctx context.Context, id string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete contact %s: %w", id, err)
	}
	return nil
}

// ListContacts returns all contacts for an account ordered by name.
func (c *conn) ListContacts(ctx context.Context, accountID string) ([]domain.Contact, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, account_id, name, emails FROM contacts WHERE account_id = ? ORDER BY name`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var ct domain.Contact
		var emailsJSON sql.NullString
		if err := rows.Scan(&ct.ID, &ct.AccountID, &ct.Name, &emailsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		if emailsJSON.Valid && emailsJSON.String != "" {
			if err := json.Unmarshal([]byte(emailsJSON.String), &ct.Emails); err != nil {
				return nil, fmt.Errorf("failed to unmarshal contact emails: %w", err)
			}
		}
		contacts = append(contacts, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return contacts, nil
}
