package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
)

// SetMailSettings replaces the stored mail settings for an account.
func (t *Tx) SetMailSettings(ctx context.Context, settings *domain.MailSettings) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO mail_settings (account_id, display_name, signature, auto_save_contacts, raw)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			display_name       = excluded.display_name,
			signature          = excluded.signature,
			auto_save_contacts = excluded.auto_save_contacts,
			raw                = excluded.raw`,
		settings.AccountID, settings.DisplayName, settings.Signature,
		settings.AutoSaveContacts, settings.Raw,
	)
	if err != nil {
		return fmt.Errorf("failed to set mail settings for %s: %w", settings.AccountID, err)
	}
	return nil
}

// GetMailSettings retrieves the mail settings for an account, or nil if
// none have been replicated yet.
func (c *conn) GetMailSettings(ctx context.Context, accountID string) (*domain.MailSettings, error) {
	var s domain.MailSettings
	err := c.db.QueryRowContext(ctx, `
		SELECT account_id, display_name, signature, auto_save_contacts, raw
		FROM mail_settings WHERE account_id = ?`, accountID,
	).Scan(&s.AccountID, &s.DisplayName, &s.Signature, &s.AutoSaveContacts, &s.Raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mail settings for %s: %w", accountID, err)
	}
	return &s, nil
}
