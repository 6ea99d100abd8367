package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
)

// UpsertLabel inserts or updates a label.
func (t *Tx) UpsertLabel(ctx context.Context, label *domain.Label) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO labels (id, account_id, name, color, type, parent_id, sort_order, notify, sticky)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name       = excluded.name,
			color      = excluded.color,
			type       = excluded.type,
			parent_id  = excluded.parent_id,
			sort_order = excluded.sort_order,
			notify     = excluded.notify,
			sticky     = excluded.sticky`,
		label.ID, label.AccountID, label.Name, label.Color, int(label.Type),
		label.ParentID, label.Order, label.Notify, label.Sticky,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert label: %w", err)
	}
	return nil
}

// DeleteLabel removes the label record only. Messages and conversations
// referencing the label keep their references; unknown label IDs are
// tolerated everywhere they are read.
func (t *Tx) DeleteLabel(ctx context.Context, id string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM labels WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete label %s: %w", id, err)
	}
	return nil
}

// GetLabel retrieves a label by ID, or nil if it does not exist.
func (c *conn) GetLabel(ctx context.Context, id string) (*domain.Label, error) {
	var l domain.Label
	var typ int
	err := c.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, color, type, parent_id, sort_order, notify, sticky
		FROM labels WHERE id = ?`, id,
	).Scan(&l.ID, &l.AccountID, &l.Name, &l.Color, &typ, &l.ParentID, &l.Order, &l.Notify, &l.Sticky)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get label %s: %w", id, err)
	}
	l.Type = domain.LabelType(typ)
	return &l, nil
}

// ListLabels returns all labels for an account ordered by sort order, then
// name.
func (c *conn) ListLabels(ctx context.Context, accountID string) ([]domain.Label, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, account_id, name, color, type, parent_id, sort_order, notify, sticky
		FROM labels WHERE account_id = ? ORDER BY sort_order, name`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	defer rows.Close()

	var labels []domain.Label
	for rows.Next() {
		var l domain.Label
		var typ int
		if err := rows.Scan(&l.ID, &l.AccountID, &l.Name, &l.Color, &typ,
			&l.ParentID, &l.Order, &l.Notify, &l.Sticky); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		l.Type = domain.LabelType(typ)
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate labels: %w", err)
	}
	return labels, nil
}
