package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
)

// UpsertConversation inserts or updates a conversation and replaces its
// per-label rollups with the ones supplied.
func (t *Tx) UpsertConversation(ctx context.Context, conv *domain.Conversation) error {
	sendersJSON, err := json.Marshal(conv.Senders)
	if err != nil {
		return fmt.Errorf("failed to marshal senders: %w", err)
	}

	_, err = t.db.ExecContext(ctx, `
		INSERT INTO conversations (id, account_id, subject, senders, num_messages, num_unread,
			num_attachments, size, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id      = excluded.account_id,
			subject         = excluded.subject,
			senders         = excluded.senders,
			num_messages    = excluded.num_messages,
			num_unread      = excluded.num_unread,
			num_attachments = excluded.num_attachments,
			size            = excluded.size,
			sort_order      = excluded.sort_order`,
		conv.ID, conv.AccountID, conv.Subject, string(sendersJSON),
		conv.NumMessages, conv.NumUnread, conv.NumAttachments, conv.Size, conv.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	if _, err := t.db.ExecContext(ctx,
		`DELETE FROM conversation_labels WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("failed to delete conversation rollups: %w", err)
	}
	for _, cl := range conv.ContextLabels {
		if _, err := t.db.ExecContext(ctx, `
			INSERT INTO conversation_labels (conversation_id, label_id, num_messages, num_unread,
				time, size, num_attachments)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			conv.ID, cl.LabelID, cl.NumMessages, cl.NumUnread, cl.Time, cl.Size, cl.NumAttachments,
		); err != nil {
			return fmt.Errorf("failed to insert conversation rollup: %w", err)
		}
	}
	return nil
}

// DeleteConversation removes a conversation and its rollups. Deleting an
// unknown conversation is a no-op.
func (t *Tx) DeleteConversation(ctx context.Context, id string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	if _, err := t.db.ExecContext(ctx,
		`DELETE FROM conversation_labels WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete conversation rollups: %w", err)
	}
	return nil
}

// RefreshContextLabels rebuilds the conversation's per-label rollups from
// the messages currently stored for it. Labels no message carries anymore
// lose their rollup entirely; a rollup never lingers with zero counts.
func (t *Tx) RefreshContextLabels(ctx context.Context, conversationID string) error {
	if _, err := t.db.ExecContext(ctx,
		`DELETE FROM conversation_labels WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("failed to clear conversation rollups: %w", err)
	}

	_, err := t.db.ExecContext(ctx, `
		INSERT INTO conversation_labels (conversation_id, label_id, num_messages, num_unread,
			time, size, num_attachments)
		SELECT m.conversation_id, ml.label_id, COUNT(*), SUM(m.unread),
			MAX(m.time), SUM(m.size), SUM(m.num_attachments)
		FROM messages m
		JOIN message_labels ml ON ml.message_id = m.id
		WHERE m.conversation_id = ?
		GROUP BY ml.label_id`, conversationID)
	if err != nil {
		return fmt.Errorf("failed to rebuild conversation rollups: %w", err)
	}

	// Keep the conversation's own totals consistent with its messages.
	_, err = t.db.ExecContext(ctx, `
		UPDATE conversations SET
			num_messages = (SELECT COUNT(*) FROM messages WHERE conversation_id = ?),
			num_unread   = (SELECT COALESCE(SUM(unread), 0) FROM messages WHERE conversation_id = ?)
		WHERE id = ?`, conversationID, conversationID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to update conversation totals: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation with its rollups, or nil if it
// does not exist.
func (c *conn) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	var sendersJSON sql.NullString

	err := c.db.QueryRowContext(ctx, `
		SELECT id, account_id, subject, senders, num_messages, num_unread,
			num_attachments, size, sort_order
		FROM conversations WHERE id = ?`, id,
	).Scan(
		&conv.ID, &conv.AccountID, &conv.Subject, &sendersJSON,
		&conv.NumMessages, &conv.NumUnread, &conv.NumAttachments, &conv.Size, &conv.Order,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}

	if sendersJSON.Valid && sendersJSON.String != "" {
		if err := json.Unmarshal([]byte(sendersJSON.String), &conv.Senders); err != nil {
			return nil, fmt.Errorf("failed to unmarshal senders: %w", err)
		}
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT conversation_id, label_id, num_messages, num_unread, time, size, num_attachments
		FROM conversation_labels WHERE conversation_id = ? ORDER BY label_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation rollups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cl domain.ContextLabel
		if err := rows.Scan(&cl.ConversationID, &cl.LabelID, &cl.NumMessages, &cl.NumUnread,
			&cl.Time, &cl.Size, &cl.NumAttachments); err != nil {
			return nil, fmt.Errorf("failed to scan conversation rollup: %w", err)
		}
		conv.ContextLabels = append(conv.ContextLabels, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation rollups: %w", err)
	}
	return &conv, nil
}
