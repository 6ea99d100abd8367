package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/store"
)

// UpsertMessage inserts or updates a message and replaces its label
// associations.
func (t *Tx) UpsertMessage(ctx context.Context, msg *domain.Message) error {
	toJSON, err := json.Marshal(msg.ToList)
	if err != nil {
		return fmt.Errorf("failed to marshal To addresses: %w", err)
	}
	ccJSON, err := json.Marshal(msg.CCList)
	if err != nil {
		return fmt.Errorf("failed to marshal CC addresses: %w", err)
	}

	_, err = t.db.ExecContext(ctx, `
		INSERT INTO messages (id, account_id, conversation_id, subject, sender_addr, sender_name,
			to_addrs, cc_addrs, flags, unread, time, size, num_attachments, snippet, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id      = excluded.account_id,
			conversation_id = excluded.conversation_id,
			subject         = excluded.subject,
			sender_addr     = excluded.sender_addr,
			sender_name     = excluded.sender_name,
			to_addrs        = excluded.to_addrs,
			cc_addrs        = excluded.cc_addrs,
			flags           = excluded.flags,
			unread          = excluded.unread,
			time            = excluded.time,
			size            = excluded.size,
			num_attachments = excluded.num_attachments,
			snippet         = excluded.snippet,
			sort_order      = excluded.sort_order`,
		msg.ID, msg.AccountID, msg.ConversationID, msg.Subject,
		msg.Sender.Email, msg.Sender.Name, string(toJSON), string(ccJSON),
		int64(msg.Flags), msg.Unread, msg.Time, msg.Size, msg.NumAttachments,
		msg.Snippet, msg.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}

	// Delete existing labels, then reinsert.
	if _, err := t.db.ExecContext(ctx, `DELETE FROM message_labels WHERE message_id = ?`, msg.ID); err != nil {
		return fmt.Errorf("failed to delete message labels: %w", err)
	}
	for _, labelID := range msg.LabelIDs {
		if _, err := t.db.ExecContext(ctx, `INSERT INTO message_labels (message_id, label_id) VALUES (?, ?)`,
			msg.ID, labelID); err != nil {
			return fmt.Errorf("failed to insert message label: %w", err)
		}
	}
	return nil
}

// DeleteMessage removes a message by ID. Deleting an unknown message is a
// no-op.
func (t *Tx) DeleteMessage(ctx context.Context, id string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", id, err)
	}
	return nil
}

// GetMessage retrieves a single message by ID including its labels, or nil
// if it does not exist.
func (c *conn) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var m domain.Message
	var senderAddr, senderName string
	var toJSON, ccJSON sql.NullString
	var flags int64

	err := c.db.QueryRowContext(ctx, `
		SELECT id, account_id, conversation_id, subject, sender_addr, sender_name,
			to_addrs, cc_addrs, flags, unread, time, size, num_attachments, snippet, sort_order
		FROM messages WHERE id = ?`, id,
	).Scan(
		&m.ID, &m.AccountID, &m.ConversationID, &m.Subject, &senderAddr, &senderName,
		&toJSON, &ccJSON, &flags, &m.Unread, &m.Time, &m.Size, &m.NumAttachments,
		&m.Snippet, &m.Order,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	m.Sender = domain.Address{Name: senderName, Email: senderAddr}
	m.Flags = domain.MessageFlag(flags)

	if toJSON.Valid && toJSON.String != "" {
		if err := json.Unmarshal([]byte(toJSON.String), &m.ToList); err != nil {
			return nil, fmt.Errorf("failed to unmarshal To addresses: %w", err)
		}
	}
	if ccJSON.Valid && ccJSON.String != "" {
		if err := json.Unmarshal([]byte(ccJSON.String), &m.CCList); err != nil {
			return nil, fmt.Errorf("failed to unmarshal CC addresses: %w", err)
		}
	}

	labels, err := c.messageLabels(ctx, id)
	if err != nil {
		return nil, err
	}
	m.LabelIDs = labels
	return &m, nil
}

func (c *conn) messageLabels(ctx context.Context, messageID string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT label_id FROM message_labels WHERE message_id = ? ORDER BY label_id`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query message labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var labelID string
		if err := rows.Scan(&labelID); err != nil {
			return nil, fmt.Errorf("failed to scan message label: %w", err)
		}
		labels = append(labels, labelID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message labels: %w", err)
	}
	return labels, nil
}

// ListMessages returns messages for an account, optionally filtered by
// label, newest first with the server sort order as tiebreaker.
func (c *conn) ListMessages(ctx context.Context, opts store.ListMessageOptions) ([]domain.Message, error) {
	var query string
	var args []any

	if opts.LabelID != "" {
		query = `
			SELECT m.id, m.account_id, m.conversation_id, m.subject, m.sender_addr, m.sender_name,
				m.flags, m.unread, m.time, m.size, m.num_attachments, m.snippet, m.sort_order
			FROM messages m
			JOIN message_labels ml ON ml.message_id = m.id
			WHERE m.account_id = ? AND ml.label_id = ?
			ORDER BY m.time DESC, m.sort_order DESC`
		args = append(args, opts.AccountID, opts.LabelID)
	} else {
		query = `
			SELECT m.id, m.account_id, m.conversation_id, m.subject, m.sender_addr, m.sender_name,
				m.flags, m.unread, m.time, m.size, m.num_attachments, m.snippet, m.sort_order
			FROM messages m
			WHERE m.account_id = ?
			ORDER BY m.time DESC, m.sort_order DESC`
		args = append(args, opts.AccountID)
	}

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
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
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return msgs, nil
}

// CountMessages returns the number of locally replicated messages for an
// account.
func (c *conn) CountMessages(ctx context.Context, accountID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE account_id = ?`, accountID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}
