package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/store"
)

// applyCounts replaces stored per-label counts with the absolute values
// the server reported. Counts are never summed locally.
func (a *Applier) applyCounts(ctx context.Context, tx store.Tx, resp *Response) error {
	if len(resp.MessageCounts) > 0 {
		if err := tx.SetMessageCounts(ctx, a.accountID, toLabelCounts(a.accountID, resp.MessageCounts)); err != nil {
			return err
		}
	}
	if len(resp.ConversationCounts) > 0 {
		if err := tx.SetConversationCounts(ctx, a.accountID, toLabelCounts(a.accountID, resp.ConversationCounts)); err != nil {
			return err
		}
	}
	return nil
}

func toLabelCounts(accountID string, evs []CountEvent) []domain.LabelCount {
	counts := make([]domain.LabelCount, 0, len(evs))
	for _, ev := range evs {
		counts = append(counts, domain.LabelCount{
			AccountID: accountID,
			LabelID:   ev.LabelID,
			Total:     ev.Total,
			Unread:    ev.Unread,
		})
	}
	return counts
}

// applySettings replaces the stored mail settings when the page carries a
// settings document.
func (a *Applier) applySettings(ctx context.Context, tx store.Tx, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var p MailSettingsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("failed to decode mail settings: %w", err)
	}
	return tx.SetMailSettings(ctx, &domain.MailSettings{
		AccountID:        a.accountID,
		DisplayName:      p.DisplayName,
		Signature:        p.Signature,
		AutoSaveContacts: p.AutoSaveContacts != 0,
		Raw:              append([]byte(nil), raw...),
	})
}
