package events

import (
	"context"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/store"
)

// applyConversations reconciles conversation deltas. Rollups in the
// payload are absolute server values and fully replace the stored ones.
func (a *Applier) applyConversations(ctx context.Context, tx store.Tx, evs []ConversationEvent) error {
	for _, ev := range evs {
		switch ev.Action {
		case ActionDelete:
			existing, err := tx.GetConversation(ctx, ev.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				continue
			}
			if err := tx.DeleteConversation(ctx, ev.ID); err != nil {
				return err
			}

		case ActionCreate, ActionUpdate, ActionUpdateFlags:
			if ev.Conversation == nil {
				return fmt.Errorf("conversation event %s action %d missing payload", ev.ID, ev.Action)
			}
			existing, err := tx.GetConversation(ctx, ev.ID)
			if err != nil {
				return err
			}
			conv := a.mergeConversation(existing, ev)
			if err := tx.UpsertConversation(ctx, conv); err != nil {
				return err
			}

		default:
			return fmt.Errorf("conversation event %s has unknown action %d", ev.ID, ev.Action)
		}
	}
	return nil
}

func (a *Applier) mergeConversation(existing *domain.Conversation, ev ConversationEvent) *domain.Conversation {
	conv := &domain.Conversation{ID: ev.ID, AccountID: a.accountID}
	if existing != nil {
		*conv = *existing
	}
	p := ev.Conversation

	if p.Subject != nil {
		conv.Subject = *p.Subject
	}
	if p.Senders != nil {
		conv.Senders = toAddresses(p.Senders)
	}
	if p.NumMessages != nil {
		conv.NumMessages = *p.NumMessages
	}
	if p.NumUnread != nil {
		conv.NumUnread = *p.NumUnread
	}
	if p.NumAttachments != nil {
		conv.NumAttachments = *p.NumAttachments
	}
	if p.Size != nil {
		conv.Size = *p.Size
	}
	if p.Order != nil {
		conv.Order = *p.Order
	}
	if p.Labels != nil {
		conv.ContextLabels = make([]domain.ContextLabel, 0, len(p.Labels))
		for _, cl := range p.Labels {
			conv.ContextLabels = append(conv.ContextLabels, domain.ContextLabel{
				ConversationID: ev.ID,
				LabelID:        cl.ID,
				NumMessages:    cl.NumMessages,
				NumUnread:      cl.NumUnread,
				Time:           cl.Time,
				Size:           cl.Size,
				NumAttachments: cl.NumAttachments,
			})
		}
	}
	return conv
}
