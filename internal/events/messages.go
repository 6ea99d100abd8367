package events

import (
	"context"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/store"
)

// applyMessages reconciles message deltas. Deletes for unknown messages
// are silent no-ops; inserts and updates are idempotent. Conversations
// whose message/label pairings changed get their rollups rebuilt so a
// rollup exists exactly while some message carries its label.
func (a *Applier) applyMessages(ctx context.Context, tx store.Tx, evs []MessageEvent) error {
	touched := make(map[string]struct{})

	for _, ev := range evs {
		switch ev.Action {
		case ActionDelete:
			existing, err := tx.GetMessage(ctx, ev.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				continue
			}
			if err := tx.DeleteMessage(ctx, ev.ID); err != nil {
				return err
			}
			if err := tx.DeleteSearchEntry(ctx, ev.ID); err != nil {
				return err
			}
			if existing.ConversationID != "" {
				touched[existing.ConversationID] = struct{}{}
			}

		case ActionCreate, ActionUpdate, ActionUpdateFlags:
			if ev.Message == nil {
				return fmt.Errorf("message event %s action %d missing payload", ev.ID, ev.Action)
			}
			existing, err := tx.GetMessage(ctx, ev.ID)
			if err != nil {
				return err
			}
			msg := a.mergeMessage(existing, ev)
			if err := tx.UpsertMessage(ctx, msg); err != nil {
				return err
			}
			if existing != nil && existing.ConversationID != "" && existing.ConversationID != msg.ConversationID {
				touched[existing.ConversationID] = struct{}{}
			}
			if msg.ConversationID != "" {
				touched[msg.ConversationID] = struct{}{}
			}

		default:
			return fmt.Errorf("message event %s has unknown action %d", ev.ID, ev.Action)
		}
	}

	for convID := range touched {
		if err := tx.RefreshContextLabels(ctx, convID); err != nil {
			return err
		}
	}
	return nil
}

// mergeMessage folds an event payload into the existing local message (or
// a fresh one). When the message has a pending outbound task, incoming
// content-bearing fields are suppressed: the queued local edit must not be
// clobbered by stale server data. Structural fields still flow through.
func (a *Applier) mergeMessage(existing *domain.Message, ev MessageEvent) *domain.Message {
	msg := &domain.Message{ID: ev.ID, AccountID: a.accountID}
	if existing != nil {
		*msg = *existing
	}
	p := ev.Message

	suppress := existing != nil && ev.Action != ActionCreate && a.pending.PendingForMessage(ev.ID)
	if suppress {
		a.log.WithField("message", ev.ID).Debug("suppressing content fields: outbound task pending")
	}

	if !suppress {
		if p.Subject != nil {
			msg.Subject = *p.Subject
		}
		if p.Sender != nil {
			msg.Sender = domain.Address{Name: p.Sender.Name, Email: p.Sender.Address}
		}
		if p.ToList != nil {
			msg.ToList = toAddresses(p.ToList)
		}
		if p.CCList != nil {
			msg.CCList = toAddresses(p.CCList)
		}
		if p.Snippet != nil {
			msg.Snippet = *p.Snippet
		}
	}

	if p.ConversationID != nil {
		msg.ConversationID = *p.ConversationID
	}
	if p.Flags != nil {
		msg.Flags = domain.MessageFlag(*p.Flags)
	}
	if p.Unread != nil {
		msg.Unread = *p.Unread != 0
	}
	if p.Time != nil {
		msg.Time = *p.Time
	}
	if p.Size != nil {
		msg.Size = *p.Size
	}
	if p.NumAttachments != nil {
		msg.NumAttachments = *p.NumAttachments
	}
	if p.Order != nil {
		msg.Order = *p.Order
	}
	if p.LabelIDs != nil {
		msg.LabelIDs = append([]string(nil), p.LabelIDs...)
	}

	// Every message belongs to the all-mail system label.
	msg.AddLabel(domain.LabelAllMail)
	return msg
}

func toAddresses(payloads []AddressPayload) []domain.Address {
	addrs := make([]domain.Address, 0, len(payloads))
	for _, p := range payloads {
		addrs = append(addrs, domain.Address{Name: p.Name, Email: p.Address})
	}
	return addrs
}
