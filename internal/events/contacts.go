package events

import (
	"context"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/store"
)

// applyContacts reconciles contact deltas.
func (a *Applier) applyContacts(ctx context.Context, tx store.Tx, evs []ContactEvent) error {
	for _, ev := range evs {
		switch ev.Action {
		case ActionDelete:
			if err := tx.DeleteContact(ctx, ev.ID); err != nil {
				return err
			}

		case ActionCreate, ActionUpdate:
			if ev.Contact == nil {
				return fmt.Errorf("contact event %s action %d missing payload", ev.ID, ev.Action)
			}
			contact := &domain.Contact{
				ID:        ev.ID,
				AccountID: a.accountID,
				Name:      ev.Contact.Name,
				Emails:    ev.Contact.Emails,
			}
			if err := tx.UpsertContact(ctx, contact); err != nil {
				return err
			}

		default:
			return fmt.Errorf("contact event %s has unknown action %d", ev.ID, ev.Action)
		}
	}
	return nil
}
