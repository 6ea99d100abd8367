package events

import (
	"context"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/store"
)

// applyLabels reconciles label deltas. Deleting a label removes only the
// label record; messages and conversations keep their references and
// treat the unknown ID as tolerated.
func (a *Applier) applyLabels(ctx context.Context, tx store.Tx, evs []LabelEvent) error {
	for _, ev := range evs {
		switch ev.Action {
		case ActionDelete:
			if err := tx.DeleteLabel(ctx, ev.ID); err != nil {
				return err
			}

		case ActionCreate, ActionUpdate:
			if ev.Label == nil {
				return fmt.Errorf("label event %s action %d missing payload", ev.ID, ev.Action)
			}
			p := ev.Label
			label := &domain.Label{
				ID:        ev.ID,
				AccountID: a.accountID,
				Name:      p.Name,
				Color:     p.Color,
				Type:      domain.LabelType(p.Type),
				ParentID:  p.ParentID,
				Order:     p.Order,
				Notify:    p.Notify != 0,
				Sticky:    p.Sticky != 0,
			}
			if err := tx.UpsertLabel(ctx, label); err != nil {
				return err
			}

		default:
			return fmt.Errorf("label event %s has unknown action %d", ev.ID, ev.Action)
		}
	}
	return nil
}
