package events

import (
	"context"
	"fmt"

	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/store"
)

// applyIncomingDefaults reconciles sender-rule deltas with
// last-writer-wins conflict resolution: an incoming rule for an address is
// discarded unless its timestamp is strictly newer than the stored rule's.
// A discarded stale delta is expected behavior, not an error.
func (a *Applier) applyIncomingDefaults(ctx context.Context, tx store.Tx, evs []IncomingDefaultEvent) error {
	for _, ev := range evs {
		switch ev.Action {
		case ActionDelete:
			if err := tx.DeleteIncomingDefault(ctx, ev.ID); err != nil {
				return err
			}

		case ActionCreate, ActionUpdate:
			if ev.IncomingDefault == nil {
				return fmt.Errorf("incoming default event %s action %d missing payload", ev.ID, ev.Action)
			}
			p := ev.IncomingDefault

			existing, err := tx.GetIncomingDefaultByEmail(ctx, a.accountID, p.Email)
			if err != nil {
				return err
			}
			if existing != nil && !existing.Supersedes(p.Time) {
				a.log.WithField("email", p.Email).Debug("discarding stale incoming default delta")
				continue
			}

			rule := &domain.IncomingDefault{
				ID:        ev.ID,
				AccountID: a.accountID,
				Email:     p.Email,
				Location:  domain.Location(p.Location),
				Time:      p.Time,
			}
			if err := tx.UpsertIncomingDefault(ctx, rule); err != nil {
				return err
			}

		default:
			return fmt.Errorf("incoming default event %s has unknown action %d", ev.ID, ev.Action)
		}
	}
	return nil
}
