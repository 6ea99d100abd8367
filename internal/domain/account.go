package domain

import "time"

// Account identifies one authenticated mailbox. EventCursor is the opaque
// position in the server's delta stream; empty until the first sync.
type Account struct {
	ID          string
	Email       string
	DisplayName string
	EventCursor string
	LastSync    int64 // Unix timestamp of the last committed tick
	CreatedAt   time.Time
}

// Synced reports whether the account has completed at least one sync.
func (a *Account) Synced() bool {
	return a.EventCursor != ""
}
