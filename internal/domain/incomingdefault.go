package domain

// Location classifies where mail from a sender is routed.
type Location int

const (
	LocationInbox   Location = 0
	LocationSpam    Location = 4
	LocationBlocked Location = 14
)

// IncomingDefault is a per-sender routing rule (including blocked senders).
// ID may be empty for a locally-created rule not yet confirmed by the
// server. At most one non-soft-deleted rule exists per (account, email)
// pair; conflicting writes resolve last-writer-wins on Time.
type IncomingDefault struct {
	ID        string
	AccountID string
	Email     string
	Location  Location
	Time      int64
	// SoftDeleted marks a rule removed locally but not yet confirmed
	// deleted by the server.
	SoftDeleted bool
}

// IsBlocked reports whether the rule blocks the sender outright.
func (d *IncomingDefault) IsBlocked() bool {
	return d.Location == LocationBlocked
}

// Supersedes reports whether an incoming rule with time t should replace
// this one. Equal timestamps do not supersede; the stored rule wins.
func (d *IncomingDefault) Supersedes(t int64) bool {
	return t > d.Time
}
