package domain

// Contact is the local replica of an address-book entry.
type Contact struct {
	ID        string
	AccountID string
	Name      string
	Emails    []string
}
