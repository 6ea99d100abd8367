package domain

// LabelCount is the server-reported absolute message/conversation count for
// one label. Counts are always full values, never increments.
type LabelCount struct {
	AccountID string
	LabelID   string
	Total     int
	Unread    int
}
