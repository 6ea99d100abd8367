package domain

type LabelType int

const (
	LabelTypeSystem LabelType = 0
	LabelTypeLabel  LabelType = 1
	LabelTypeFolder LabelType = 3
)

// Label covers user labels, folders and the fixed system mailboxes.
type Label struct {
	ID        string
	AccountID string
	Name      string
	Color     string
	Type      LabelType
	// ParentID is set for nested folders, empty at the top level.
	ParentID string
	Order    int
	Notify   bool
	Sticky   bool
}

// System label IDs. Every message carries LabelAllMail at minimum.
const (
	LabelInbox   = "0"
	LabelDrafts  = "1"
	LabelSent    = "2"
	LabelTrash   = "3"
	LabelSpam    = "4"
	LabelAllMail = "5"
	LabelArchive = "6"
	LabelStarred = "10"
)

// IsSystemLabel reports whether id is one of the fixed system mailboxes.
func IsSystemLabel(id string) bool {
	switch id {
	case LabelInbox, LabelDrafts, LabelSent, LabelTrash, LabelSpam,
		LabelAllMail, LabelArchive, LabelStarred:
		return true
	}
	return false
}
