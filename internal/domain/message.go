package domain

import "time"

type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

// MessageFlag is a bitmask of message state flags.
type MessageFlag int64

const (
	FlagReceived   MessageFlag = 1 << 0
	FlagSent       MessageFlag = 1 << 1
	FlagInternal   MessageFlag = 1 << 2
	FlagE2E        MessageFlag = 1 << 3
	FlagAuto       MessageFlag = 1 << 4
	FlagReplied    MessageFlag = 1 << 5
	FlagRepliedAll MessageFlag = 1 << 6
	FlagForwarded  MessageFlag = 1 << 7
)

func (f MessageFlag) Has(flag MessageFlag) bool {
	return f&flag == flag
}

// Message is the local replica of one remote message. Bodies are not
// replicated; only the metadata needed for listing, counting and search
// indexing.
type Message struct {
	ID             string
	AccountID      string
	ConversationID string
	Subject        string
	Sender         Address
	ToList         []Address
	CCList         []Address
	Flags          MessageFlag
	Unread         bool
	Time           int64
	Size           int64
	NumAttachments int
	Snippet        string
	LabelIDs       []string
	// Order is a server-assigned monotonic sequence used for stable sorting
	// of messages with equal timestamps.
	Order int64
}

func (m *Message) HasLabel(labelID string) bool {
	for _, l := range m.LabelIDs {
		if l == labelID {
			return true
		}
	}
	return false
}

// AddLabel adds labelID to the message's label set. Adding a label the
// message already carries is a no-op.
func (m *Message) AddLabel(labelID string) {
	if m.HasLabel(labelID) {
		return
	}
	m.LabelIDs = append(m.LabelIDs, labelID)
}

// RemoveLabel removes labelID from the message's label set if present.
func (m *Message) RemoveLabel(labelID string) {
	for i, l := range m.LabelIDs {
		if l == labelID {
			m.LabelIDs = append(m.LabelIDs[:i], m.LabelIDs[i+1:]...)
			return
		}
	}
}

func (m *Message) Date() time.Time {
	return time.Unix(m.Time, 0)
}
