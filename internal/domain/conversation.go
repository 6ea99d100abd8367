package domain

// ContextLabel is the per-label rollup of a conversation: aggregate counters
// scoped to one label. A rollup exists only while at least one message of
// the conversation carries the label.
type ContextLabel struct {
	ConversationID string
	LabelID        string
	NumMessages    int
	NumUnread      int
	Time           int64
	Size           int64
	NumAttachments int
}

// Conversation groups messages that share a thread. The per-label rollups
// are authoritative for mailbox listings; NumMessages is the total across
// all labels.
type Conversation struct {
	ID             string
	AccountID      string
	Subject        string
	Senders        []Address
	NumMessages    int
	NumUnread      int
	NumAttachments int
	Size           int64
	Order          int64
	ContextLabels  []ContextLabel
}

// ContextLabel returns the rollup for labelID, or nil if the conversation
// has no messages carrying that label.
func (c *Conversation) ContextLabel(labelID string) *ContextLabel {
	for i := range c.ContextLabels {
		if c.ContextLabels[i].LabelID == labelID {
			return &c.ContextLabels[i]
		}
	}
	return nil
}

// HasLabel reports whether the conversation has a rollup for labelID.
func (c *Conversation) HasLabel(labelID string) bool {
	return c.ContextLabel(labelID) != nil
}
