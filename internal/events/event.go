// Package events implements the incremental synchronization engine: typed
// delta records fetched from the server's event stream, per-entity
// reconciliation against the local store, the per-account fetch loop, and
// the periodic scheduler coordinating all loops.
package events

import (
	"encoding/json"
	"fmt"
)

// Action is the kind of change one delta carries.
type Action int

const (
	ActionDelete Action = iota
	ActionCreate
	ActionUpdate
	ActionUpdateFlags
)

// Response is one page of the server's delta stream. EventID is the cursor
// to resume from once every delta in the page has been applied.
type Response struct {
	EventID string   `json:"EventID"`
	More    int      `json:"More"`
	Refresh int      `json:"Refresh"`
	Notices []string `json:"Notices"`

	Messages           []MessageEvent         `json:"Messages"`
	Conversations      []ConversationEvent    `json:"Conversations"`
	Labels             []LabelEvent           `json:"Labels"`
	Contacts           []ContactEvent         `json:"Contacts"`
	IncomingDefaults   []IncomingDefaultEvent `json:"IncomingDefaults"`
	MessageCounts      []CountEvent           `json:"MessageCounts"`
	ConversationCounts []CountEvent           `json:"ConversationCounts"`
	MailSettings       json.RawMessage        `json:"MailSettings"`
}

// HasMore reports whether the feed has further pages to fetch immediately.
func (r *Response) HasMore() bool {
	return r.More != 0
}

// RequiresRefresh reports whether the server demands a full resync: the
// local replica must be discarded and rebuilt from scratch.
func (r *Response) RequiresRefresh() bool {
	return r.Refresh != 0
}

// Empty reports whether the page carries no deltas at all.
func (r *Response) Empty() bool {
	return len(r.Messages) == 0 && len(r.Conversations) == 0 &&
		len(r.Labels) == 0 && len(r.Contacts) == 0 &&
		len(r.IncomingDefaults) == 0 && len(r.MessageCounts) == 0 &&
		len(r.ConversationCounts) == 0 && len(r.MailSettings) == 0
}

// ParseResponse decodes one delta-stream page. A payload without an event
// ID is malformed: the cursor could not be advanced past it.
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode event response: %w", err)
	}
	if resp.EventID == "" {
		return nil, fmt.Errorf("event response missing EventID")
	}
	return &resp, nil
}

type AddressPayload struct {
	Name    string `json:"Name"`
	Address string `json:"Address"`
}

// MessageEvent is one message delta. Message is nil for deletes. Update
// payloads carry only the fields that changed; absent fields are nil.
type MessageEvent struct {
	ID      string          `json:"ID"`
	Action  Action          `json:"Action"`
	Message *MessagePayload `json:"Message"`
}

type MessagePayload struct {
	ConversationID *string          `json:"ConversationID"`
	Subject        *string          `json:"Subject"`
	Sender         *AddressPayload  `json:"Sender"`
	ToList         []AddressPayload `json:"ToList"`
	CCList         []AddressPayload `json:"CCList"`
	Flags          *int64           `json:"Flags"`
	Unread         *int             `json:"Unread"`
	Time           *int64           `json:"Time"`
	Size           *int64           `json:"Size"`
	NumAttachments *int             `json:"NumAttachments"`
	Snippet        *string          `json:"Snippet"`
	LabelIDs       []string         `json:"LabelIDs"`
	Order          *int64           `json:"Order"`
}

// ConversationEvent is one conversation delta. Labels carries the server's
// absolute per-label rollups; nil means the rollups are unchanged.
type ConversationEvent struct {
	ID           string               `json:"ID"`
	Action       Action               `json:"Action"`
	Conversation *ConversationPayload `json:"Conversation"`
}

type ConversationPayload struct {
	Subject        *string               `json:"Subject"`
	Senders        []AddressPayload      `json:"Senders"`
	NumMessages    *int                  `json:"NumMessages"`
	NumUnread      *int                  `json:"NumUnread"`
	NumAttachments *int                  `json:"NumAttachments"`
	Size           *int64                `json:"Size"`
	Order          *int64                `json:"Order"`
	Labels         []ContextLabelPayload `json:"Labels"`
}

type ContextLabelPayload struct {
	ID             string `json:"ID"`
	NumMessages    int    `json:"ContextNumMessages"`
	NumUnread      int    `json:"ContextNumUnread"`
	Time           int64  `json:"ContextTime"`
	Size           int64  `json:"ContextSize"`
	NumAttachments int    `json:"ContextNumAttachments"`
}

// LabelEvent is one label delta. Label payloads are always complete.
type LabelEvent struct {
	ID     string        `json:"ID"`
	Action Action        `json:"Action"`
	Label  *LabelPayload `json:"Label"`
}

type LabelPayload struct {
	Name     string `json:"Name"`
	Color    string `json:"Color"`
	Type     int    `json:"Type"`
	ParentID string `json:"ParentID"`
	Order    int    `json:"Order"`
	Notify   int    `json:"Notify"`
	Sticky   int    `json:"Sticky"`
}

// ContactEvent is one contact delta.
type ContactEvent struct {
	ID      string          `json:"ID"`
	Action  Action          `json:"Action"`
	Contact *ContactPayload `json:"Contact"`
}

type ContactPayload struct {
	Name   string   `json:"Name"`
	Emails []string `json:"ContactEmails"`
}

// IncomingDefaultEvent is one sender-rule delta.
type IncomingDefaultEvent struct {
	ID              string                  `json:"ID"`
	Action          Action                  `json:"Action"`
	IncomingDefault *IncomingDefaultPayload `json:"IncomingDefault"`
}

type IncomingDefaultPayload struct {
	Email    string `json:"Email"`
	Location int    `json:"Location"`
	Time     int64  `json:"Time"`
}

// CountEvent is the server's absolute count for one label.
type CountEvent struct {
	LabelID string `json:"LabelID"`
	Total   int    `json:"Total"`
	Unread  int    `json:"Unread"`
}

// MailSettingsPayload is the decoded shape of Response.MailSettings.
type MailSettingsPayload struct {
	DisplayName      string `json:"DisplayName"`
	Signature        string `json:"Signature"`
	AutoSaveContacts int    `json:"AutoSaveContacts"`
}
