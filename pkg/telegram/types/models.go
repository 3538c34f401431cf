package types

import "time"

// Message is the wire representation of a source message as returned by
// the gateway. Raw carries the untouched payload for forward
// compatibility; the engine persists it verbatim.
type Message struct {
	ID             int64                  `json:"id"`
	ChannelID      string                 `json:"channelId"`
	Text           string                 `json:"text"`
	Date           time.Time              `json:"date"`
	EditDate       *time.Time             `json:"editDate,omitempty"`
	Kind           string                 `json:"kind"`
	ReplyToID      int64                  `json:"replyToId,omitempty"`
	ForwardFromID  int64                  `json:"forwardFromId,omitempty"`
	SenderID       int64                  `json:"senderId,omitempty"`
	SenderUsername string                 `json:"senderUsername,omitempty"`
	Raw            map[string]interface{} `json:"raw,omitempty"`
}

// HasText reports whether the message carries a text payload the
// ingestion engine can process. Media-only and service messages do not.
func (m *Message) HasText() bool {
	return m.Kind == "" || m.Kind == "text"
}

// EventType identifies a realtime timeline event.
type EventType string

const (
	EventNewMessage     EventType = "new_message"
	EventMessageEdited  EventType = "message_edited"
	EventMessageDeleted EventType = "message_deleted"
)

// Event is one realtime timeline event. For deletions the gateway may
// be unable to resolve the channel, in which case ChannelID is empty
// and only DeletedIDs is populated.
type Event struct {
	Type       EventType `json:"type"`
	ChannelID  string    `json:"channelId,omitempty"`
	Message    *Message  `json:"message,omitempty"`
	DeletedIDs []int64   `json:"deletedIds,omitempty"`
}

// ChannelInfo describes a resolved channel.
type ChannelInfo struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	HeadMessageID int64  `json:"headMessageId"`
}

// ClientConfig holds the settings for constructing a gateway client.
type ClientConfig struct {
	BaseURL      string
	WebsocketURL string
	APIToken     string
	Timeout      time.Duration
}
