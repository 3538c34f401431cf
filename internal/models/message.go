package models

import (
	"time"
)

// MessageKind classifies the payload of a source message. Only text
// messages are ingested; everything else is skipped before filtering.
type MessageKind string

const (
	MessageKindText    MessageKind = "text"
	MessageKindMedia   MessageKind = "media"
	MessageKindSticker MessageKind = "sticker"
	MessageKindService MessageKind = "service"
)

// Author is a point-in-time snapshot of the message sender.
type Author struct {
	ID       int64  `bson:"sender_id,omitempty" json:"senderId,omitempty"`
	Username string `bson:"sender_username,omitempty" json:"senderUsername,omitempty"`
}

// Message is one stored snapshot of a source message. Identity is
// (ChannelID, MessageID); writes are upserts on that pair, so replaying
// the same message is idempotent.
type Message struct {
	ChannelID     string                 `bson:"channel_id" json:"channelId"`
	MessageID     int64                  `bson:"message_id" json:"messageId"`
	Text          string                 `bson:"text" json:"text"`
	CleanedText   string                 `bson:"cleaned_text" json:"cleanedText"`
	Date          time.Time              `bson:"date" json:"date"`
	EditDate      *time.Time             `bson:"edit_date,omitempty" json:"editDate,omitempty"`
	Kind          MessageKind            `bson:"kind" json:"kind"`
	ReplyToID     int64                  `bson:"reply_to_id,omitempty" json:"replyToId,omitempty"`
	ForwardFromID int64                  `bson:"forward_from_id,omitempty" json:"forwardFromId,omitempty"`
	Author        Author                 `bson:"author,omitempty" json:"author,omitempty"`
	Raw           map[string]interface{} `bson:"raw,omitempty" json:"raw,omitempty"`
}

// Checkpoint records backfill progress for one channel, independent of
// what messages are actually stored. LastBackfilledID only ever moves
// forward; updates are max-merged, never overwritten.
type Checkpoint struct {
	ChannelID        string `bson:"channel_id" json:"channelId"`
	LastBackfilledID int64  `bson:"last_backfilled_id" json:"lastBackfilledId"`
}
