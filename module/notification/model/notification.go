package model

import "time"

// Kind classifies a notification. The set is closed; anything else coming off
// the wire is rejected by IsValid.
type Kind string

const (
	KindComment Kind = "comment"
	KindExport  Kind = "export"
	KindProject Kind = "project"
	KindSystem  Kind = "system"
	KindMention Kind = "mention"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindComment, KindExport, KindProject, KindSystem, KindMention:
		return true
	}
	return false
}

// Priority only influences toast duration and UI emphasis.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is one server-originated event directed at a user. CreatedAt is
// server-assigned and immutable; IsRead flips to true exactly once.
type Notification struct {
	ID          string         `json:"id" bson:"_id" mapstructure:"id"`
	Kind        Kind           `json:"type" bson:"type" mapstructure:"type"`
	Title       string         `json:"title" bson:"title" mapstructure:"title"`
	Message     string         `json:"message" bson:"message" mapstructure:"message"`
	Data        map[string]any `json:"data" bson:"data" mapstructure:"data"`
	Priority    Priority       `json:"priority" bson:"priority" mapstructure:"priority"`
	RecipientID string         `json:"recipient_id" bson:"recipient_id" mapstructure:"recipient_id"`
	SenderID    string         `json:"sender_id,omitempty" bson:"sender_id,omitempty" mapstructure:"sender_id"`
	SenderName  string         `json:"sender_name,omitempty" bson:"sender_name,omitempty" mapstructure:"sender_name"`
	IsRead      bool           `json:"is_read" bson:"is_read" mapstructure:"is_read"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at" mapstructure:"created_at"`
	ReadAt      *time.Time     `json:"read_at,omitempty" bson:"read_at,omitempty" mapstructure:"read_at"`
}

// UnreadBatch is the payload of an unread_notifications frame: the entries plus
// the server-declared authoritative count.
type UnreadBatch struct {
	Notifications []Notification `json:"notifications" mapstructure:"notifications"`
	Count         int            `json:"count" mapstructure:"count"`
}
