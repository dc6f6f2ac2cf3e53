package notify

import (
	"encoding/json"
	"time"

	"AgoraNotify/module/notification/model"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Frame types on the live connection. Inbound carries a type discriminator
// plus a data payload; outbound frames are ping and mark_read acks.
const (
	FrameNewNotification = "new_notification"
	FrameUnreadBatch     = "unread_notifications"
	FrameBroadcast       = "broadcast_notification"
	FramePong            = "pong"

	FramePing     = "ping"
	FrameMarkRead = "mark_read"
)

type Frame struct {
	Type           string         `json:"type"`
	Data           map[string]any `json:"data,omitempty"`
	NotificationID string         `json:"notification_id,omitempty"`
}

// ParseFrame decodes a raw inbound frame. A missing type discriminator counts
// as malformed.
func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}
	if f.Type == "" {
		return nil, errors.New("frame missing type")
	}
	return f, nil
}

func BuildPing() Frame {
	return Frame{Type: FramePing}
}

func BuildMarkRead(notificationID string) Frame {
	return Frame{Type: FrameMarkRead, NotificationID: notificationID}
}

func decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:     out,
	})
	if err != nil {
		return errors.Wrap(err, "build decoder")
	}
	return dec.Decode(data)
}

// DecodeNotification maps a frame payload onto the notification model.
func DecodeNotification(data map[string]any) (model.Notification, error) {
	var n model.Notification
	if err := decode(data, &n); err != nil {
		return model.Notification{}, errors.Wrap(err, "decode notification")
	}
	if n.ID == "" {
		return model.Notification{}, errors.New("notification missing id")
	}
	return n, nil
}

// DecodeUnreadBatch maps the payload of an unread_notifications frame.
func DecodeUnreadBatch(data map[string]any) (model.UnreadBatch, error) {
	var b model.UnreadBatch
	if err := decode(data, &b); err != nil {
		return model.UnreadBatch{}, errors.Wrap(err, "decode unread batch")
	}
	return b, nil
}
