package notify

import (
	"testing"
	"time"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"new_notification","data":{"id":"n1"}}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Type != FrameNewNotification || f.Data["id"] != "n1" {
		t.Errorf("frame = %+v", f)
	}
}

func TestParseFrameRejectsMalformed(t *testing.T) {
	if _, err := ParseFrame([]byte(`{not json`)); err == nil {
		t.Error("invalid JSON accepted")
	}
	if _, err := ParseFrame([]byte(`{"data":{"id":"n1"}}`)); err == nil {
		t.Error("frame without a type discriminator accepted")
	}
}

func TestDecodeNotification(t *testing.T) {
	data := map[string]any{
		"id":           "n1",
		"type":         "comment",
		"title":        "New comment",
		"message":      "hello",
		"priority":     "urgent",
		"recipient_id": "u1",
		"is_read":      false,
		"created_at":   "2026-08-30T10:00:00Z",
	}
	n, err := DecodeNotification(data)
	if err != nil {
		t.Fatalf("DecodeNotification: %v", err)
	}
	if n.ID != "n1" || string(n.Kind) != "comment" || string(n.Priority) != "urgent" {
		t.Errorf("decoded = %+v", n)
	}
	want := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if !n.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", n.CreatedAt, want)
	}
}

func TestDecodeNotificationRequiresID(t *testing.T) {
	if _, err := DecodeNotification(map[string]any{"type": "comment"}); err == nil {
		t.Error("payload without id accepted")
	}
}

func TestDecodeUnreadBatch(t *testing.T) {
	data := map[string]any{
		"notifications": []any{
			map[string]any{"id": "a", "type": "comment"},
			map[string]any{"id": "b", "type": "export"},
		},
		"count": 7,
	}
	b, err := DecodeUnreadBatch(data)
	if err != nil {
		t.Fatalf("DecodeUnreadBatch: %v", err)
	}
	if len(b.Notifications) != 2 || b.Count != 7 {
		t.Errorf("batch = (%d entries, count %d), want (2, 7)", len(b.Notifications), b.Count)
	}
}

func TestBuildOutboundFrames(t *testing.T) {
	if f := BuildPing(); f.Type != FramePing {
		t.Errorf("ping frame = %+v", f)
	}
	f := BuildMarkRead("n9")
	if f.Type != FrameMarkRead || f.NotificationID != "n9" {
		t.Errorf("mark_read frame = %+v", f)
	}
}
