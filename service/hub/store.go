package hub

import (
	"context"
	"time"

	"AgoraNotify/module/notification/model"
)

// Store persists per-user notification records for the hub. The default is the
// in-memory implementation; a Mongo-backed one is selectable at startup.
type Store interface {
	Insert(ctx context.Context, n model.Notification) error
	// List returns the recipient's notifications newest first.
	List(ctx context.Context, user string, limit, offset int, unreadOnly bool) ([]model.Notification, error)
	// MarkRead reports false when the id does not exist for that user.
	MarkRead(ctx context.Context, user, id string, at time.Time) (bool, error)
	// MarkAllRead returns how many entries flipped.
	MarkAllRead(ctx context.Context, user string, at time.Time) (int, error)
	Delete(ctx context.Context, user, id string) (bool, error)
	Unread(ctx context.Context, user string) ([]model.Notification, error)
	UnreadCount(ctx context.Context, user string) (int, error)
	// Total is reported by the health endpoint.
	Total(ctx context.Context) (int, error)
}
