package redis

import (
	"context"
	"time"
)

const onlineKeyPrefix = "notify:online:"

// PresenceStore tracks which users hold live connections: a set of connection
// ids per user with a TTL that keep-alive pings refresh. A user whose key
// expired or emptied is offline.
type PresenceStore struct {
	ttl time.Duration
}

func NewPresence(ttl time.Duration) *PresenceStore {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &PresenceStore{ttl: ttl}
}

func key(user string) string { return onlineKeyPrefix + user }

func (p *PresenceStore) Online(ctx context.Context, user, connID string) error {
	rdb := Get()
	if err := rdb.SAdd(ctx, key(user), connID).Err(); err != nil {
		return err
	}
	return rdb.Expire(ctx, key(user), p.ttl).Err()
}

func (p *PresenceStore) Offline(ctx context.Context, user, connID string) error {
	rdb := Get()
	if err := rdb.SRem(ctx, key(user), connID).Err(); err != nil {
		return err
	}
	n, err := rdb.SCard(ctx, key(user)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return rdb.Del(ctx, key(user)).Err()
	}
	return nil
}

// Touch extends the TTL; wired to inbound keep-alive pings.
func (p *PresenceStore) Touch(ctx context.Context, user string) error {
	return Get().Expire(ctx, key(user), p.ttl).Err()
}

// IsOnline reports whether the user has at least one live connection anywhere.
func (p *PresenceStore) IsOnline(ctx context.Context, user string) (bool, error) {
	n, err := Get().Exists(ctx, key(user)).Result()
	return n > 0, err
}
