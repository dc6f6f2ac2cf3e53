package hub

import (
	"context"
	"sort"
	"sync"
	"time"

	"AgoraNotify/module/notification/model"
)

// MemStore keeps everything in process memory, matching the original
// deployment mode of the notification service.
type MemStore struct {
	mu    sync.RWMutex
	items []model.Notification
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Insert(_ context.Context, n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
	return nil
}

func (s *MemStore) List(_ context.Context, user string, limit, offset int, unreadOnly bool) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Notification, 0)
	for _, n := range s.items {
		if n.RecipientID != user {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []model.Notification{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) MarkRead(_ context.Context, user, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].RecipientID == user {
			if !s.items[i].IsRead {
				s.items[i].IsRead = true
				t := at
				s.items[i].ReadAt = &t
			}
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) MarkAllRead(_ context.Context, user string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.items {
		if s.items[i].RecipientID == user && !s.items[i].IsRead {
			s.items[i].IsRead = true
			t := at
			s.items[i].ReadAt = &t
			count++
		}
	}
	return count, nil
}

func (s *MemStore) Delete(_ context.Context, user, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].RecipientID == user {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) Unread(ctx context.Context, user string) ([]model.Notification, error) {
	return s.List(ctx, user, 0, 0, true)
}

func (s *MemStore) UnreadCount(_ context.Context, user string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.items {
		if n.RecipientID == user && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *MemStore) Total(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}
