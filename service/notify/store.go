package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"AgoraNotify/logger"
	"AgoraNotify/module/notification/model"

	"github.com/pkg/errors"
)

// Backend is the REST collaborator behind the store. The live connection
// delivers pushes; these calls cover fetch and mutations.
type Backend interface {
	ListNotifications(ctx context.Context) ([]model.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error
}

// Store is the authoritative local cache of a user's notifications, newest
// first, reconciled against pushes, explicit fetches and user mutations.
//
// Mutations are optimistic: local state changes before the matching REST call
// is issued and is never rolled back on REST failure; a later LoadInitial
// reconciles (at-least-once, last-writer-wins).
type Store struct {
	mu      sync.Mutex
	items   []model.Notification
	unread  int
	backend Backend
	clock   Clock

	// ack sends a mark_read frame over the live connection when it is open.
	ack func(id string)
}

func NewStore(backend Backend, clock Clock) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{backend: backend, clock: clock}
}

// SetAck installs the live-connection acknowledgement hook.
func (s *Store) SetAck(fn func(id string)) { s.ack = fn }

// LoadInitial replaces the local list wholesale from the REST collaborator and
// recomputes the unread count. On fetch error the prior state is untouched.
func (s *Store) LoadInitial(ctx context.Context) error {
	list, err := s.backend.ListNotifications(ctx)
	if err != nil {
		return errors.Wrap(err, "load notifications")
	}
	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	s.mu.Lock()
	s.items = append([]model.Notification(nil), list...)
	s.unread = unread
	s.mu.Unlock()
	return nil
}

// AppendPushed inserts a pushed notification at the front, deduplicating by
// id. Reports whether the entry was actually inserted, so callers only derive
// a toast for first delivery.
func (s *Store) AppendPushed(n model.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOfLocked(n.ID) >= 0 {
		return false
	}
	s.items = append([]model.Notification{n}, s.items...)
	if !n.IsRead {
		s.unread++
	}
	return true
}

// MergeUnreadBatch unions a server-sent unread batch into the local list.
// Existing entries win on id conflict so local optimistic state is never
// overwritten by a stale remote copy. The unread count is set to the
// server-declared value directly; this is the one path that trusts the server
// over local arithmetic.
func (s *Store) MergeUnreadBatch(b model.UnreadBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range b.Notifications {
		if s.indexOfLocked(n.ID) < 0 {
			s.items = append(s.items, n)
		}
	}
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].CreatedAt.After(s.items[j].CreatedAt)
	})
	if b.Count < 0 {
		s.unread = 0
		return
	}
	s.unread = b.Count
}

// MarkRead is idempotent: an already-read (or unknown) id is a no-op success.
// Otherwise the entry flips to read locally, the REST mutation is issued, and
// an acknowledgement frame goes out if the live connection is open.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexOfLocked(id)
	if i < 0 || s.items[i].IsRead {
		s.mu.Unlock()
		return nil
	}
	now := s.clock()
	s.items[i].IsRead = true
	s.items[i].ReadAt = &now
	if s.unread > 0 {
		s.unread--
	}
	ack := s.ack
	s.mu.Unlock()

	if err := s.backend.MarkRead(ctx, id); err != nil {
		logger.Warnf("[store] mark read id=%s rest err=%v (local state retained)", id, err)
	}
	if ack != nil {
		ack(id)
	}
	return nil
}

// MarkAllRead flips every entry to read and issues one REST mutation.
func (s *Store) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	now := s.clock()
	for i := range s.items {
		if !s.items[i].IsRead {
			s.items[i].IsRead = true
			s.items[i].ReadAt = &now
		}
	}
	s.unread = 0
	s.mu.Unlock()

	if err := s.backend.MarkAllRead(ctx); err != nil {
		logger.Warnf("[store] mark all read rest err=%v (local state retained)", err)
	}
	return nil
}

// Delete removes the entry immediately and issues the REST delete. Local
// removal is not reverted on failure; a later LoadInitial reconciles.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexOfLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	wasUnread := !s.items[i].IsRead
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	if wasUnread && s.unread > 0 {
		s.unread--
	}
	s.mu.Unlock()

	if err := s.backend.DeleteNotification(ctx, id); err != nil {
		logger.Warnf("[store] delete id=%s rest err=%v (local removal kept)", id, err)
	}
	return nil
}

// Snapshot returns a copy of the list plus the unread count.
func (s *Store) Snapshot() ([]model.Notification, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification(nil), s.items...), s.unread
}

func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *Store) indexOfLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
