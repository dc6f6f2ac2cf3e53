package hub

import (
	"context"
	"sync"
	"time"

	"AgoraNotify/logger"
	"AgoraNotify/module/notification/model"
	"AgoraNotify/service/notify"
	"AgoraNotify/tools/ids"
)

// Presence tracks which users currently hold live connections. Optional; a nil
// Presence disables tracking.
type Presence interface {
	Online(ctx context.Context, user, connID string) error
	Offline(ctx context.Context, user, connID string) error
	Touch(ctx context.Context, user string) error
	IsOnline(ctx context.Context, user string) (bool, error)
}

// wsFrame is the outbound server frame shape.
type wsFrame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// sender is the outbound half of a live connection. *websocket.Conn satisfies
// it; tests inject fakes.
type sender interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type wsClient struct {
	user    string
	connID  string
	conn    sender
	writeMu sync.Mutex
}

func (c *wsClient) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// Hub fans server-originated notifications out to the live connections of
// their recipients and keeps the store up to date.
type Hub struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*wsClient // user -> connID -> client

	store    Store
	presence Presence
}

func New(store Store, presence Presence) *Hub {
	return &Hub{
		byUser:   make(map[string]map[string]*wsClient),
		store:    store,
		presence: presence,
	}
}

func (h *Hub) Store() Store { return h.store }

// Mint builds a server-assigned notification: id and creation timestamp come
// from here, never from the caller.
func (h *Hub) Mint(kind model.Kind, title, message, recipient, senderID, senderName string, data map[string]any, priority model.Priority) model.Notification {
	if priority == "" {
		priority = model.PriorityNormal
	}
	if data == nil {
		data = map[string]any{}
	}
	return model.Notification{
		ID:          ids.GenerateString(),
		Kind:        kind,
		Title:       title,
		Message:     message,
		Data:        data,
		Priority:    priority,
		RecipientID: recipient,
		SenderID:    senderID,
		SenderName:  senderName,
		CreatedAt:   time.Now().UTC(),
	}
}

func (h *Hub) register(ctx context.Context, cl *wsClient) {
	h.mu.Lock()
	mm := h.byUser[cl.user]
	if mm == nil {
		mm = make(map[string]*wsClient)
		h.byUser[cl.user] = mm
	}
	mm[cl.connID] = cl
	h.mu.Unlock()

	if h.presence != nil {
		if err := h.presence.Online(ctx, cl.user, cl.connID); err != nil {
			logger.Warnf("[hub] presence online user=%s err=%v", cl.user, err)
		}
	}
}

func (h *Hub) unregister(ctx context.Context, cl *wsClient) {
	h.mu.Lock()
	if mm := h.byUser[cl.user]; mm != nil {
		delete(mm, cl.connID)
		if len(mm) == 0 {
			delete(h.byUser, cl.user)
		}
	}
	h.mu.Unlock()

	if h.presence != nil {
		if err := h.presence.Offline(ctx, cl.user, cl.connID); err != nil {
			logger.Warnf("[hub] presence offline user=%s err=%v", cl.user, err)
		}
	}
}

// sendUnread pushes the unread batch to one freshly registered connection.
// Nothing is sent when the user has no unread entries.
func (h *Hub) sendUnread(ctx context.Context, cl *wsClient) {
	unread, err := h.store.Unread(ctx, cl.user)
	if err != nil {
		logger.Warnf("[hub] unread fetch user=%s err=%v", cl.user, err)
		return
	}
	if len(unread) == 0 {
		return
	}
	frame := wsFrame{
		Type: notify.FrameUnreadBatch,
		Data: model.UnreadBatch{Notifications: unread, Count: len(unread)},
	}
	if err := cl.send(frame); err != nil {
		logger.Warnf("[hub] send unread batch user=%s err=%v", cl.user, err)
	}
}

// Deliver persists the notification and pushes it to every live connection of
// its recipient. Users without live connections still get the record stored.
func (h *Hub) Deliver(ctx context.Context, n model.Notification) error {
	if err := h.store.Insert(ctx, n); err != nil {
		return err
	}
	h.mu.RLock()
	clients := make([]*wsClient, 0, 2)
	for _, cl := range h.byUser[n.RecipientID] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	frame := wsFrame{Type: notify.FrameNewNotification, Data: n}
	for _, cl := range clients {
		if err := cl.send(frame); err != nil {
			logger.Warnf("[hub] push user=%s conn=%s err=%v, dropping conn", cl.user, cl.connID, err)
			h.dropClient(ctx, cl)
		}
	}
	return nil
}

// Broadcast pushes a system-wide notification to every connected user without
// persisting it anywhere.
func (h *Hub) Broadcast(ctx context.Context, n model.Notification, excludeUser string) error {
	h.mu.RLock()
	clients := make([]*wsClient, 0, 8)
	for user, mm := range h.byUser {
		if excludeUser != "" && user == excludeUser {
			continue
		}
		for _, cl := range mm {
			clients = append(clients, cl)
		}
	}
	h.mu.RUnlock()

	frame := wsFrame{Type: notify.FrameBroadcast, Data: n}
	for _, cl := range clients {
		if err := cl.send(frame); err != nil {
			logger.Warnf("[hub] broadcast user=%s conn=%s err=%v, dropping conn", cl.user, cl.connID, err)
			h.dropClient(ctx, cl)
		}
	}
	return nil
}

func (h *Hub) dropClient(ctx context.Context, cl *wsClient) {
	h.unregister(ctx, cl)
	_ = cl.conn.Close()
}

// Online reports whether the user holds a live connection on this node,
// falling back to presence for connections held elsewhere.
func (h *Hub) Online(ctx context.Context, user string) (bool, error) {
	h.mu.RLock()
	local := len(h.byUser[user]) > 0
	h.mu.RUnlock()
	if local || h.presence == nil {
		return local, nil
	}
	return h.presence.IsOnline(ctx, user)
}

// Stats reports connected-user and connection counts for the health endpoint.
func (h *Hub) Stats() (users int, conns int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, mm := range h.byUser {
		conns += len(mm)
	}
	return len(h.byUser), conns
}
