package notify

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"AgoraNotify/module/notification/model"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// manualScheduler records scheduled callbacks and fires them on demand, so no
// test waits on wall-clock.
type manualTimer struct {
	delay     time.Duration
	fn        func()
	repeating bool
	cancelled bool
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) After(d time.Duration, fn func()) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{delay: d, fn: fn}
	s.timers = append(s.timers, t)
	return func() {
		s.mu.Lock()
		t.cancelled = true
		s.mu.Unlock()
	}
}

func (s *manualScheduler) Every(d time.Duration, fn func()) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{delay: d, fn: fn, repeating: true}
	s.timers = append(s.timers, t)
	return func() {
		s.mu.Lock()
		t.cancelled = true
		s.mu.Unlock()
	}
}

// fireNext runs the oldest pending one-shot timer and returns its delay.
func (s *manualScheduler) fireNext(t *testing.T) time.Duration {
	t.Helper()
	s.mu.Lock()
	var next *manualTimer
	for _, tm := range s.timers {
		if !tm.cancelled && !tm.repeating && tm.fn != nil {
			next = tm
			break
		}
	}
	if next == nil {
		s.mu.Unlock()
		t.Fatal("no pending timer to fire")
		return 0
	}
	fn := next.fn
	next.fn = nil
	s.mu.Unlock()
	fn()
	return next.delay
}

func (s *manualScheduler) pendingOneShot() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, tm := range s.timers {
		if !tm.cancelled && !tm.repeating && tm.fn != nil {
			n++
		}
	}
	return n
}

func (s *manualScheduler) activeIntervals() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*manualTimer{}
	for _, tm := range s.timers {
		if tm.repeating && !tm.cancelled {
			out = append(out, tm)
		}
	}
	return out
}

// mockBackend is the REST collaborator double, counting mutation calls.
type mockBackend struct {
	mu sync.Mutex

	ListResp []model.Notification
	ListErr  error

	MarkReadErr    error
	MarkAllErr     error
	DeleteErr      error
	MarkReadCalls  int
	MarkAllCalls   int
	DeleteCalls    int
	MarkedReadIDs  []string
	DeletedIDs     []string
	ListCallsCount int
}

func (m *mockBackend) ListNotifications(context.Context) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCallsCount++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.ListResp, nil
}

func (m *mockBackend) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkReadCalls++
	m.MarkedReadIDs = append(m.MarkedReadIDs, id)
	return m.MarkReadErr
}

func (m *mockBackend) MarkAllRead(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkAllCalls++
	return m.MarkAllErr
}

func (m *mockBackend) DeleteNotification(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	m.DeletedIDs = append(m.DeletedIDs, id)
	return m.DeleteErr
}

// fakeConn is a scripted duplex connection.
type fakeConn struct {
	in chan []byte

	mu     sync.Mutex
	wrote  []interface{}
	closed bool
	done   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), done: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case raw := <-c.in:
		return websocket.TextMessage, raw, nil
	case <-c.done:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed conn")
	}
	c.wrote = append(c.wrote, v)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// dropFromServer simulates the peer dropping the connection.
func (c *fakeConn) dropFromServer() { _ = c.Close() }

func (c *fakeConn) written() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interface{}(nil), c.wrote...)
}

// fakeDialer fails the first failures dials, then hands out fake conns.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	calls    int
	conns    []*fakeConn
}

func (d *fakeDialer) Dial(string, http.Header) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("dial refused")
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func notif(id string, read bool) model.Notification {
	return model.Notification{
		ID:          id,
		Kind:        model.KindComment,
		Title:       "t-" + id,
		Message:     "m-" + id,
		Priority:    model.PriorityNormal,
		RecipientID: "u1",
		IsRead:      read,
		CreatedAt:   time.Now().UTC(),
	}
}
