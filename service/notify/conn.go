package notify

import (
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"AgoraNotify/logger"

	"github.com/gorilla/websocket"
)

// State is the connection lifecycle flag visible to the UI. Owned exclusively
// by the ConnManager; everything else only reads it.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// Conn is the duplex channel the manager drives. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens a Conn; injectable so tests run without sockets.
type Dialer interface {
	Dial(rawURL string, header http.Header) (Conn, error)
}

type wsDialer struct {
	d *websocket.Dialer
}

func (w wsDialer) Dial(rawURL string, header http.Header) (Conn, error) {
	c, _, err := w.d.Dial(rawURL, header)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Options configures the ConnManager. Zero values fall back to defaults via
// norm.
type Options struct {
	URL       string // ws endpoint, e.g. ws://host:8080/ws
	Token     string // bearer credential for the handshake
	KeepAlive time.Duration
	Backoff   BackoffConf
	Dialer    Dialer
	Scheduler Scheduler
	Clock     Clock
}

func (o *Options) norm() {
	if o.KeepAlive <= 0 {
		o.KeepAlive = 30 * time.Second
	}
	o.Backoff.norm()
	if o.Dialer == nil {
		o.Dialer = wsDialer{d: &websocket.Dialer{HandshakeTimeout: 10 * time.Second}}
	}
	if o.Scheduler == nil {
		o.Scheduler = NewScheduler()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

// ConnManager maintains at most one live duplex connection per active user
// session: open, keep alive, hand frames to the dispatcher, and re-establish
// after unexpected drops until the backoff policy gives up.
type ConnManager struct {
	opts    Options
	onFrame func(raw []byte)

	mu      sync.Mutex
	state   State
	conn    Conn
	userID  string
	closed  bool
	dialing bool // single-flight guard for dial
	gen     int  // bumps per established connection; guards stale read-loop exits
	policy  *ReconnectPolicy

	cancelKeepAlive CancelFunc
	cancelReconnect CancelFunc

	writeMu sync.Mutex
}

func NewConnManager(opts Options, onFrame func(raw []byte)) *ConnManager {
	opts.norm()
	return &ConnManager{
		opts:    opts,
		onFrame: onFrame,
		state:   StateIdle,
		policy:  NewReconnectPolicy(opts.Backoff),
	}
}

// Connect opens a connection scoped to the given user identity. An empty
// identity is a no-op per the loose contract. An explicit Connect is the
// external trigger that restarts a terminally failed session, so the attempt
// counter resets here as well as on success.
func (m *ConnManager) Connect(userID string) {
	if userID == "" {
		logger.Warn("[conn] connect called with empty user identity, skipping")
		return
	}
	m.mu.Lock()
	if m.conn != nil || m.state == StateConnecting {
		m.mu.Unlock()
		return
	}
	m.userID = userID
	m.closed = false
	m.policy.Reset()
	m.cancelReconnectLocked()
	m.mu.Unlock()

	m.dial()
}

// dial is single-flight: a late reconnect timer or a racing Connect finds
// either the dialing flag set or a live connection installed and backs out.
func (m *ConnManager) dial() {
	m.mu.Lock()
	if m.closed || m.dialing || m.conn != nil {
		m.mu.Unlock()
		return
	}
	m.dialing = true
	m.state = StateConnecting
	user := m.userID
	m.mu.Unlock()

	u := m.opts.URL + "?user=" + url.QueryEscape(user)
	hdr := http.Header{}
	if m.opts.Token != "" {
		hdr.Set("Authorization", "Bearer "+m.opts.Token)
	}

	c, err := m.opts.Dialer.Dial(u, hdr)
	if err != nil {
		logger.Warnf("[conn] dial %s err=%v", m.opts.URL, err)
		m.mu.Lock()
		m.dialing = false
		if m.closed {
			m.state = StateIdle
			m.mu.Unlock()
			return
		}
		m.state = StateDisconnected
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.dialing = false
	if m.closed {
		m.mu.Unlock()
		closeQuiet(c)
		return
	}
	m.gen++
	gen := m.gen
	m.conn = c
	m.state = StateConnected
	m.policy.Reset()
	m.cancelKeepAlive = m.opts.Scheduler.Every(m.opts.KeepAlive, m.keepAliveTick)
	m.mu.Unlock()

	logger.Infof("[conn] connected user=%s", user)
	go m.readLoop(c, gen)
}

// readLoop only reads; writes go through Send. Any read error ends the
// connection's life and hands control to the close path.
func (m *ConnManager) readLoop(c Conn, gen int) {
	for {
		mt, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[conn] peer closed err=%v", err)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Warnf("[conn] read timeout err=%v", err)
			} else {
				logger.Warnf("[conn] read err=%v", err)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		m.onFrame(raw)
	}
	m.connClosed(gen)
}

func (m *ConnManager) connClosed(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return // a newer connection already took over
	}
	closeQuiet(m.conn)
	m.conn = nil
	m.cancelKeepAliveLocked()
	if m.closed {
		m.state = StateIdle
		return
	}
	m.state = StateDisconnected
	m.scheduleReconnectLocked()
}

// scheduleReconnectLocked cancels any pending attempt before scheduling the
// next one, so timers never overlap. Exhausted attempts land in StateFailed
// until an external Connect.
func (m *ConnManager) scheduleReconnectLocked() {
	m.cancelReconnectLocked()
	d, ok := m.policy.Next()
	if !ok {
		m.state = StateFailed
		logger.Errorf("[conn] reconnect attempts exhausted (max=%d), giving up", m.opts.Backoff.MaxAttempts)
		return
	}
	m.state = StateReconnecting
	logger.Infof("[conn] reconnect attempt %d in %s", m.policy.Attempts(), d)
	m.cancelReconnect = m.opts.Scheduler.After(d, func() {
		m.mu.Lock()
		m.cancelReconnect = nil
		if m.closed {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		m.dial()
	})
}

func (m *ConnManager) keepAliveTick() {
	if !m.Send(BuildPing()) {
		logger.Debug("[conn] keep-alive skipped, not connected")
	}
}

// Send writes a frame when the connection is open; reports whether it went
// out. Send failures are left to the read loop, which notices the broken
// connection and drives the reconnect path.
func (m *ConnManager) Send(v interface{}) bool {
	m.mu.Lock()
	c := m.conn
	m.mu.Unlock()
	if c == nil {
		return false
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := c.SetWriteDeadline(m.opts.Clock().Add(5 * time.Second)); err != nil {
		logger.Warnf("[conn] set write deadline err=%v", err)
		return false
	}
	if err := c.WriteJSON(v); err != nil {
		logger.Warnf("[conn] write err=%v", err)
		return false
	}
	return true
}

// Close tears the manager down: the pending reconnect timer and the keep-alive
// interval are cancelled and the live connection closed on every exit path, so
// no timer or socket leaks. Idempotent.
func (m *ConnManager) Close() {
	m.mu.Lock()
	m.closed = true
	m.cancelReconnectLocked()
	m.cancelKeepAliveLocked()
	c := m.conn
	m.conn = nil
	m.state = StateIdle
	m.mu.Unlock()

	closeQuiet(c)
}

func (m *ConnManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *ConnManager) IsConnected() bool {
	return m.State() == StateConnected
}

func (m *ConnManager) cancelReconnectLocked() {
	if m.cancelReconnect != nil {
		m.cancelReconnect()
		m.cancelReconnect = nil
	}
}

func (m *ConnManager) cancelKeepAliveLocked() {
	if m.cancelKeepAlive != nil {
		m.cancelKeepAlive()
		m.cancelKeepAlive = nil
	}
}

func closeQuiet(c Conn) {
	if c != nil {
		_ = c.Close()
	}
}
