package notify

import (
	"context"
	"net/http"
	"time"

	"AgoraNotify/logger"
	"AgoraNotify/module/notification/model"
)

// ClientOptions wires the core together. Only WSURL/APIURL/Token are needed in
// production; the rest exists so tests can inject fakes.
type ClientOptions struct {
	WSURL  string
	APIURL string
	Token  string

	KeepAlive time.Duration
	Backoff   BackoffConf

	Backend    Backend
	Dialer     Dialer
	Scheduler  Scheduler
	Clock      Clock
	HTTPClient *http.Client
}

// Client is the explicitly owned notification service: one live connection,
// one store, one toast collection, a defined Start/Stop lifecycle. It replaces
// the ambient singleton the UI layer would otherwise share.
type Client struct {
	conn   *ConnManager
	store  *Store
	toasts *Toasts
	disp   *Dispatcher
}

func NewClient(opts ClientOptions) *Client {
	backend := opts.Backend
	if backend == nil {
		backend = NewRestBackend(RestConfig{
			BaseURL:    opts.APIURL,
			Token:      opts.Token,
			HTTPClient: opts.HTTPClient,
		})
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = NewScheduler()
	}

	c := &Client{
		store:  NewStore(backend, clock),
		toasts: NewToasts(sched),
		disp:   NewDispatcher(),
	}
	c.conn = NewConnManager(Options{
		URL:       opts.WSURL,
		Token:     opts.Token,
		KeepAlive: opts.KeepAlive,
		Backoff:   opts.Backoff,
		Dialer:    opts.Dialer,
		Scheduler: sched,
		Clock:     clock,
	}, c.disp.Dispatch)

	c.store.SetAck(func(id string) {
		c.conn.Send(BuildMarkRead(id))
	})

	c.disp.Register(FrameNewNotification, c.onNewNotification)
	c.disp.Register(FrameUnreadBatch, c.onUnreadBatch)
	c.disp.Register(FrameBroadcast, c.onBroadcast)
	c.disp.Register(FramePong, func(*Frame) error { return nil })

	return c
}

func (c *Client) onNewNotification(f *Frame) error {
	n, err := DecodeNotification(f.Data)
	if err != nil {
		return err
	}
	if c.store.AppendPushed(n) {
		c.toasts.Show(model.ToastFrom(n))
	}
	return nil
}

func (c *Client) onUnreadBatch(f *Frame) error {
	b, err := DecodeUnreadBatch(f.Data)
	if err != nil {
		return err
	}
	c.store.MergeUnreadBatch(b)
	return nil
}

// Broadcasts never persist into the per-user store; they only toast.
func (c *Client) onBroadcast(f *Frame) error {
	n, err := DecodeNotification(f.Data)
	if err != nil {
		return err
	}
	c.toasts.Show(model.BroadcastToastFrom(n))
	return nil
}

// Start fetches the initial list and opens the live connection for the given
// user identity. An empty identity is a no-op. A fetch failure is logged and
// does not prevent the connection: pushes plus a later LoadInitial reconcile.
func (c *Client) Start(ctx context.Context, userID string) {
	if userID == "" {
		logger.Warn("[client] start called without user identity, skipping")
		return
	}
	if err := c.store.LoadInitial(ctx); err != nil {
		logger.Warnf("[client] initial fetch err=%v, continuing with cached state", err)
	}
	c.conn.Connect(userID)
}

// Stop tears down the live connection and its timers. Cached notifications
// survive so the UI keeps rendering them.
func (c *Client) Stop() {
	c.conn.Close()
}

// Snapshot returns (notifications, unreadCount) for the consuming views.
func (c *Client) Snapshot() ([]model.Notification, int) { return c.store.Snapshot() }

func (c *Client) IsConnected() bool { return c.conn.IsConnected() }

func (c *Client) ConnState() State { return c.conn.State() }

func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.store.MarkRead(ctx, id)
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.store.MarkAllRead(ctx)
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.store.Delete(ctx, id)
}

// Toasts exposes the visible toast collection to the rendering view.
func (c *Client) Toasts() []model.Toast { return c.toasts.Snapshot() }

// DismissToast is the user-triggered removal; safe against the expiry timer.
func (c *Client) DismissToast(id string) { c.toasts.Remove(id) }
