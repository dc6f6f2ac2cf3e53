package notify

import (
	"context"
	"testing"
	"time"

	"AgoraNotify/module/notification/model"
)

func newTestClient(backend *mockBackend) (*Client, *manualScheduler, *fakeDialer) {
	sched := &manualScheduler{}
	fd := &fakeDialer{}
	c := NewClient(ClientOptions{
		WSURL:     "ws://hub.test/ws",
		Backend:   backend,
		Dialer:    fd,
		Scheduler: sched,
		Clock:     fixedClock(),
	})
	return c, sched, fd
}

func TestNewNotificationFrameUpdatesStoreAndToasts(t *testing.T) {
	c, _, _ := newTestClient(&mockBackend{})

	c.disp.Dispatch([]byte(`{
		"type": "new_notification",
		"data": {
			"id": "n1",
			"type": "comment",
			"title": "New comment",
			"message": "Someone replied",
			"priority": "normal",
			"is_read": false,
			"created_at": "2026-03-01T10:00:00Z"
		}
	}`))

	list, unread := c.Snapshot()
	if len(list) != 1 || list[0].ID != "n1" {
		t.Fatalf("store = %v, want single n1", list)
	}
	if unread != 1 {
		t.Errorf("unread = %d, want 1", unread)
	}
	toasts := c.Toasts()
	if len(toasts) != 1 {
		t.Fatalf("toasts = %d, want exactly 1", len(toasts))
	}
	if toasts[0].ID != "n1" || toasts[0].Kind != model.ToastInfo {
		t.Errorf("toast = %+v, want id n1 kind info", toasts[0])
	}
	if toasts[0].Duration != model.DefaultToastDuration {
		t.Errorf("toast duration = %s, want %s", toasts[0].Duration, model.DefaultToastDuration)
	}
}

func TestRepeatedPushYieldsOneToast(t *testing.T) {
	c, _, _ := newTestClient(&mockBackend{})
	raw := []byte(`{"type":"new_notification","data":{"id":"n1","type":"comment","title":"x","message":"y","is_read":false,"created_at":"2026-03-01T10:00:00Z"}}`)

	c.disp.Dispatch(raw)
	c.disp.Dispatch(raw)

	if _, unread := c.Snapshot(); unread != 1 {
		t.Errorf("unread = %d, want 1", unread)
	}
	if got := len(c.Toasts()); got != 1 {
		t.Errorf("toasts = %d, want 1 (duplicate push must not re-toast)", got)
	}
}

func TestUrgentPriorityToastDuration(t *testing.T) {
	c, _, _ := newTestClient(&mockBackend{})
	c.disp.Dispatch([]byte(`{"type":"new_notification","data":{"id":"n1","type":"export","title":"Export ready","message":"done","priority":"urgent","is_read":false,"created_at":"2026-03-01T10:00:00Z"}}`))

	toasts := c.Toasts()
	if len(toasts) != 1 {
		t.Fatalf("toasts = %d, want 1", len(toasts))
	}
	if toasts[0].Duration != 10000*time.Millisecond {
		t.Errorf("urgent toast duration = %s, want 10s", toasts[0].Duration)
	}
	if toasts[0].Kind != model.ToastSuccess {
		t.Errorf("export toast kind = %s, want success", toasts[0].Kind)
	}
}

func TestBroadcastFrameToastsWithoutPersisting(t *testing.T) {
	c, _, _ := newTestClient(&mockBackend{})
	c.disp.Dispatch([]byte(`{"type":"broadcast_notification","data":{"id":"b1","type":"system","title":"Maintenance","message":"tonight","created_at":"2026-03-01T10:00:00Z"}}`))

	if list, unread := c.Snapshot(); len(list) != 0 || unread != 0 {
		t.Errorf("store = (%d, %d), broadcast must not persist", len(list), unread)
	}
	toasts := c.Toasts()
	if len(toasts) != 1 {
		t.Fatalf("toasts = %d, want 1", len(toasts))
	}
	if toasts[0].Kind != model.ToastInfo {
		t.Errorf("broadcast toast kind = %s, want info", toasts[0].Kind)
	}
	if toasts[0].Duration != model.BroadcastToastDuration {
		t.Errorf("broadcast toast duration = %s, want %s", toasts[0].Duration, model.BroadcastToastDuration)
	}
}

func TestUnreadBatchFrameMergesAndSetsCount(t *testing.T) {
	c, _, _ := newTestClient(&mockBackend{})
	c.disp.Dispatch([]byte(`{"type":"new_notification","data":{"id":"n1","type":"comment","title":"x","message":"y","is_read":false,"created_at":"2026-03-01T11:00:00Z"}}`))

	c.disp.Dispatch([]byte(`{
		"type": "unread_notifications",
		"data": {
			"notifications": [
				{"id":"n1","type":"comment","title":"x","message":"y","is_read":false,"created_at":"2026-03-01T11:00:00Z"},
				{"id":"n2","type":"mention","title":"m","message":"z","is_read":false,"created_at":"2026-03-01T09:00:00Z"}
			],
			"count": 2
		}
	}`))

	list, unread := c.Snapshot()
	if len(list) != 2 {
		t.Fatalf("store = %d entries, want 2 (dedup by id)", len(list))
	}
	if unread != 2 {
		t.Errorf("unread = %d, want the authoritative 2", unread)
	}
	if list[0].ID != "n1" {
		t.Errorf("first entry = %s, want newest-first order", list[0].ID)
	}
}

func TestMalformedAndUnknownFramesAreDropped(t *testing.T) {
	c, _, _ := newTestClient(&mockBackend{})

	c.disp.Dispatch([]byte(`{{{not json`))
	c.disp.Dispatch([]byte(`{"type":"totally_new_thing","data":{"x":1}}`))
	c.disp.Dispatch([]byte(`{"data":{"id":"n9"}}`)) // missing discriminator
	c.disp.Dispatch([]byte(`{"type":"pong"}`))

	if list, unread := c.Snapshot(); len(list) != 0 || unread != 0 {
		t.Errorf("state mutated by malformed/unknown frames: (%d, %d)", len(list), unread)
	}
	if got := len(c.Toasts()); got != 0 {
		t.Errorf("toasts = %d, want 0", got)
	}
}

func TestStartEmptyIdentityIsNoop(t *testing.T) {
	backend := &mockBackend{}
	c, _, fd := newTestClient(backend)

	c.Start(context.Background(), "")

	if backend.ListCallsCount != 0 {
		t.Errorf("initial fetch issued for empty identity")
	}
	if fd.dialCalls() != 0 {
		t.Errorf("dial attempted for empty identity")
	}
}

func TestStartLoadsInitialAndConnects(t *testing.T) {
	backend := &mockBackend{ListResp: []model.Notification{notif("a", false)}}
	c, _, fd := newTestClient(backend)

	c.Start(context.Background(), "u1")
	defer c.Stop()

	if !c.IsConnected() {
		t.Error("not connected after Start")
	}
	list, unread := c.Snapshot()
	if len(list) != 1 || unread != 1 {
		t.Errorf("state = (%d, %d), want (1, 1) from initial fetch", len(list), unread)
	}
	if fd.dialCalls() != 1 {
		t.Errorf("dial calls = %d, want 1", fd.dialCalls())
	}
}

func TestStartSurvivesInitialFetchFailure(t *testing.T) {
	backend := &mockBackend{ListErr: context.DeadlineExceeded}
	c, _, _ := newTestClient(backend)

	c.Start(context.Background(), "u1")
	defer c.Stop()

	if !c.IsConnected() {
		t.Error("fetch failure must not prevent the live connection")
	}
}

func TestMarkReadSendsAckOverLiveConnection(t *testing.T) {
	c, _, fd := newTestClient(&mockBackend{})
	c.Start(context.Background(), "u1")
	defer c.Stop()

	fd.lastConn().in <- []byte(`{"type":"new_notification","data":{"id":"n1","type":"comment","title":"x","message":"y","is_read":false,"created_at":"2026-03-01T10:00:00Z"}}`)
	waitFor(t, func() bool { _, unread := c.Snapshot(); return unread == 1 }, "push applied")

	if err := c.MarkRead(context.Background(), "n1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	var ack *Frame
	for _, w := range fd.lastConn().written() {
		if f, ok := w.(Frame); ok && f.Type == FrameMarkRead {
			ack = &f
			break
		}
	}
	if ack == nil {
		t.Fatal("no mark_read frame sent over the live connection")
	}
	if ack.NotificationID != "n1" {
		t.Errorf("ack id = %s, want n1", ack.NotificationID)
	}
}

func TestStopRetainsCachedState(t *testing.T) {
	backend := &mockBackend{ListResp: []model.Notification{notif("a", false), notif("b", true)}}
	c, _, _ := newTestClient(backend)
	c.Start(context.Background(), "u1")

	c.Stop()

	if c.IsConnected() {
		t.Error("still connected after Stop")
	}
	list, unread := c.Snapshot()
	if len(list) != 2 || unread != 1 {
		t.Errorf("cached state = (%d, %d) after Stop, want (2, 1)", len(list), unread)
	}
}
