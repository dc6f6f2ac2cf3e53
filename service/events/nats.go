package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"AgoraNotify/logger"
	"AgoraNotify/module/notification/model"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// Subjects other backend services publish notification events on. The hub
// subscribes and fans the payloads out to live connections.
const (
	SubjectUserPrefix = "notify.user."
	SubjectBroadcast  = "notify.broadcast"
)

type Config struct {
	URL string
}

// Bus is the thin NATS facade: one connection serving both produce and
// consume sides.
type Bus struct {
	nc   *nats.Conn
	subs []*nats.Subscription
}

func Connect(cfg Config) (*Bus, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errors.Wrap(err, "nats connect")
	}
	return &Bus{nc: nc}, nil
}

func (b *Bus) Close() {
	if b == nil || b.nc == nil {
		return
	}
	for _, s := range b.subs {
		_ = s.Unsubscribe()
	}
	b.nc.Close()
}

// PublishNotification routes one user-directed notification onto the bus.
func (b *Bus) PublishNotification(n model.Notification) error {
	if n.RecipientID == "" {
		return errors.New("notification missing recipient")
	}
	data, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}
	return errors.Wrap(b.nc.Publish(SubjectUserPrefix+n.RecipientID, data), "publish notification")
}

// PublishBroadcast routes a system-wide notification onto the bus.
func (b *Bus) PublishBroadcast(n model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "marshal broadcast")
	}
	return errors.Wrap(b.nc.Publish(SubjectBroadcast, data), "publish broadcast")
}

// Sink is where consumed events land; the hub satisfies it.
type Sink interface {
	Deliver(ctx context.Context, n model.Notification) error
	Broadcast(ctx context.Context, n model.Notification, excludeUser string) error
}

// Subscribe wires the two subjects into the sink. Malformed payloads are
// logged and dropped.
func (b *Bus) Subscribe(sink Sink) error {
	userSub, err := b.nc.Subscribe(SubjectUserPrefix+"*", func(msg *nats.Msg) {
		n, ok := decodeNotification(msg.Data)
		if !ok {
			return
		}
		if n.RecipientID == "" {
			n.RecipientID = strings.TrimPrefix(msg.Subject, SubjectUserPrefix)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sink.Deliver(ctx, n); err != nil {
			logger.Warnf("[events] deliver id=%s err=%v", n.ID, err)
		}
	})
	if err != nil {
		return errors.Wrap(err, "subscribe user subject")
	}
	b.subs = append(b.subs, userSub)

	bcastSub, err := b.nc.Subscribe(SubjectBroadcast, func(msg *nats.Msg) {
		n, ok := decodeNotification(msg.Data)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sink.Broadcast(ctx, n, ""); err != nil {
			logger.Warnf("[events] broadcast id=%s err=%v", n.ID, err)
		}
	})
	if err != nil {
		return errors.Wrap(err, "subscribe broadcast subject")
	}
	b.subs = append(b.subs, bcastSub)
	return nil
}

func decodeNotification(data []byte) (model.Notification, bool) {
	var n model.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		logger.Warnf("[events] dropping malformed event err=%v", err)
		return model.Notification{}, false
	}
	return n, true
}
