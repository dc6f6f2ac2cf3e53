package hub

import (
	"context"
	"time"

	"AgoraNotify/module/notification/model"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MgoConfig selects the Mongo-backed store.
type MgoConfig struct {
	URI      string
	Database string
}

// MgoStore persists notifications in a Mongo collection for deployments that
// need them to survive restarts.
type MgoStore struct {
	coll *mongo.Collection
}

func NewMgoStore(ctx context.Context, cfg MgoConfig) (*MgoStore, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	if err := client.Ping(cctx, nil); err != nil {
		return nil, errors.Wrap(err, "mongo ping")
	}
	return &MgoStore{coll: client.Database(cfg.Database).Collection("notifications")}, nil
}

func (s *MgoStore) Insert(ctx context.Context, n model.Notification) error {
	_, err := s.coll.InsertOne(ctx, n)
	return errors.Wrap(err, "insert notification")
}

func (s *MgoStore) List(ctx context.Context, user string, limit, offset int, unreadOnly bool) ([]model.Notification, error) {
	filter := bson.M{"recipient_id": user}
	if unreadOnly {
		filter["is_read"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]model.Notification, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode notifications")
	}
	return out, nil
}

func (s *MgoStore) MarkRead(ctx context.Context, user, id string, at time.Time) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "recipient_id": user},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil {
		return false, errors.Wrap(err, "mark read")
	}
	return res.MatchedCount > 0, nil
}

func (s *MgoStore) MarkAllRead(ctx context.Context, user string, at time.Time) (int, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"recipient_id": user, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil {
		return 0, errors.Wrap(err, "mark all read")
	}
	return int(res.ModifiedCount), nil
}

func (s *MgoStore) Delete(ctx context.Context, user, id string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "recipient_id": user})
	if err != nil {
		return false, errors.Wrap(err, "delete notification")
	}
	return res.DeletedCount > 0, nil
}

func (s *MgoStore) Unread(ctx context.Context, user string) ([]model.Notification, error) {
	return s.List(ctx, user, 0, 0, true)
}

func (s *MgoStore) UnreadCount(ctx context.Context, user string) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"recipient_id": user, "is_read": false})
	if err != nil {
		return 0, errors.Wrap(err, "count unread")
	}
	return int(n), nil
}

func (s *MgoStore) Total(ctx context.Context) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "count total")
	}
	return int(n), nil
}
