package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/yuklab/yuklab-bot/internal/cache"
	"github.com/yuklab/yuklab-bot/internal/model"
)

const (
	downloadsCollection = "downloads"
	forwardsCollection  = "forwards"
	usersCollection     = "users"

	connectTimeout = 10 * time.Second
)

// Mongo implements cache.Store and the user activity store on top of a
// MongoDB database.
type Mongo struct {
	downloads *mongo.Collection
	forwards  *mongo.Collection
	users     *mongo.Collection
	log       *zap.Logger
}

// NewMongo creates a store bound to the given database.
func NewMongo(db *mongo.Database, log *zap.Logger) *Mongo {
	return &Mongo{
		downloads: db.Collection(downloadsCollection),
		forwards:  db.Collection(forwardsCollection),
		users:     db.Collection(usersCollection),
		log:       log,
	}
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the lookup and audit indexes. Safe to call on every
// start; existing indexes are left untouched.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.downloads.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// Dedup key lookup. Height participates but is absent on
			// quality-less records, which the sparse-free compound index
			// handles as a missing field.
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "url", Value: 1},
				{Key: "platform", Value: 1},
				{Key: "media_type", Value: 1},
				{Key: "height", Value: 1},
			},
		},
		{Keys: bson.D{{Key: "url", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create download indexes: %w", err)
	}

	_, err = m.forwards.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "download_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create forward indexes: %w", err)
	}

	_, err = m.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "telegram_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "last_active_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// RecordActivity upserts the user row for one interaction: profile fields
// are refreshed, counters incremented, and the first-seen timestamp set only
// on insert.
func (m *Mongo) RecordActivity(ctx context.Context, act model.UserActivity) error {
	set := bson.M{
		"chat_id":        act.ChatID,
		"is_active":      true,
		"last_active_at": act.At,
	}
	if act.FirstName != "" {
		set["first_name"] = act.FirstName
	}
	inc := bson.M{"message_count": 1}
	if act.IsCommand() {
		set["last_command"] = act.Command
		inc["command_count"] = 1
	}

	update := bson.M{
		"$set":         set,
		"$inc":         inc,
		"$setOnInsert": bson.M{"first_seen_at": act.At},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := m.users.UpdateOne(ctx, bson.M{"telegram_id": act.UserID}, update, opts); err != nil {
		return fmt.Errorf("record user activity: %w", err)
	}
	return nil
}

// FindDownload returns the newest record matching the key, or
// cache.ErrNotFound.
func (m *Mongo) FindDownload(ctx context.Context, key cache.Key) (*model.DownloadRecord, error) {
	filter := bson.M{
		"user_id":  key.UserID,
		"url":      key.URL,
		"platform": key.Platform,
	}
	switch len(key.MediaTypes) {
	case 0:
		// no constraint
	case 1:
		filter["media_type"] = key.MediaTypes[0]
	default:
		filter["media_type"] = bson.M{"$in": key.MediaTypes}
	}
	if key.Height != nil {
		filter["height"] = *key.Height
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var rec model.DownloadRecord
	if err := m.downloads.FindOne(ctx, filter, opts).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("find download: %w", err)
	}
	return &rec, nil
}

// CreateDownload persists the record with find-or-create semantics: if a
// concurrent workflow already inserted the same dedup key, the existing
// record wins and its identifier is copied back into rec.
func (m *Mongo) CreateDownload(ctx context.Context, rec *model.DownloadRecord) error {
	filter := bson.M{
		"user_id":    rec.UserID,
		"url":        rec.URL,
		"platform":   rec.Platform,
		"media_type": rec.MediaType,
	}
	if rec.Height > 0 {
		filter["height"] = rec.Height
	}

	update := bson.M{"$setOnInsert": rec}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored model.DownloadRecord
	if err := m.downloads.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return fmt.Errorf("create download: %w", err)
	}
	rec.ID = stored.ID
	return nil
}

// CreateForward inserts one replay audit row.
func (m *Mongo) CreateForward(ctx context.Context, fwd *model.ForwardRecord) error {
	res, err := m.forwards.InsertOne(ctx, fwd)
	if err != nil {
		return fmt.Errorf("create forward: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		fwd.ID = id
	}
	return nil
}

// CreateForwards inserts a batch of replay audit rows in one round trip.
func (m *Mongo) CreateForwards(ctx context.Context, fwds []model.ForwardRecord) error {
	if len(fwds) == 0 {
		return nil
	}
	docs := make([]interface{}, len(fwds))
	for i := range fwds {
		docs[i] = fwds[i]
	}
	if _, err := m.forwards.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("create forwards: %w", err)
	}
	return nil
}
