// Package mongo keeps rejected comments in a quarantine collection so that
// moderators can review them later.
package mongo

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wordguard/pkg/models"
)

const quarantineColl = "quarantine"

var ErrPostIDNotProvided = fmt.Errorf("postID not provided")

type Storage struct {
	client *mongo.Client
	dbName string
}

// Entry is a quarantined comment with the verdict that rejected it.
type Entry struct {
	Comment models.Comment `bson:"comment"`
	Verdict models.Verdict `bson:"verdict"`
}

func New(ctx context.Context, conf *Config) (*Storage, error) {
	client, err := mongo.Connect(ctx, conf.Options())
	if err != nil {
		return nil, err
	}
	return &Storage{client: client, dbName: conf.DBName}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Storage) Close(ctx context.Context) {
	s.client.Disconnect(ctx)
}

// Store quarantines c. Clean verdicts are ignored and storing the same
// comment twice replaces the earlier entry.
func (s *Storage) Store(ctx context.Context, c models.Comment, v models.Verdict) error {
	if !v.Banned {
		return nil
	}

	coll := s.client.Database(s.dbName).Collection(quarantineColl)
	_, err := coll.ReplaceOne(ctx,
		bson.M{"_id": c.ID},
		bson.M{"_id": c.ID, "post_id": c.PostID, "comment": c, "verdict": v},
		options.Replace().SetUpsert(true),
	)
	return err
}

// Quarantined returns the rejected comments of a post, oldest verdict first.
func (s *Storage) Quarantined(ctx context.Context, postID uuid.UUID) ([]Entry, error) {
	if postID == uuid.Nil {
		return nil, ErrPostIDNotProvided
	}

	coll := s.client.Database(s.dbName).Collection(quarantineColl)
	opts := options.Find().SetSort(bson.D{{Key: "verdict.checked", Value: 1}})

	cur, err := coll.Find(ctx, bson.M{"post_id": postID}, opts)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// String names the storage in moderation logs.
func (s *Storage) String() string {
	return "mongo"
}
