package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/skatefeed/internal/types"
)

const duplicateKeyCode = 11000

// mongoPost adds an ordered ObjectID to a post so that _id order is
// insertion order.
type mongoPost struct {
	OID        primitive.ObjectID `bson:"_id"`
	types.Post `bson:",inline"`
}

// MongoStore keeps posts in a MongoDB collection with unique indexes on
// title and originalUrl.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoStore connects to uri and prepares the posts collection.
func NewMongoStore(ctx context.Context, uri, database string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	coll := client.Database(database).Collection("posts")
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "originalUrl", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("create indexes: %w", err)}
	}

	return &MongoStore{
		client:     client,
		collection: coll,
		logger:     logger.With("component", "mongo_store"),
	}, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

// Posts implements PostStore.
func (s *MongoStore) Posts(ctx context.Context) ([]types.Post, error) {
	cur, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return nil, s.fail(fmt.Errorf("find: %w", err))
	}
	defer cur.Close(ctx)

	posts := []types.Post{}
	for cur.Next(ctx) {
		var doc mongoPost
		if err := cur.Decode(&doc); err != nil {
			return nil, s.fail(fmt.Errorf("decode: %w", err))
		}
		posts = append(posts, doc.Post)
	}
	if err := cur.Err(); err != nil {
		return nil, s.fail(err)
	}
	return posts, nil
}

// Prepend implements PostStore. Duplicate-key rejections from the unique
// indexes are expected and not reported as errors.
func (s *MongoStore) Prepend(ctx context.Context, posts []types.Post) (int, error) {
	posts = uniqueBatch(posts)
	if len(posts) == 0 {
		return 0, nil
	}
	docs := make([]any, 0, len(posts))
	for i := len(posts) - 1; i >= 0; i-- {
		docs = append(docs, mongoPost{OID: primitive.NewObjectID(), Post: posts[i]})
	}

	_, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(docs), nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return 0, s.fail(fmt.Errorf("insert: %w", err))
	}
	dups := 0
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyCode {
			return 0, s.fail(fmt.Errorf("insert: %w", err))
		}
		dups++
	}
	if bwe.WriteConcernError != nil {
		return 0, s.fail(fmt.Errorf("insert: %w", err))
	}
	added := len(docs) - dups
	s.logger.Debug("posts stored", "added", added, "duplicates", dups)
	return added, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) fail(err error) error {
	return &types.StorageError{Backend: "mongodb", Err: err}
}
