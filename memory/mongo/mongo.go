// Package mongo implements a memory.Store backed by MongoDB. One collection
// per memory tier; facts carry a text index so semantic search maps onto
// MongoDB text scoring.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/nova/memory"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Options configures the Mongo store.
type Options struct {
	Database string
}

// Store is a MongoDB-backed memory.Store.
type Store struct {
	sessions *mongo.Collection
	facts    *mongo.Collection
	episodes *mongo.Collection
	cache    *mongo.Collection
	kv       *mongo.Collection
}

// New creates a Store on the given client and ensures indexes.
func New(ctx context.Context, client *mongo.Client, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Database: "nova"}
	for _, fn := range optFns {
		fn(&opts)
	}

	db := client.Database(opts.Database)
	s := &Store{
		sessions: db.Collection("sessions"),
		facts:    db.Collection("facts"),
		episodes: db.Collection("episodes"),
		cache:    db.Collection("response_cache"),
		kv:       db.Collection("kv"),
	}

	_, err := s.facts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "topic", Value: "text"}, {Key: "content", Value: "text"}},
	})
	if err != nil {
		return nil, fmt.Errorf("mongo: ensure fact index: %w", err)
	}
	return s, nil
}

// SaveSession implements memory.Store.
func (s *Store) SaveSession(ctx context.Context, sess memory.Session) error {
	_, err := s.sessions.UpdateOne(ctx,
		bson.M{"id": sess.ID},
		bson.M{"$set": sess},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: save session: %w", err)
	}
	return nil
}

// LoadSession implements memory.Store.
func (s *Store) LoadSession(ctx context.Context, id string) (memory.Session, error) {
	var sess memory.Session
	err := s.sessions.FindOne(ctx, bson.M{"id": id}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return memory.Session{}, memory.ErrNotFound
	}
	if err != nil {
		return memory.Session{}, fmt.Errorf("mongo: load session: %w", err)
	}
	return sess, nil
}

// ListSessions implements memory.Store.
func (s *Store) ListSessions(ctx context.Context) ([]memory.SessionSummary, error) {
	cursor, err := s.sessions.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: list sessions: %w", err)
	}

	var sessions []memory.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("mongo: decode sessions: %w", err)
	}
	summaries := make([]memory.SessionSummary, len(sessions))
	for i, sess := range sessions {
		summaries[i] = memory.Summarize(sess)
	}
	return summaries, nil
}

// CacheGet implements memory.Store.
func (s *Store) CacheGet(ctx context.Context, key string) (string, bool, error) {
	var doc struct {
		Value string `bson:"value"`
	}
	err := s.cache.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mongo: cache get: %w", err)
	}
	return doc.Value, true, nil
}

// CacheSet implements memory.Store.
func (s *Store) CacheSet(ctx context.Context, key, value string) error {
	_, err := s.cache.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"key": key, "value": value}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: cache set: %w", err)
	}
	return nil
}

// AddFact implements memory.Store. The upsert key is the exact content, so
// duplicates collapse into one document.
func (s *Store) AddFact(ctx context.Context, f memory.Fact) error {
	_, err := s.facts.UpdateOne(ctx,
		bson.M{"content": f.Content},
		bson.M{"$setOnInsert": f},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: add fact: %w", err)
	}
	return nil
}

// GetFacts implements memory.Store.
func (s *Store) GetFacts(ctx context.Context, topic string, limit int) ([]memory.Fact, error) {
	filter := bson.M{}
	if topic != "" {
		filter["topic"] = topic
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}
	cursor, err := s.facts.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: get facts: %w", err)
	}
	var facts []memory.Fact
	if err := cursor.All(ctx, &facts); err != nil {
		return nil, fmt.Errorf("mongo: decode facts: %w", err)
	}
	return facts, nil
}

// SemanticSearch implements memory.Store using MongoDB text search scoring.
func (s *Store) SemanticSearch(ctx context.Context, query string, limit int) ([]memory.SearchResult, error) {
	findOpts := options.Find().
		SetProjection(bson.M{
			"topic":      1,
			"content":    1,
			"source":     1,
			"confidence": 1,
			"score":      bson.M{"$meta": "textScore"},
		}).
		SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.facts.Find(ctx, bson.M{"$text": bson.M{"$search": query}}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: semantic search: %w", err)
	}

	var docs []struct {
		Topic      string  `bson:"topic"`
		Content    string  `bson:"content"`
		Source     string  `bson:"source"`
		Confidence float64 `bson:"confidence"`
		Score      float64 `bson:"score"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode search results: %w", err)
	}

	results := make([]memory.SearchResult, len(docs))
	for i, doc := range docs {
		results[i] = memory.SearchResult{
			Content: doc.Content,
			Metadata: map[string]any{
				"topic":      doc.Topic,
				"source":     doc.Source,
				"confidence": doc.Confidence,
			},
			Score: doc.Score,
		}
	}
	return results, nil
}

// SaveEpisode implements memory.Store.
func (s *Store) SaveEpisode(ctx context.Context, e memory.Episode) error {
	_, err := s.episodes.InsertOne(ctx, e)
	if err != nil {
		return fmt.Errorf("mongo: save episode: %w", err)
	}
	return nil
}

// GetEpisodes implements memory.Store.
func (s *Store) GetEpisodes(ctx context.Context, goal string, limit int) ([]memory.Episode, error) {
	filter := bson.M{}
	if goal != "" {
		filter["goal"] = bson.M{"$regex": goal, "$options": "i"}
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}
	cursor, err := s.episodes.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: get episodes: %w", err)
	}
	var episodes []memory.Episode
	if err := cursor.All(ctx, &episodes); err != nil {
		return nil, fmt.Errorf("mongo: decode episodes: %w", err)
	}
	return episodes, nil
}

// Remember implements memory.Store.
func (s *Store) Remember(ctx context.Context, key, value string) error {
	_, err := s.kv.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"key": key, "value": value}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: remember: %w", err)
	}
	return nil
}

// Recall implements memory.Store.
func (s *Store) Recall(ctx context.Context, key string) (string, error) {
	var doc struct {
		Value string `bson:"value"`
	}
	err := s.kv.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", memory.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("mongo: recall: %w", err)
	}
	return doc.Value, nil
}
