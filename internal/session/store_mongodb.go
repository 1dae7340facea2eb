package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultMongoCollection is the collection holding session documents.
const DefaultMongoCollection = "sessions"

type mongoSessionDocument struct {
	ID         string     `bson:"_id"`
	Principal  string     `bson:"principal,omitempty"`
	Created    time.Time  `bson:"created"`
	Accessed   time.Time  `bson:"accessed"`
	IntervalMS int64      `bson:"interval_ms"`
	ExpireAt   *time.Time `bson:"expire_at,omitempty"`
	Attributes []byte     `bson:"attrs"`
}

// MongoDBStore stores sessions in MongoDB.
// Expired documents are also removed server-side by a TTL index on expire_at.
type MongoDBStore struct {
	collection *mongo.Collection
}

// NewMongoDBStore creates the sessions collection indexes if needed.
func NewMongoDBStore(database *mongo.Database) (*MongoDBStore, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}

	coll := database.Collection(DefaultMongoCollection)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "principal", Value: 1}}},
		{
			Keys:    bson.D{{Key: "expire_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		// Indexes may already exist with other options; the store still works.
		slog.Warn("failed to create some MongoDB indexes for sessions", "error", err)
	}

	return &MongoDBStore{collection: coll}, nil
}

func toMongoDocument(s *Session) (*mongoSessionDocument, error) {
	attrs, err := encodeAttributes(s.Attributes)
	if err != nil {
		return nil, err
	}
	doc := &mongoSessionDocument{
		ID:         s.ID,
		Principal:  s.PrincipalName(),
		Created:    s.CreationTime,
		Accessed:   s.LastAccessedTime,
		IntervalMS: s.MaxInactiveInterval.Milliseconds(),
		Attributes: attrs,
	}
	if exp := s.ExpiresAt(); !exp.IsZero() {
		doc.ExpireAt = &exp
	}
	return doc, nil
}

func (d *mongoSessionDocument) toSession() (*Session, error) {
	attrs, err := decodeAttributes(d.Attributes)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:                  d.ID,
		CreationTime:        d.Created.UTC(),
		LastAccessedTime:    d.Accessed.UTC(),
		MaxInactiveInterval: time.Duration(d.IntervalMS) * time.Millisecond,
		Attributes:          attrs,
	}, nil
}

// Save upserts the session document.
func (s *MongoDBStore) Save(ctx context.Context, sess *Session) error {
	if err := validateSession(sess); err != nil {
		return err
	}
	doc, err := toMongoDocument(sess)
	if err != nil {
		return err
	}

	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// FindByID returns a session by id.
func (s *MongoDBStore) FindByID(ctx context.Context, id string) (*Session, error) {
	var doc mongoSessionDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}

	sess, err := doc.toSession()
	if err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	// The TTL monitor runs once a minute, so expiry is also checked here.
	if sess.IsExpired(time.Now()) {
		if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			slog.Warn("failed to delete expired session", "session_id", id, "error", err)
		}
		return nil, ErrNotFound
	}
	return sess, nil
}

// DeleteByID removes a session by id.
func (s *MongoDBStore) DeleteByID(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByPrincipalName returns the unexpired sessions of one principal ordered by creation time.
func (s *MongoDBStore) FindByPrincipalName(ctx context.Context, name string) ([]*Session, error) {
	filter := bson.M{
		"principal": name,
		"$or": bson.A{
			bson.M{"expire_at": bson.M{"$gt": time.Now()}},
			bson.M{"expire_at": bson.M{"$exists": false}},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find sessions by principal: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]*Session, 0)
	for cursor.Next(ctx) {
		var doc mongoSessionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode session document: %w", err)
		}
		sess, err := doc.toSession()
		if err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, sess)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions cursor: %w", err)
	}
	return out, nil
}

// DeleteExpired removes every session whose expire_at is not after now.
func (s *MongoDBStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"expire_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.DeletedCount, nil
}

// Ping verifies the database answers commands.
func (s *MongoDBStore) Ping(ctx context.Context) error {
	return s.collection.Database().RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

// Close is a no-op; Mongo client lifecycle is managed by storage layer.
func (s *MongoDBStore) Close() error {
	return nil
}
