package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vnykmshr/gatelimit/pkg/common/clock"
	gfcontext "github.com/vnykmshr/gatelimit/pkg/common/context"
	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
	"github.com/vnykmshr/gatelimit/pkg/common/validation"
)

// MongoConfig holds configuration for a MongoDB-backed store.
type MongoConfig struct {
	// Collection holds one document per key.
	Collection *mongo.Collection

	// Prefix namespaces every key, joined with ":". Empty means no prefix.
	Prefix string

	// Timeout bounds each round-trip. Zero relies on the caller's context.
	Timeout time.Duration

	// RecordTTL, if positive, is attached by Set so idle bucket records expire.
	RecordTTL time.Duration

	// Clock provides the time used for expiry checks. If nil, SystemClock is used.
	// Every gateway sharing a collection must agree on it within a few milliseconds.
	Clock clock.Clock
}

// counterDoc is the stored shape of a key. Exactly one of Blob and Count is set.
type counterDoc struct {
	ID       string     `bson:"_id"`
	Blob     []byte     `bson:"b,omitempty"`
	Count    *int64     `bson:"n,omitempty"`
	ExpireAt *time.Time `bson:"expireAt,omitempty"`
}

// MongoStore implements CounterStore on a MongoDB collection.
//
// Expired documents are filtered out of every read and reset by every seeded
// increment, so correctness does not depend on how promptly the server's TTL
// monitor removes them.
type MongoStore struct {
	config MongoConfig
	col    *mongo.Collection
	clock  clock.Clock
}

// NewMongoStore creates a MongoStore. Call EnsureIndexes once at startup.
func NewMongoStore(config MongoConfig) (*MongoStore, error) {
	if config.Collection == nil {
		return nil, gferrors.NewValidationError("store.mongo", "collection", nil, "cannot be nil").
			WithHint("pass client.Database(name).Collection(name)")
	}
	if config.RecordTTL != 0 {
		if err := validation.ValidatePositiveDuration("store.mongo", "record_ttl", config.RecordTTL); err != nil {
			return nil, err
		}
	}
	if config.Clock == nil {
		config.Clock = clock.SystemClock{}
	}

	return &MongoStore{
		config: config,
		col:    config.Collection,
		clock:  config.Clock,
	}, nil
}

// EnsureIndexes creates the TTL index the server uses to purge expired keys.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expireAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("expireAt_ttl"),
	})
	if err != nil {
		return gferrors.NewOperationError("store.mongo", "EnsureIndexes", err)
	}
	return nil
}

func (s *MongoStore) key(key string) string {
	return prefixed(s.config.Prefix, key)
}

// opError wraps a driver error. Server selection and CSOT timeouts do not
// always carry context.DeadlineExceeded, so they are tagged with ErrTimeout here.
func (s *MongoStore) opError(op, key string, err error) error {
	if mongo.IsTimeout(err) && !errors.Is(err, gferrors.ErrTimeout) {
		err = fmt.Errorf("%w: %w", gferrors.ErrTimeout, err)
	}
	return gferrors.NewOperationError("store.mongo", op, err).WithContext("key=" + key)
}

// now truncates to the millisecond resolution of BSON dates.
func (s *MongoStore) now() time.Time {
	return s.clock.Now().Truncate(time.Millisecond)
}

func liveFilter(id string, now time.Time) bson.M {
	return bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"expireAt": bson.M{"$exists": false}},
			bson.M{"expireAt": bson.M{"$gt": now}},
		},
	}
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	var doc counterDoc
	err := s.col.FindOne(ctx, liveFilter(s.key(key), s.now())).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, s.opError("Get", key, err)
	}

	if doc.Count != nil {
		return FormatCounter(*doc.Count), nil
	}
	if doc.Blob == nil {
		return []byte{}, nil
	}
	return doc.Blob, nil
}

func (s *MongoStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	if value == nil {
		value = []byte{}
	}
	doc := bson.M{"_id": s.key(key), "b": value}
	if s.config.RecordTTL > 0 {
		doc["expireAt"] = s.now().Add(s.config.RecordTTL)
	}

	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": s.key(key)}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return s.opError("Set", key, err)
	}
	return nil
}

func (s *MongoStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	id := s.key(key)
	filter := liveFilter(id, s.now())
	filter["n"] = bson.M{"$exists": true}

	var doc counterDoc
	err := s.col.FindOneAndUpdate(ctx, filter,
		bson.M{"$inc": bson.M{"n": delta}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)

	if errors.Is(err, mongo.ErrNoDocuments) {
		// Either absent, or a live record that is not a counter.
		existing, getErr := s.Get(ctx, key)
		if getErr != nil {
			return 0, getErr
		}
		if existing != nil {
			return 0, s.opError("Incr", key, ErrNotInteger)
		}
		return 0, gferrors.ErrNotFound
	}
	if err != nil {
		return 0, s.opError("Incr", key, err)
	}
	if doc.Count == nil {
		return 0, s.opError("Incr", key, ErrNotInteger)
	}
	return *doc.Count, nil
}

// incrWithInitOps builds the seeded increment. A live blob does not match the
// filter, so the upsert collides on _id instead of overwriting it.
func incrWithInitOps(id string, now time.Time, delta, init int64) (bson.M, mongo.Pipeline) {
	expired := bson.M{"$and": bson.A{
		bson.M{"$ne": bson.A{bson.M{"$type": "$expireAt"}, "missing"}},
		bson.M{"$lte": bson.A{"$expireAt", now}},
	}}
	fresh := bson.M{"$or": bson.A{
		expired,
		bson.M{"$eq": bson.A{bson.M{"$type": "$n"}, "missing"}},
	}}

	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"n": bson.M{"$exists": true}},
			bson.M{"b": bson.M{"$exists": false}},
			bson.M{"expireAt": bson.M{"$lte": now}},
		},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"n": bson.M{"$add": bson.A{
				bson.M{"$cond": bson.A{fresh, init, "$n"}},
				delta,
			}},
			"expireAt": bson.M{"$cond": bson.A{expired, "$$REMOVE", "$expireAt"}},
		}}},
		{{Key: "$unset", Value: "b"}},
	}
	return filter, update
}

// IncrWithInit seeds and increments in one upsert. Two first touches on an
// absent key both miss the filter and race to insert; the loser gets a
// duplicate key error and is retried once against the document that now
// exists. A second collision means a live blob owns the key.
func (s *MongoStore) IncrWithInit(ctx context.Context, key string, delta, init int64) (int64, error) {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	filter, update := incrWithInitOps(s.key(key), s.now(), delta, init)
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc counterDoc
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		err = s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if mongo.IsDuplicateKeyError(err) {
		return 0, s.opError("IncrWithInit", key, ErrNotInteger)
	}
	if err != nil {
		return 0, s.opError("IncrWithInit", key, err)
	}
	if doc.Count == nil {
		return 0, s.opError("IncrWithInit", key, ErrNotInteger)
	}
	return *doc.Count, nil
}

func (s *MongoStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	now := s.now()
	res, err := s.col.UpdateOne(ctx, liveFilter(s.key(key), now),
		bson.M{"$set": bson.M{"expireAt": now.Add(ttl)}})
	if err != nil {
		return s.opError("Expire", key, err)
	}
	if res.MatchedCount == 0 {
		return gferrors.ErrNotFound
	}
	return nil
}
