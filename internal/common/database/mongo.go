// internal/common/database/mongo.go
package database

import (
	"context"
	"fmt"
	"time"

	"shopping-agent-gateway/internal/common/config"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoStore runs read queries against a MongoDB database.
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// NewMongo connects to MongoDB and verifies the connection.
func NewMongo(ctx context.Context, cfg config.MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(config.GetDuration(cfg.ConnectTimeout))
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	store := &MongoStore{
		client:  client,
		db:      client.Database(cfg.Database),
		timeout: config.GetDuration(cfg.QueryTimeout),
	}

	if err := store.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

// Ping checks the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// Find returns every matching document decoded into plain Go values.
func (s *MongoStore) Find(ctx context.Context, collection string, filter map[string]interface{}, opts FindOptions) ([]map[string]interface{}, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	findOpts := options.Find()
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if len(opts.Sort) > 0 {
		sort := bson.D{}
		for _, key := range opts.Sort {
			sort = append(sort, bson.E{Key: key.Field, Value: key.Direction})
		}
		findOpts.SetSort(sort)
	}
	if len(opts.Projection) > 0 {
		findOpts.SetProjection(bson.M(opts.Projection))
	}

	cur, err := s.db.Collection(collection).Find(ctx, toBSONFilter(filter), findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo find %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("mongo decode %s: %w", collection, err)
	}

	docs := make([]map[string]interface{}, 0, len(raw))
	for _, doc := range raw {
		docs = append(docs, normalizeDocument(doc))
	}
	return docs, nil
}

// Count returns the number of documents matching filter.
func (s *MongoStore) Count(ctx context.Context, collection string, filter map[string]interface{}) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.db.Collection(collection).CountDocuments(ctx, toBSONFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("mongo count %s: %w", collection, err)
	}
	return n, nil
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// toBSONFilter converts hex string ids under _id into ObjectIDs so
// identity-scoped lookups match stored keys.
func toBSONFilter(filter map[string]interface{}) bson.M {
	out := bson.M{}
	for k, v := range filter {
		if k == "_id" {
			out[k] = toObjectIDs(v)
			continue
		}
		out[k] = v
	}
	return out
}

func toObjectIDs(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		if oid, err := bson.ObjectIDFromHex(val); err == nil {
			return oid
		}
		return val
	case map[string]interface{}:
		out := bson.M{}
		for op, operand := range val {
			if op == "$in" || op == "$nin" {
				if list, ok := operand.([]interface{}); ok {
					converted := make(bson.A, 0, len(list))
					for _, item := range list {
						converted = append(converted, toObjectIDs(item))
					}
					out[op] = converted
					continue
				}
			}
			out[op] = toObjectIDs(operand)
		}
		return out
	}
	return v
}

func normalizeDocument(doc bson.M) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		return normalizeDocument(val)
	case map[string]interface{}:
		return normalizeDocument(bson.M(val))
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = normalizeValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC().Format(time.RFC3339)
	case bson.Decimal128:
		return val.String()
	case int32:
		return int64(val)
	}
	return v
}
