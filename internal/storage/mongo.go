package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// recordDocument is the stored shape of a record
type recordDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Text      string             `bson:"text"`
	Duration  float64            `bson:"duration"`
	Cost      float64            `bson:"cost"`
	Timestamp time.Time          `bson:"timestamp"`
	Date      string             `bson:"date"`
}

func toDocument(rec types.Record) recordDocument {
	return recordDocument{
		ID:        primitive.NewObjectID(),
		Text:      rec.Text,
		Duration:  rec.DurationSeconds,
		Cost:      rec.CostUSD,
		Timestamp: rec.Timestamp.UTC(),
		Date:      rec.Date,
	}
}

func (d recordDocument) record() types.Record {
	return types.Record{
		ID:              d.ID.Hex(),
		Text:            d.Text,
		DurationSeconds: d.Duration,
		CostUSD:         d.Cost,
		Timestamp:       d.Timestamp.UTC(),
		Date:            d.Date,
	}
}

// MongoStore keeps history in a MongoDB collection. The client is created
// once by Connect and shared by every call until Disconnect.
type MongoStore struct {
	uri        string
	database   string
	collection string

	mu     sync.RWMutex
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore creates an unconnected store
func NewMongoStore(uri, database, collection string) *MongoStore {
	return &MongoStore{uri: uri, database: database, collection: collection}
}

// Connect dials the server and verifies it with a ping
func (s *MongoStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return &types.PersistenceError{Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return &types.PersistenceError{Op: "connect", Err: fmt.Errorf("ping failed: %w", err)}
	}

	s.client = client
	s.coll = client.Database(s.database).Collection(s.collection)
	return nil
}

// Disconnect closes the client. Safe to call when not connected.
func (s *MongoStore) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.coll = nil
	return err
}

func (s *MongoStore) collectionFor(op string) (*mongo.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.coll == nil {
		return nil, &types.PersistenceError{Op: op, Err: types.ErrNotConnected}
	}
	return s.coll, nil
}

// Insert stores rec and returns the hex ObjectID
func (s *MongoStore) Insert(ctx context.Context, rec types.Record) (string, error) {
	coll, err := s.collectionFor("insert")
	if err != nil {
		return "", err
	}

	doc := toDocument(rec)
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return "", &types.PersistenceError{Op: "insert", Err: err}
	}
	return doc.ID.Hex(), nil
}

// AggregateByDate groups records by date, most recent day first
func (s *MongoStore) AggregateByDate(ctx context.Context) ([]types.HistoryDay, error) {
	coll, err := s.collectionFor("aggregate")
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$date"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: -1}}}},
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &types.PersistenceError{Op: "aggregate", Err: err}
	}

	var groups []struct {
		Date  string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, &types.PersistenceError{Op: "aggregate", Err: err}
	}

	days := make([]types.HistoryDay, 0, len(groups))
	for _, g := range groups {
		days = append(days, types.HistoryDay{Date: g.Date, Count: g.Count})
	}
	return days, nil
}

// QueryByDate returns the records stored under date, newest first
func (s *MongoStore) QueryByDate(ctx context.Context, date string) ([]types.Record, error) {
	coll, err := s.collectionFor("query")
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := coll.Find(ctx, bson.M{"date": date}, opts)
	if err != nil {
		return nil, &types.PersistenceError{Op: "query", Err: err}
	}

	var docs []recordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &types.PersistenceError{Op: "query", Err: err}
	}

	records := make([]types.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.record())
	}
	return records, nil
}
