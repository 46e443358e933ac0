package history

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/fleetpower/internal/config"
	"github.com/okian/fleetpower/pkg/logger"
	"github.com/okian/fleetpower/pkg/metrics"
)

// CollectionBoards holds one document per published board.
const CollectionBoards = "leaderboards"

const connectTimeout = 10 * time.Second

// Mongo writes records to a MongoDB collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	log    logger.Logger
}

// New returns a Mongo sink when history is enabled and Noop otherwise.
func New(ctx context.Context, cfg *config.Config) (Sink, error) {
	if !cfg.HistoryEnabled {
		return Noop{}, nil
	}
	return Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
}

// Connect dials MongoDB and ensures the generated_at index.
func Connect(ctx context.Context, uri, database string) (*Mongo, error) {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	m := &Mongo{
		client: client,
		coll:   client.Database(database).Collection(CollectionBoards),
		log:    logger.Get().Named("history"),
	}
	_, err = m.coll.Indexes().CreateOne(cctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "generated_at", Value: -1}},
		Options: options.Index().SetName("generated_at_desc"),
	})
	if err != nil {
		m.log.Warn(ctx, "history index creation failed", logger.Error(err))
	}

	m.log.Info(ctx, "history connected", logger.String("database", database))
	return m, nil
}

func (m *Mongo) Write(ctx context.Context, r Record) error {
	_, err := m.coll.InsertOne(ctx, r)
	metrics.RecordHistoryWrite(err)
	if err != nil {
		return fmt.Errorf("insert board %s: %w", r.RunID, err)
	}
	return nil
}

func (m *Mongo) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "generated_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := m.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find boards: %w", err)
	}
	defer cursor.Close(ctx)

	out := []Record{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode boards: %w", err)
	}
	return out, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
