package hermes

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	client   *mongo.Client
	database string
}

func newMongoStore(ctx context.Context, config *configService, appName string) (*mongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	databaseURL := fmt.Sprintf("mongodb://%s:%s@%s:%s",
		config.Env("DB_USERNAME"),
		config.Env("DB_PASSWORD"),
		config.Env("DB_HOST"),
		config.Env("DB_PORT"),
	)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(databaseURL))
	if err != nil {
		return nil, err
	}

	// Check if the connection is established
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &mongoStore{client: client, database: config.EnvString("DB_NAME", appName)}
	store.ensureIndex(ctx)
	return store, nil
}

func (s *mongoStore) collection() *mongo.Collection {
	return s.client.Database(s.database).Collection(runsCollection)
}

// ensureIndex backs the newest-first listing of a job's runs.
func (s *mongoStore) ensureIndex(ctx context.Context) {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "job", Value: 1}, {Key: "started_at", Value: -1}},
	}
	_, _ = s.collection().Indexes().CreateOne(ctx, indexModel)
}

func (s *mongoStore) SaveRun(ctx context.Context, record RunRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.collection().ReplaceOne(ctx, bson.D{{Key: "_id", Value: record.ID}}, record, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("could not save run %s: %w", record.ID, err)
	}
	return nil
}

func (s *mongoStore) RecentRuns(ctx context.Context, job string, limit int) ([]RunRecord, error) {
	filter := bson.D{}
	if job != "" {
		filter = bson.D{{Key: "job", Value: job}}
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	var results []RunRecord
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
