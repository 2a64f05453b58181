package hermes

import (
	"context"
	"fmt"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"
)

const runKind = "Run"

type datastoreStore struct {
	client *datastore.Client
}

func newDatastoreStore(ctx context.Context, config *configService, opts ...option.ClientOption) (*datastoreStore, error) {
	client, err := datastore.NewClient(ctx, config.EnvString("PROJECT_ID"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Datastore client: %w", err)
	}
	return &datastoreStore{client: client}, nil
}

// SaveRun stores the record under its id, overwriting an earlier save.
func (s *datastoreStore) SaveRun(ctx context.Context, record RunRecord) error {
	key := datastore.NameKey(runKind, record.ID, nil)
	if _, err := s.client.Put(ctx, key, &record); err != nil {
		return fmt.Errorf("could not save run %s: %w", record.ID, err)
	}
	return nil
}

func (s *datastoreStore) RecentRuns(ctx context.Context, job string, limit int) ([]RunRecord, error) {
	query := datastore.NewQuery(runKind).Order("-started_at").Limit(limit)
	if job != "" {
		query = query.FilterField("job", "=", job)
	}

	var records []RunRecord
	keys, err := s.client.GetAll(ctx, query, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve runs: %w", err)
	}
	for i, key := range keys {
		records[i].ID = key.Name
	}
	return records, nil
}

func (s *datastoreStore) Close(context.Context) error {
	return s.client.Close()
}
