package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/option"
)

// OperationRepository stores exported operations.
type OperationRepository interface {
	InsertOperations(ctx context.Context, rows []*OperationRow) error
	QueryOperationsByDateRange(ctx context.Context, accountIdx string, start, end civil.Date) ([]*OperationRow, error)
	Migrate(ctx context.Context, appliedBy string) (int, error)
	Close() error
}

// BigQueryOperationRepository is the BigQuery implementation of
// OperationRepository. It holds one client shared by all calls.
type BigQueryOperationRepository struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewBigQueryOperationRepository creates a repository writing to project.dataset.
func NewBigQueryOperationRepository(ctx context.Context, project, dataset string, opts ...option.ClientOption) (*BigQueryOperationRepository, error) {
	if project == "" {
		return nil, fmt.Errorf("NewBigQueryOperationRepository: project is required")
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryOperationRepository: creating client: %w", err)
	}
	return &BigQueryOperationRepository{
		client:  client,
		project: project,
		dataset: dataset,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryOperationRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertOperations delegates to InsertOperationsWithClient with the shared client.
func (r *BigQueryOperationRepository) InsertOperations(ctx context.Context, rows []*OperationRow) error {
	return InsertOperationsWithClient(ctx, r.client, r.dataset, rows)
}

// QueryOperationsByDateRange delegates to QueryOperationsByDateRangeWithClient with the shared client.
func (r *BigQueryOperationRepository) QueryOperationsByDateRange(ctx context.Context, accountIdx string, start, end civil.Date) ([]*OperationRow, error) {
	return QueryOperationsByDateRangeWithClient(ctx, r.client, r.dataset, accountIdx, start, end)
}

// Migrate applies the pending schema migrations and returns how many ran.
func (r *BigQueryOperationRepository) Migrate(ctx context.Context, appliedBy string) (int, error) {
	migrations, err := LoadMigrations(r.project, r.dataset)
	if err != nil {
		return 0, err
	}
	return ApplyMigrationsWithClient(ctx, r.client, r.project, r.dataset, appliedBy, migrations)
}

var _ OperationRepository = (*BigQueryOperationRepository)(nil)
