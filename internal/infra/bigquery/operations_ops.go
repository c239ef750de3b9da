package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

const operationsTable = "operations"

// InsertOperationsWithClient streams a batch of OperationRow into
// <dataset>.operations. Rows carry their operation id as insert id so
// retried batches are deduplicated by BigQuery.
func InsertOperationsWithClient(ctx context.Context, client *bigquery.Client, dataset string, rows []*OperationRow) error {
	if len(rows) == 0 {
		return nil
	}

	savers := make([]*bigquery.StructSaver, 0, len(rows))
	for _, row := range rows {
		savers = append(savers, &bigquery.StructSaver{Struct: row, InsertID: row.OperationID})
	}

	inserter := client.Dataset(dataset).Table(operationsTable).Inserter()
	if err := inserter.Put(ctx, savers); err != nil {
		return fmt.Errorf("InsertOperations: inserting rows: %w", err)
	}
	return nil
}

// QueryOperationsByDateRangeWithClient returns the stored operations of an
// account between start and end inclusive, oldest first. Operations stored
// more than once keep their latest copy.
func QueryOperationsByDateRangeWithClient(ctx context.Context, client *bigquery.Client, dataset, accountIdx string, start, end civil.Date) ([]*OperationRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			operation_id,
			retrieval_id,
			source,
			family_code,
			account_idx,
			card_idx,
			operation_date,
			label,
			amount,
			currency,
			raw,
			created_ts
		FROM `+"`%s.%s`"+`
		WHERE account_idx = @account_idx
		  AND operation_date >= @start_date
		  AND operation_date <= @end_date
		QUALIFY ROW_NUMBER() OVER (PARTITION BY operation_id ORDER BY created_ts DESC) = 1
		ORDER BY operation_date, created_ts
	`, dataset, operationsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_idx", Value: accountIdx},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryOperationsByDateRange: query read: %w", err)
	}

	var rows []*OperationRow
	for {
		var r OperationRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryOperationsByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
