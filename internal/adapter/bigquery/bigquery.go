// Package bigquery implements the domain repositories on Google BigQuery.
//
// Rows written through the streaming inserter sit in the table's streaming
// buffer for a while; DML against them fails until the buffer is flushed.
// Those failures are reported as domain.ErrRecentlyWritten.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	bq "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"healthreport/internal/domain"
)

// Tables names the three tables inside the dataset.
type Tables struct {
	Activities  string
	Users       string
	Reflections string
}

// Warehouse is a BigQuery-backed store for activities, users and reflections.
type Warehouse struct {
	client  *bq.Client
	project string
	dataset string
	tables  Tables
}

// Open creates a client for projectID in location.
func Open(ctx context.Context, projectID, location, dataset string, tables Tables) (*Warehouse, error) {
	client, err := bq.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	if location != "" {
		client.Location = location
	}
	return &Warehouse{client: client, project: projectID, dataset: dataset, tables: tables}, nil
}

// Close releases the client.
func (w *Warehouse) Close() error {
	return w.client.Close()
}

// EnsureTables creates the dataset tables from the row schemas when missing.
func (w *Warehouse) EnsureTables(ctx context.Context) error {
	defs := []struct {
		name string
		row  any
	}{
		{w.tables.Activities, activityRow{}},
		{w.tables.Users, userRow{}},
		{w.tables.Reflections, reflectionRow{}},
	}
	for _, d := range defs {
		schema, err := bq.InferSchema(d.row)
		if err != nil {
			return fmt.Errorf("infer schema %s: %w", d.name, err)
		}
		err = w.client.Dataset(w.dataset).Table(d.name).Create(ctx, &bq.TableMetadata{Schema: schema})
		if err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("create table %s: %w", d.name, err)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

// table returns the fully qualified, backquoted table reference for SQL text.
func (w *Warehouse) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", w.project, w.dataset, name)
}

func (w *Warehouse) query(sql string, params map[string]any) *bq.Query {
	q := w.client.Query(sql)
	q.Parameters = queryParams(params)
	return q
}

func queryParams(params map[string]any) []bq.QueryParameter {
	out := make([]bq.QueryParameter, 0, len(params))
	for name, v := range params {
		out = append(out, bq.QueryParameter{Name: name, Value: v})
	}
	return out
}

// readAll runs a query and decodes every row into T.
func readAll[T any](ctx context.Context, q *bq.Query) ([]T, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := []T{}
	for {
		var row T
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
}

// exec runs a DML statement and waits for it to finish.
func exec(ctx context.Context, q *bq.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return domain.ClassifyWarehouseError(err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return domain.ClassifyWarehouseError(err)
	}
	return domain.ClassifyWarehouseError(status.Err())
}

// put streams rows through the inserter; row-level failures become
// domain.ErrInsertFailed.
func put(ctx context.Context, t *bq.Table, rows any) error {
	err := t.Inserter().Put(ctx, rows)
	if err == nil {
		return nil
	}
	var multi bq.PutMultiError
	if errors.As(err, &multi) {
		return fmt.Errorf("%w: %s", domain.ErrInsertFailed, multi.Error())
	}
	return err
}
