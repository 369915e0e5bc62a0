package postgres_test

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows serves canned rows through the pgx.Rows interface.
type fakeRows struct {
	rows   [][]any
	cursor int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.closed || r.cursor >= len(r.rows) {
		r.closed = true
		return false
	}

	r.cursor++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.cursor-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.cursor-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(row))
	}

	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if row[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}

		target.Set(reflect.ValueOf(row[i]))
	}

	return nil
}

type query struct {
	sql  string
	args []any
}

// fakeQuerier records queries and answers with the configured rows.
type fakeQuerier struct {
	rows    *fakeRows
	err     error
	queries []query
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, query{sql: sql, args: args})

	if q.err != nil {
		return nil, q.err
	}

	return q.rows, nil
}
