package repository

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"lovenest/internal/apperr"
)

// Query accumulates row filters, ordering and limits
type Query struct {
	values url.Values
}

// NewQuery starts an empty query selecting every column
func NewQuery() *Query {
	return &Query{values: url.Values{"select": {"*"}}}
}

// Eq filters column = value
func (q *Query) Eq(column, value string) *Query {
	q.values.Add(column, "eq."+value)
	return q
}

// In filters column to one of values
func (q *Query) In(column string, values []string) *Query {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	q.values.Add(column, "in.("+strings.Join(quoted, ",")+")")
	return q
}

// IsNull filters column IS NULL
func (q *Query) IsNull(column string) *Query {
	q.values.Add(column, "is.null")
	return q
}

// Order sorts by column
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.values.Set("order", column+"."+dir)
	return q
}

// Limit caps the number of rows
func (q *Query) Limit(n int) *Query {
	q.values.Set("limit", strconv.Itoa(n))
	return q
}

func (q *Query) encode() url.Values {
	if q == nil {
		return NewQuery().values
	}
	return q.values
}

// filters returns the query without select/order/limit, as used by
// mutations
func (q *Query) filters() url.Values {
	out := url.Values{}
	for k, v := range q.encode() {
		switch k {
		case "select", "order", "limit":
			continue
		}
		out[k] = v
	}
	return out
}

// Table is typed access to one backend table
type Table[T any] struct {
	client *Client
	name   string
}

// NewTable binds a table name to a row type
func NewTable[T any](client *Client, name string) Table[T] {
	return Table[T]{client: client, name: name}
}

func (t Table[T]) path() string { return "rest/v1/" + t.name }

// List selects rows matching q
func (t Table[T]) List(ctx context.Context, q *Query) ([]T, error) {
	var rows []T
	err := t.client.do(ctx, request{
		op:     "list " + t.name,
		method: http.MethodGet,
		path:   t.path(),
		query:  q.encode(),
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert inserts one row and returns the stored record
func (t Table[T]) Insert(ctx context.Context, row any) (T, error) {
	var rows []T
	var zero T
	err := t.client.do(ctx, request{
		op:      "insert " + t.name,
		method:  http.MethodPost,
		path:    t.path(),
		query:   url.Values{"select": {"*"}},
		headers: map[string]string{"Prefer": "return=representation"},
		body:    []any{row},
	}, &rows)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, &apperr.RemoteError{Op: "insert " + t.name, Message: "no row returned"}
	}
	return rows[0], nil
}

// Update patches every row matching q and returns the updated records
func (t Table[T]) Update(ctx context.Context, q *Query, patch any) ([]T, error) {
	values := q.filters()
	values.Set("select", "*")
	var rows []T
	err := t.client.do(ctx, request{
		op:      "update " + t.name,
		method:  http.MethodPatch,
		path:    t.path(),
		query:   values,
		headers: map[string]string{"Prefer": "return=representation"},
		body:    patch,
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert inserts row or merges it into the row with the same key
func (t Table[T]) Upsert(ctx context.Context, row any) error {
	return t.client.do(ctx, request{
		op:      "upsert " + t.name,
		method:  http.MethodPost,
		path:    t.path(),
		headers: map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"},
		body:    []any{row},
	}, nil)
}

// Delete removes every row matching q
func (t Table[T]) Delete(ctx context.Context, q *Query) error {
	return t.client.do(ctx, request{
		op:      "delete " + t.name,
		method:  http.MethodDelete,
		path:    t.path(),
		query:   q.filters(),
		headers: map[string]string{"Prefer": "return=minimal"},
	}, nil)
}

// updateOne patches the row with the given id and fails when it is gone
func updateOne[T any](ctx context.Context, t Table[T], id string, patch any) (T, error) {
	var zero T
	rows, err := t.Update(ctx, NewQuery().Eq("id", id), patch)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, &apperr.RemoteError{Op: "update " + t.name, Status: http.StatusNotFound, Message: "row " + id + " not found"}
	}
	return rows[0], nil
}
