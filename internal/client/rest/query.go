package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Query accumulates filters for one table. Builders mutate and return q.
type Query struct {
	c      *Client
	table  string
	params url.Values
}

// Select restricts the returned columns. The default is "*".
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq adds a column=eq.value filter.
func (q *Query) Eq(column string, value any) *Query {
	q.params.Add(column, "eq."+fmt.Sprint(value))
	return q
}

// Is adds a column=is.value filter (null, true, false).
func (q *Query) Is(column, value string) *Query {
	q.params.Add(column, "is."+value)
	return q
}

// Neq adds a column=neq.value filter.
func (q *Query) Neq(column string, value any) *Query {
	q.params.Add(column, "neq."+fmt.Sprint(value))
	return q
}

// Or adds a disjunction such as "email.ilike.*ann*,display_name.ilike.*ann*".
func (q *Query) Or(filters string) *Query {
	q.params.Add("or", "("+filters+")")
	return q
}

// Order sorts by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Add("order", column+"."+dir)
	return q
}

// Limit caps the number of rows.
func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// List runs a select and decodes all rows into out (a pointer to a slice).
func (q *Query) List(ctx context.Context, out any) error {
	q.defaultSelect()
	return q.c.do(ctx, request{method: http.MethodGet, path: "/" + q.table, query: q.params}, out)
}

// Single runs a select that must match exactly one row. No rows maps to
// common.ErrNotFound.
func (q *Query) Single(ctx context.Context, out any) error {
	q.defaultSelect()
	return q.c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/" + q.table,
		query:   q.params,
		headers: map[string]string{"Accept": "application/vnd.pgrst.object+json"},
	}, out)
}

// Insert posts body. When out is non-nil the created rows are decoded into it.
func (q *Query) Insert(ctx context.Context, body any, out any) error {
	return q.c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/" + q.table,
		query:   q.params,
		body:    body,
		headers: preferHeader(out),
	}, out)
}

// Update patches every row matching the filters.
func (q *Query) Update(ctx context.Context, body any, out any) error {
	return q.c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/" + q.table,
		query:   q.params,
		body:    body,
		headers: preferHeader(out),
	}, out)
}

// Delete removes every row matching the filters.
func (q *Query) Delete(ctx context.Context) error {
	return q.c.do(ctx, request{method: http.MethodDelete, path: "/" + q.table, query: q.params}, nil)
}

func (q *Query) defaultSelect() {
	if q.params.Get("select") == "" {
		q.params.Set("select", "*")
	}
}

func preferHeader(out any) map[string]string {
	if out == nil {
		return map[string]string{"Prefer": "return=minimal"}
	}
	return map[string]string{"Prefer": "return=representation"}
}
