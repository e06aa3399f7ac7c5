package remote

import (
	"context"

	"travelchat/internal/normalize"
)

// Filter is a conjunction of column = value conditions.
type Filter map[string]any

// Query selects rows matching Filter. Empty Columns means all columns;
// empty OrderBy means storage order.
type Query struct {
	Filter  Filter
	Columns []string
	OrderBy string
	Desc    bool
}

// Store is the query capability the sync client needs from the shared
// session store. Any backend offering these primitives will do.
type Store interface {
	Upsert(ctx context.Context, rows []normalize.Row, conflictColumns []string) error
	Insert(ctx context.Context, row normalize.Row) error
	Update(ctx context.Context, filter Filter, fields normalize.Row) error
	Delete(ctx context.Context, filter Filter) error
	Select(ctx context.Context, query Query) ([]normalize.Row, error)
}
