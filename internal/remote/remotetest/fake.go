// Package remotetest provides an in-memory remote.Store for tests.
package remotetest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"travelchat/internal/normalize"
	"travelchat/internal/remote"
)

var (
	ErrDuplicate = errors.New("duplicate key")
	ErrRejected  = errors.New("rejected by store")
)

// Call records one request made against FakeStore.
type Call struct {
	Op       string
	Rows     []normalize.Row
	Conflict []string
	Filter   remote.Filter
	Fields   normalize.Row
	Query    remote.Query
}

// FakeStore keeps chat_sessions rows in memory keyed by (user_id, session_id).
type FakeStore struct {
	mu   sync.Mutex
	rows []normalize.Row

	// MissingColumns simulates an older schema: any request that writes,
	// selects or orders by one of these columns is rejected.
	MissingColumns []string
	// NoCompositeKey rejects upserts that name (user_id, session_id) as the
	// conflict target.
	NoCompositeKey bool
	// Reject, when set, can fail any call before it is applied.
	Reject func(call Call) error

	Calls []Call
}

func New() *FakeStore {
	return &FakeStore{}
}

// Seed stores rows as-is, bypassing validation.
func (f *FakeStore) Seed(rows ...normalize.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		f.rows = append(f.rows, cloneRow(row))
	}
}

// Rows returns a copy of every stored row.
func (f *FakeStore) Rows() []normalize.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]normalize.Row, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, cloneRow(row))
	}
	return out
}

// Find returns the row for (ownerID, sessionID).
func (f *FakeStore) Find(ownerID, sessionID string) (normalize.Row, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.indexOf(remote.Filter{normalize.ColUserID: ownerID, normalize.ColSessionID: sessionID})
	if len(idx) == 0 {
		return nil, false
	}
	return cloneRow(f.rows[idx[0]]), true
}

// CallCount counts recorded calls with the given op.
func (f *FakeStore) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *FakeStore) record(call Call) error {
	f.Calls = append(f.Calls, call)
	if f.Reject != nil {
		if err := f.Reject(call); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeStore) checkColumns(cols ...string) error {
	for _, col := range cols {
		if slices.Contains(f.MissingColumns, col) {
			return fmt.Errorf("%w: unknown column %q", ErrRejected, col)
		}
	}
	return nil
}

func (f *FakeStore) Upsert(_ context.Context, rows []normalize.Row, conflict []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(Call{Op: "upsert", Rows: rows, Conflict: conflict}); err != nil {
		return err
	}
	if f.NoCompositeKey && len(conflict) > 1 {
		return fmt.Errorf("%w: no unique constraint matching %v", ErrRejected, conflict)
	}
	for _, row := range rows {
		if err := f.checkColumns(keys(row)...); err != nil {
			return err
		}
	}

	for _, row := range rows {
		filter := remote.Filter{}
		for _, col := range conflict {
			filter[col] = row[col]
		}
		idx := f.indexOf(filter)
		if len(idx) == 0 {
			f.rows = append(f.rows, cloneRow(row))
			continue
		}
		for col, v := range row {
			f.rows[idx[0]][col] = v
		}
	}
	return nil
}

func (f *FakeStore) Insert(_ context.Context, row normalize.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(Call{Op: "insert", Rows: []normalize.Row{row}}); err != nil {
		return err
	}
	if err := f.checkColumns(keys(row)...); err != nil {
		return err
	}
	filter := remote.Filter{normalize.ColUserID: row[normalize.ColUserID], normalize.ColSessionID: row[normalize.ColSessionID]}
	if len(f.indexOf(filter)) > 0 {
		return ErrDuplicate
	}
	f.rows = append(f.rows, cloneRow(row))
	return nil
}

func (f *FakeStore) Update(_ context.Context, filter remote.Filter, fields normalize.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(Call{Op: "update", Filter: filter, Fields: fields}); err != nil {
		return err
	}
	if err := f.checkColumns(keys(fields)...); err != nil {
		return err
	}
	for _, i := range f.indexOf(filter) {
		for col, v := range fields {
			f.rows[i][col] = v
		}
	}
	return nil
}

func (f *FakeStore) Delete(_ context.Context, filter remote.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(Call{Op: "delete", Filter: filter}); err != nil {
		return err
	}
	drop := f.indexOf(filter)
	kept := f.rows[:0]
	for i, row := range f.rows {
		if !slices.Contains(drop, i) {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	return nil
}

func (f *FakeStore) Select(_ context.Context, q remote.Query) ([]normalize.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(Call{Op: "select", Query: q}); err != nil {
		return nil, err
	}
	if err := f.checkColumns(q.Columns...); err != nil {
		return nil, err
	}
	if q.OrderBy != "" {
		if err := f.checkColumns(q.OrderBy); err != nil {
			return nil, err
		}
	}

	var out []normalize.Row
	for _, i := range f.indexOf(q.Filter) {
		row := f.rows[i]
		if len(q.Columns) == 0 {
			out = append(out, cloneRow(row))
			continue
		}
		projected := normalize.Row{}
		for _, col := range q.Columns {
			if v, ok := row[col]; ok {
				projected[col] = v
			}
		}
		out = append(out, projected)
	}

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a := normalize.ClassifyTimestamp(out[i][q.OrderBy]).Millis
			b := normalize.ClassifyTimestamp(out[j][q.OrderBy]).Millis
			if q.Desc {
				return a > b
			}
			return a < b
		})
	}
	return out, nil
}

func (f *FakeStore) indexOf(filter remote.Filter) []int {
	var idx []int
	for i, row := range f.rows {
		match := true
		for col, want := range filter {
			if fmt.Sprint(row[col]) != fmt.Sprint(want) {
				match = false
				break
			}
		}
		if match {
			idx = append(idx, i)
		}
	}
	return idx
}

func keys(row normalize.Row) []string {
	out := make([]string, 0, len(row))
	for k := range row {
		out = append(out, k)
	}
	return out
}

func cloneRow(row normalize.Row) normalize.Row {
	out := make(normalize.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
