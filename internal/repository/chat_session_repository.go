package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"travelchat/internal/model"
	"travelchat/internal/normalize"
	"travelchat/internal/remote"
)

// ChatSessionRepository is the MySQL-backed remote session store. It works
// on column maps instead of model.ChatSessionRow so that requests only touch
// the columns they name; that is what lets the sync client try older
// schemas with smaller row shapes.
type ChatSessionRepository struct {
	db    *gorm.DB
	table string
}

func NewChatSessionRepository(db *gorm.DB) *ChatSessionRepository {
	return &ChatSessionRepository{db: db, table: model.ChatSessionRow{}.TableName()}
}

var _ remote.Store = (*ChatSessionRepository)(nil)

func (r *ChatSessionRepository) Upsert(ctx context.Context, rows []normalize.Row, conflictColumns []string) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		encoded, err := encodeRow(row)
		if err != nil {
			return err
		}
		values = append(values, encoded)
	}

	if err := r.upsertStmt(r.db.WithContext(ctx), values, conflictColumns).Error; err != nil {
		return fmt.Errorf("upsert chat sessions failed: %w", err)
	}
	return nil
}

func (r *ChatSessionRepository) upsertStmt(tx *gorm.DB, values []map[string]interface{}, conflictColumns []string) *gorm.DB {
	conflict := make([]clause.Column, 0, len(conflictColumns))
	for _, col := range conflictColumns {
		conflict = append(conflict, clause.Column{Name: col})
	}
	updates := updatableColumns(values[0], conflictColumns)

	onConflict := clause.OnConflict{Columns: conflict}
	if len(updates) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.AssignmentColumns(updates)
	}
	return tx.Table(r.table).Clauses(onConflict).Create(values)
}

func (r *ChatSessionRepository) Insert(ctx context.Context, row normalize.Row) error {
	encoded, err := encodeRow(row)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Table(r.table).Create(encoded).Error; err != nil {
		return fmt.Errorf("insert chat session failed: %w", err)
	}
	return nil
}

func (r *ChatSessionRepository) Update(ctx context.Context, filter remote.Filter, fields normalize.Row) error {
	if len(filter) == 0 {
		return fmt.Errorf("update chat session failed: empty filter")
	}
	encoded, err := encodeRow(fields)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Table(r.table).Where(map[string]interface{}(filter)).Updates(encoded).Error; err != nil {
		return fmt.Errorf("update chat session failed: %w", err)
	}
	return nil
}

func (r *ChatSessionRepository) Delete(ctx context.Context, filter remote.Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("delete chat session failed: empty filter")
	}
	if err := r.db.WithContext(ctx).Where(map[string]interface{}(filter)).Delete(&model.ChatSessionRow{}).Error; err != nil {
		return fmt.Errorf("delete chat session failed: %w", err)
	}
	return nil
}

func (r *ChatSessionRepository) Select(ctx context.Context, query remote.Query) ([]normalize.Row, error) {
	var found []map[string]interface{}
	if err := r.selectStmt(r.db.WithContext(ctx), query).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("select chat sessions failed: %w", err)
	}

	rows := make([]normalize.Row, 0, len(found))
	for _, item := range found {
		rows = append(rows, scannedRow(item))
	}
	return rows, nil
}

func (r *ChatSessionRepository) selectStmt(tx *gorm.DB, query remote.Query) *gorm.DB {
	tx = tx.Table(r.table)
	if len(query.Filter) > 0 {
		tx = tx.Where(map[string]interface{}(query.Filter))
	}
	if len(query.Columns) > 0 {
		tx = tx.Select(query.Columns)
	}
	if query.OrderBy != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: query.OrderBy}, Desc: query.Desc})
	}
	return tx
}

// scannedRow copies a scanned map into a Row. The MySQL driver hands TEXT
// and JSON columns back as []byte; those become strings, the same shape the
// other stores return.
func scannedRow(item map[string]interface{}) normalize.Row {
	row := make(normalize.Row, len(item))
	for col, v := range item {
		if b, ok := v.([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = v
	}
	return row
}

// encodeRow turns structured values (message slices, maps) into JSON text so
// the SQL driver can bind them.
func encodeRow(row normalize.Row) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(row))
	for col, v := range row {
		switch v.(type) {
		case nil, string, []byte, bool, time.Time,
			int, int32, int64, uint, uint32, uint64, float32, float64:
			out[col] = v
			continue
		}

		kind := reflect.ValueOf(v).Kind()
		if kind != reflect.Slice && kind != reflect.Map && kind != reflect.Struct {
			out[col] = v
			continue
		}
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode column %s failed: %w", col, err)
		}
		out[col] = string(payload)
	}
	return out, nil
}

func updatableColumns(row map[string]interface{}, conflictColumns []string) []string {
	skip := make(map[string]bool, len(conflictColumns))
	for _, col := range conflictColumns {
		skip[col] = true
	}
	cols := make([]string, 0, len(row))
	for col := range row {
		if !skip[col] {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	return cols
}
