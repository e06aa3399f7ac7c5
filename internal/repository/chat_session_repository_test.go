package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"travelchat/internal/model"
	"travelchat/internal/normalize"
	"travelchat/internal/remote"
)

// dryRunRepository renders statements without a server; the driver opens
// lazily and the version lookup is skipped.
func dryRunRepository(t *testing.T) (*ChatSessionRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "travel:travel@tcp(127.0.0.1:3306)/travelchat?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return NewChatSessionRepository(db), db
}

func TestEncodeRow(t *testing.T) {
	row := normalize.SessionToRow(model.Session{
		ID:        "s1",
		Preview:   "p",
		Timestamp: 5,
		Messages:  []model.Message{{Role: model.RoleUser, Text: "x"}},
	}, "u1")

	encoded, err := encodeRow(row)
	require.NoError(t, err)

	assert.Equal(t, `[{"role":"user","text":"x"}]`, encoded["messages"])
	assert.Equal(t, int64(5), encoded["timestamp"])
	assert.Equal(t, false, encoded["custom_title"])
	assert.Equal(t, "u1", encoded["user_id"])

	// The encoded messages read back through the normalizer.
	back, ok := normalize.RowToSession(normalize.Row(encoded), time.Now())
	require.True(t, ok)
	assert.Equal(t, "x", back.Messages[0].Text)
}

func TestUpdatableColumns(t *testing.T) {
	cols := updatableColumns(map[string]interface{}{
		"user_id": "u", "session_id": "s", "preview": "p", "messages": "[]",
	}, []string{"user_id", "session_id"})

	assert.Equal(t, []string{"messages", "preview"}, cols)
}

func TestUpsertStmt_UpdatesNonKeyColumns(t *testing.T) {
	repo, db := dryRunRepository(t)
	encoded, err := encodeRow(normalize.SessionToRow(model.Session{
		ID:        "s1",
		Preview:   "Lisbon",
		Timestamp: 5,
		Messages:  []model.Message{{Role: model.RoleUser, Text: "x"}},
	}, "u1"))
	require.NoError(t, err)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return repo.upsertStmt(tx, []map[string]interface{}{encoded}, []string{normalize.ColUserID, normalize.ColSessionID})
	})

	assert.Contains(t, sql, "INSERT INTO `chat_sessions`")
	assert.Contains(t, sql, "ON DUPLICATE KEY UPDATE")
	update := sql[strings.Index(sql, "ON DUPLICATE KEY UPDATE"):]
	for _, col := range []string{"custom_title", "messages", "preview", "timestamp", "updated_at"} {
		assert.Contains(t, update, "`"+col+"`")
	}
	assert.NotContains(t, update, "`user_id`")
	assert.NotContains(t, update, "`session_id`")
}

func TestSelectStmt_ColumnsFilterAndOrder(t *testing.T) {
	repo, db := dryRunRepository(t)
	query := remote.Query{
		Filter:  remote.Filter{normalize.ColUserID: "u1"},
		Columns: []string{normalize.ColSessionID, normalize.ColPreview, normalize.ColMessages, normalize.ColUpdatedAt},
		OrderBy: normalize.ColTimestamp,
		Desc:    true,
	}

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var found []map[string]interface{}
		return repo.selectStmt(tx, query).Find(&found)
	})

	assert.Contains(t, sql, "SELECT `session_id`,`preview`,`messages`,`updated_at` FROM `chat_sessions`")
	assert.Contains(t, sql, "`user_id` = ")
	assert.Contains(t, sql, "u1")
	assert.Contains(t, sql, "ORDER BY `timestamp` DESC")

	sql = db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var found []map[string]interface{}
		return repo.selectStmt(tx, remote.Query{}).Find(&found)
	})
	assert.Contains(t, sql, "SELECT * FROM `chat_sessions`")
	assert.NotContains(t, sql, "ORDER BY")
}

func TestScannedRow_DriverValuesNormalize(t *testing.T) {
	// Shapes the MySQL driver produces for TEXT, TINYINT, BIGINT and DATETIME.
	updated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	row := scannedRow(map[string]interface{}{
		"session_id":   []byte("s1"),
		"preview":      []byte("Kyoto in spring"),
		"messages":     []byte(`[{"role":"user","text":"hi"},{"role":"ai","text":"hello"}]`),
		"custom_title": int64(1),
		"timestamp":    int64(1714557600000),
		"updated_at":   updated,
	})

	assert.IsType(t, "", row["messages"])
	assert.Equal(t, "s1", row["session_id"])
	assert.Equal(t, int64(1), row["custom_title"])

	s, ok := normalize.RowToSession(row, time.Now())
	require.True(t, ok)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, "Kyoto in spring", s.Preview)
	assert.True(t, s.CustomTitle)
	assert.Equal(t, int64(1714557600000), s.Timestamp)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, model.RoleAI, s.Messages[1].Role)

	row["custom_title"] = int64(0)
	s, ok = normalize.RowToSession(row, time.Now())
	require.True(t, ok)
	assert.False(t, s.CustomTitle)
}
