package normalize

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelchat/internal/model"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func tripMessages() []model.Message {
	return []model.Message{
		{Role: model.RoleAI, Text: "Hi! Where would you like to go?"},
		{Role: model.RoleUser, Text: "plan a trip"},
		{Role: model.RolePlan, Payload: json.RawMessage(`{"location":"Paris","price":1200}`)},
		{Role: model.RoleUser, Text: model.PlanSnapshotMarker, Hidden: true},
	}
}

func TestRoundTrip(t *testing.T) {
	sessions := []model.Session{
		{ID: "s1", Preview: "plan a trip...", Timestamp: 1700000000123, Messages: tripMessages()},
		{ID: "s2", Preview: "My Paris Trip", Timestamp: 1, Messages: tripMessages()[:2], CustomTitle: true},
	}
	for _, s := range sessions {
		got, ok := RowToSession(SessionToRow(s, "u1"), fixedNow)
		require.True(t, ok)
		assert.Equal(t, s, got)
	}
}

func TestRoundTrip_ThroughJSONEncodedRow(t *testing.T) {
	s := model.Session{ID: "s1", Preview: "p", Timestamp: 1700000000123, Messages: tripMessages()}

	// What a JSON-speaking store hands back: numbers as float64, messages as []any.
	payload, err := json.Marshal(SessionToRow(s, "u1"))
	require.NoError(t, err)
	var row Row
	require.NoError(t, json.Unmarshal(payload, &row))

	got, ok := RowToSession(row, fixedNow)
	require.True(t, ok)
	assert.Equal(t, s.Timestamp, got.Timestamp)
	assert.Len(t, got.Messages, len(s.Messages))
	assert.Equal(t, s.Messages[1], got.Messages[1])
	assert.JSONEq(t, string(s.Messages[2].Payload), string(got.Messages[2].Payload))
}

func TestSessionToRow_Shapes(t *testing.T) {
	s := model.Session{ID: "s1", Preview: "p", Timestamp: 0, Messages: nil, CustomTitle: true}

	full := SessionToRow(s, "u1")
	assert.Equal(t, "u1", full[ColUserID])
	assert.Equal(t, "1970-01-01T00:00:00.000Z", full[ColUpdatedAt])
	assert.Equal(t, []model.Message{}, full[ColMessages])
	assert.Equal(t, true, full[ColCustomTitle])

	minimal := SessionToMinimalRow(s, "u1")
	assert.Len(t, minimal, 5)
	for _, col := range []string{ColUserID, ColSessionID, ColPreview, ColMessages, ColUpdatedAt} {
		assert.Contains(t, minimal, col)
	}
	assert.NotContains(t, minimal, ColTimestamp)
	assert.NotContains(t, minimal, ColCustomTitle)
}

func TestRowToSession_Identifier(t *testing.T) {
	tests := []struct {
		name   string
		row    Row
		wantID string
		wantOK bool
	}{
		{name: "session_id", row: Row{"session_id": "a", "id": 7}, wantID: "a", wantOK: true},
		{name: "camelCase", row: Row{"sessionId": "b"}, wantID: "b", wantOK: true},
		{name: "plain id", row: Row{"id": "c"}, wantID: "c", wantOK: true},
		{name: "numeric id", row: Row{"id": float64(42)}, wantID: "42", wantOK: true},
		{name: "blank session_id falls through", row: Row{"session_id": "  ", "id": "d"}, wantID: "d", wantOK: true},
		{name: "missing", row: Row{"preview": "x"}, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RowToSession(tt.row, fixedNow)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, got.ID)
			}
		})
	}
}

func TestRowToSession_Timestamp(t *testing.T) {
	iso := "2024-05-06T07:08:09.010Z"
	isoMillis := time.Date(2024, 5, 6, 7, 8, 9, 10_000_000, time.UTC).UnixMilli()

	tests := []struct {
		name string
		row  Row
		want int64
	}{
		{name: "int64", row: Row{"timestamp": int64(300)}, want: 300},
		{name: "float64", row: Row{"timestamp": float64(200)}, want: 200},
		{name: "numeric string", row: Row{"timestamp": "100"}, want: 100},
		{name: "numeric bytes", row: Row{"timestamp": []byte("150")}, want: 150},
		{name: "iso string", row: Row{"timestamp": iso}, want: isoMillis},
		{name: "time value", row: Row{"timestamp": time.UnixMilli(77)}, want: 77},
		{name: "garbage falls back to updated_at", row: Row{"timestamp": "soon", "updated_at": iso}, want: isoMillis},
		{name: "mysql datetime updated_at", row: Row{"updated_at": "2024-05-06 07:08:09"}, want: isoMillis - 10},
		{name: "out of range number falls back to updated_at", row: Row{"timestamp": "1e300", "updated_at": iso}, want: isoMillis},
		{name: "out of range float falls back to updated_at", row: Row{"timestamp": float64(-1e30), "updated_at": iso}, want: isoMillis},
		{name: "nothing usable falls back to now", row: Row{"timestamp": "soon", "updated_at": "later"}, want: fixedNow.UnixMilli()},
		{name: "absent falls back to now", row: Row{}, want: fixedNow.UnixMilli()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.row["session_id"] = "s"
			got, ok := RowToSession(tt.row, fixedNow)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Timestamp)
		})
	}
}

func TestRowToSession_Messages(t *testing.T) {
	encoded, err := json.Marshal(tripMessages()[:2])
	require.NoError(t, err)

	tests := []struct {
		name    string
		value   any
		wantLen int
	}{
		{name: "structured", value: tripMessages(), wantLen: 4},
		{name: "encoded string", value: string(encoded), wantLen: 2},
		{name: "encoded bytes", value: encoded, wantLen: 2},
		{name: "generic slice", value: []any{map[string]any{"role": "user", "text": "x"}}, wantLen: 1},
		{name: "bad json", value: "[{", wantLen: 0},
		{name: "json object", value: `{"role":"user"}`, wantLen: 0},
		{name: "absent", value: nil, wantLen: 0},
		{name: "unsupported", value: 12, wantLen: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RowToSession(Row{"session_id": "s", "messages": tt.value}, fixedNow)
			require.True(t, ok)
			assert.NotNil(t, got.Messages)
			assert.Len(t, got.Messages, tt.wantLen)
		})
	}
}

func TestRowToSession_AlternateKeys(t *testing.T) {
	got, ok := RowToSession(Row{"sessionId": "s", "title": "Rome", "customTitle": "true"}, fixedNow)
	require.True(t, ok)
	assert.Equal(t, "Rome", got.Preview)
	assert.True(t, got.CustomTitle)

	got, ok = RowToSession(Row{"session_id": "s", "preview": "Oslo", "title": "ignored", "custom_title": int64(1)}, fixedNow)
	require.True(t, ok)
	assert.Equal(t, "Oslo", got.Preview)
	assert.True(t, got.CustomTitle)

	got, ok = RowToSession(Row{"session_id": "s", "custom_title": int64(0), "customTitle": true}, fixedNow)
	require.True(t, ok)
	assert.False(t, got.CustomTitle)
}

func TestClassifyTimestamp_Kinds(t *testing.T) {
	assert.Equal(t, TimestampAbsent, ClassifyTimestamp(nil).Kind)
	assert.Equal(t, TimestampAbsent, ClassifyTimestamp("").Kind)
	assert.Equal(t, TimestampNumber, ClassifyTimestamp(12).Kind)
	assert.Equal(t, TimestampNumericString, ClassifyTimestamp(json.Number("12")).Kind)
	assert.Equal(t, TimestampISOString, ClassifyTimestamp("2024-01-02").Kind)
	assert.Equal(t, TimestampInvalid, ClassifyTimestamp("NaN").Kind)
	assert.Equal(t, TimestampInvalid, ClassifyTimestamp("1e300").Kind)
	assert.Equal(t, TimestampInvalid, ClassifyTimestamp(math.Inf(1)).Kind)
	assert.False(t, ClassifyTimestamp(float64(1<<63)).OK())
	assert.Equal(t, TimestampInvalid, ClassifyTimestamp(struct{}{}).Kind)
}

func TestHasCustomTitle(t *testing.T) {
	assert.True(t, HasCustomTitle(Row{"custom_title": int64(0)}))
	assert.True(t, HasCustomTitle(Row{"customTitle": nil}))
	assert.False(t, HasCustomTitle(Row{"session_id": "s", "preview": "p"}))
}
