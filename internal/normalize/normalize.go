// Package normalize converts between the local session shape and rows of the
// shared chat_sessions table. Remote rows come from several schema revisions,
// so every field is read through a fixed list of accepted names and encodings.
package normalize

import (
	"strings"
	"time"

	"travelchat/internal/model"
)

// Row is one chat_sessions row keyed by column name.
type Row map[string]any

// Column names of chat_sessions.
const (
	ColUserID      = "user_id"
	ColSessionID   = "session_id"
	ColPreview     = "preview"
	ColTimestamp   = "timestamp"
	ColMessages    = "messages"
	ColCustomTitle = "custom_title"
	ColUpdatedAt   = "updated_at"
)

var (
	idKeys          = []string{ColSessionID, "sessionId", "id"}
	previewKeys     = []string{ColPreview, "title"}
	customTitleKeys = []string{ColCustomTitle, "customTitle"}
)

// ISOTime formats unix milliseconds the way the remote store expects
// updated_at: UTC with millisecond precision.
func ISOTime(millis int64) string {
	return time.UnixMilli(millis).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// RowToSession maps a remote row to a Session. ok is false when the row has
// no usable identifier; callers skip such rows.
func RowToSession(row Row, now time.Time) (model.Session, bool) {
	id := ""
	for _, key := range idKeys {
		if v, found := stringValue(row[key]); found && strings.TrimSpace(v) != "" {
			id = strings.TrimSpace(v)
			break
		}
	}
	if id == "" {
		return model.Session{}, false
	}

	s := model.Session{ID: id}
	for _, key := range previewKeys {
		if v, found := stringValue(row[key]); found {
			s.Preview = v
			break
		}
	}
	if key, found := customTitleKey(row); found {
		s.CustomTitle = truthy(row[key])
	}
	s.Timestamp = resolveTimestamp(row, now)
	s.Messages, _ = DecodeMessages(row[ColMessages])
	return s, true
}

// HasCustomTitle reports whether row carries the custom title flag at all.
// Rows selected from schemas without the column leave it out, and then
// CustomTitle from RowToSession says nothing about the stored session.
func HasCustomTitle(row Row) bool {
	_, found := customTitleKey(row)
	return found
}

func customTitleKey(row Row) (string, bool) {
	for _, key := range customTitleKeys {
		if _, found := row[key]; found {
			return key, true
		}
	}
	return "", false
}

func resolveTimestamp(row Row, now time.Time) int64 {
	if ts := ClassifyTimestamp(row[ColTimestamp]); ts.OK() {
		return ts.Millis
	}
	if ts := ClassifyTimestamp(row[ColUpdatedAt]); ts.OK() {
		return ts.Millis
	}
	return now.UnixMilli()
}

// SessionToRow is the full write shape.
func SessionToRow(s model.Session, ownerID string) Row {
	return Row{
		ColUserID:      ownerID,
		ColSessionID:   s.ID,
		ColPreview:     s.Preview,
		ColTimestamp:   s.Timestamp,
		ColMessages:    messagesOrEmpty(s.Messages),
		ColCustomTitle: s.CustomTitle,
		ColUpdatedAt:   ISOTime(s.Timestamp),
	}
}

// SessionToMinimalRow drops the columns older schemas may lack.
func SessionToMinimalRow(s model.Session, ownerID string) Row {
	return Row{
		ColUserID:    ownerID,
		ColSessionID: s.ID,
		ColPreview:   s.Preview,
		ColMessages:  messagesOrEmpty(s.Messages),
		ColUpdatedAt: ISOTime(s.Timestamp),
	}
}

func messagesOrEmpty(messages []model.Message) []model.Message {
	if messages == nil {
		return []model.Message{}
	}
	return messages
}
