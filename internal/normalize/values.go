package normalize

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"travelchat/internal/model"
)

// TimestampKind tags which encoding a remote timestamp value arrived in.
type TimestampKind int

const (
	TimestampAbsent TimestampKind = iota
	TimestampNumber
	TimestampNumericString
	TimestampISOString
	TimestampInvalid
)

// TimestampValue is a classified remote timestamp. Millis is only meaningful
// when OK reports true.
type TimestampValue struct {
	Kind   TimestampKind
	Millis int64
}

func (v TimestampValue) OK() bool {
	switch v.Kind {
	case TimestampNumber, TimestampNumericString, TimestampISOString:
		return true
	}
	return false
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ClassifyTimestamp resolves number | numeric string | ISO datetime string.
// Numbers are unix milliseconds.
func ClassifyTimestamp(raw any) TimestampValue {
	if raw == nil {
		return TimestampValue{Kind: TimestampAbsent}
	}

	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return TimestampValue{Kind: TimestampInvalid}
		}
		return TimestampValue{Kind: TimestampISOString, Millis: v.UnixMilli()}
	case *time.Time:
		if v == nil {
			return TimestampValue{Kind: TimestampAbsent}
		}
		return ClassifyTimestamp(*v)
	case json.Number:
		return classifyTimestampString(string(v))
	case string:
		return classifyTimestampString(v)
	case []byte:
		return classifyTimestampString(string(v))
	}

	if f, ok := toFloat(raw); ok {
		return fromMillis(f, TimestampNumber)
	}
	return TimestampValue{Kind: TimestampInvalid}
}

// fromMillis rejects values that do not fit in int64 milliseconds; the
// float to int conversion is undefined for them.
func fromMillis(f float64, kind TimestampKind) TimestampValue {
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return TimestampValue{Kind: TimestampInvalid}
	}
	return TimestampValue{Kind: kind, Millis: int64(f)}
}

func classifyTimestampString(s string) TimestampValue {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimestampValue{Kind: TimestampAbsent}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromMillis(f, TimestampNumericString)
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TimestampValue{Kind: TimestampISOString, Millis: t.UnixMilli()}
		}
	}
	return TimestampValue{Kind: TimestampInvalid}
}

func toFloat(raw any) (float64, bool) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// MessagesKind tags which encoding a remote messages value arrived in.
type MessagesKind int

const (
	MessagesAbsent MessagesKind = iota
	MessagesSequence
	MessagesEncoded
	MessagesInvalid
)

// DecodeMessages accepts a structured sequence or a JSON-encoded string of
// one. Anything it cannot parse comes back as an empty, non-nil slice.
func DecodeMessages(raw any) ([]model.Message, MessagesKind) {
	empty := []model.Message{}

	switch v := raw.(type) {
	case nil:
		return empty, MessagesAbsent
	case []model.Message:
		out := make([]model.Message, len(v))
		copy(out, v)
		return out, MessagesSequence
	case string:
		return decodeEncodedMessages([]byte(v))
	case []byte:
		return decodeEncodedMessages(v)
	case json.RawMessage:
		return decodeEncodedMessages(v)
	}

	rv := reflect.ValueOf(raw)
	switch {
	case rv.Kind() == reflect.String:
		return decodeEncodedMessages([]byte(rv.String()))
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return decodeEncodedMessages(rv.Bytes())
	case rv.Kind() == reflect.Slice:
		// []any or []map[string]any from a JSON-aware driver.
		payload, err := json.Marshal(raw)
		if err != nil {
			return empty, MessagesInvalid
		}
		var messages []model.Message
		if err := json.Unmarshal(payload, &messages); err != nil {
			return empty, MessagesInvalid
		}
		return messages, MessagesSequence
	}
	return empty, MessagesInvalid
}

func decodeEncodedMessages(data []byte) ([]model.Message, MessagesKind) {
	empty := []model.Message{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return empty, MessagesAbsent
	}
	var messages []model.Message
	if err := json.Unmarshal(data, &messages); err != nil || messages == nil {
		return empty, MessagesInvalid
	}
	return messages, MessagesEncoded
}

// truthy accepts bool, numbers and the strings "true"/"1"/"t".
func truthy(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case *bool:
		return v != nil && *v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	case []byte:
		return truthy(string(v))
	}
	if f, ok := toFloat(raw); ok {
		return f != 0
	}
	return false
}

func stringValue(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case json.Number:
		return string(v), true
	}
	if f, ok := toFloat(raw); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}
