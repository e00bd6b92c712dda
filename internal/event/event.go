package event

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Operation is the row mutation type reported by the upstream change feed.
type Operation string

const (
	OpInsert  Operation = "INSERT"
	OpUpdate  Operation = "UPDATE"
	OpDelete  Operation = "DELETE"
	OpUnknown Operation = ""
)

// ParseOperation normalizes the operation string from the webhook payload.
// The upstream producer is inconsistent about casing, so we uppercase before
// matching. Anything unrecognized maps to OpUnknown rather than an error.
func ParseOperation(s string) Operation {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INSERT":
		return OpInsert
	case "UPDATE":
		return OpUpdate
	case "DELETE":
		return OpDelete
	default:
		return OpUnknown
	}
}

// Record holds the loosely typed column values of a changed row. Keys and
// value types vary across tables and across versions of the same table.
type Record map[string]any

// ChangeEvent is one row mutation delivered by the database webhook.
type ChangeEvent struct {
	Table     string
	Operation Operation
	Record    Record
	// OldRecord is the row state before an UPDATE. nil means the producer did
	// not include it, which is distinct from an empty map: without it no delta
	// can be computed.
	OldRecord Record
}

// First returns the value of the first candidate key that holds a non-empty
// scalar, coerced to string. Column names have drifted across table versions,
// so callers pass the synonyms in priority order.
func (r Record) First(keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// StringList returns the value under key as a list of non-empty strings.
// JSON decoding yields []any, but []string is accepted too for callers that
// construct records directly.
func (r Record) StringList(key string) []string {
	switch v := r[key].(type) {
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := stringify(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Flatten coerces every value in the record to a string, the form the push
// transport requires for its data payload.
func (r Record) Flatten() map[string]string {
	out := make(map[string]string, len(r))
	for k, v := range r {
		out[k] = stringify(v)
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		// Lists and nested objects end up JSON-encoded.
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
