package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// TimeLayout is the fixed-width encoding of server timestamps in JSON
// backends, so that string order equals time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

type sentinel int

const (
	serverTimestamp sentinel = iota + 1
	deleteField
)

func (s sentinel) String() string {
	switch s {
	case serverTimestamp:
		return "ServerTimestamp"
	case deleteField:
		return "DeleteField"
	}
	return "sentinel"
}

var (
	// ServerTimestamp is replaced by the store's clock at write time
	ServerTimestamp any = serverTimestamp

	// DeleteField removes the field in Update and Merge
	DeleteField any = deleteField
)

type arrayUnion struct {
	values []any
}

// ArrayUnion appends the values missing from the stored array field
func ArrayUnion(values ...any) any {
	return arrayUnion{values: values}
}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel
func IsServerTimestamp(v any) bool {
	s, ok := v.(sentinel)
	return ok && s == serverTimestamp
}

// IsDeleteField reports whether v is the DeleteField sentinel
func IsDeleteField(v any) bool {
	s, ok := v.(sentinel)
	return ok && s == deleteField
}

// UnionValues returns the ArrayUnion operands, or false when v is not one
func UnionValues(v any) ([]any, bool) {
	u, ok := v.(arrayUnion)
	if !ok {
		return nil, false
	}
	return u.values, true
}

// FormatTime renders t in TimeLayout
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// TimeValue decodes a stored timestamp. Backends hand back either time.Time
// or a string; anything else yields the zero time.
func TimeValue(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t != nil {
			return t.UTC()
		}
	case string:
		if parsed, err := time.Parse(TimeLayout, t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

// Normalize converts a value to its JSON data model: numbers become float64,
// slices []any, structs and maps map[string]any.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, float64:
		return t, nil
	case time.Time:
		return FormatTime(t), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize %T: %w", v, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize %T: %w", v, err)
	}
	return out, nil
}

// ResolveJSON applies a patch to a JSON-model document, resolving sentinels.
// existing may be nil for inserts. The result is a new map.
func ResolveJSON(existing, patch map[string]any, now time.Time) (map[string]any, error) {
	out := make(map[string]any, len(existing)+len(patch))
	for k, v := range existing {
		out[k] = v
	}

	for field, value := range patch {
		switch {
		case IsServerTimestamp(value):
			out[field] = FormatTime(now)
		case IsDeleteField(value):
			delete(out, field)
		default:
			if values, ok := UnionValues(value); ok {
				merged, err := unionJSON(out[field], values)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", field, err)
				}
				out[field] = merged
				continue
			}
			normalized, err := Normalize(value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field, err)
			}
			out[field] = normalized
		}
	}
	return out, nil
}

func unionJSON(current any, values []any) ([]any, error) {
	var merged []any
	if arr, ok := current.([]any); ok {
		merged = append(merged, arr...)
	}
	for _, v := range values {
		n, err := Normalize(v)
		if err != nil {
			return nil, err
		}
		if !containsValue(merged, n) {
			merged = append(merged, n)
		}
	}
	if merged == nil {
		merged = []any{}
	}
	return merged, nil
}

func containsValue(values []any, v any) bool {
	for _, existing := range values {
		if reflect.DeepEqual(existing, v) {
			return true
		}
	}
	return false
}

// MatchFilters evaluates equality filters against a JSON-model document
func MatchFilters(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		want, err := Normalize(f.Value)
		if err != nil {
			return false
		}
		got, ok := data[f.Field]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// CompareValues orders two JSON-model values: missing/nil first, then
// booleans, numbers and strings. Mixed types order by type rank.
func CompareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		return strings.Compare(x, b.(string))
	case time.Time:
		return x.Compare(b.(time.Time))
	}
	return 0
}

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case time.Time:
		return 3
	case string:
		return 4
	}
	return 5
}

// Sequenced pairs a document with its insertion sequence for ordering
type Sequenced struct {
	Document
	Seq int64
}

// Arrange filters, orders and limits documents the same way every in-process
// backend evaluates a Query.
func Arrange(docs []Sequenced, q Query) []Document {
	matched := make([]Sequenced, 0, len(docs))
	for _, d := range docs {
		if MatchFilters(d.Data, q.Filters) {
			matched = append(matched, d)
		}
	}

	desc := q.Order != nil && q.Order.Direction == Desc
	sort.SliceStable(matched, func(i, j int) bool {
		if q.Order != nil {
			c := CompareValues(matched[i].Data[q.Order.Field], matched[j].Data[q.Order.Field])
			if c != 0 {
				if desc {
					return c > 0
				}
				return c < 0
			}
		}
		if desc {
			return matched[i].Seq > matched[j].Seq
		}
		return matched[i].Seq < matched[j].Seq
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]Document, len(matched))
	for i, d := range matched {
		out[i] = Document{ID: d.ID, Data: CloneData(d.Data)}
	}
	return out
}

// CloneData deep-copies a JSON-model map
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}
