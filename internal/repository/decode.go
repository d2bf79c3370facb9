package repository

import (
	"time"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
)

// Field readers treat a value of the wrong type as absent

func stringField(data map[string]any, field string) string {
	s, _ := data[field].(string)
	return s
}

func floatField(data map[string]any, field string) float64 {
	switch v := data[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func timeField(data map[string]any, field string) time.Time {
	return docstore.TimeValue(data[field])
}

func optionalTimeField(data map[string]any, field string) *time.Time {
	t := timeField(data, field)
	if t.IsZero() {
		return nil
	}
	return &t
}

func optionalStringField(data map[string]any, field string) *string {
	s, ok := data[field].(string)
	if !ok {
		return nil
	}
	return &s
}

func stringSliceField(data map[string]any, field string) []string {
	out := []string{}
	switch v := data[field].(type) {
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, v...)
	}
	return out
}

func mapField(data map[string]any, field string) map[string]any {
	m, _ := data[field].(map[string]any)
	return m
}
