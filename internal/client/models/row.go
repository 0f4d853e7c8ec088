// Package models defines the profile, stats, activity, and challenge types
// mirrored from the remote data service, plus helpers for decoding the
// loosely typed rows the service returns.
package models

import (
	"encoding/json"
	"time"
)

// Rows arrive as generic JSON objects, so numbers may come back as float64,
// json.Number, or native integer types depending on the transport. The
// helpers below normalize the common cases and fall back to the zero value.

func stringVal(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func intVal(row map[string]any, key string) int {
	switch v := row[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	}
	return 0
}

func floatVal(row map[string]any, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func boolVal(row map[string]any, key string) bool {
	if v, ok := row[key].(bool); ok {
		return v
	}
	return false
}

func timeVal(row map[string]any, key string) time.Time {
	switch v := row[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
