package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is a loosely typed JSON object as returned by the upstream backend.
// Field names are not stable across endpoints, so reads go through multi-key lookups.
type Record map[string]any

// FirstDefined returns the first value among keys that is neither nil nor a blank string.
func (r Record) FirstDefined(keys ...string) (any, bool) {
	for _, key := range keys {
		value, ok := r[key]
		if !ok || value == nil {
			continue
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return value, true
	}
	return nil, false
}

// String reads the first defined key as a string. Numbers are formatted without exponent.
func (r Record) String(keys ...string) string {
	value, ok := r.FirstDefined(keys...)
	if !ok {
		return ""
	}
	return stringify(value)
}

// Int reads the first defined key as an integer.
func (r Record) Int(keys ...string) (int, bool) {
	value, ok := r.FirstDefined(keys...)
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Float reads the first defined key as a float. Returns nil when absent or unparseable.
func (r Record) Float(keys ...string) *float64 {
	value, ok := r.FirstDefined(keys...)
	if !ok {
		return nil
	}
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

// Object reads the first defined key as a nested object.
func (r Record) Object(keys ...string) Record {
	value, ok := r.FirstDefined(keys...)
	if !ok {
		return nil
	}
	switch v := value.(type) {
	case map[string]any:
		return Record(v)
	case Record:
		return v
	}
	return nil
}

// Strings reads the first defined key as a list of strings.
func (r Record) Strings(keys ...string) []string {
	value, ok := r.FirstDefined(keys...)
	if !ok {
		return nil
	}
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if obj, isObj := item.(map[string]any); isObj {
				if id := Record(obj).String("id", "_id", "code"); id != "" {
					out = append(out, id)
				}
				continue
			}
			if s := stringify(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

// Merge returns a copy of r overlaid with patch.
func (r Record) Merge(patch Record) Record {
	out := make(Record, len(r)+len(patch))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}
