package jsonutil

import (
	"encoding/json"
	"strconv"
	"strings"
)

// CoerceString converts a value to string when it is already a string.
func CoerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return ""
	}
}

// CoerceInt converts common numeric-like values to int.
func CoerceInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i
		}
	case []any:
		sum := 0
		for _, item := range t {
			sum += CoerceInt(item)
		}
		return sum
	}
	return 0
}

// CoerceFloat converts numeric-like values to float64.
func CoerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// FirstInt returns the first non-zero integer.
func FirstInt(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

// Lookup resolves a restricted JSONPath subset against root.
// Supported syntax:
// - $.a.b.c
// - $.items[0].x
// - $.items[*].x (all matched items, in order)
func Lookup(root map[string]any, path string) ([]any, bool) {
	p := strings.TrimSpace(path)
	if p == "$" {
		return []any{root}, root != nil
	}
	if p == "" || !strings.HasPrefix(p, "$.") {
		return nil, false
	}
	parts := strings.Split(strings.TrimPrefix(p, "$."), ".")
	return collectPathValues(root, parts)
}

// GetIntByPath reads integer values by path and sums matched values.
func GetIntByPath(root map[string]any, path string) int {
	vals, ok := Lookup(root, path)
	if !ok {
		return 0
	}
	sum := 0
	for _, v := range vals {
		sum += CoerceInt(v)
	}
	return sum
}

// GetStringByPath returns the first non-empty string matched by path.
func GetStringByPath(root map[string]any, path string) string {
	vals, ok := Lookup(root, path)
	if !ok {
		return ""
	}
	for _, v := range vals {
		if s := CoerceString(v); s != "" {
			return s
		}
	}
	return ""
}

// GetStringsByPath returns every string matched by path. Non-string matches are skipped.
func GetStringsByPath(root map[string]any, path string) []string {
	vals, ok := Lookup(root, path)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// GetFloatMatrixByPath returns each matched array as a float vector,
// e.g. $.data[*].embedding on an embeddings reply.
func GetFloatMatrixByPath(root map[string]any, path string) ([][]float64, bool) {
	vals, ok := Lookup(root, path)
	if !ok {
		return nil, false
	}
	out := make([][]float64, 0, len(vals))
	for _, v := range vals {
		arr, ok := v.([]any)
		if !ok {
			return nil, false
		}
		vec := make([]float64, len(arr))
		for i, x := range arr {
			f, ok := CoerceFloat(x)
			if !ok {
				return nil, false
			}
			vec[i] = f
		}
		out = append(out, vec)
	}
	return out, true
}

func collectPathValues(cur any, parts []string) ([]any, bool) {
	if len(parts) == 0 {
		return []any{cur}, true
	}
	part := strings.TrimSpace(parts[0])
	if part == "" {
		return nil, false
	}
	name, idx, hasIdx, isStar := splitIndex(part)
	if name != "" {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := m[name]
		if !ok {
			return nil, false
		}
		cur = next
	}
	rest := parts[1:]
	if !hasIdx {
		return collectPathValues(cur, rest)
	}
	arr, ok := cur.([]any)
	if !ok {
		return nil, false
	}
	if isStar {
		out := make([]any, 0, len(arr))
		if len(rest) == 0 {
			out = append(out, arr...)
			return out, true
		}
		for _, item := range arr {
			vals, ok := collectPathValues(item, rest)
			if !ok {
				continue
			}
			out = append(out, vals...)
		}
		return out, true
	}
	if idx < 0 || idx >= len(arr) {
		return nil, false
	}
	return collectPathValues(arr[idx], rest)
}

func splitIndex(s string) (name string, idx int, hasIdx bool, isStar bool) {
	open := strings.IndexByte(s, '[')
	if open < 0 {
		return s, 0, false, false
	}
	close := strings.IndexByte(s, ']')
	if close < 0 || close < open {
		return s, 0, false, false
	}
	name = s[:open]
	inner := strings.TrimSpace(s[open+1 : close])
	if inner == "*" {
		return name, 0, true, true
	}
	n, err := strconv.Atoi(inner)
	if err != nil {
		return name, 0, false, false
	}
	return name, n, true, false
}
