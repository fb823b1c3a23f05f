package task

import "strings"

// Helpers for writing total Normalize functions. All of them accept any
// shape of input, including nil, and degrade to the provided default.

// Obj coerces parsed JSON to an object. Returns an empty map for nil or
// non-object input so field lookups below never nil-deref.
func Obj(parsed any) map[string]any {
	if m, ok := parsed.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Str returns the string at key, or def when absent, empty, or not a
// string.
func Str(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return def
}

// StrSlice returns the string elements of the array at key. Non-string
// elements are skipped; absent or malformed values yield an empty slice,
// never nil, so results always marshal as [].
func StrSlice(m map[string]any, key string) []string {
	out := []string{}
	arr, ok := m[key].([]any)
	if !ok {
		return out
	}
	for _, el := range arr {
		if s, ok := el.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Num returns the number at key clamped to [min, max], or def when the
// value is absent or not numeric. JSON numbers decode as float64.
func Num(m map[string]any, key string, def, min, max float64) float64 {
	v, ok := m[key].(float64)
	if !ok {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Bool returns the boolean at key, or def when absent or not a boolean.
func Bool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

// Limit clips a slice to at most n elements.
func Limit[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
