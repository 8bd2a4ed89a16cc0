package conveyor

import (
	"fmt"
	"strconv"
)

// Args are the arguments bound to a stage or a hook when it is added.
// Portable conveyors carry them as JSON and get every value back with its
// bound type (see MarshalJSON). The accessors also accept the plain shapes
// of untyped JSON (float64 numbers, []any lists).
type Args struct {
	Positional []any          `json:"positional,omitempty"`
	Named      map[string]any `json:"named,omitempty"`
}

// IsZero reports whether no arguments are bound.
func (a Args) IsZero() bool {
	return len(a.Positional) == 0 && len(a.Named) == 0
}

// At returns the positional argument at i.
func (a Args) At(i int) (any, bool) {
	if i < 0 || i >= len(a.Positional) {
		return nil, false
	}
	return a.Positional[i], true
}

// String returns the positional argument at i as text, or "" when missing.
func (a Args) String(i int) string {
	v, ok := a.At(i)
	if !ok {
		return ""
	}
	return toString(v)
}

// Lookup returns the named argument key.
func (a Args) Lookup(key string) (any, bool) {
	v, ok := a.Named[key]
	return v, ok
}

// NamedString returns the named argument key as text.
func (a Args) NamedString(key, def string) string {
	v, ok := a.Lookup(key)
	if !ok || v == nil {
		return def
	}
	return toString(v)
}

// NamedBool returns the named argument key as a bool.
func (a Args) NamedBool(key string, def bool) bool {
	v, ok := a.Lookup(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return def
		}
		return parsed
	}
	return def
}

// NamedInt returns the named argument key as an int.
func (a Args) NamedInt(key string, def int) int {
	v, ok := a.Lookup(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case int32:
		return int(n)
	case uint:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return def
		}
		return parsed
	}
	return def
}

// NamedStrings returns the named argument key as a list of strings. A single
// string is returned as a one-element list.
func (a Args) NamedStrings(key string) []string {
	v, ok := a.Lookup(key)
	if !ok || v == nil {
		return nil
	}
	switch l := v.(type) {
	case []string:
		return append([]string(nil), l...)
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			out = append(out, toString(item))
		}
		return out
	case string:
		return []string{l}
	}
	return nil
}

// NamedMap returns the named argument key as a string map.
func (a Args) NamedMap(key string) map[string]string {
	v, ok := a.Lookup(key)
	if !ok || v == nil {
		return nil
	}
	switch m := v.(type) {
	case map[string]string:
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = toString(val)
		}
		return out
	}
	return nil
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
