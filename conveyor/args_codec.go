package conveyor

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// argsWire is the JSON form of Args. Types records, by JSON pointer, the Go
// type of every value plain JSON decoding would not give back: integers,
// float32, []byte, []string and map[string]string.
type argsWire struct {
	Positional []any             `json:"positional,omitempty"`
	Named      map[string]any    `json:"named,omitempty"`
	Types      map[string]string `json:"types,omitempty"`
}

// MarshalJSON encodes a with the type information needed to decode every
// value to the type it was bound with. Values other than nil, bool,
// numbers, strings, []byte, []string, map[string]string, []any and
// map[string]any are rejected.
func (a Args) MarshalJSON() ([]byte, error) {
	types := make(map[string]string)
	for i, v := range a.Positional {
		if err := collectTypes("/positional/"+strconv.Itoa(i), v, types); err != nil {
			return nil, err
		}
	}
	for k, v := range a.Named {
		if err := collectTypes("/named/"+pointerToken(k), v, types); err != nil {
			return nil, err
		}
	}
	w := argsWire{Positional: a.Positional, Named: a.Named}
	if len(types) > 0 {
		w.Types = types
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a, restoring recorded types. Input without type
// information decodes to the plain JSON shapes.
func (a *Args) UnmarshalJSON(data []byte) error {
	var w argsWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return err
	}
	for i, v := range w.Positional {
		r, err := restoreValue("/positional/"+strconv.Itoa(i), v, w.Types)
		if err != nil {
			return err
		}
		w.Positional[i] = r
	}
	for k, v := range w.Named {
		r, err := restoreValue("/named/"+pointerToken(k), v, w.Types)
		if err != nil {
			return err
		}
		w.Named[k] = r
	}
	a.Positional, a.Named = w.Positional, w.Named
	return nil
}

func collectTypes(path string, v any, types map[string]string) error {
	switch x := v.(type) {
	case nil, bool, string, float64:
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		types[path] = fmt.Sprintf("%T", x)
	case []byte:
		types[path] = "bytes"
	case []string:
		types[path] = "[]string"
	case map[string]string:
		types[path] = "map[string]string"
	case []any:
		for i, item := range x {
			if err := collectTypes(path+"/"+strconv.Itoa(i), item, types); err != nil {
				return err
			}
		}
	case map[string]any:
		for k, item := range x {
			if err := collectTypes(path+"/"+pointerToken(k), item, types); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("argument %s has unsupported type %T", path, v)
	}
	return nil
}

func restoreValue(path string, v any, types map[string]string) (any, error) {
	t := types[path]
	switch x := v.(type) {
	case nil:
		switch t {
		case "bytes":
			return []byte(nil), nil
		case "[]string":
			return []string(nil), nil
		case "map[string]string":
			return map[string]string(nil), nil
		}
		return nil, nil
	case json.Number:
		return restoreNumber(path, x, t)
	case string:
		if t == "bytes" {
			return base64.StdEncoding.DecodeString(x)
		}
		return x, nil
	case []any:
		if t == "[]string" {
			out := make([]string, len(x))
			for i, item := range x {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("argument %s/%d is not a string", path, i)
				}
				out[i] = s
			}
			return out, nil
		}
		for i, item := range x {
			r, err := restoreValue(path+"/"+strconv.Itoa(i), item, types)
			if err != nil {
				return nil, err
			}
			x[i] = r
		}
		return x, nil
	case map[string]any:
		if t == "map[string]string" {
			out := make(map[string]string, len(x))
			for k, item := range x {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("argument %s/%s is not a string", path, k)
				}
				out[k] = s
			}
			return out, nil
		}
		for k, item := range x {
			r, err := restoreValue(path+"/"+pointerToken(k), item, types)
			if err != nil {
				return nil, err
			}
			x[k] = r
		}
		return x, nil
	}
	return v, nil
}

func restoreNumber(path string, n json.Number, t string) (any, error) {
	s := n.String()
	var (
		v   any
		err error
	)
	switch t {
	case "":
		v, err = n.Float64()
	case "float32":
		var f float64
		f, err = strconv.ParseFloat(s, 32)
		v = float32(f)
	case "int", "int8", "int16", "int32", "int64":
		var i int64
		i, err = strconv.ParseInt(s, 10, bits(t))
		switch t {
		case "int":
			v = int(i)
		case "int8":
			v = int8(i)
		case "int16":
			v = int16(i)
		case "int32":
			v = int32(i)
		default:
			v = i
		}
	case "uint", "uint8", "uint16", "uint32", "uint64":
		var u uint64
		u, err = strconv.ParseUint(s, 10, bits(t))
		switch t {
		case "uint":
			v = uint(u)
		case "uint8":
			v = uint8(u)
		case "uint16":
			v = uint16(u)
		case "uint32":
			v = uint32(u)
		default:
			v = u
		}
	default:
		return nil, fmt.Errorf("argument %s has unknown type %q", path, t)
	}
	if err != nil {
		return nil, fmt.Errorf("argument %s: %w", path, err)
	}
	return v, nil
}

// bits returns the bit size of an integer type name; 0 means int or uint.
func bits(t string) int {
	for _, size := range []string{"8", "16", "32", "64"} {
		if strings.HasSuffix(t, size) {
			n, _ := strconv.Atoi(size)
			return n
		}
	}
	return 0
}

// pointerToken escapes a key for use in a JSON pointer.
func pointerToken(k string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(k)
}
