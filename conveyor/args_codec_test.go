package conveyor

import (
	"encoding/json"
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kbukum/cmdflow/errors"
)

func TestArgs_JSONKeepsBoundTypes(t *testing.T) {
	in := Args{
		Positional: []any{[]byte("hi"), 3, nil},
		Named: map[string]any{
			"bytes":   []byte("hi"),
			"int":     42,
			"big":     int64(1) << 60,
			"small":   uint8(7),
			"ratio":   float32(0.25),
			"float":   1.5,
			"list":    []string{"a", "b"},
			"env":     map[string]string{"K": "V"},
			"mixed":   []any{1, "x", []byte{0x00, 0xff}},
			"nested":  map[string]any{"a/b": int32(-3), "ok": true},
			"nothing": nil,
		},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Args
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("expected arguments to survive JSON unchanged\nwant %#v\ngot  %#v", in, out)
	}
}

func TestArgs_RejectsUnsupportedTypes(t *testing.T) {
	type point struct{ X, Y int }
	for name, v := range map[string]any{
		"struct":  point{1, 2},
		"pointer": new(int),
		"map":     map[string]int{"a": 1},
		"nested":  []any{map[string]any{"p": point{}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := json.Marshal(Args{Named: map[string]any{"v": v}})
			if err == nil || !strings.Contains(err.Error(), "unsupported type") {
				t.Fatalf("expected unsupported type error, got %v", err)
			}
		})
	}
}

func TestSpec_RejectsArgumentsThatWouldChange(t *testing.T) {
	r := testRegistry()
	u, _ := r.Unit("append")
	_, err := New().AddCmdRunner(u, WithNamed(map[string]any{"when": struct{}{}})).Spec()
	if !stderrors.Is(err, errors.ErrSerialization) {
		t.Fatalf("expected serialization error, got %v", err)
	}
}
