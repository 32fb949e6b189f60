package pathdb

import (
	"testing"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", true, true},
		{"string", "s", "s"},
		{"int", 42, float64(42)},
		{"int64", int64(-7), float64(-7)},
		{"uint8", uint8(255), float64(255)},
		{"float32", float32(1.5), float64(1.5)},
		{"typed slice", []int{1, 2}, []any{float64(1), float64(2)}},
		{"typed map", map[string]int{"a": 1}, map[string]any{"a": float64(1)}},
		{"nested", map[string]any{"l": []any{map[string]any{"n": 1}}},
			map[string]any{"l": []any{map[string]any{"n": float64(1)}}}},
		{"nil typed map", map[string]int(nil), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeValue(tt.in)
			ok(t, err)
			deepEqual(t, got, tt.want)
		})
	}
}

func TestNormalizeValueRejects(t *testing.T) {
	_, err := normalizeValue(func() {})
	failsWith(t, err, KindNotSerializable)

	_, err = normalizeValue(make(chan int))
	failsWith(t, err, KindNotSerializable)

	_, err = normalizeValue(map[int]string{1: "x"})
	failsWith(t, err, KindNotSerializable)

	type point struct{ X, Y int }
	_, err = normalizeValue(point{1, 2})
	failsWith(t, err, KindNotSerializable)

	cyclic := map[string]any{}
	cyclic["self"] = cyclic
	_, err = normalizeValue(cyclic)
	failsWith(t, err, KindNotSerializable)
}

func TestValueEqual(t *testing.T) {
	a := map[string]any{"n": float64(1), "l": []any{"x", nil}}
	b := map[string]any{"l": []any{"x", nil}, "n": float64(1)}
	if !valueEqual(a, b) {
		t.Errorf("expected equal: %v vs %v", a, b)
	}
	if valueEqual(a, map[string]any{"n": float64(1)}) {
		t.Errorf("expected unequal on missing key")
	}
	if valueEqual(float64(1), "1") {
		t.Errorf("expected unequal across types")
	}
	if valueEqual([]any{float64(1)}, []any{float64(2)}) {
		t.Errorf("expected unequal lists")
	}
}

func TestCloneValueIsDeep(t *testing.T) {
	orig := map[string]any{"l": []any{float64(1)}, "m": map[string]any{"k": "v"}}
	c := cloneValue(orig).(map[string]any)
	c["l"].([]any)[0] = float64(9)
	c["m"].(map[string]any)["k"] = "w"
	deepEqual[any](t, orig["l"], []any{float64(1)})
	deepEqual[any](t, orig["m"], map[string]any{"k": "v"})
}

func TestMergeValues(t *testing.T) {
	dst := map[string]any{
		"a": float64(1),
		"b": float64(2),
		"nested": map[string]any{
			"x": "keep",
			"y": "old",
		},
		"list": []any{float64(1), float64(2)},
	}
	src := map[string]any{
		"b": float64(20),
		"c": float64(3),
		"nested": map[string]any{
			"y": "new",
			"z": "add",
		},
		"list": []any{float64(9)},
	}
	out := mergeValues(dst, src)
	deepEqual[any](t, out, map[string]any{
		"a": float64(1),
		"b": float64(20),
		"c": float64(3),
		"nested": map[string]any{
			"x": "keep",
			"y": "new",
			"z": "add",
		},
		// lists are atomic: replaced, never merged index-wise
		"list": []any{float64(9)},
	})
	// inputs untouched
	deepEqual[any](t, dst["b"], float64(2))
	deepEqual[any](t, src["nested"], map[string]any{"y": "new", "z": "add"})
}
