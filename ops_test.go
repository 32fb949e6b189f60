package pathdb

import (
	"math"
	"testing"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := setup(t)

	ok(t, c.Set("simplevalue", "this is a string"))
	v, found, err := c.Get("simplevalue")
	ok(t, err)
	eq(t, found, true)
	deepEqual(t, v, any("this is a string"))

	ok(t, c.Set("num", 42))
	v, _, err = c.Get("num")
	ok(t, err)
	deepEqual(t, v, any(float64(42)))

	ok(t, c.Set("obj", map[string]any{"a": 1, "b": []any{true, nil}}))
	v, _, err = c.Get("obj")
	ok(t, err)
	deepEqual[any](t, v, map[string]any{"a": float64(1), "b": []any{true, nil}})
}

func TestGetMissingIsNotAnError(t *testing.T) {
	c := setup(t)
	v, found, err := c.Get("neverSetKey")
	ok(t, err)
	eq(t, found, false)
	deepEqual(t, v, any(nil))
}

func TestIntegerKeys(t *testing.T) {
	c := setup(t)
	ok(t, c.Set(42, "answer"))
	v, found, err := c.Get("42")
	ok(t, err)
	eq(t, found, true)
	deepEqual(t, v, any("answer"))

	_, _, err = c.Get(3.5)
	failsWith(t, err, KindKeyType)
	failsWith(t, c.Set(true, "x"), KindKeyType)
}

func TestSetAtPreservesSiblings(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("doc", map[string]any{"keep": "me", "sub": map[string]any{"a": 1, "b": 2}}))

	ok(t, c.SetAt("doc", "sub.a", 10))

	v, _, err := c.GetAt("doc", "sub.a")
	ok(t, err)
	deepEqual(t, v, any(float64(10)))

	v, _, err = c.GetAt("doc", "sub.b")
	ok(t, err)
	deepEqual(t, v, any(float64(2)))

	v, _, err = c.GetAt("doc", "keep")
	ok(t, err)
	deepEqual(t, v, any("me"))
}

func TestSetAtOnNewKey(t *testing.T) {
	c := setup(t)

	// first segment non-numeric: starts from an empty mapping
	ok(t, c.SetAt("fresh", "a.b", "deep"))
	v, _, err := c.Get("fresh")
	ok(t, err)
	deepEqual[any](t, v, map[string]any{"a": map[string]any{"b": "deep"}})

	// first segment numeric: starts from an empty list
	ok(t, c.SetAt("freshlist", "[1]", "x"))
	v, _, err = c.Get("freshlist")
	ok(t, err)
	deepEqual[any](t, v, []any{nil, "x"})
}

func TestGetAtMissingPath(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("doc", map[string]any{"a": 1}))

	_, found, err := c.GetAt("doc", "b.c")
	ok(t, err)
	eq(t, found, false)

	// traversing into a primitive is an error, not a sentinel
	ok(t, c.Set("s", "just a string"))
	_, _, err = c.GetAt("s", "a.b")
	failsWith(t, err, KindNotIndexable)
}

func TestStrictPaths(t *testing.T) {
	c := must(Open(Options{Name: "strict", InMemory: true, StrictPaths: true}))
	t.Cleanup(func() { c.Close() })

	ok(t, c.Set("doc", map[string]any{"a": 1}))
	failsWith(t, c.SetAt("doc", "b.c", "x"), KindPathNotFound)

	// writing a new final key on an existing mapping is still fine
	ok(t, c.SetAt("doc", "b", "x"))
}

func TestHas(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("doc", map[string]any{"a": map[string]any{"b": 1}}))

	found, err := c.Has("doc")
	ok(t, err)
	eq(t, found, true)

	found, err = c.Has("nope")
	ok(t, err)
	eq(t, found, false)

	found, err = c.HasAt("doc", "a.b")
	ok(t, err)
	eq(t, found, true)

	found, err = c.HasAt("doc", "a.z")
	ok(t, err)
	eq(t, found, false)

	// Has never creates anything
	found, err = c.HasAt("doc", "a.z")
	ok(t, err)
	eq(t, found, false)
}

func TestDeleteIdempotent(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("k", "v"))
	ok(t, c.Delete("k"))
	ok(t, c.Delete("k")) // second delete is a no-op

	_, found, err := c.Get("k")
	ok(t, err)
	eq(t, found, false)
}

func TestDeleteAt(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("doc", map[string]any{"a": 1, "b": 2}))

	ok(t, c.DeleteAt("doc", "a"))
	v, _, err := c.Get("doc")
	ok(t, err)
	deepEqual[any](t, v, map[string]any{"b": float64(2)})

	// absent key short-circuits to a no-op
	ok(t, c.DeleteAt("ghost", "a.b"))

	// missing path on an existing key fails
	failsWith(t, c.DeleteAt("doc", "zzz"), KindPathNotFound)

	// empty path removes the whole key
	ok(t, c.DeleteAt("doc", ""))
	_, found, err := c.Get("doc")
	ok(t, err)
	eq(t, found, false)
}

func TestEnsure(t *testing.T) {
	c := setup(t)

	v, err := c.Ensure("k", "first")
	ok(t, err)
	deepEqual(t, v, any("first"))

	// the second call returns the stored value, not the new default
	v, err = c.Ensure("k", "second")
	ok(t, err)
	deepEqual(t, v, any("first"))

	v, err = c.EnsureAt("doc", "settings.volume", 11)
	ok(t, err)
	deepEqual(t, v, any(float64(11)))
	v, err = c.EnsureAt("doc", "settings.volume", 99)
	ok(t, err)
	deepEqual(t, v, any(float64(11)))
}

func TestAutoEnsure(t *testing.T) {
	def := map[string]any{"score": 0, "tags": []any{}}
	c := must(Open(Options{Name: "auto", InMemory: true, AutoEnsure: def}))
	t.Cleanup(func() { c.Close() })

	v, found, err := c.Get("newbie")
	ok(t, err)
	eq(t, found, true)
	deepEqual[any](t, v, map[string]any{"score": float64(0), "tags": []any{}})

	// the ensured value persists and mutates like any other
	_, err = c.IncAt("newbie", "score")
	ok(t, err)
	v, _, err = c.GetAt("newbie", "score")
	ok(t, err)
	deepEqual(t, v, any(float64(1)))
}

func TestPushNoDupes(t *testing.T) {
	c := setup(t)

	ok(t, c.Push("list", "a", false))
	ok(t, c.Push("list", "a", false)) // structurally equal: no-op
	v, _, err := c.Get("list")
	ok(t, err)
	deepEqual[any](t, v, []any{"a"})

	ok(t, c.Push("list", "a", true))
	v, _, err = c.Get("list")
	ok(t, err)
	deepEqual[any](t, v, []any{"a", "a"})
}

func TestPushAt(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("doc", map[string]any{"tags": []any{"x"}}))

	ok(t, c.PushAt("doc", "tags", "y", false))
	v, _, err := c.GetAt("doc", "tags")
	ok(t, err)
	deepEqual[any](t, v, []any{"x", "y"})

	// a missing list is created
	ok(t, c.PushAt("doc", "deep.fresh", 1, false))
	v, _, err = c.GetAt("doc", "deep.fresh")
	ok(t, err)
	deepEqual[any](t, v, []any{float64(1)})

	failsWith(t, c.PushAt("doc", "tags[0]", "z", false), KindNotAList)
}

func TestRemove(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("arr", []any{1, 2, 3, 4}))

	ok(t, c.Remove("arr", 2))
	v, _, err := c.Get("arr")
	ok(t, err)
	deepEqual[any](t, v, []any{float64(1), float64(3), float64(4)})

	// no match is not an error
	ok(t, c.Remove("arr", 99))

	failsWith(t, c.Remove("ghost", 1), KindPathNotFound)
}

func TestRemoveFunc(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("arr", []any{"keep", "drop", "drop"}))

	ok(t, c.RemoveFunc("arr", "", func(v any) bool { return v == "drop" }))
	v, _, err := c.Get("arr")
	ok(t, err)
	deepEqual[any](t, v, []any{"keep", "drop"}) // at most one element
}

func TestIncludes(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("arr", []any{1, map[string]any{"a": 1}}))

	found, err := c.Includes("arr", 1)
	ok(t, err)
	eq(t, found, true)

	found, err = c.Includes("arr", map[string]any{"a": 1})
	ok(t, err)
	eq(t, found, true)

	found, err = c.Includes("arr", 9)
	ok(t, err)
	eq(t, found, false)

	found, err = c.Includes("ghost", 1)
	ok(t, err)
	eq(t, found, false)
}

func TestMath(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("n", 10))

	v, err := c.Math("n", "+", 32)
	ok(t, err)
	eq(t, v, float64(42))

	v, err = c.Math("n", "subtract", 32)
	ok(t, err)
	eq(t, v, float64(10))

	v, err = c.Math("n", "^", 2)
	ok(t, err)
	eq(t, v, float64(100))

	v, err = c.Math("n", "mod", 7)
	ok(t, err)
	eq(t, v, float64(2))

	_, err = c.Math("n", "frobnicate", 1)
	failsWith(t, err, KindNotANumber)
}

func TestMathAddSubRestores(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("n", 123.25))
	_, err := c.Math("n", "+", 17.5)
	ok(t, err)
	v, err := c.Math("n", "-", 17.5)
	ok(t, err)
	eq(t, v, float64(123.25))
}

func TestMathDivisionByZero(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("n", 10))

	v, err := c.Math("n", "/", 0)
	ok(t, err)
	if !math.IsInf(v, 1) {
		t.Errorf("10/0 = %v, wanted +Inf", v)
	}

	ok(t, c.Set("z", 0))
	v, err = c.Math("z", "/", 0)
	ok(t, err)
	if !math.IsNaN(v) {
		t.Errorf("0/0 = %v, wanted NaN", v)
	}
}

func TestMathErrors(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("s", "not a number"))
	_, err := c.Math("s", "+", 1)
	failsWith(t, err, KindNotANumber)

	_, err = c.Math("ghost", "+", 1)
	failsWith(t, err, KindPathNotFound)
}

func TestIncDecNested(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("nested", map[string]any{"sub": map[string]any{"anInt": 5}}))

	v, err := c.IncAt("nested", "sub.anInt")
	ok(t, err)
	eq(t, v, float64(6))

	got, _, err := c.GetAt("nested", "sub.anInt")
	ok(t, err)
	deepEqual(t, got, any(float64(6)))

	v, err = c.DecAt("nested", "sub.anInt")
	ok(t, err)
	eq(t, v, float64(5))
}

func TestUpdateMerge(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("obj", map[string]any{"a": 1, "b": 2, "c": 3}))

	_, err := c.Update("obj", map[string]any{"d": 4})
	ok(t, err)
	v, _, err := c.Get("obj")
	ok(t, err)
	deepEqual[any](t, v, map[string]any{"a": float64(1), "b": float64(2), "c": float64(3), "d": float64(4)})

	// nested mappings merge, lists replace wholesale
	ok(t, c.Set("deep", map[string]any{"sub": map[string]any{"x": 1}, "list": []any{1, 2}}))
	_, err = c.Update("deep", map[string]any{"sub": map[string]any{"y": 2}, "list": []any{9}})
	ok(t, err)
	v, _, err = c.Get("deep")
	ok(t, err)
	deepEqual[any](t, v, map[string]any{
		"sub":  map[string]any{"x": float64(1), "y": float64(2)},
		"list": []any{float64(9)},
	})

	ok(t, c.Set("prim", "str"))
	_, err = c.Update("prim", map[string]any{"a": 1})
	failsWith(t, err, KindNotAnObject)

	_, err = c.Update("obj", "not a map")
	failsWith(t, err, KindNotAnObject)
}

func TestUpdateFunc(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("obj", map[string]any{"count": 1}))

	v, err := c.UpdateFunc("obj", func(cur any) any {
		m := cur.(map[string]any)
		m["count"] = m["count"].(float64) + 1
		return m
	})
	ok(t, err)
	deepEqual[any](t, v, map[string]any{"count": float64(2)})

	ok(t, c.Set("prim", 5))
	_, err = c.UpdateFunc("prim", func(cur any) any { return cur })
	failsWith(t, err, KindNotAnObject)
}

func TestAutonum(t *testing.T) {
	c := setup(t)

	k1, err := c.Autonum()
	ok(t, err)
	k2, err := c.Autonum()
	ok(t, err)
	if k1 == k2 {
		t.Fatalf("autonum issued %q twice", k1)
	}

	// issued keys do not currently exist
	found, err := c.Has(k2)
	ok(t, err)
	eq(t, found, false)

	// an occupied key is skipped
	ok(t, c.Set("3", "taken"))
	ok(t, c.Set(k1, "x"))
	ok(t, c.Set(k2, "y"))
	k3, err := c.Autonum()
	ok(t, err)
	found, err = c.Has(k3)
	ok(t, err)
	eq(t, found, false)
}

func TestCountAndClear(t *testing.T) {
	c := setup(t)
	ok(t, c.Set("a", 1))
	ok(t, c.Set("b", 2))

	n, err := c.Count()
	ok(t, err)
	eq(t, n, 2)

	ok(t, c.Clear())
	n, err = c.Count()
	ok(t, err)
	eq(t, n, 0)

	_, found, err := c.Get("a")
	ok(t, err)
	eq(t, found, false)
}

func TestSerializerHooks(t *testing.T) {
	c := must(Open(Options{
		Name:     "hooked",
		InMemory: true,
		Serialize: func(v any, key string) any {
			return map[string]any{"wrapped": v}
		},
		Deserialize: func(v any, key string) any {
			return v.(map[string]any)["wrapped"]
		},
	}))
	t.Cleanup(func() { c.Close() })

	ok(t, c.Set("k", map[string]any{"a": 1}))
	v, found, err := c.Get("k")
	ok(t, err)
	eq(t, found, true)
	deepEqual[any](t, v, map[string]any{"a": float64(1)})

	// path mutation happens on the logical value, after deserialization
	ok(t, c.SetAt("k", "a", 2))
	v, _, err = c.GetAt("k", "a")
	ok(t, err)
	deepEqual(t, v, any(float64(2)))
}

func TestNotSerializableValues(t *testing.T) {
	c := setup(t)
	failsWith(t, c.Set("f", func() {}), KindNotSerializable)

	// nothing was written
	found, err := c.Has("f")
	ok(t, err)
	eq(t, found, false)
}
