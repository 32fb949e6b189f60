package pathdb

import (
	"reflect"
	"testing"
)

func setup(t testing.TB) *Collection {
	t.Helper()
	c := must(Open(Options{Name: "test", InMemory: true}))
	t.Cleanup(func() { c.Close() })
	return c
}

func setupDisk(t testing.TB, name string) *Collection {
	t.Helper()
	dir := t.TempDir()
	c := must(Open(Options{Name: name, DataDir: dir, Storage: StorageOptions{NoSync: true}}))
	t.Cleanup(func() { c.Close() })
	return c
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func eq[T comparable](t testing.TB, a, e T) {
	if a != e {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func ok(t testing.TB, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("** unexpected error: %v", err)
	}
}

func failsWith(t testing.TB, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("** expected a %v error, got nil", kind)
	}
	if KindOf(err) != kind {
		t.Fatalf("** expected a %v error, got: %v", kind, err)
	}
}

func TestSanitizeName(t *testing.T) {
	for _, name := range []string{"users", "my-stuff", "Настройки", "a.b"} {
		if _, err := sanitizeName(name); err != nil {
			t.Errorf("sanitizeName(%q) = %v, wanted ok", name, err)
		}
	}
	for _, name := range []string{"", "  ", "a/b", `a\b`, "..", "con", "NUL", "lpt3", "a:b", "a|b"} {
		if _, err := sanitizeName(name); err == nil {
			t.Errorf("sanitizeName(%q) succeeded, wanted an error", name)
		}
	}
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	opt := Options{Name: "persist", DataDir: dir, Storage: StorageOptions{NoSync: true}}

	c := must(Open(opt))
	ok(t, c.Set("greeting", "hello"))
	ok(t, c.Close())

	c = must(Open(opt))
	defer c.Close()
	v, found, err := c.Get("greeting")
	ok(t, err)
	eq(t, found, true)
	deepEqual[any](t, v, "hello")
}

func TestTransient(t *testing.T) {
	opt := Options{Name: "ghost", InMemory: true}

	c := must(Open(opt))
	ok(t, c.Set("k", "v"))
	ok(t, c.Close())

	c = must(Open(opt))
	defer c.Close()
	_, found, err := c.Get("k")
	ok(t, err)
	eq(t, found, false)
}

func TestClosedCollection(t *testing.T) {
	c := must(Open(Options{Name: "closing", InMemory: true}))
	ok(t, c.Set("k", "v"))
	ok(t, c.Close())
	ok(t, c.Close()) // second close is a no-op

	err := c.Set("k", "w")
	failsWith(t, err, KindStorageClosed)
	_, _, err = c.Get("k")
	failsWith(t, err, KindStorageClosed)
}

func TestMulti(t *testing.T) {
	dir := t.TempDir()
	cols := must(Multi([]string{"users", "scores", "config"}, Options{DataDir: dir, Storage: StorageOptions{NoSync: true}}))
	eq(t, len(cols), 3)
	for name, c := range cols {
		eq(t, c.Name(), name)
		ok(t, c.Set("probe", name))
		defer c.Close()
	}
	v, _, err := cols["scores"].Get("probe")
	ok(t, err)
	deepEqual[any](t, v, "scores")
}

func TestMultiBadName(t *testing.T) {
	_, err := Multi([]string{"good", "bad/name"}, Options{InMemory: true})
	if err == nil {
		t.Fatalf("expected an error for an unsafe name")
	}
}

func TestDefaultDataDirUsed(t *testing.T) {
	// Not creating ./data in tests; just make sure an explicit dir wins.
	c := setupDisk(t, "dirtest")
	eq(t, c.Name(), "dirtest")
}
