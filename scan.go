package pathdb

import (
	"math/rand"
)

// Predicate decides whether an entry matches.
type Predicate func(value any, key string) bool

// Mapper projects an entry to a result.
type Mapper func(value any, key string) any

// Reducer folds an entry into an accumulator.
type Reducer func(acc, value any, key string) any

// Entry is a key-value pair, as enumerated.
type Entry struct {
	Key   string
	Value any
}

// scan streams decoded entries in key order inside one read transaction,
// stopping early when fn says so. Nothing is materialized.
func (c *Collection) scan(fn func(key string, value any) (stop bool, err error)) error {
	return c.view(func(tx storageTx) error {
		cur := c.data(tx).Cursor()
		for k, raw := cur.First(); k != nil; k, raw = cur.Next() {
			key := string(k)
			v, err := c.codec.decode(raw, key)
			if err != nil {
				return withKey(err, key)
			}
			stop, err := fn(key, v)
			if err != nil || stop {
				return err
			}
		}
		return nil
	})
}

// pathPredicate matches entries whose value at path is structurally equal to
// want. Entries where the path does not resolve (including shape mismatches)
// simply don't match.
func pathPredicate(path string, want any) (Predicate, error) {
	steps := parsePath(path)
	nw, err := normalizeValue(want)
	if err != nil {
		return nil, err
	}
	return func(value any, key string) bool {
		node, err := pathGet(value, steps)
		return err == nil && valueEqual(node, nw)
	}, nil
}

// Each streams every entry through fn in enumeration order until fn returns
// false. The enumeration order is deterministic while no writes intervene.
func (c *Collection) Each(fn func(key string, value any) bool) error {
	return c.scan(func(key string, value any) (bool, error) {
		return !fn(key, value), nil
	})
}

// Keys returns every key in enumeration order.
func (c *Collection) Keys() ([]string, error) {
	var out []string
	err := c.view(func(tx storageTx) error {
		cur := c.data(tx).Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			out = append(out, string(k))
		}
		return nil
	})
	return out, err
}

// Values returns every value in enumeration order.
func (c *Collection) Values() ([]any, error) {
	var out []any
	err := c.scan(func(key string, value any) (bool, error) {
		out = append(out, value)
		return false, nil
	})
	return out, err
}

// Entries returns every key-value pair in enumeration order.
func (c *Collection) Entries() ([]Entry, error) {
	var out []Entry
	err := c.scan(func(key string, value any) (bool, error) {
		out = append(out, Entry{key, value})
		return false, nil
	})
	return out, err
}

// Find returns the first entry matching fn, short-circuiting on the match.
func (c *Collection) Find(fn Predicate) (any, bool, error) {
	var out any
	var found bool
	err := c.scan(func(key string, value any) (bool, error) {
		if fn(value, key) {
			out, found = value, true
			return true, nil
		}
		return false, nil
	})
	return out, found, err
}

// FindAt returns the first entry whose value at path equals want.
func (c *Collection) FindAt(path string, want any) (any, bool, error) {
	p, err := pathPredicate(path, want)
	if err != nil {
		return nil, false, err
	}
	return c.Find(p)
}

// FindKey is Find returning the key of the match instead of the value.
func (c *Collection) FindKey(fn Predicate) (string, bool, error) {
	var out string
	var found bool
	err := c.scan(func(key string, value any) (bool, error) {
		if fn(value, key) {
			out, found = key, true
			return true, nil
		}
		return false, nil
	})
	return out, found, err
}

// FindKeyAt is FindAt returning the key of the match instead of the value.
func (c *Collection) FindKeyAt(path string, want any) (string, bool, error) {
	p, err := pathPredicate(path, want)
	if err != nil {
		return "", false, err
	}
	return c.FindKey(p)
}

// Filter returns every value matching fn, in enumeration order.
func (c *Collection) Filter(fn Predicate) ([]any, error) {
	var out []any
	err := c.scan(func(key string, value any) (bool, error) {
		if fn(value, key) {
			out = append(out, value)
		}
		return false, nil
	})
	return out, err
}

// FilterAt returns every value whose node at path equals want.
func (c *Collection) FilterAt(path string, want any) ([]any, error) {
	p, err := pathPredicate(path, want)
	if err != nil {
		return nil, err
	}
	return c.Filter(p)
}

// Map projects every entry through fn, in enumeration order.
func (c *Collection) Map(fn Mapper) ([]any, error) {
	var out []any
	err := c.scan(func(key string, value any) (bool, error) {
		out = append(out, fn(value, key))
		return false, nil
	})
	return out, err
}

// MapAt projects every entry to its value at path; entries where the path
// does not resolve project to nil.
func (c *Collection) MapAt(path string) ([]any, error) {
	steps := parsePath(path)
	return c.Map(func(value any, key string) any {
		node, err := pathGet(value, steps)
		if err != nil {
			return nil
		}
		return node
	})
}

// Reduce left-folds every entry into an accumulator in enumeration order.
// Without an initial value, the first entry's value seeds the fold; a
// seedless reduce over zero entries fails with KindEmptyCollection.
func (c *Collection) Reduce(fn Reducer, initial ...any) (any, error) {
	var acc any
	seeded := len(initial) > 0
	if seeded {
		acc = initial[0]
	}
	err := c.scan(func(key string, value any) (bool, error) {
		if !seeded {
			acc, seeded = value, true
			return false, nil
		}
		acc = fn(acc, value, key)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if !seeded {
		return nil, opErrf(KindEmptyCollection, "", "", nil, "reduce of an empty collection with no initial value")
	}
	return acc, nil
}

// Every reports whether every entry matches fn, short-circuiting on the
// first mismatch. An empty collection reports true.
func (c *Collection) Every(fn Predicate) (bool, error) {
	out := true
	err := c.scan(func(key string, value any) (bool, error) {
		if !fn(value, key) {
			out = false
			return true, nil
		}
		return false, nil
	})
	return out, err
}

// EveryAt reports whether every entry's value at path equals want.
func (c *Collection) EveryAt(path string, want any) (bool, error) {
	p, err := pathPredicate(path, want)
	if err != nil {
		return false, err
	}
	return c.Every(p)
}

// Some reports whether any entry matches fn, short-circuiting on the first
// match.
func (c *Collection) Some(fn Predicate) (bool, error) {
	out := false
	err := c.scan(func(key string, value any) (bool, error) {
		if fn(value, key) {
			out = true
			return true, nil
		}
		return false, nil
	})
	return out, err
}

// SomeAt reports whether any entry's value at path equals want.
func (c *Collection) SomeAt(path string, want any) (bool, error) {
	p, err := pathPredicate(path, want)
	if err != nil {
		return false, err
	}
	return c.Some(p)
}

// Sweep deletes every entry matching fn and returns the number removed, all
// in one transaction.
func (c *Collection) Sweep(fn Predicate) (int, error) {
	var n int
	err := c.update(func(tx storageTx) error {
		cur := c.data(tx).Cursor()
		for k, raw := cur.First(); k != nil; k, raw = cur.Next() {
			key := string(k)
			v, err := c.codec.decode(raw, key)
			if err != nil {
				return withKey(err, key)
			}
			if fn(v, key) {
				if err := cur.Delete(); err != nil {
					return opErrf(KindStorageIO, key, "", err, "deleting swept key")
				}
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// SweepAt deletes every entry whose value at path equals want.
func (c *Collection) SweepAt(path string, want any) (int, error) {
	p, err := pathPredicate(path, want)
	if err != nil {
		return 0, err
	}
	return c.Sweep(p)
}

// Partition splits the values into those matching fn and those not, in one
// pass and in enumeration order.
func (c *Collection) Partition(fn Predicate) (matching, rest []any, err error) {
	err = c.scan(func(key string, value any) (bool, error) {
		if fn(value, key) {
			matching = append(matching, value)
		} else {
			rest = append(rest, value)
		}
		return false, nil
	})
	return matching, rest, err
}

// PartitionAt splits the values by equality of their node at path with want.
func (c *Collection) PartitionAt(path string, want any) (matching, rest []any, err error) {
	p, err := pathPredicate(path, want)
	if err != nil {
		return nil, nil, err
	}
	return c.Partition(p)
}

// Random returns up to n values sampled without replacement.
func (c *Collection) Random(n int) ([]any, error) {
	keys, err := c.RandomKey(n)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		v, ok, err := c.Get(k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// RandomKey returns up to n keys sampled without replacement.
func (c *Collection) RandomKey(n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	keys, err := c.Keys()
	if err != nil {
		return nil, err
	}
	if n > len(keys) {
		n = len(keys)
	}
	out := make([]string, 0, n)
	for _, i := range rand.Perm(len(keys))[:n] {
		out = append(out, keys[i])
	}
	return out, nil
}
