package pathdb

import (
	"encoding/binary"
	"errors"
	"math"
	"strconv"
)

// keyString normalizes a key to its stored form. Keys must be strings or
// integers; anything else fails with KindKeyType.
func keyString(key any) (string, error) {
	switch k := key.(type) {
	case string:
		return k, nil
	case int:
		return strconv.Itoa(k), nil
	case int8:
		return strconv.FormatInt(int64(k), 10), nil
	case int16:
		return strconv.FormatInt(int64(k), 10), nil
	case int32:
		return strconv.FormatInt(int64(k), 10), nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case uint:
		return strconv.FormatUint(uint64(k), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(k), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(k), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(k), 10), nil
	case uint64:
		return strconv.FormatUint(k, 10), nil
	}
	return "", opErrf(KindKeyType, "", "", nil, "key must be a string or an integer, not %T", key)
}

func withKey(err error, key string) error {
	var e *Error
	if errors.As(err, &e) && e.Key == "" {
		e.Key = key
	}
	return err
}

func (c *Collection) fetch(tx storageTx, key string) (any, bool, error) {
	raw := c.data(tx).Get([]byte(key))
	if raw == nil {
		return nil, false, nil
	}
	v, err := c.codec.decode(raw, key)
	if err != nil {
		return nil, false, withKey(err, key)
	}
	return v, true, nil
}

func (c *Collection) store(tx storageTx, key string, v any) error {
	raw, err := c.codec.encode(v, key)
	if err != nil {
		return withKey(err, key)
	}
	if err := c.data(tx).Put([]byte(key), raw); err != nil {
		return opErrf(KindStorageIO, key, "", err, "writing value")
	}
	return nil
}

// Get returns the value stored under key. A missing key is reported via the
// second return value, not an error, unless AutoEnsure is configured, in
// which case the default is ensured and returned.
func (c *Collection) Get(key any) (any, bool, error) {
	return c.GetAt(key, "")
}

// GetAt returns the value at path inside the value stored under key.
// An empty path addresses the whole value. Both a missing key and a
// non-resolving path report absence, not an error.
func (c *Collection) GetAt(key any, path string) (any, bool, error) {
	ks, err := keyString(key)
	if err != nil {
		return nil, false, err
	}
	if c.autoEnsure != nil {
		if _, err := c.ensureAt(ks, nil, cloneValue(c.autoEnsure)); err != nil {
			return nil, false, err
		}
	}
	steps := parsePath(path)
	var out any
	var found bool
	err = c.view(func(tx storageTx) error {
		v, ok, err := c.fetch(tx, ks)
		if err != nil || !ok {
			return err
		}
		if len(steps) == 0 {
			out, found = v, true
			return nil
		}
		res, err := pathGet(v, steps)
		if err != nil {
			if KindOf(err) == KindPathNotFound {
				return nil
			}
			return withKey(err, ks)
		}
		out, found = res, true
		return nil
	})
	return out, found, err
}

// Set stores value under key, replacing any previous value.
func (c *Collection) Set(key, value any) error {
	return c.SetAt(key, "", value)
}

// SetAt writes value at path inside the value stored under key. Missing
// intermediate containers are created unless StrictPaths is set; a brand-new
// key starts from an empty list when the first step is numeric, an empty
// mapping otherwise.
func (c *Collection) SetAt(key any, path string, value any) error {
	ks, err := keyString(key)
	if err != nil {
		return err
	}
	nv, err := normalizeValue(value)
	if err != nil {
		return withKey(err, ks)
	}
	steps := parsePath(path)
	return c.update(func(tx storageTx) error {
		next := nv
		if len(steps) > 0 {
			cur, ok, err := c.fetch(tx, ks)
			if err != nil {
				return err
			}
			if !ok {
				cur = emptyContainer(steps[0])
			}
			next, err = pathSet(cur, steps, nv, !c.strictPaths)
			if err != nil {
				return withKey(err, ks)
			}
		}
		return c.store(tx, ks, next)
	})
}

// Has reports whether key exists.
func (c *Collection) Has(key any) (bool, error) {
	return c.HasAt(key, "")
}

// HasAt reports whether path resolves inside the value stored under key.
// It never creates anything.
func (c *Collection) HasAt(key any, path string) (bool, error) {
	ks, err := keyString(key)
	if err != nil {
		return false, err
	}
	steps := parsePath(path)
	var found bool
	err = c.view(func(tx storageTx) error {
		v, ok, err := c.fetch(tx, ks)
		if err != nil || !ok {
			return err
		}
		if len(steps) == 0 {
			found = true
			return nil
		}
		found, err = pathExists(v, steps)
		return withKey(err, ks)
	})
	return found, err
}

// Delete removes key and its value. A missing key is a no-op.
func (c *Collection) Delete(key any) error {
	ks, err := keyString(key)
	if err != nil {
		return err
	}
	return c.update(func(tx storageTx) error {
		if err := c.data(tx).Delete([]byte(ks)); err != nil {
			return opErrf(KindStorageIO, ks, "", err, "deleting key")
		}
		return nil
	})
}

// DeleteAt removes the node at path inside the value stored under key.
// A missing key short-circuits to a no-op; a missing path on an existing key
// fails with KindPathNotFound. An empty path removes the whole key.
func (c *Collection) DeleteAt(key any, path string) error {
	steps := parsePath(path)
	if len(steps) == 0 {
		return c.Delete(key)
	}
	ks, err := keyString(key)
	if err != nil {
		return err
	}
	return c.update(func(tx storageTx) error {
		cur, ok, err := c.fetch(tx, ks)
		if err != nil || !ok {
			return err
		}
		next, err := pathDelete(cur, steps)
		if err != nil {
			return withKey(err, ks)
		}
		return c.store(tx, ks, next)
	})
}

// Ensure returns the value stored under key, storing and returning
// defaultValue first if the key is missing. The existence check and the
// write happen in one transaction.
func (c *Collection) Ensure(key, defaultValue any) (any, error) {
	return c.EnsureAt(key, "", defaultValue)
}

// EnsureAt is Ensure for a location inside the stored value.
func (c *Collection) EnsureAt(key any, path string, defaultValue any) (any, error) {
	ks, err := keyString(key)
	if err != nil {
		return nil, err
	}
	return c.ensureAt(ks, parsePath(path), defaultValue)
}

func (c *Collection) ensureAt(ks string, steps []pathStep, defaultValue any) (any, error) {
	nd, err := normalizeValue(defaultValue)
	if err != nil {
		return nil, withKey(err, ks)
	}
	var out any
	err = c.update(func(tx storageTx) error {
		cur, ok, err := c.fetch(tx, ks)
		if err != nil {
			return err
		}
		if ok {
			if len(steps) == 0 {
				out = cur
				return nil
			}
			res, err := pathGet(cur, steps)
			if err == nil {
				out = res
				return nil
			}
			if KindOf(err) != KindPathNotFound {
				return withKey(err, ks)
			}
		} else if len(steps) > 0 {
			cur = emptyContainer(steps[0])
		}
		next := nd
		if len(steps) > 0 {
			next, err = pathSet(cur, steps, nd, !c.strictPaths)
			if err != nil {
				return withKey(err, ks)
			}
		}
		if err := c.store(tx, ks, next); err != nil {
			return err
		}
		out = nd
		return nil
	})
	return out, err
}

// Push appends value to the list stored under key, creating the list if the
// key is missing. Unless allowDupes, pushing a value structurally equal to
// an existing element is a no-op.
func (c *Collection) Push(key, value any, allowDupes bool) error {
	return c.PushAt(key, "", value, allowDupes)
}

// PushAt appends value to the list at path inside the value stored under
// key, creating a missing list (and, unless StrictPaths, missing
// intermediates) first. A non-list node fails with KindNotAList.
func (c *Collection) PushAt(key any, path string, value any, allowDupes bool) error {
	ks, err := keyString(key)
	if err != nil {
		return err
	}
	nv, err := normalizeValue(value)
	if err != nil {
		return withKey(err, ks)
	}
	steps := parsePath(path)
	return c.update(func(tx storageTx) error {
		cur, ok, err := c.fetch(tx, ks)
		if err != nil {
			return err
		}
		if !ok {
			if len(steps) == 0 {
				cur = []any{}
			} else {
				cur = emptyContainer(steps[0])
			}
		}
		next, err := pathPush(cur, steps, nv, allowDupes, !c.strictPaths)
		if err != nil {
			return withKey(err, ks)
		}
		return c.store(tx, ks, next)
	})
}

// Remove deletes the first element structurally equal to value from the list
// stored under key. No match is not an error.
func (c *Collection) Remove(key, value any) error {
	return c.RemoveAt(key, "", value)
}

// RemoveAt is Remove for the list at path inside the value stored under key.
func (c *Collection) RemoveAt(key any, path string, value any) error {
	nv, err := normalizeValue(value)
	if err != nil {
		return err
	}
	return c.RemoveFunc(key, path, func(el any) bool { return valueEqual(el, nv) })
}

// RemoveFunc deletes the first element of the list at path for which fn
// returns true. At most one element is removed; no match is not an error.
// The key and the path must exist.
func (c *Collection) RemoveFunc(key any, path string, fn func(value any) bool) error {
	ks, err := keyString(key)
	if err != nil {
		return err
	}
	steps := parsePath(path)
	return c.update(func(tx storageTx) error {
		cur, ok, err := c.fetch(tx, ks)
		if err != nil {
			return err
		}
		if !ok {
			return opErrf(KindPathNotFound, ks, path, nil, "key does not exist")
		}
		next, err := pathRemove(cur, steps, fn)
		if err != nil {
			return withKey(err, ks)
		}
		return c.store(tx, ks, next)
	})
}

// Includes reports whether the list stored under key contains an element
// structurally equal to value. A missing key reports false.
func (c *Collection) Includes(key, value any) (bool, error) {
	return c.IncludesAt(key, "", value)
}

// IncludesAt is Includes for the list at path.
func (c *Collection) IncludesAt(key any, path string, value any) (bool, error) {
	ks, err := keyString(key)
	if err != nil {
		return false, err
	}
	nv, err := normalizeValue(value)
	if err != nil {
		return false, withKey(err, ks)
	}
	steps := parsePath(path)
	var found bool
	err = c.view(func(tx storageTx) error {
		cur, ok, err := c.fetch(tx, ks)
		if err != nil || !ok {
			return err
		}
		node, err := pathGet(cur, steps)
		if err != nil {
			if KindOf(err) == KindPathNotFound {
				return nil
			}
			return withKey(err, ks)
		}
		list, ok2 := node.([]any)
		if !ok2 {
			return opErrf(KindNotAList, ks, path, nil, "cannot search a %s", valueTypeName(node))
		}
		for _, el := range list {
			if valueEqual(el, nv) {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

var mathAliases = map[string]string{
	"+": "+", "add": "+", "addition": "+",
	"-": "-", "sub": "-", "subtract": "-",
	"*": "*", "mult": "*", "multiply": "*",
	"/": "/", "div": "/", "divide": "/",
	"%": "%", "mod": "%", "modulo": "%",
	"^": "^", "exp": "^", "exponent": "^",
}

func applyMath(a float64, op string, b float64) (float64, error) {
	switch mathAliases[op] {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		// IEEE-754: division by zero yields Inf/NaN, never an error.
		return a / b, nil
	case "%":
		return math.Mod(a, b), nil
	case "^":
		return math.Pow(a, b), nil
	}
	return 0, opErrf(KindNotANumber, "", "", nil, "unknown operator %q", op)
}

// Math applies op (symbolic like "+", "^" or spelled out like "add", "exp")
// with operand to the number stored under key, stores the result and returns
// it. A non-numeric node fails with KindNotANumber.
func (c *Collection) Math(key any, op string, operand float64) (float64, error) {
	return c.MathAt(key, "", op, operand)
}

// MathAt is Math for the number at path inside the value stored under key.
func (c *Collection) MathAt(key any, path string, op string, operand float64) (float64, error) {
	ks, err := keyString(key)
	if err != nil {
		return 0, err
	}
	steps := parsePath(path)
	var out float64
	err = c.update(func(tx storageTx) error {
		cur, ok, err := c.fetch(tx, ks)
		if err != nil {
			return err
		}
		if !ok {
			return opErrf(KindPathNotFound, ks, path, nil, "key does not exist")
		}
		node := cur
		if len(steps) > 0 {
			node, err = pathGet(cur, steps)
			if err != nil {
				return withKey(err, ks)
			}
		}
		n, isNum := node.(float64)
		if !isNum {
			return opErrf(KindNotANumber, ks, path, nil, "cannot do arithmetic on a %s", valueTypeName(node))
		}
		res, err := applyMath(n, op, operand)
		if err != nil {
			return withKey(err, ks)
		}
		next, err := pathSet(cur, steps, res, false)
		if err != nil {
			return withKey(err, ks)
		}
		if err := c.store(tx, ks, next); err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

// Inc adds 1 to the number stored under key and returns the new value.
func (c *Collection) Inc(key any) (float64, error) {
	return c.MathAt(key, "", "+", 1)
}

// IncAt adds 1 to the number at path and returns the new value.
func (c *Collection) IncAt(key any, path string) (float64, error) {
	return c.MathAt(key, path, "+", 1)
}

// Dec subtracts 1 from the number stored under key and returns the new value.
func (c *Collection) Dec(key any) (float64, error) {
	return c.MathAt(key, "", "-", 1)
}

// DecAt subtracts 1 from the number at path and returns the new value.
func (c *Collection) DecAt(key any, path string) (float64, error) {
	return c.MathAt(key, path, "-", 1)
}

// Update deep-merges value into the mapping stored under key and returns the
// merged result. Nested mappings merge recursively, conflicting keys take
// the incoming side, lists are replaced wholesale. A missing key starts from
// an empty mapping; a stored non-mapping fails with KindNotAnObject.
func (c *Collection) Update(key, value any) (any, error) {
	ks, err := keyString(key)
	if err != nil {
		return nil, err
	}
	nv, err := normalizeValue(value)
	if err != nil {
		return nil, withKey(err, ks)
	}
	src, isMap := nv.(map[string]any)
	if !isMap {
		return nil, opErrf(KindNotAnObject, ks, "", nil, "update value must be a mapping, not a %s", valueTypeName(nv))
	}
	var out any
	err = c.update(func(tx storageTx) error {
		cur, ok, err := c.fetch(tx, ks)
		if err != nil {
			return err
		}
		if !ok {
			cur = map[string]any{}
		}
		dst, isMap := cur.(map[string]any)
		if !isMap {
			return opErrf(KindNotAnObject, ks, "", nil, "stored value is a %s, not a mapping", valueTypeName(cur))
		}
		next := mergeValues(dst, src)
		if err := c.store(tx, ks, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// UpdateFunc passes the current value stored under key (nil when missing) to
// fn and stores fn's return value as the complete replacement; no merging is
// performed. A stored non-mapping fails with KindNotAnObject.
func (c *Collection) UpdateFunc(key any, fn func(current any) any) (any, error) {
	ks, err := keyString(key)
	if err != nil {
		return nil, err
	}
	var out any
	err = c.update(func(tx storageTx) error {
		cur, ok, err := c.fetch(tx, ks)
		if err != nil {
			return err
		}
		if ok {
			if _, isMap := cur.(map[string]any); !isMap {
				return opErrf(KindNotAnObject, ks, "", nil, "stored value is a %s, not a mapping", valueTypeName(cur))
			}
		}
		next, err := normalizeValue(fn(cloneValue(cur)))
		if err != nil {
			return withKey(err, ks)
		}
		if err := c.store(tx, ks, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

var autonumMetaKey = []byte("autonum")

// Autonum returns a key that does not currently exist in the collection,
// derived from a counter persisted alongside the data. Issued keys are
// unique at the time of issue; the sequence may skip values.
func (c *Collection) Autonum() (string, error) {
	var out string
	err := c.update(func(tx storageTx) error {
		meta, data := c.meta(tx), c.data(tx)
		var n uint64
		if raw := meta.Get(autonumMetaKey); raw != nil {
			n, _ = binary.Uvarint(raw)
		}
		for {
			n++
			k := strconv.FormatUint(n, 10)
			if data.Get([]byte(k)) == nil {
				out = k
				break
			}
		}
		buf := make([]byte, binary.MaxVarintLen64)
		buf = buf[:binary.PutUvarint(buf, n)]
		if err := meta.Put(autonumMetaKey, buf); err != nil {
			return opErrf(KindStorageIO, "", "", err, "saving autonum counter")
		}
		return nil
	})
	return out, err
}

// Count returns the number of entries.
func (c *Collection) Count() (int, error) {
	var n int
	err := c.view(func(tx storageTx) error {
		n = c.data(tx).KeyCount()
		return nil
	})
	return n, err
}

// Clear atomically removes every entry. The autonum counter survives, so
// previously issued keys are not reissued.
func (c *Collection) Clear() error {
	return c.update(func(tx storageTx) error {
		if err := tx.DeleteBucket(c.name, dataBucketName); err != nil {
			return opErrf(KindStorageIO, "", "", err, "clearing collection")
		}
		if _, err := tx.CreateBucket(c.name, dataBucketName); err != nil {
			return opErrf(KindStorageIO, "", "", err, "clearing collection")
		}
		return nil
	})
}
