package pathdb

import (
	"reflect"
)

// normalizeValue converts v into the structural value domain used by path
// operations and the codec: nil, bool, float64, string, []any and
// map[string]any. All integer and float types become float64 (the way JSON
// numbers behave). Values outside the domain (functions, channels, structs,
// maps with non-string keys) and cyclic values fail with KindNotSerializable.
func normalizeValue(v any) (any, error) {
	return normalizeValueRec(v, nil)
}

func normalizeValueRec(v any, seen []uintptr) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		return v, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case []any:
		return normalizeList(v, seen)
	case map[string]any:
		return normalizeMap(v, seen)
	}
	return normalizeReflected(reflect.ValueOf(v), seen)
}

func normalizeList(list []any, seen []uintptr) (any, error) {
	ptr := uintptr(reflect.ValueOf(list).Pointer())
	if len(list) > 0 && cycleCheck(seen, ptr) {
		return nil, opErrf(KindNotSerializable, "", "", nil, "value contains a cycle")
	}
	seen = append(seen, ptr)
	out := make([]any, len(list))
	for i, el := range list {
		nel, err := normalizeValueRec(el, seen)
		if err != nil {
			return nil, err
		}
		out[i] = nel
	}
	return out, nil
}

func normalizeMap(m map[string]any, seen []uintptr) (any, error) {
	ptr := uintptr(reflect.ValueOf(m).Pointer())
	if cycleCheck(seen, ptr) {
		return nil, opErrf(KindNotSerializable, "", "", nil, "value contains a cycle")
	}
	seen = append(seen, ptr)
	out := make(map[string]any, len(m))
	for k, el := range m {
		nel, err := normalizeValueRec(el, seen)
		if err != nil {
			return nil, err
		}
		out[k] = nel
	}
	return out, nil
}

func normalizeReflected(rv reflect.Value, seen []uintptr) (any, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalizeValueRec(rv.Elem().Interface(), seen)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.IsNil() {
				return nil, nil
			}
			if rv.Len() > 0 && cycleCheck(seen, rv.Pointer()) {
				return nil, opErrf(KindNotSerializable, "", "", nil, "value contains a cycle")
			}
			seen = append(seen, rv.Pointer())
		}
		out := make([]any, rv.Len())
		for i := range out {
			el, err := normalizeValueRec(rv.Index(i).Interface(), seen)
			if err != nil {
				return nil, err
			}
			out[i] = el
		}
		return out, nil
	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Key().Kind() != reflect.String {
			return nil, opErrf(KindNotSerializable, "", "", nil, "map key type %s is not a string", rv.Type().Key())
		}
		if cycleCheck(seen, rv.Pointer()) {
			return nil, opErrf(KindNotSerializable, "", "", nil, "value contains a cycle")
		}
		seen = append(seen, rv.Pointer())
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			el, err := normalizeValueRec(iter.Value().Interface(), seen)
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = el
		}
		return out, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	}
	return nil, opErrf(KindNotSerializable, "", "", nil, "cannot store a value of type %s", rv.Type())
}

func cycleCheck(seen []uintptr, ptr uintptr) bool {
	for _, p := range seen {
		if p == ptr {
			return true
		}
	}
	return false
}

// valueEqual is structural equality over the normalized domain.
func valueEqual(a, b any) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case bool:
		bb, ok := b.(bool)
		return ok && a == bb
	case float64:
		bb, ok := b.(float64)
		return ok && a == bb
	case string:
		bb, ok := b.(string)
		return ok && a == bb
	case []any:
		bb, ok := b.([]any)
		if !ok || len(a) != len(bb) {
			return false
		}
		for i, el := range a {
			if !valueEqual(el, bb[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bb, ok := b.(map[string]any)
		if !ok || len(a) != len(bb) {
			return false
		}
		for k, el := range a {
			bel, found := bb[k]
			if !found || !valueEqual(el, bel) {
				return false
			}
		}
		return true
	}
	return false
}

// cloneValue deep-copies a normalized value.
func cloneValue(v any) any {
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			out[i] = cloneValue(el)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, el := range v {
			out[k] = cloneValue(el)
		}
		return out
	default:
		return v
	}
}

// mergeValues deep-merges src into dst and returns a new map; neither input
// is modified. Nested mappings merge recursively, conflicting keys take the
// src side, and lists are treated as atomic values (replaced wholesale, not
// merged index-wise).
func mergeValues(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = cloneValue(v)
	}
	for k, sv := range src {
		if dm, ok := out[k].(map[string]any); ok {
			if sm, ok := sv.(map[string]any); ok {
				out[k] = mergeValues(dm, sm)
				continue
			}
		}
		out[k] = cloneValue(sv)
	}
	return out
}
