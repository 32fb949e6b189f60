package pathdb

import (
	"strconv"
	"strings"
)

// pathStep is one step of a parsed path: either an object member access
// (index < 0) or an array index.
type pathStep struct {
	key   string
	index int
}

func (st pathStep) isIndex() bool { return st.index >= 0 }

// mapKey is the member name this step addresses when the current node turns
// out to be a mapping: numeric steps fall back to their decimal spelling.
func (st pathStep) mapKey() string {
	if st.isIndex() {
		return strconv.Itoa(st.index)
	}
	return st.key
}

func (st pathStep) String() string {
	if st.isIndex() {
		return "[" + strconv.Itoa(st.index) + "]"
	}
	return st.key
}

func joinSteps(steps []pathStep) string {
	var buf strings.Builder
	for i, st := range steps {
		if i > 0 && !st.isIndex() {
			buf.WriteByte('.')
		}
		buf.WriteString(st.String())
	}
	return buf.String()
}

// parsePath splits a dotted path into steps. A segment that is purely digits
// becomes an array index, and bracket syntax like "list[2]" is equivalent to
// the dotted numeric segment "list.2". An empty path addresses the root.
func parsePath(path string) []pathStep {
	if path == "" {
		return nil
	}
	var steps []pathStep
	rest := path
	for {
		seg, tail, more := splitByte(rest, '.')
		steps = appendSegment(steps, seg)
		if !more {
			return steps
		}
		rest = tail
	}
}

func appendSegment(steps []pathStep, seg string) []pathStep {
	for {
		open := strings.IndexByte(seg, '[')
		if open < 0 {
			break
		}
		end := strings.IndexByte(seg[open:], ']')
		if end < 0 {
			break
		}
		inner := seg[open+1 : open+end]
		n, ok := parseIndex(inner)
		if !ok {
			break
		}
		if open > 0 {
			steps = appendSegment(steps, seg[:open])
		}
		steps = append(steps, pathStep{index: n})
		seg = seg[open+end+1:]
		if seg == "" {
			return steps
		}
	}
	if n, ok := parseIndex(seg); ok {
		return append(steps, pathStep{index: n})
	}
	return append(steps, pathStep{key: seg, index: -1})
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// pathGet walks steps from root and returns the addressed node.
// A missing step fails with KindPathNotFound; traversing into a primitive
// fails with KindNotIndexable.
func pathGet(root any, steps []pathStep) (any, error) {
	node := root
	for i, st := range steps {
		switch cur := node.(type) {
		case map[string]any:
			child, found := cur[st.mapKey()]
			if !found {
				return nil, pathNotFoundErr(steps, i)
			}
			node = child
		case []any:
			if !st.isIndex() || st.index >= len(cur) {
				return nil, pathNotFoundErr(steps, i)
			}
			node = cur[st.index]
		default:
			return nil, notIndexableErr(steps, i, node)
		}
	}
	return node, nil
}

// pathExists is the boolean form of pathGet: absence is false, not an error.
// Only a traversal into a primitive still fails.
func pathExists(root any, steps []pathStep) (bool, error) {
	_, err := pathGet(root, steps)
	if err == nil {
		return true, nil
	}
	if KindOf(err) == KindPathNotFound {
		return false, nil
	}
	return false, err
}

// pathSet returns a new root with the addressed node replaced by v.
// Containers along the path are copied; untouched siblings are shared with
// the original root, which is never modified. With autoCreate, missing
// intermediate containers are created (a list when the next step is an index,
// a mapping otherwise) and list writes past the end pad with nulls; without
// it, any absence fails with KindPathNotFound. An empty path replaces the
// whole root.
func pathSet(root any, steps []pathStep, v any, autoCreate bool) (any, error) {
	if len(steps) == 0 {
		return v, nil
	}
	return pathSetRec(root, steps, 0, v, autoCreate)
}

func pathSetRec(node any, steps []pathStep, i int, v any, autoCreate bool) (any, error) {
	if i == len(steps) {
		return v, nil
	}
	st := steps[i]
	if node == nil {
		if !autoCreate {
			return nil, pathNotFoundErr(steps, i)
		}
		node = emptyContainer(st)
	}
	switch cur := node.(type) {
	case map[string]any:
		child, found := cur[st.mapKey()]
		if !found && i+1 < len(steps) {
			if !autoCreate {
				return nil, pathNotFoundErr(steps, i)
			}
			child = emptyContainer(steps[i+1])
		}
		newChild, err := pathSetRec(child, steps, i+1, v, autoCreate)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(cur)+1)
		for k, el := range cur {
			out[k] = el
		}
		out[st.mapKey()] = newChild
		return out, nil
	case []any:
		if !st.isIndex() {
			return nil, pathNotFoundErr(steps, i)
		}
		n := len(cur)
		if st.index >= n {
			if !autoCreate {
				return nil, pathNotFoundErr(steps, i)
			}
			n = st.index + 1
		}
		out := make([]any, n)
		copy(out, cur)
		var child any
		if st.index < len(cur) {
			child = cur[st.index]
		} else if i+1 < len(steps) {
			child = emptyContainer(steps[i+1])
		}
		newChild, err := pathSetRec(child, steps, i+1, v, autoCreate)
		if err != nil {
			return nil, err
		}
		out[st.index] = newChild
		return out, nil
	default:
		return nil, notIndexableErr(steps, i, node)
	}
}

func emptyContainer(next pathStep) any {
	if next.isIndex() {
		return []any{}
	}
	return map[string]any{}
}

// pathDelete returns a new root with the addressed node removed: a mapping
// loses the key, a list is spliced (subsequent indices shift down). The path
// must address an existing node.
func pathDelete(root any, steps []pathStep) (any, error) {
	if len(steps) == 0 {
		panic("root-level delete is a key-level operation")
	}
	return pathDeleteRec(root, steps, 0)
}

func pathDeleteRec(node any, steps []pathStep, i int) (any, error) {
	st := steps[i]
	last := i == len(steps)-1
	switch cur := node.(type) {
	case map[string]any:
		child, found := cur[st.mapKey()]
		if !found {
			return nil, pathNotFoundErr(steps, i)
		}
		out := make(map[string]any, len(cur))
		for k, el := range cur {
			out[k] = el
		}
		if last {
			delete(out, st.mapKey())
			return out, nil
		}
		newChild, err := pathDeleteRec(child, steps, i+1)
		if err != nil {
			return nil, err
		}
		out[st.mapKey()] = newChild
		return out, nil
	case []any:
		if !st.isIndex() || st.index >= len(cur) {
			return nil, pathNotFoundErr(steps, i)
		}
		if last {
			out := make([]any, 0, len(cur)-1)
			out = append(out, cur[:st.index]...)
			out = append(out, cur[st.index+1:]...)
			return out, nil
		}
		newChild, err := pathDeleteRec(cur[st.index], steps, i+1)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(cur))
		copy(out, cur)
		out[st.index] = newChild
		return out, nil
	default:
		return nil, notIndexableErr(steps, i, node)
	}
}

// pathPush appends v to the list addressed by steps and returns a new root.
// With autoCreate, a missing list (and missing intermediates) is created
// first. Unless allowDupes, a value structurally equal to an existing
// element is a no-op. A non-list node fails with KindNotAList.
func pathPush(root any, steps []pathStep, v any, allowDupes, autoCreate bool) (any, error) {
	node, err := pathGet(root, steps)
	if err != nil {
		if KindOf(err) != KindPathNotFound || !autoCreate {
			return nil, err
		}
		node = nil
	}
	var list []any
	switch cur := node.(type) {
	case nil:
		list = nil
	case []any:
		list = cur
	default:
		return nil, opErrf(KindNotAList, "", joinSteps(steps), nil, "cannot push to %s", valueTypeName(node))
	}
	if !allowDupes {
		for _, el := range list {
			if valueEqual(el, v) {
				return root, nil
			}
		}
	}
	out := make([]any, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, v)
	return pathSet(root, steps, out, autoCreate)
}

// pathRemove removes the first list element matched by fn and returns a new
// root. No match is not an error; the list is returned unchanged.
func pathRemove(root any, steps []pathStep, fn func(any) bool) (any, error) {
	node, err := pathGet(root, steps)
	if err != nil {
		return nil, err
	}
	list, ok := node.([]any)
	if !ok {
		return nil, opErrf(KindNotAList, "", joinSteps(steps), nil, "cannot remove from %s", valueTypeName(node))
	}
	for i, el := range list {
		if fn(el) {
			out := make([]any, 0, len(list)-1)
			out = append(out, list[:i]...)
			out = append(out, list[i+1:]...)
			return pathSet(root, steps, out, false)
		}
	}
	return root, nil
}

func pathNotFoundErr(steps []pathStep, i int) error {
	return opErrf(KindPathNotFound, "", joinSteps(steps), nil, "no value at step %s", steps[i])
}

func notIndexableErr(steps []pathStep, i int, node any) error {
	return opErrf(KindNotIndexable, "", joinSteps(steps), nil, "step %s traverses into a %s", steps[i], valueTypeName(node))
}

func valueTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return "unknown value"
	}
}
