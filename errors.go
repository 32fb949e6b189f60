package pathdb

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error. Callers branch on kinds via KindOf.
type Kind int

const (
	KindUnknown Kind = iota
	// KindKeyType means the key is not a string or integer.
	KindKeyType
	// KindPathNotFound means a path did not resolve to an existing location.
	KindPathNotFound
	// KindNotIndexable means a path tried to traverse into a primitive.
	KindNotIndexable
	// KindNotAList means an array operation hit a non-list node.
	KindNotAList
	// KindNotAnObject means a merge operation hit a non-mapping value.
	KindNotAnObject
	// KindNotANumber means an arithmetic operation hit a non-numeric node.
	KindNotANumber
	// KindNotSerializable means the value cannot be structurally encoded.
	KindNotSerializable
	// KindStorageClosed means the collection has been closed.
	KindStorageClosed
	// KindStorageIO wraps a failure of the backing storage engine.
	KindStorageIO
	// KindIncompatibleVersion means an import document is too new.
	KindIncompatibleVersion
	// KindEmptyCollection means a seedless reduce over zero entries.
	KindEmptyCollection
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindKeyType:             "key type",
	KindPathNotFound:        "path not found",
	KindNotIndexable:        "not indexable",
	KindNotAList:            "not a list",
	KindNotAnObject:         "not an object",
	KindNotANumber:          "not a number",
	KindNotSerializable:     "not serializable",
	KindStorageClosed:       "storage closed",
	KindStorageIO:           "storage I/O",
	KindIncompatibleVersion: "incompatible version",
	KindEmptyCollection:     "empty collection",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the failure type of every public operation.
type Error struct {
	Kind Kind
	Key  string
	Path string
	Msg  string
	Err  error
}

func opErrf(kind Kind, key, path string, err error, format string, args ...any) *Error {
	return &Error{kind, key, path, fmt.Sprintf(format, args...), err}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Kind.String())
	if e.Key != "" {
		buf.WriteString(": key ")
		buf.WriteString(e.Key)
	}
	if e.Path != "" {
		buf.WriteString(": path ")
		buf.WriteString(e.Path)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// KindOf returns the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
