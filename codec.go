package pathdb

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// TransformFunc is a synchronous value transform applied around the default
// encoding: a serializer runs on the structural value right before it is
// encoded, a deserializer right after it is decoded. Hooks must not block or
// suspend; the whole read-modify-write cycle of an operation runs inside one
// storage transaction.
type TransformFunc func(value any, key string) any

// codec converts between structural values and stored bytes. The default
// encoding is msgpack with sorted map keys, so equal values always encode to
// equal bytes.
type codec struct {
	serialize   TransformFunc
	deserialize TransformFunc
}

func (c *codec) encode(v any, key string) ([]byte, error) {
	if c.serialize != nil {
		nv, err := normalizeValue(c.serialize(v, key))
		if err != nil {
			return nil, err
		}
		v = nv
	}
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, opErrf(KindNotSerializable, key, "", err, "msgpack encoding failed")
	}
	return buf.Bytes(), nil
}

func (c *codec) decode(data []byte, key string) (any, error) {
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	raw, err := dec.DecodeInterface()
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, opErrf(KindStorageIO, key, "", err, "stored value is not valid msgpack")
	}
	// msgpack picks concrete integer widths on decode; fold everything back
	// into the structural domain.
	v, err := normalizeValue(raw)
	if err != nil {
		return nil, err
	}
	if c.deserialize != nil {
		v, err = normalizeValue(c.deserialize(v, key))
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}
