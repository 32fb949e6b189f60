package pathdb

import "errors"

// errBucketNotFound is returned by storageTx.DeleteBucket when the bucket
// doesn't exist.
var errBucketNotFound = errors.New("bucket not found")

// storage represents a key-value storage backend (Bolt for persistent
// collections, in-memory for transient ones).
type storage interface {
	// BeginTx starts a new transaction. Writable transactions are exclusive.
	BeginTx(writable bool) (storageTx, error)
	// Close closes the storage.
	Close() error
}

// storageTx represents a storage transaction.
type storageTx interface {
	// Writable returns true if this is a writable transaction.
	Writable() bool

	// Bucket returns a nested bucket under the named root bucket.
	// Returns nil if the bucket doesn't exist.
	Bucket(name, sub string) storageBucket

	// CreateBucket creates a nested bucket (and its root) if it doesn't exist.
	CreateBucket(name, sub string) (storageBucket, error)

	// DeleteBucket deletes a nested bucket and everything in it.
	DeleteBucket(name, sub string) error

	// Commit commits the transaction.
	Commit() error

	// Rollback aborts the transaction. It is safe to call after Commit.
	Rollback() error
}

// storageBucket represents a bucket (sorted key-value collection).
type storageBucket interface {
	// Get retrieves a value by key. Returns nil if not found.
	Get(key []byte) []byte

	// Put stores a key-value pair.
	Put(key, value []byte) error

	// Delete removes a key. Removing an absent key is a no-op.
	Delete(key []byte) error

	// Cursor returns a cursor positioned before the first key.
	Cursor() storageCursor

	// KeyCount returns the number of keys in the bucket.
	KeyCount() int
}

// storageCursor iterates over a sorted bucket in key order. The order is
// deterministic across repeated cursors while no writes happen in between.
type storageCursor interface {
	// First moves to the first key-value pair.
	First() (key, value []byte)

	// Next moves to the next key-value pair.
	Next() (key, value []byte)

	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte)

	// Delete deletes the current key-value pair without disturbing iteration.
	Delete() error
}
