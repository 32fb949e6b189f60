/*
Package pathdb implements a synchronous embedded key-value store on top of
a transactional key-value engine (in this case, Bolt), with structured
in-place mutation of JSON-like values addressed by dotted paths.

We implement:

1. Collections, named sets of uniquely-keyed entries, either persistent
(one Bolt file per collection under a data directory) or transient
(memory-only, same semantics, gone with the process).

2. Path operations, reading and mutating a sub-location of a stored value
addressed by a dotted/indexed path like "sub.values.are" or "list[2]",
with policy-controlled auto-creation of missing intermediate containers.

3. Array and arithmetic helpers (push, remove, includes, math, inc, dec)
and deep-merge updates, all as atomic read-modify-write cycles.

4. Aggregation over the whole collection (find, filter, map, reduce, every,
some, sweep, partition), streaming over storage cursors without
materializing the collection.

5. Bulk export/import of a collection as a versioned JSON document.

# Technical Details

**Values.**
Stored values live in a closed structural domain: nil, bool, float64, string,
[]any, and map[string]any. Anything a caller passes in is normalized into
this domain first (integers become float64, nested containers are converted
recursively); values that cannot be represented structurally (functions,
channels, cycles) are rejected. Path operations are exhaustive type switches
over this domain, so shape mismatches are first-class typed errors rather
than reflective guesswork.

**Buckets.**
Each collection owns a root bucket named after the collection, with two
nested buckets: “data” holds the entries, “meta” holds the autonum counter.
A flat engine could simulate this with key prefixes; we use nested buckets
for convenience only.

**Value encoding.**
Values are encoded with msgpack with sorted map keys, so encoding is
deterministic for equal values. Optional user serialize/deserialize hooks
run around the msgpack step, on the structural value, never on bytes:
encode is serialize followed by msgpack, decode is msgpack followed by
deserialize. Both hooks must be synchronous; every public operation runs
its whole fetch-decode-mutate-encode-store cycle inside one storage
transaction.

**Concurrency.**
A collection is single-writer by construction: every mutating operation is
one writable storage transaction, and the storage backends serialize
writers. Multiple processes opening the same persistent collection is not
a supported configuration (Bolt's file lock will simply refuse).
*/
package pathdb
