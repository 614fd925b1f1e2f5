// Package queue is the hot reading queue: named lists of opaque payload
// strings, plus the Lease that gives one anchoring run exclusive ownership of
// a batch.
//
// # Atomicity Assumption
//
// Exclusion between anchoring runs rests entirely on RenameAtomic. The
// leveldb Store performs the rename as a single batch under the store mutex,
// and leveldb holds an exclusive lock on its directory, so the rename is
// atomic for every caller sharing one Store. A Store implementation backed by
// a shared network service must provide the same guarantee (a server-side
// atomic rename); without it two runs could both acquire the same batch.
//
// # Layout
//
// A list name maps to a small head value naming a generation. Each item is
// its own key under that generation, so a push writes only the new items and
// a rename rewrites only the head. Releasing a lease moves the items back to
// the pending list and deletes the handle in one leveldb batch.
package queue
