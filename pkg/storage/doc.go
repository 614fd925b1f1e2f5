// Package storage owns the single leveldb database behind the device
// directory, the reading queue and the durable proof blob store. Each of
// those lives in its own pool: a one-byte key prefix inside the same database,
// so a cross-pool write can still be committed as one atomic batch.
package storage
