package storage

import (
	"fmt"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_storage "github.com/syndtr/goleveldb/leveldb/storage"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"
)

// pool prefixes
const (
	PrefixDevice        byte = 'D'
	PrefixIdentityIndex byte = 'N'
	PrefixClaimIndex    byte = 'C'
	PrefixQueue         byte = 'Q'
	PrefixQueueItem     byte = 'q'
	PrefixQueueCounter  byte = 'G'
	PrefixBlob          byte = 'B'
)

// DB is the shared database handle. leveldb itself holds an exclusive lock
// on the directory, so one process owns the data at a time.
type DB struct {
	ldb *leveldb.DB
}

// Open opens or creates the database in dir.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	ldb, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", dir, err)
	}
	return &DB{ldb: ldb}, nil
}

// OpenInMemory opens a database backed by memory only.
func OpenInMemory() (*DB, error) {
	ldb, err := leveldb.Open(ldb_storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory leveldb: %w", err)
	}
	return &DB{ldb: ldb}, nil
}

func (d *DB) Close() error {
	return d.ldb.Close()
}

// Key builds a pool key.
func Key(prefix byte, name string) []byte {
	key := make([]byte, 1+len(name))
	key[0] = prefix
	copy(key[1:], name)
	return key
}

// Get returns the value, or found=false when the key is absent.
func (d *DB) Get(key []byte) ([]byte, bool, error) {
	value, err := d.ldb.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (d *DB) Has(key []byte) (bool, error) {
	return d.ldb.Has(key, nil)
}

func (d *DB) Put(key []byte, value []byte) error {
	return d.ldb.Put(key, value, nil)
}

func (d *DB) Delete(key []byte) error {
	return d.ldb.Delete(key, nil)
}

// NewBatch starts an atomic group of writes.
func (d *DB) NewBatch() *leveldb.Batch {
	return new(leveldb.Batch)
}

// Commit applies a batch atomically.
func (d *DB) Commit(batch *leveldb.Batch) error {
	return d.ldb.Write(batch, nil)
}

// KeysWithPrefix lists the names (without pool prefix) of keys in a pool
// starting with namePrefix.
func (d *DB) KeysWithPrefix(prefix byte, namePrefix string) ([]string, error) {
	iter := d.ldb.NewIterator(ldb_util.BytesPrefix(Key(prefix, namePrefix)), nil)
	defer iter.Release()

	names := make([]string, 0)
	for iter.Next() {
		names = append(names, string(iter.Key()[1:]))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return names, nil
}

// ScanPrefix calls fn, in key order, for every key in a pool starting with
// namePrefix. The value passed to fn is a copy.
func (d *DB) ScanPrefix(prefix byte, namePrefix string, fn func(name string, value []byte) error) error {
	iter := d.ldb.NewIterator(ldb_util.BytesPrefix(Key(prefix, namePrefix)), nil)
	defer iter.Release()

	for iter.Next() {
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		if err := fn(string(iter.Key()[1:]), value); err != nil {
			return err
		}
	}
	return iter.Error()
}
