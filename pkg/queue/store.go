package queue

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hashgraph-online/device-anchor-go/pkg/storage"
)

const DefaultPendingKey = "sensor_data_batch"

type Store interface {
	// RenameAtomic moves src to dst. It reports false, without error, when
	// src does not exist or dst already exists.
	RenameAtomic(ctx context.Context, src, dst string) (bool, error)
	// DrainList returns every item of the list in order without removing it.
	DrainList(ctx context.Context, key string) ([]string, error)
	PushBack(ctx context.Context, key string, items ...string) error
	// MoveAll appends every item of src to dst and deletes src in one write.
	// It returns the number of items moved; a missing src moves nothing.
	MoveAll(ctx context.Context, src, dst string) (int, error)
	DeleteKey(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// listHead is the value stored under a list name. Items live under their own
// keys, "<generation>:<seq>", in the queue item pool; Next is the sequence the
// following push will use and also the item count, since items are never
// removed one at a time.
type listHead struct {
	Generation string `json:"generation"`
	Next       uint64 `json:"next"`
}

const generationCounterName = "queue_generation"

// LevelStore keeps one leveldb key per item, grouped under a generation that
// the list head points at. Renaming a list only rewrites its head.
type LevelStore struct {
	mu          sync.Mutex
	db          *storage.DB
	generation  uint64
	counterRead bool
}

func NewLevelStore(db *storage.DB) *LevelStore {
	return &LevelStore{db: db}
}

func (s *LevelStore) RenameAtomic(ctx context.Context, src, dst string) (bool, error) {
	if src == "" || dst == "" || src == dst {
		return false, fmt.Errorf("rename requires two distinct keys")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	value, found, err := s.db.Get(headKey(src))
	if err != nil {
		return false, fmt.Errorf("failed to read queue %s: %w", src, err)
	}
	if !found {
		return false, nil
	}
	exists, err := s.db.Has(headKey(dst))
	if err != nil {
		return false, fmt.Errorf("failed to check queue %s: %w", dst, err)
	}
	if exists {
		return false, nil
	}

	batch := s.db.NewBatch()
	batch.Put(headKey(dst), value)
	batch.Delete(headKey(src))
	if err := s.db.Commit(batch); err != nil {
		return false, fmt.Errorf("failed to rename queue %s: %w", src, err)
	}
	return true, nil
}

func (s *LevelStore) DrainList(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	head, found, err := s.head(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return []string{}, nil
	}

	items := make([]string, 0, head.Next)
	err = s.db.ScanPrefix(storage.PrefixQueueItem, itemPrefix(head.Generation), func(_ string, value []byte) error {
		items = append(items, string(value))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read queue %s: %w", key, err)
	}
	return items, nil
}

// PushBack writes only the new items and the list head.
func (s *LevelStore) PushBack(ctx context.Context, key string, items ...string) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	head, found, err := s.head(key)
	if err != nil {
		return err
	}
	batch := s.db.NewBatch()
	if !found {
		generation, err := s.nextGeneration()
		if err != nil {
			return err
		}
		batch.Put(storage.Key(storage.PrefixQueueCounter, generationCounterName), encodeCounter(s.generation))
		head = listHead{Generation: generation}
	}
	for _, item := range items {
		batch.Put(itemKey(head.Generation, head.Next), []byte(item))
		head.Next++
	}
	if err := putHead(batch, key, head); err != nil {
		return err
	}
	if err := s.db.Commit(batch); err != nil {
		return fmt.Errorf("failed to write queue %s: %w", key, err)
	}
	return nil
}

func (s *LevelStore) MoveAll(ctx context.Context, src, dst string) (int, error) {
	if src == "" || dst == "" || src == dst {
		return 0, fmt.Errorf("move requires two distinct keys")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	srcHead, found, err := s.head(src)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	dstHead, dstFound, err := s.head(dst)
	if err != nil {
		return 0, err
	}

	batch := s.db.NewBatch()
	batch.Delete(headKey(src))
	if !dstFound {
		if err := putHead(batch, dst, srcHead); err != nil {
			return 0, err
		}
	} else {
		err := s.db.ScanPrefix(storage.PrefixQueueItem, itemPrefix(srcHead.Generation), func(name string, value []byte) error {
			batch.Delete(storage.Key(storage.PrefixQueueItem, name))
			batch.Put(itemKey(dstHead.Generation, dstHead.Next), value)
			dstHead.Next++
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("failed to read queue %s: %w", src, err)
		}
		if err := putHead(batch, dst, dstHead); err != nil {
			return 0, err
		}
	}
	if err := s.db.Commit(batch); err != nil {
		return 0, fmt.Errorf("failed to move queue %s to %s: %w", src, dst, err)
	}
	return int(srcHead.Next), nil
}

func (s *LevelStore) DeleteKey(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	head, found, err := s.head(key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	batch := s.db.NewBatch()
	batch.Delete(headKey(key))
	err = s.db.ScanPrefix(storage.PrefixQueueItem, itemPrefix(head.Generation), func(name string, _ []byte) error {
		batch.Delete(storage.Key(storage.PrefixQueueItem, name))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read queue %s: %w", key, err)
	}
	if err := s.db.Commit(batch); err != nil {
		return fmt.Errorf("failed to delete queue %s: %w", key, err)
	}
	return nil
}

func (s *LevelStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	return s.db.KeysWithPrefix(storage.PrefixQueue, prefix)
}

func (s *LevelStore) head(key string) (listHead, bool, error) {
	value, found, err := s.db.Get(headKey(key))
	if err != nil {
		return listHead{}, false, fmt.Errorf("failed to read queue %s: %w", key, err)
	}
	if !found {
		return listHead{}, false, nil
	}
	var head listHead
	if err := json.Unmarshal(value, &head); err != nil {
		return listHead{}, false, fmt.Errorf("failed to decode queue %s: %w", key, err)
	}
	if head.Generation == "" {
		return listHead{}, false, fmt.Errorf("queue %s has no generation", key)
	}
	return head, true, nil
}

// nextGeneration advances the in-memory counter. The caller persists it in
// the same batch as the head that uses it; a failed commit only skips a value.
func (s *LevelStore) nextGeneration() (string, error) {
	if !s.counterRead {
		value, found, err := s.db.Get(storage.Key(storage.PrefixQueueCounter, generationCounterName))
		if err != nil {
			return "", fmt.Errorf("failed to read queue generation: %w", err)
		}
		if found {
			if len(value) != 8 {
				return "", fmt.Errorf("queue generation has %d bytes, want 8", len(value))
			}
			s.generation = binary.BigEndian.Uint64(value)
		}
		s.counterRead = true
	}
	s.generation++
	return fmt.Sprintf("%016x", s.generation), nil
}

type batchWriter interface {
	Put(key, value []byte)
}

func putHead(batch batchWriter, key string, head listHead) error {
	encoded, err := json.Marshal(head)
	if err != nil {
		return fmt.Errorf("failed to encode queue %s: %w", key, err)
	}
	batch.Put(headKey(key), encoded)
	return nil
}

func headKey(key string) []byte {
	return storage.Key(storage.PrefixQueue, key)
}

func itemPrefix(generation string) string {
	return generation + ":"
}

func itemKey(generation string, seq uint64) []byte {
	return storage.Key(storage.PrefixQueueItem, fmt.Sprintf("%s%020d", itemPrefix(generation), seq))
}

func encodeCounter(value uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	return buf
}
