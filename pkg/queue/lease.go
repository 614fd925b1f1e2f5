package queue

import (
	"context"
	"fmt"
	"time"
)

const ProcessingKeyPrefix = "processing_batch_"

// Lease is exclusive ownership of one batch, held from a successful rename
// of the pending list until Commit or Release.
type Lease struct {
	store      Store
	pendingKey string
	handleKey  string
}

// Acquire renames the pending list to a fresh processing handle. It returns
// nil without error when there is nothing pending or another run won the
// rename.
func Acquire(ctx context.Context, store Store, pendingKey string, now time.Time) (*Lease, error) {
	handleKey := fmt.Sprintf("%s%d", ProcessingKeyPrefix, now.UnixNano())
	acquired, err := store.RenameAtomic(ctx, pendingKey, handleKey)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, nil
	}
	return &Lease{store: store, pendingKey: pendingKey, handleKey: handleKey}, nil
}

// Adopt takes over an existing processing handle, used when recovering
// handles orphaned by a crashed run.
func Adopt(store Store, pendingKey string, handleKey string) *Lease {
	return &Lease{store: store, pendingKey: pendingKey, handleKey: handleKey}
}

func (l *Lease) HandleKey() string {
	return l.handleKey
}

func (l *Lease) Items(ctx context.Context) ([]string, error) {
	return l.store.DrainList(ctx, l.handleKey)
}

// Commit drops the handle; its items are considered anchored.
func (l *Lease) Commit(ctx context.Context) error {
	return l.store.DeleteKey(ctx, l.handleKey)
}

// Release moves the handle's items behind the pending list and drops the
// handle in a single write, so a failure leaves them under the handle.
func (l *Lease) Release(ctx context.Context) (int, error) {
	moved, err := l.store.MoveAll(ctx, l.handleKey, l.pendingKey)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue processing handle %s: %w", l.handleKey, err)
	}
	return moved, nil
}
