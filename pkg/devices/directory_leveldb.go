package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
	"github.com/hashgraph-online/device-anchor-go/pkg/signature"
	"github.com/hashgraph-online/device-anchor-go/pkg/storage"
)

// LevelDirectory stores devices in the shared leveldb database. Writes are
// serialized by a mutex; each write commits the record and its index entries
// in one batch.
type LevelDirectory struct {
	mu  sync.Mutex
	db  *storage.DB
	now func() time.Time
}

func NewLevelDirectory(db *storage.DB) *LevelDirectory {
	return &LevelDirectory{db: db, now: time.Now}
}

func (d *LevelDirectory) Get(ctx context.Context, publicKey string) (Device, error) {
	device, found, err := d.load(normalizeKey(publicKey))
	if err != nil {
		return Device{}, err
	}
	if !found {
		return Device{}, shared.NewNotFoundError("device not found")
	}
	return device, nil
}

func (d *LevelDirectory) GetByIdentityToken(ctx context.Context, identityTokenAddress string) (Device, error) {
	return d.getByIndex(storage.PrefixIdentityIndex, strings.TrimSpace(identityTokenAddress), "no device holds this identity token")
}

func (d *LevelDirectory) GetByClaimToken(ctx context.Context, claimToken string) (Device, error) {
	return d.getByIndex(storage.PrefixClaimIndex, strings.TrimSpace(claimToken), "invalid or expired claim token")
}

func (d *LevelDirectory) Upsert(ctx context.Context, publicKey string, mutate MutateFunc) (Device, error) {
	return d.write(normalizeKey(publicKey), true, mutate)
}

func (d *LevelDirectory) Update(ctx context.Context, publicKey string, mutate MutateFunc) (Device, error) {
	return d.write(normalizeKey(publicKey), false, mutate)
}

func (d *LevelDirectory) getByIndex(prefix byte, value string, missing string) (Device, error) {
	if value == "" {
		return Device{}, shared.NewNotFoundError(missing)
	}
	publicKey, found, err := d.db.Get(storage.Key(prefix, value))
	if err != nil {
		return Device{}, fmt.Errorf("failed to read device index: %w", err)
	}
	if !found {
		return Device{}, shared.NewNotFoundError(missing)
	}

	device, found, err := d.load(string(publicKey))
	if err != nil {
		return Device{}, err
	}
	if !found {
		return Device{}, shared.NewNotFoundError(missing)
	}
	return device, nil
}

func (d *LevelDirectory) load(publicKey string) (Device, bool, error) {
	if publicKey == "" {
		return Device{}, false, nil
	}
	raw, found, err := d.db.Get(storage.Key(storage.PrefixDevice, publicKey))
	if err != nil {
		return Device{}, false, fmt.Errorf("failed to read device: %w", err)
	}
	if !found {
		return Device{}, false, nil
	}

	var device Device
	if err := json.Unmarshal(raw, &device); err != nil {
		return Device{}, false, fmt.Errorf("failed to decode device record: %w", err)
	}
	return device, true, nil
}

func (d *LevelDirectory) write(publicKey string, create bool, mutate MutateFunc) (Device, error) {
	if publicKey == "" {
		return Device{}, shared.NewValidationError("public key is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	previous, found, err := d.load(publicKey)
	if err != nil {
		return Device{}, err
	}
	if !found {
		if !create {
			return Device{}, shared.NewNotFoundError("device not found")
		}
		previous = Device{PublicKey: publicKey, CreatedAt: d.now().UTC()}
	}

	next := previous
	if err := mutate(&next); err != nil {
		return Device{}, err
	}
	next.PublicKey = publicKey
	next.UpdatedAt = d.now().UTC()

	batch := d.db.NewBatch()
	if err := d.stageIndex(batch, storage.PrefixIdentityIndex, publicKey, previous.IdentityTokenAddress, next.IdentityTokenAddress, "identity token"); err != nil {
		return Device{}, err
	}
	if err := d.stageIndex(batch, storage.PrefixClaimIndex, publicKey, previous.ClaimToken, next.ClaimToken, "claim token"); err != nil {
		return Device{}, err
	}

	encoded, err := json.Marshal(next)
	if err != nil {
		return Device{}, fmt.Errorf("failed to encode device record: %w", err)
	}
	batch.Put(storage.Key(storage.PrefixDevice, publicKey), encoded)

	if err := d.db.Commit(batch); err != nil {
		return Device{}, fmt.Errorf("failed to write device record: %w", err)
	}
	return next, nil
}

type batchWriter interface {
	Put(key, value []byte)
	Delete(key []byte)
}

func (d *LevelDirectory) stageIndex(batch batchWriter, prefix byte, publicKey, previous, next, label string) error {
	if previous == next {
		return nil
	}
	if next != "" {
		owner, found, err := d.db.Get(storage.Key(prefix, next))
		if err != nil {
			return fmt.Errorf("failed to read %s index: %w", label, err)
		}
		if found && string(owner) != publicKey {
			return shared.NewConflictError(fmt.Sprintf("%s already belongs to another device", label))
		}
		batch.Put(storage.Key(prefix, next), []byte(publicKey))
	}
	if previous != "" {
		batch.Delete(storage.Key(prefix, previous))
	}
	return nil
}

func normalizeKey(publicKey string) string {
	return signature.NormalizePublicKey(publicKey)
}
