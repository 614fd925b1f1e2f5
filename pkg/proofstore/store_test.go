package proofstore

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hashgraph-online/device-anchor-go/pkg/blobstore"
	"github.com/hashgraph-online/device-anchor-go/pkg/cachestore"
	"github.com/hashgraph-online/device-anchor-go/pkg/merkle"
	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
	"github.com/hashgraph-online/device-anchor-go/pkg/storage"
)

type failingBlobs struct{}

func (failingBlobs) Put(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("disk full")
}

func (failingBlobs) FindExact(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (failingBlobs) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("unreachable")
}

func newTestStore(t *testing.T) (*Store, *cachestore.Cache, *blobstore.LevelStore) {
	t.Helper()
	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cache := cachestore.New(time.Minute)
	blobs := blobstore.NewLevelStore(db)
	store, err := New(Config{Cache: cache, Blobs: blobs, CacheTTL: time.Hour})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	return store, cache, blobs
}

func sampleProof(t *testing.T) MerkleProof {
	t.Helper()
	payloads := []string{"t=1,v=10", "t=2,v=11", "t=3,v=12"}
	tree, err := merkle.BuildFromPayloads(payloads)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	steps, err := tree.Proof(1)
	if err != nil {
		t.Fatalf("proof failed: %v", err)
	}
	return MerkleProof{
		Root:                 tree.RootHex(),
		Proof:                steps,
		TransactionSignature: "0.0.1001@1700000000.000000001",
		OriginalPayload:      payloads[1],
		LeafHash:             merkle.LeafHashHex(payloads[1]),
		TopicID:              "0.0.5005",
		SequenceNumber:       7,
	}
}

func TestPutGetFromCache(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	proof := sampleProof(t)

	if err := store.Put(ctx, proof.LeafHash, proof); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, err := store.Get(ctx, strings.ToUpper(proof.LeafHash))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !reflect.DeepEqual(got, proof) {
		t.Fatalf("unexpected proof: %+v", got)
	}
	if !got.Verify() {
		t.Fatal("stored proof should verify")
	}
}

func TestGetFallsBackToDurableAndWritesBack(t *testing.T) {
	store, _, blobs := newTestStore(t)
	ctx := context.Background()
	proof := sampleProof(t)

	if err := store.Put(ctx, proof.LeafHash, proof); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	cold := cachestore.New(time.Minute)
	coldStore, _ := New(Config{Cache: cold, Blobs: blobs, CacheTTL: time.Hour})

	got, err := coldStore.Get(ctx, proof.LeafHash)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !reflect.DeepEqual(got, proof) {
		t.Fatalf("durable copy differs: %+v", got)
	}
	if _, hit, _ := cold.Get(ctx, CacheKey(proof.LeafHash)); !hit {
		t.Fatal("expected write-back into the cache")
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	store, _, _ := newTestStore(t)
	_, err := store.Get(context.Background(), merkle.LeafHashHex("absent"))
	if !shared.IsCode(err, shared.ErrorCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetRejectsMalformedHash(t *testing.T) {
	store, _, _ := newTestStore(t)
	for _, input := range []string{"", "abc", strings.Repeat("z", 64)} {
		if _, err := store.Get(context.Background(), input); !shared.IsCode(err, shared.ErrorCodeValidation) {
			t.Fatalf("expected validation error for %q, got %v", input, err)
		}
	}
}

func TestPutSurfacesDurableFailureAndStillCaches(t *testing.T) {
	cache := cachestore.New(time.Minute)
	store, err := New(Config{Cache: cache, Blobs: failingBlobs{}})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	proof := sampleProof(t)

	err = store.Put(context.Background(), proof.LeafHash, proof)
	if !shared.IsCode(err, shared.ErrorCodeTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected cause in error, got %v", err)
	}
	if _, hit, _ := cache.Get(context.Background(), CacheKey(proof.LeafHash)); !hit {
		t.Fatal("cache write should still be attempted")
	}
}

func TestNewRequiresStores(t *testing.T) {
	if _, err := New(Config{}); !shared.IsCode(err, shared.ErrorCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
