package proofstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hashgraph-online/device-anchor-go/pkg/blobstore"
	"github.com/hashgraph-online/device-anchor-go/pkg/cachestore"
	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
)

type Config struct {
	Cache    cachestore.Store
	Blobs    blobstore.Store
	CacheTTL time.Duration
	Logger   *zerolog.Logger
}

type Store struct {
	cache  cachestore.Store
	blobs  blobstore.Store
	ttl    time.Duration
	logger zerolog.Logger
}

func New(config Config) (*Store, error) {
	if config.Cache == nil || config.Blobs == nil {
		return nil, shared.NewConfigurationError("proof store requires a cache and a blob store", nil)
	}
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = shared.DefaultProofCacheTTL
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	return &Store{
		cache:  config.Cache,
		blobs:  config.Blobs,
		ttl:    ttl,
		logger: logger.With().Str("component", "proofstore").Logger(),
	}, nil
}

// Put writes the durable copy, then the cache copy. Both writes are always
// attempted and every failure is returned.
func (s *Store) Put(ctx context.Context, leafHash string, proof MerkleProof) error {
	leafHash, err := NormalizeLeafHash(leafHash)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(proof)
	if err != nil {
		return fmt.Errorf("failed to encode proof %s: %w", leafHash, err)
	}

	var failures []error
	if _, err := s.blobs.Put(ctx, BlobPath(leafHash), encoded, BlobContentType); err != nil {
		failures = append(failures, fmt.Errorf("durable write: %w", err))
	}
	if err := s.cache.Set(ctx, CacheKey(leafHash), encoded, s.ttl); err != nil {
		failures = append(failures, fmt.Errorf("cache write: %w", err))
	}
	if len(failures) > 0 {
		return shared.NewTransientError(fmt.Sprintf("failed to persist proof %s", leafHash), errors.Join(failures...))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, leafHash string) (MerkleProof, error) {
	leafHash, err := NormalizeLeafHash(leafHash)
	if err != nil {
		return MerkleProof{}, err
	}

	cached, hit, err := s.cache.Get(ctx, CacheKey(leafHash))
	if err != nil {
		s.logger.Warn().Err(err).Str("leafHash", leafHash).Msg("proof cache read failed, falling back to durable store")
	}
	if hit {
		var proof MerkleProof
		if err := json.Unmarshal(cached, &proof); err == nil {
			return proof, nil
		}
		s.logger.Warn().Str("leafHash", leafHash).Msg("discarding undecodable cached proof")
	}

	url, found, err := s.blobs.FindExact(ctx, BlobPath(leafHash))
	if err != nil {
		return MerkleProof{}, fmt.Errorf("failed to look up proof %s: %w", leafHash, err)
	}
	if !found {
		return MerkleProof{}, shared.NewNotFoundError("proof not found")
	}
	content, err := s.blobs.Fetch(ctx, url)
	if err != nil {
		return MerkleProof{}, fmt.Errorf("failed to fetch proof %s: %w", leafHash, err)
	}

	var proof MerkleProof
	if err := json.Unmarshal(content, &proof); err != nil {
		return MerkleProof{}, fmt.Errorf("failed to decode proof %s: %w", leafHash, err)
	}

	if err := s.cache.Set(ctx, CacheKey(leafHash), content, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("leafHash", leafHash).Msg("proof cache write-back failed")
	}
	return proof, nil
}

// NormalizeLeafHash lower-cases a 64-character hex leaf hash.
func NormalizeLeafHash(leafHash string) (string, error) {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(leafHash), "0x"))
	if len(normalized) != 64 {
		return "", shared.NewValidationError("leaf hash must be 64 hex characters")
	}
	if _, err := hex.DecodeString(normalized); err != nil {
		return "", shared.NewValidationError("leaf hash must be hex")
	}
	return normalized, nil
}
