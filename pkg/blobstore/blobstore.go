package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
	"github.com/hashgraph-online/device-anchor-go/pkg/storage"
)

const URLScheme = "blob://"

type Store interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	// FindExact returns the URL of the object at path, or found=false.
	FindExact(ctx context.Context, path string) (string, bool, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type object struct {
	ContentType string    `json:"contentType"`
	Size        int       `json:"size"`
	StoredAt    time.Time `json:"storedAt"`
	Content     []byte    `json:"content"`
}

type LevelStore struct {
	db *storage.DB
}

func NewLevelStore(db *storage.DB) *LevelStore {
	return &LevelStore{db: db}
}

func (s *LevelStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	path, err := normalizePath(path)
	if err != nil {
		return "", err
	}

	var compressed bytes.Buffer
	writer := brotli.NewWriterLevel(&compressed, brotli.DefaultCompression)
	if _, err := writer.Write(data); err != nil {
		return "", fmt.Errorf("failed to compress blob %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to compress blob %s: %w", path, err)
	}

	encoded, err := json.Marshal(object{
		ContentType: contentType,
		Size:        len(data),
		StoredAt:    time.Now().UTC(),
		Content:     compressed.Bytes(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode blob %s: %w", path, err)
	}
	if err := s.db.Put(storage.Key(storage.PrefixBlob, path), encoded); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", path, err)
	}
	return URLScheme + path, nil
}

func (s *LevelStore) FindExact(ctx context.Context, path string) (string, bool, error) {
	path, err := normalizePath(path)
	if err != nil {
		return "", false, err
	}
	exists, err := s.db.Has(storage.Key(storage.PrefixBlob, path))
	if err != nil {
		return "", false, fmt.Errorf("failed to look up blob %s: %w", path, err)
	}
	if !exists {
		return "", false, nil
	}
	return URLScheme + path, true, nil
}

func (s *LevelStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, URLScheme) {
		return nil, shared.NewValidationError(fmt.Sprintf("unsupported blob URL %q", url))
	}
	path := strings.TrimPrefix(url, URLScheme)

	raw, found, err := s.db.Get(storage.Key(storage.PrefixBlob, path))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", path, err)
	}
	if !found {
		return nil, shared.NewNotFoundError(fmt.Sprintf("blob %s not found", path))
	}

	var stored object
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode blob %s: %w", path, err)
	}
	data, err := io.ReadAll(brotli.NewReader(bytes.NewReader(stored.Content)))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress blob %s: %w", path, err)
	}
	if len(data) != stored.Size {
		return nil, fmt.Errorf("blob %s is %d bytes, expected %d", path, len(data), stored.Size)
	}
	return data, nil
}

func normalizePath(path string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return "", shared.NewValidationError("blob path is required")
	}
	return trimmed, nil
}
