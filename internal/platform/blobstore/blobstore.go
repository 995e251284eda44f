// Package blobstore provides artifact storage for uploaded screening
// documents and published compliance reports. The engine treats artifact
// references as opaque; only this package knows how to resolve them.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrArtifactTooLarge = errors.New("artifact exceeds maximum allowed size")
	ErrEmptyArtifact    = errors.New("artifact is empty")
)

// MaxArtifactSize is the maximum allowed artifact size in bytes (50 MB).
const MaxArtifactSize = 50 * 1024 * 1024

// Artifact is a stored blob plus its metadata.
type Artifact struct {
	Ref         string    `json:"ref"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store persists opaque artifacts and resolves their references.
type Store interface {
	Put(ctx context.Context, key string, contentType string, data []byte) (*Artifact, error)
	Get(ctx context.Context, ref string) ([]byte, *Artifact, error)
	// Presign returns a URL through which the artifact can be fetched
	// without credentials until expiry elapses.
	Presign(ctx context.Context, ref string, expiry time.Duration) (string, error)
}

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

type memoryBlob struct {
	meta Artifact
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memoryBlob)}
}

func (s *MemoryStore) Put(_ context.Context, key string, contentType string, data []byte) (*Artifact, error) {
	if len(data) == 0 {
		return nil, ErrEmptyArtifact
	}
	if len(data) > MaxArtifactSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrArtifactTooLarge, len(data))
	}

	sum := sha256.Sum256(data)
	meta := Artifact{
		Ref:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Checksum:    hex.EncodeToString(sum[:]),
		StoredAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[key] = memoryBlob{meta: meta, data: stored}

	return &meta, nil
}

func (s *MemoryStore) Get(_ context.Context, ref string) ([]byte, *Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[ref]
	if !ok {
		return nil, nil, ErrArtifactNotFound
	}
	data := make([]byte, len(blob.data))
	copy(data, blob.data)
	meta := blob.meta
	return data, &meta, nil
}

// Presign returns a memory scheme pseudo-URL. There is no HTTP surface over
// the in-memory store; callers only need a stable, resolvable reference.
func (s *MemoryStore) Presign(_ context.Context, ref string, _ time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.blobs[ref]; !ok {
		return "", ErrArtifactNotFound
	}
	return "memory://" + ref, nil
}

// Len reports the number of stored artifacts. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
