package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/arflow/backend/internal/application/syncer"
)

// Ensure MemoryArchiveStore implements ArchiveStore
var _ syncer.ArchiveStore = (*MemoryArchiveStore)(nil)

// MemoryArchiveStore keeps archived objects in memory. Used in development
// and tests when no object storage is configured.
type MemoryArchiveStore struct {
	mu      sync.RWMutex
	objects map[string]archivedObject
}

type archivedObject struct {
	body        []byte
	contentType string
}

// NewMemoryArchiveStore creates an empty in-memory archive
func NewMemoryArchiveStore() *MemoryArchiveStore {
	return &MemoryArchiveStore{objects: make(map[string]archivedObject)}
}

// Put stores the body under the key and returns the key unchanged
func (s *MemoryArchiveStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("object key is required")
	}

	stored := make([]byte, len(body))
	copy(stored, body)

	s.mu.Lock()
	s.objects[key] = archivedObject{body: stored, contentType: contentType}
	s.mu.Unlock()

	return key, nil
}

// Get returns a stored object body and content type
func (s *MemoryArchiveStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.body, obj.contentType, ok
}

// Len returns the number of stored objects
func (s *MemoryArchiveStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
