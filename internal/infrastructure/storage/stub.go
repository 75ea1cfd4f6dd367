package storage

import (
	"context"
	"sync"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
)

// MemoryArtifactStorage keeps artifacts in process memory. It is used when
// object storage is disabled and in tests; contents are lost on restart.
type MemoryArtifactStorage struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// Object is a stored artifact.
type Object struct {
	Data        []byte
	ContentType string
}

// NewMemoryArtifactStorage creates an empty in-memory store
func NewMemoryArtifactStorage() *MemoryArtifactStorage {
	return &MemoryArtifactStorage{objects: make(map[string]Object)}
}

// Put stores a copy of data and returns a memory:// reference
func (s *MemoryArtifactStorage) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", integration.Rejected(integration.SystemStorage, StepPut, "storage key is required")
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.objects[key] = Object{Data: cp, ContentType: contentType}
	s.mu.Unlock()
	return "memory://" + key, nil
}

// Get returns the object stored under key
func (s *MemoryArtifactStorage) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

var _ integration.ArtifactStorage = (*MemoryArtifactStorage)(nil)
