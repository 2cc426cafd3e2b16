package storage

import (
	"context"
	"errors"
	"sync"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
)

// StoredObject is a document held by MemoryArchive
type StoredObject struct {
	Content     []byte
	ContentType string
}

// MemoryArchive keeps archived documents in process memory. It backs local
// development and tests when no bucket is configured.
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string]StoredObject
}

// NewMemoryArchive creates an empty MemoryArchive
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: make(map[string]StoredObject)}
}

// Ensure MemoryArchive implements DocumentArchive
var _ appledger.DocumentArchive = (*MemoryArchive)(nil)

// Put stores a copy of content under key
func (m *MemoryArchive) Put(_ context.Context, key string, content []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	cp := make([]byte, len(content))
	copy(cp, content)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = StoredObject{Content: cp, ContentType: contentType}
	return nil
}

// Get returns the object stored under key
func (m *MemoryArchive) Get(key string) (StoredObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Len returns the number of stored objects
func (m *MemoryArchive) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
