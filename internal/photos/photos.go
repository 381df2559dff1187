// Package photos keeps registration photos in object storage.
package photos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown object keys.
var ErrNotFound = errors.New("photo not found")

// MaxSize bounds an uploaded photo.
const MaxSize = 8 << 20

// Store saves and loads photo bytes by key.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// NewKey returns a fresh object key for a photo of identityID.
func NewKey(identityID string) string {
	return fmt.Sprintf("identities/%s/%s", identityID, uuid.NewString())
}

// Validate checks size and sniffs the content type. Only JPEG and PNG are accepted.
func Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty photo")
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("photo exceeds %d bytes", MaxSize)
	}
	ct := http.DetectContentType(data)
	switch ct {
	case "image/jpeg", "image/png":
		return ct, nil
	default:
		return "", fmt.Errorf("unsupported photo type %s", ct)
	}
}

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, key string, data []byte, _ string) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.objects[key] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return data, nil
}
