// Package memory implements an in-process snapshot store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
)

var _ snapshot.Store = (*Store)(nil)

// Store implements snapshot.Store backed by process memory. Values are copied
// on the way in and out.
type Store struct {
	mu       sync.RWMutex
	values   map[string][]byte
	notifier *snapshot.Notifier
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		values:   make(map[string][]byte),
		notifier: snapshot.NewNotifier(),
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	value, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: snapshot %q", domain.ErrNotFound, key)
	}
	return cloneBytes(value), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("snapshot key is required")
	}
	if value == nil {
		value = []byte{}
	}

	s.mu.Lock()
	s.values[key] = cloneBytes(value)
	s.mu.Unlock()

	s.notifier.Notify(key, value)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	_, existed := s.values[key]
	delete(s.values, key)
	s.mu.Unlock()

	if existed {
		s.notifier.Notify(key, nil)
	}
	return nil
}

func (s *Store) Subscribe(_ context.Context, key string, fn snapshot.Listener) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("listener is required")
	}
	return s.notifier.Add(key, fn), nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Keys returns the stored keys; used by tests and diagnostics.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
