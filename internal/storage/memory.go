package storage

import (
	"context"
	"sync"
)

// MemoryKV is an in-process KV used for tests and for running without Redis.
// Subscribe matches the Redis contract of announcing only writes made by
// other instances; a single-process store has none, so its channels stay
// silent until closed.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string][]byte
	subs   []chan string
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

// Get returns the stored value or ErrNotFound.
func (s *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Set stores a copy of the value. Local writes are not announced to
// subscribers; reloading state this instance just wrote would discard any
// mutation made between the write and the reload.
func (s *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.values[key] = cp
	return nil
}

// Subscribe returns a buffered channel of externally changed key names.
func (s *MemoryKV) Subscribe(ctx context.Context) (<-chan string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan string, 16)
	s.subs = append(s.subs, ch)

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				close(ch)
				break
			}
		}
	}()
	return ch, nil
}

// Close drops all subscribers.
func (s *MemoryKV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		close(sub)
	}
	s.subs = nil
	return nil
}

var _ KV = (*MemoryKV)(nil)
