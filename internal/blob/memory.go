package blob

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store used by tests and local experiments.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailPuts makes the next N Put calls fail. Lets tests exercise the
	// retry decorator and partial-failure paths.
	failMu   sync.Mutex
	FailPuts int
	failErr  error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// FailNextPuts arms the store to fail the next n Put calls with err.
func (s *Memory) FailNextPuts(n int, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.FailPuts = n
	s.failErr = err
}

func (s *Memory) Put(ctx context.Context, key string, data []byte) error {
	s.failMu.Lock()
	if s.FailPuts > 0 {
		s.FailPuts--
		err := s.failErr
		s.failMu.Unlock()
		return err
	}
	s.failMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = cp
	return nil
}

func (s *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *Memory) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *Memory) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Memory) Close() error { return nil }

// Len returns the number of stored objects.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
