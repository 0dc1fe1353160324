package state

import (
	"bytes"
	"context"
	"sync"
)

// Memory is a process-local store for tests and dry runs.
type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemory() *Memory { return &Memory{m: map[string][]byte{}} }

func (s *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Memory) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.m[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}

func (s *Memory) Swap(_ context.Context, key string, old []byte, hadOld bool, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[key]
	if ok != hadOld || (ok && !bytes.Equal(cur, old)) {
		return false, nil
	}
	s.m[key] = append([]byte(nil), value...)
	return true, nil
}

func (s *Memory) Close() error { return nil }
