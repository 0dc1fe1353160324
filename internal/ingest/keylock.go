package ingest

import (
	"context"
	"strings"
	"sync"
)

// keySemaphore is a channel-based lock with a single token. Unlike sync.Mutex it
// can be abandoned when the context is done.
type keySemaphore struct {
	ch chan struct{}
}

func newKeySemaphore() *keySemaphore {
	ks := &keySemaphore{ch: make(chan struct{}, 1)}
	ks.ch <- struct{}{}
	return ks
}

func (k *keySemaphore) acquire(ctx context.Context) error {
	select {
	case <-k.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *keySemaphore) release() {
	// Never block on release.
	select {
	case k.ch <- struct{}{}:
	default:
	}
}

// keyLocks hands out one semaphore per watermark key. Entries are never evicted;
// the key space is bounded by configured sources and observed regions.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keySemaphore
}

func (s *keyLocks) get(key string) *keySemaphore {
	k := strings.TrimSpace(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks == nil {
		s.locks = make(map[string]*keySemaphore)
	}
	ks := s.locks[k]
	if ks == nil {
		ks = newKeySemaphore()
		s.locks[k] = ks
	}
	return ks
}

// with runs fn while holding key.
func (s *keyLocks) with(ctx context.Context, key string, fn func() error) error {
	ks := s.get(key)
	if err := ks.acquire(ctx); err != nil {
		return err
	}
	defer ks.release()
	return fn()
}
