package state

import (
	"bytes"
	"context"
	"sync"
)

// Overlay reads through to a base store and keeps every write in memory.
// The base store is never written and stays owned by the caller.
type Overlay struct {
	base Store
	mem  *Memory
	mu   sync.Mutex
}

func NewOverlay(base Store) *Overlay { return &Overlay{base: base, mem: NewMemory()} }

func (o *Overlay) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, _ := o.mem.Get(ctx, key); ok {
		return v, true, nil
	}
	return o.base.Get(ctx, key)
}

func (o *Overlay) Set(ctx context.Context, key string, value []byte) error {
	return o.mem.Set(ctx, key, value)
}

func (o *Overlay) Swap(ctx context.Context, key string, old []byte, hadOld bool, value []byte) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cur, ok, err := o.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if ok != hadOld || (ok && !bytes.Equal(cur, old)) {
		return false, nil
	}
	return true, o.mem.Set(ctx, key, value)
}

func (o *Overlay) Close() error { return nil }
