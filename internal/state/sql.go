package state

import "context"

// SQL stores watermarks in the relational store's watermark table.
type SQL struct {
	wm Watermarks
}

func NewSQL(wm Watermarks) *SQL { return &SQL{wm: wm} }

func (s *SQL) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.wm.GetWatermark(ctx, key)
}

func (s *SQL) Set(ctx context.Context, key string, value []byte) error {
	return s.wm.PutWatermark(ctx, key, value)
}

func (s *SQL) Swap(ctx context.Context, key string, old []byte, hadOld bool, value []byte) (bool, error) {
	return s.wm.SwapWatermark(ctx, key, old, hadOld, value)
}

// Close is a no-op; the relational store is owned by the caller.
func (s *SQL) Close() error { return nil }
