// Package state keeps the last observed value per watermark key.
//
// Values are opaque bytes; callers decide the encoding. A missing key is not an
// error: Get reports ok=false.
package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logx "healthwatch/pkg/logx"
)

var ErrUnknownDriver = errors.New("unknown state driver")

// Store is a watermark store.
//
// Swap is the conditional write: it stores value only if key still holds old
// (or is still absent when hadOld is false). Two processes that read the same
// previous value cannot both win.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Swap(ctx context.Context, key string, old []byte, hadOld bool, value []byte) (bool, error)
	Close() error
}

// Watermarks is the subset of the relational store used by the "sql" driver.
type Watermarks interface {
	GetWatermark(ctx context.Context, key string) ([]byte, bool, error)
	PutWatermark(ctx context.Context, key string, value []byte) error
	SwapWatermark(ctx context.Context, key string, old []byte, hadOld bool, value []byte) (bool, error)
}

type Config struct {
	Driver    string
	KeyPrefix string
	Redis     RedisConfig
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Open builds the configured store. wm is only used by the "sql" driver.
func Open(ctx context.Context, cfg Config, wm Watermarks, log logx.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "memory", "mem":
		return NewMemory(), nil
	case "sql", "":
		if wm == nil {
			return nil, errors.New("sql state driver requires storage")
		}
		return NewSQL(wm), nil
	case "redis":
		return NewRedis(ctx, cfg.Redis, cfg.KeyPrefix, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
