package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultFlushInterval = 5 * time.Second

// Flushable retries snapshot writes that failed earlier.
type Flushable interface {
	Flush(ctx context.Context) error
}

// SnapshotFlusher periodically flushes services whose last snapshot write
// failed, so the store catches up with in-memory state once it recovers.
type SnapshotFlusher struct {
	targets  []Flushable
	logger   *zap.Logger
	interval time.Duration
}

func NewSnapshotFlusher(interval time.Duration, logger *zap.Logger, targets ...Flushable) (*SnapshotFlusher, error) {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SnapshotFlusher{
		targets:  targets,
		logger:   logger,
		interval: interval,
	}, nil
}

// Start flushes on every tick until ctx is cancelled, then flushes once more.
func (f *SnapshotFlusher) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), f.interval)
			f.flushAll(shutdownCtx)
			cancel()
			return nil
		case <-ticker.C:
			f.flushAll(ctx)
		}
	}
}

func (f *SnapshotFlusher) flushAll(ctx context.Context) int {
	failed := 0
	for _, target := range f.targets {
		if err := target.Flush(ctx); err != nil {
			failed++
			f.logger.Warn("snapshot flush failed", zap.Error(err))
		}
	}
	return failed
}
