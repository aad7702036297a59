package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/observability"
	"go.uber.org/zap"
)

// persistenceWarning logs and counts a failed snapshot write and returns it
// wrapped with domain.ErrPersistence. In-memory state is already updated when
// this is called, so callers return it next to their result.
func persistenceWarning(
	ctx context.Context,
	logger *zap.Logger,
	metrics *observability.Metrics,
	key string,
	err error,
) error {
	if !errors.Is(err, domain.ErrPersistence) {
		err = fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	observability.WithContextLogger(logger, ctx).Warn("failed to persist snapshot",
		zap.String("key", key),
		zap.Error(err),
	)
	metrics.IncPersistenceFailure(key)
	return err
}
