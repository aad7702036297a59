package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/observability"
	"github.com/kursadbilgin/batch-trace/internal/repository"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
	"go.uber.org/zap"
)

// Subscriber is the change-notification half of snapshot.Store.
type Subscriber interface {
	Subscribe(ctx context.Context, key string, fn snapshot.Listener) (cancel func(), err error)
}

// OperatorService tracks the operator currently signed in at this station.
type OperatorService struct {
	mu      sync.RWMutex
	current string
	// dirty is set while the stored operator lags behind current.
	dirty  bool
	cancel func()

	repo    repository.OperatorRepository
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewOperatorService(ctx context.Context, repo repository.OperatorRepository, logger *zap.Logger) (*OperatorService, error) {
	if repo == nil {
		return nil, fmt.Errorf("operator repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stored, err := repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load operator: %w", err)
	}

	s := &OperatorService{repo: repo, logger: logger}
	s.current = s.known(stored)
	return s, nil
}

func (s *OperatorService) SetMetrics(metrics *observability.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = metrics
}

// Watch keeps the current operator in sync with writes to the operator key
// made by other processes sharing the store.
func (s *OperatorService) Watch(ctx context.Context, sub Subscriber) error {
	cancel, err := sub.Subscribe(ctx, snapshot.KeyOperator, func(value []byte) {
		name := ""
		if value != nil {
			name = s.known(repository.DecodeOperator(value))
		}

		s.mu.Lock()
		changed := s.current != name
		s.current = name
		s.dirty = false
		s.mu.Unlock()

		if changed {
			s.logger.Info("operator changed externally", zap.String("operator", name))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch operator: %w", err)
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()
	return nil
}

// Close stops watching.
func (s *OperatorService) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *OperatorService) Operators() []string {
	return domain.Operators()
}

// Current returns the signed-in operator; ok is false when nobody is.
func (s *OperatorService) Current() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != ""
}

// Login selects name from the closed operator list.
func (s *OperatorService) Login(ctx context.Context, name string) (string, error) {
	operator, err := domain.ParseOperator(name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.current = operator
	metrics := s.metrics
	s.mu.Unlock()

	observability.WithContextLogger(s.logger, ctx).Info("operator signed in", zap.String("operator", operator))

	if err := s.write(ctx, operator); err != nil {
		return operator, persistenceWarning(ctx, s.logger, metrics, snapshot.KeyOperator, err)
	}
	return operator, nil
}

func (s *OperatorService) Logout(ctx context.Context) error {
	s.mu.Lock()
	previous := s.current
	s.current = ""
	metrics := s.metrics
	s.mu.Unlock()

	observability.WithContextLogger(s.logger, ctx).Info("operator signed out", zap.String("operator", previous))

	if err := s.write(ctx, ""); err != nil {
		return persistenceWarning(ctx, s.logger, metrics, snapshot.KeyOperator, err)
	}
	return nil
}

// Flush writes the current operator if an earlier Login or Logout failed to.
func (s *OperatorService) Flush(ctx context.Context) error {
	s.mu.RLock()
	dirty, operator := s.dirty, s.current
	s.mu.RUnlock()

	if !dirty {
		return nil
	}
	if err := s.write(ctx, operator); err != nil {
		return fmt.Errorf("failed to flush operator: %w", err)
	}
	return nil
}

// write stores operator, deleting the key for "", and tracks whether the store
// still lags behind. It runs without s.mu because stores may notify watchers
// synchronously.
func (s *OperatorService) write(ctx context.Context, operator string) error {
	var err error
	if operator == "" {
		err = s.repo.Clear(ctx)
	} else {
		err = s.repo.Set(ctx, operator)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == operator {
		s.dirty = err != nil
	}
	return err
}

// known maps a stored name onto the operator list, or "" when it is not on it.
func (s *OperatorService) known(name string) string {
	if name == "" {
		return ""
	}
	operator, err := domain.ParseOperator(name)
	if err != nil {
		s.logger.Warn("ignoring unknown stored operator", zap.String("operator", name))
		return ""
	}
	return operator
}
