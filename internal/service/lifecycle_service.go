package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/observability"
	"github.com/kursadbilgin/batch-trace/internal/repository"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
	"go.uber.org/zap"
)

const (
	actionStart    = "start"
	actionPause    = "pause"
	actionComplete = "complete"
	actionUpdate   = "update"
)

// Deriver turns a completing batch into its completed record and lot.
type Deriver interface {
	Derive(ctx context.Context, batch domain.Batch, payload domain.CompletionPayload, now time.Time) (domain.CompletedBatch, domain.Lot, error)
}

// BatchFilter narrows List. A nil Status and false ActiveOnly return everything.
type BatchFilter struct {
	Status     *domain.BatchStatus
	ActiveOnly bool
}

// CompletionResult is the outcome of a successful Complete call.
type CompletionResult struct {
	Batch          domain.Batch
	CompletedBatch domain.CompletedBatch
	Lot            domain.Lot
}

// LifecycleService owns the batch collection and applies start, pause,
// complete and update actions to it one at a time. Every action starts from the
// stored snapshot so writes by other processes sharing the store survive.
type LifecycleService struct {
	mu      sync.Mutex
	batches []domain.Batch
	// pending holds the IDs of batches changed locally whose write failed.
	pending map[string]struct{}
	stale   atomic.Bool
	cancel  func()

	repo    repository.BatchRepository
	deriver Deriver
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewLifecycleService(
	ctx context.Context,
	repo repository.BatchRepository,
	deriver Deriver,
	logger *zap.Logger,
) (*LifecycleService, error) {
	if repo == nil {
		return nil, fmt.Errorf("batch repository is required")
	}
	if deriver == nil {
		return nil, fmt.Errorf("completion deriver is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	batches, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load batches: %w", err)
	}

	return &LifecycleService{
		batches: batches,
		pending: make(map[string]struct{}),
		repo:    repo,
		deriver: deriver,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// SetMetrics attaches collectors and publishes the current status counts.
func (s *LifecycleService) SetMetrics(metrics *observability.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = metrics
	s.publishStatusCounts()
}

// Watch marks the batches stale whenever the batch snapshot is rewritten, so
// the next read reloads it.
func (s *LifecycleService) Watch(ctx context.Context, sub Subscriber) error {
	cancel, err := sub.Subscribe(ctx, snapshot.KeyBatches, func([]byte) {
		s.stale.Store(true)
	})
	if err != nil {
		return fmt.Errorf("failed to watch batches: %w", err)
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
func (s *LifecycleService) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *LifecycleService) List(ctx context.Context, filter BatchFilter) []domain.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshIfStale(ctx)

	out := make([]domain.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		if filter.ActiveOnly && b.Status == domain.BatchStatusCompleted {
			continue
		}
		out = append(out, b.Clone())
	}
	return out
}

func (s *LifecycleService) Get(ctx context.Context, id string) (domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshIfStale(ctx)

	idx, err := s.indexOf(id)
	if err != nil {
		return domain.Batch{}, err
	}
	return s.batches[idx].Clone(), nil
}

// StatusCounts returns the number of batches in each status.
func (s *LifecycleService) StatusCounts(ctx context.Context) map[domain.BatchStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshIfStale(ctx)

	return s.statusCounts()
}

// Start moves a Planned or Paused batch to In Process. The first start time is
// kept across resumes.
func (s *LifecycleService) Start(ctx context.Context, id string, operator string) (domain.Batch, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return domain.Batch{}, fmt.Errorf("%w: operator is required to start a batch", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(ctx)

	idx, err := s.indexOf(id)
	if err != nil {
		return domain.Batch{}, err
	}

	current := s.batches[idx]
	if !current.Status.CanTransitionTo(domain.BatchStatusInProcess) {
		return domain.Batch{}, fmt.Errorf("%w: cannot start batch %s from status %q", domain.ErrInvalidTransition, id, current.Status)
	}

	now := s.now().UTC()
	status := domain.BatchStatusInProcess
	patch := domain.BatchPatch{
		Status:         &status,
		Operator:       &operator,
		ClearPauseTime: true,
	}
	if current.StartTime == nil {
		patch.StartTime = &now
	}

	return s.commit(ctx, idx, patch, actionStart)
}

func (s *LifecycleService) Pause(ctx context.Context, id string) (domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(ctx)

	idx, err := s.indexOf(id)
	if err != nil {
		return domain.Batch{}, err
	}

	current := s.batches[idx]
	if !current.Status.CanTransitionTo(domain.BatchStatusPaused) {
		return domain.Batch{}, fmt.Errorf("%w: cannot pause batch %s from status %q", domain.ErrInvalidTransition, id, current.Status)
	}

	now := s.now().UTC()
	status := domain.BatchStatusPaused
	return s.commit(ctx, idx, domain.BatchPatch{Status: &status, PauseTime: &now}, actionPause)
}

// Complete finishes an In Process batch and records its lot. A paused batch has
// to be resumed first.
func (s *LifecycleService) Complete(ctx context.Context, id string, payload domain.CompletionPayload) (CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(ctx)

	idx, err := s.indexOf(id)
	if err != nil {
		return CompletionResult{}, err
	}

	current := s.batches[idx]
	switch {
	case current.Status == domain.BatchStatusPaused:
		return CompletionResult{}, fmt.Errorf("%w: batch %s is paused, resume it before completing", domain.ErrInvalidTransition, id)
	case !current.Status.CanTransitionTo(domain.BatchStatusCompleted):
		return CompletionResult{}, fmt.Errorf("%w: cannot complete batch %s from status %q", domain.ErrInvalidTransition, id, current.Status)
	}

	now := s.now().UTC()
	status := domain.BatchStatusCompleted
	patch := domain.BatchPatch{Status: &status, EndTime: &now}

	completing := current.Clone()
	completing.Apply(patch)

	completed, lot, deriveErr := s.deriver.Derive(ctx, completing, payload, now)
	if deriveErr != nil && !errors.Is(deriveErr, domain.ErrPersistence) {
		return CompletionResult{}, deriveErr
	}

	updated, commitErr := s.commit(ctx, idx, patch, actionComplete)
	observability.WithContextLogger(s.logger, ctx).Info("batch completed",
		zap.String("batchId", id),
		zap.String("lot", lot.Lot),
		zap.Float64("actualYield", completed.ActualYield),
	)

	return CompletionResult{
		Batch:          updated,
		CompletedBatch: completed,
		Lot:            lot,
	}, errors.Join(deriveErr, commitErr)
}

// Update applies a descriptive merge-patch. Status and lifecycle timestamps
// only change through Start, Pause and Complete.
func (s *LifecycleService) Update(ctx context.Context, id string, patch domain.BatchPatch) (domain.Batch, error) {
	if patch.TouchesLifecycle() {
		return domain.Batch{}, fmt.Errorf("%w: status and lifecycle timestamps cannot be patched", domain.ErrValidation)
	}
	if patch.Materials != nil {
		for _, m := range *patch.Materials {
			if m.ActualQty != nil {
				return domain.Batch{}, fmt.Errorf("%w: actual quantity of %q is recorded at completion", domain.ErrValidation, m.Name)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(ctx)

	idx, err := s.indexOf(id)
	if err != nil {
		return domain.Batch{}, err
	}
	if s.batches[idx].Status.IsTerminal() {
		return domain.Batch{}, fmt.Errorf("%w: batch %s is completed", domain.ErrInvalidTransition, id)
	}

	candidate := s.batches[idx].Clone()
	candidate.Apply(patch)
	if err := candidate.Validate(); err != nil {
		return domain.Batch{}, err
	}

	return s.commit(ctx, idx, patch, actionUpdate)
}

// Elapsed renders the running time of b as "{h}h {m}m". ok is false for a
// batch that was never started.
func (s *LifecycleService) Elapsed(b domain.Batch) (string, bool) {
	d, ok := b.Elapsed(s.now().UTC())
	if !ok {
		return "", false
	}
	return domain.FormatElapsed(d), true
}

// commit merges patch into the batch at idx and persists the collection. The
// caller holds s.mu.
func (s *LifecycleService) commit(ctx context.Context, idx int, patch domain.BatchPatch, action string) (domain.Batch, error) {
	s.batches[idx].Apply(patch)
	updated := s.batches[idx].Clone()

	s.metrics.IncBatchTransition(action)
	s.publishStatusCounts()

	observability.WithContextLogger(s.logger, ctx).Info("batch updated",
		zap.String("batchId", updated.ID),
		zap.String("action", action),
		zap.String("status", updated.Status.String()),
	)

	s.pending[updated.ID] = struct{}{}
	if err := s.repo.Save(ctx, s.batches); err != nil {
		return updated, persistenceWarning(ctx, s.logger, s.metrics, snapshot.KeyBatches, err)
	}
	clear(s.pending)
	return updated, nil
}

// Flush rewrites the batch snapshot if the last write failed. Batches other
// processes changed in the meantime are taken from the store first.
func (s *LifecycleService) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	s.refresh(ctx)
	if err := s.repo.Save(ctx, s.batches); err != nil {
		return fmt.Errorf("failed to flush batches: %w", err)
	}
	clear(s.pending)
	return nil
}

// refresh replaces the batches with the stored snapshot, keeping the local
// version of every pending batch. A failed load keeps the in-memory state. The
// caller holds s.mu.
func (s *LifecycleService) refresh(ctx context.Context) {
	s.stale.Store(false)
	stored, err := s.repo.Load(ctx)
	if err != nil {
		s.stale.Store(true)
		observability.WithContextLogger(s.logger, ctx).Warn("failed to reload batches", zap.Error(err))
		return
	}
	s.batches = mergeBatches(stored, s.batches, s.pending)
	s.publishStatusCounts()
}

func (s *LifecycleService) refreshIfStale(ctx context.Context) {
	if s.stale.Load() {
		s.refresh(ctx)
	}
}

// mergeBatches returns stored with each pending batch replaced by its local copy.
func mergeBatches(stored, local []domain.Batch, pending map[string]struct{}) []domain.Batch {
	if len(pending) == 0 {
		return stored
	}

	byID := make(map[string]domain.Batch, len(pending))
	for _, b := range local {
		if _, ok := pending[b.ID]; ok {
			byID[b.ID] = b
		}
	}

	out := make([]domain.Batch, 0, len(stored))
	for _, b := range stored {
		if l, ok := byID[b.ID]; ok {
			b = l
			delete(byID, b.ID)
		}
		out = append(out, b)
	}
	for _, b := range local {
		if _, ok := byID[b.ID]; ok {
			out = append(out, b)
		}
	}
	return out
}

func (s *LifecycleService) indexOf(id string) (int, error) {
	id = strings.TrimSpace(id)
	for i := range s.batches {
		if s.batches[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: batch %s", domain.ErrNotFound, id)
}

func (s *LifecycleService) statusCounts() map[domain.BatchStatus]int {
	counts := make(map[domain.BatchStatus]int, 4)
	for _, b := range s.batches {
		counts[b.Status]++
	}
	return counts
}

func (s *LifecycleService) publishStatusCounts() {
	if s.metrics == nil {
		return
	}

	known := []string{
		domain.BatchStatusPlanned.String(),
		domain.BatchStatusInProcess.String(),
		domain.BatchStatusPaused.String(),
		domain.BatchStatusCompleted.String(),
	}
	counts := make(map[string]int, len(known))
	for status, n := range s.statusCounts() {
		counts[status.String()] = n
	}
	s.metrics.SetBatchesByStatus(known, counts)
}
