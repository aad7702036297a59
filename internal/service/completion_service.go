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

// maxLotNumberAttempts bounds the search for a free lot number when two
// completions land on the same millisecond suffix.
const maxLotNumberAttempts = 1000

var _ Deriver = (*CompletionService)(nil)

// CompletionService derives completed-batch records and lots and owns both
// collections. Both are append-only, so the in-memory copies are merged with
// the stored snapshots before each write.
type CompletionService struct {
	mu        sync.Mutex
	lots      []domain.Lot
	completed []domain.CompletedBatch
	dirty     bool
	stale     atomic.Bool
	cancels   []func()

	lotRepo       repository.LotRepository
	completedRepo repository.CompletedBatchRepository
	logger        *zap.Logger
	metrics       *observability.Metrics
}

func NewCompletionService(
	ctx context.Context,
	lotRepo repository.LotRepository,
	completedRepo repository.CompletedBatchRepository,
	logger *zap.Logger,
) (*CompletionService, error) {
	if lotRepo == nil || completedRepo == nil {
		return nil, fmt.Errorf("lot and completed batch repositories are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	lots, err := lotRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load lots: %w", err)
	}
	completed, err := completedRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed batches: %w", err)
	}

	return &CompletionService{
		lots:          lots,
		completed:     completed,
		lotRepo:       lotRepo,
		completedRepo: completedRepo,
		logger:        logger,
	}, nil
}

func (s *CompletionService) SetMetrics(metrics *observability.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = metrics
}

// Watch marks the lots and completed batches stale whenever either snapshot is
// rewritten, so the next read reloads them.
func (s *CompletionService) Watch(ctx context.Context, sub Subscriber) error {
	markStale := func([]byte) { s.stale.Store(true) }

	cancels := make([]func(), 0, 2)
	for _, key := range []string{snapshot.KeyLots, snapshot.KeyCompletedBatches} {
		cancel, err := sub.Subscribe(ctx, key, markStale)
		if err != nil {
			for _, c := range cancels {
				c()
			}
			return fmt.Errorf("failed to watch %s: %w", key, err)
		}
		cancels = append(cancels, cancel)
	}

	s.mu.Lock()
	previous := s.cancels
	s.cancels = cancels
	s.mu.Unlock()

	for _, c := range previous {
		c()
	}
	return nil
}

// Close stops watching.
func (s *CompletionService) Close() {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}

// Derive validates payload, records a CompletedBatch and a Lot for batch and
// persists both collections. A persistence failure is returned wrapped with
// domain.ErrPersistence together with the derived records.
func (s *CompletionService) Derive(
	ctx context.Context,
	batch domain.Batch,
	payload domain.CompletionPayload,
	now time.Time,
) (domain.CompletedBatch, domain.Lot, error) {
	if err := payload.Validate(); err != nil {
		return domain.CompletedBatch{}, domain.Lot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(ctx)

	for _, existing := range s.lots {
		if existing.BatchID == batch.ID {
			return domain.CompletedBatch{}, domain.Lot{}, fmt.Errorf(
				"%w: batch %s already produced lot %s", domain.ErrInvalidTransition, batch.ID, existing.Lot)
		}
	}

	lotNumber, err := s.nextLotNumber(batch.ID, now.UnixMilli())
	if err != nil {
		return domain.CompletedBatch{}, domain.Lot{}, err
	}

	now = now.UTC()
	operator := strings.TrimSpace(payload.Operator)
	used := materialsUsed(batch.Materials, payload.MaterialsUsed)

	record := batch.Clone()
	record.Status = domain.BatchStatusCompleted
	if record.EndTime == nil {
		record.EndTime = &now
	}
	if record.Operator == "" {
		record.Operator = operator
	}

	completed := domain.CompletedBatch{
		Batch:         record,
		ActualYield:   *payload.ActualYield,
		ScrapQuantity: payload.Scrap(),
		LotNumber:     lotNumber,
		MaterialsUsed: used,
	}

	inputs := make([]domain.LotInput, 0, len(used))
	for _, m := range used {
		inputs = append(inputs, domain.LotInput{Material: m.Name, Qty: m.ActualOrZero(), Unit: m.Unit})
	}
	lot := domain.Lot{
		Lot:         lotNumber,
		Product:     batch.ProductName,
		Yield:       *payload.ActualYield,
		Unit:        batch.Unit,
		BatchID:     batch.ID,
		CompletedAt: now,
		Operator:    operator,
		Inputs:      inputs,
	}

	s.completed = append(s.completed, completed)
	s.lots = append(s.lots, lot)
	s.metrics.IncLotCreated(lot.Product)

	observability.WithContextLogger(s.logger, ctx).Info("lot created",
		zap.String("lot", lot.Lot),
		zap.String("batchId", lot.BatchID),
		zap.Int("inputs", len(lot.Inputs)),
	)

	var warnings []error
	if err := s.completedRepo.Save(ctx, s.completed); err != nil {
		warnings = append(warnings, persistenceWarning(ctx, s.logger, s.metrics, snapshot.KeyCompletedBatches, err))
	}
	if err := s.lotRepo.Save(ctx, s.lots); err != nil {
		warnings = append(warnings, persistenceWarning(ctx, s.logger, s.metrics, snapshot.KeyLots, err))
	}
	s.dirty = len(warnings) > 0

	return completed.Clone(), lot.Clone(), errors.Join(warnings...)
}

// Flush rewrites both snapshots if the last write failed.
func (s *CompletionService) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	s.refresh(ctx)
	if err := s.completedRepo.Save(ctx, s.completed); err != nil {
		return fmt.Errorf("failed to flush completed batches: %w", err)
	}
	if err := s.lotRepo.Save(ctx, s.lots); err != nil {
		return fmt.Errorf("failed to flush lots: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *CompletionService) ListLots(ctx context.Context) []domain.Lot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshIfStale(ctx)

	out := make([]domain.Lot, 0, len(s.lots))
	for _, l := range s.lots {
		out = append(out, l.Clone())
	}
	return out
}

func (s *CompletionService) GetLot(ctx context.Context, lotNumber string) (domain.Lot, error) {
	lotNumber = strings.TrimSpace(lotNumber)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshIfStale(ctx)

	for _, l := range s.lots {
		if l.Lot == lotNumber {
			return l.Clone(), nil
		}
	}
	return domain.Lot{}, fmt.Errorf("%w: lot %s", domain.ErrNotFound, lotNumber)
}

func (s *CompletionService) ListCompletedBatches(ctx context.Context) []domain.CompletedBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshIfStale(ctx)

	out := make([]domain.CompletedBatch, 0, len(s.completed))
	for _, c := range s.completed {
		out = append(out, c.Clone())
	}
	return out
}

// refresh merges the stored snapshots into the in-memory collections. Records
// only held locally are kept after the stored ones. A failed load keeps the
// in-memory state. The caller holds s.mu.
func (s *CompletionService) refresh(ctx context.Context) {
	s.stale.Store(false)
	lots, err := s.lotRepo.Load(ctx)
	if err != nil {
		s.stale.Store(true)
		observability.WithContextLogger(s.logger, ctx).Warn("failed to reload lots", zap.Error(err))
		return
	}
	completed, err := s.completedRepo.Load(ctx)
	if err != nil {
		s.stale.Store(true)
		observability.WithContextLogger(s.logger, ctx).Warn("failed to reload completed batches", zap.Error(err))
		return
	}

	s.lots = mergeRecords(lots, s.lots, func(l domain.Lot) string { return l.Lot })
	s.completed = mergeRecords(completed, s.completed, func(c domain.CompletedBatch) string { return c.LotNumber })
}

func (s *CompletionService) refreshIfStale(ctx context.Context) {
	if s.stale.Load() {
		s.refresh(ctx)
	}
}

// mergeRecords returns stored followed by the local records whose key it lacks.
func mergeRecords[T any](stored, local []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(stored))
	for _, r := range stored {
		seen[key(r)] = struct{}{}
	}
	out := stored
	for _, r := range local {
		if _, ok := seen[key(r)]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// nextLotNumber advances the millisecond value until the formatted lot number
// is unused. The caller holds s.mu.
func (s *CompletionService) nextLotNumber(batchID string, millis int64) (string, error) {
	taken := make(map[string]struct{}, len(s.lots))
	for _, l := range s.lots {
		taken[l.Lot] = struct{}{}
	}

	for attempt := int64(0); attempt < maxLotNumberAttempts; attempt++ {
		candidate := domain.FormatLotNumber(batchID, millis+attempt)
		if _, exists := taken[candidate]; !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free lot number for batch %s", domain.ErrConflict, batchID)
}

// materialsUsed returns the consumed materials with ActualQty always set. A nil
// list means the operator accepted the planned quantities.
func materialsUsed(planned, reported []domain.Material) []domain.Material {
	source := reported
	defaultToPlanned := reported == nil
	if defaultToPlanned {
		source = planned
	}

	out := make([]domain.Material, 0, len(source))
	for _, m := range source {
		qty := m.ActualOrZero()
		if defaultToPlanned {
			qty = m.PlannedQty
		}
		m.ActualQty = domain.Float64(qty)
		out = append(out, m)
	}
	return out
}
