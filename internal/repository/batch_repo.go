package repository

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
)

type BatchRepository interface {
	Load(ctx context.Context) ([]domain.Batch, error)
	Save(ctx context.Context, batches []domain.Batch) error
}

// SnapshotBatchRepo stores the whole batch collection under snapshot.KeyBatches.
type SnapshotBatchRepo struct {
	store snapshot.Store
	seed  []domain.Batch
}

// NewSnapshotBatchRepo returns a repository that falls back to seed when no
// snapshot exists. A nil seed selects DefaultSeedBatches.
func NewSnapshotBatchRepo(store snapshot.Store, seed []domain.Batch) *SnapshotBatchRepo {
	if seed == nil {
		seed = DefaultSeedBatches()
	}
	return &SnapshotBatchRepo{store: store, seed: seed}
}

func (r *SnapshotBatchRepo) Load(ctx context.Context) ([]domain.Batch, error) {
	var models []batchSnapshot
	found, err := loadJSON(ctx, r.store, snapshot.KeyBatches, &models)
	if err != nil {
		return nil, err
	}
	if !found {
		return cloneBatches(r.seed), nil
	}

	batches := make([]domain.Batch, 0, len(models))
	seen := make(map[string]struct{}, len(models))
	for i := range models {
		b := batchSnapshotToDomain(&models[i])
		if _, dup := seen[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate batch id %q in snapshot", domain.ErrConflict, b.ID)
		}
		seen[b.ID] = struct{}{}
		batches = append(batches, *b)
	}
	return batches, nil
}

func (r *SnapshotBatchRepo) Save(ctx context.Context, batches []domain.Batch) error {
	models := make([]*batchSnapshot, 0, len(batches))
	for i := range batches {
		models = append(models, batchSnapshotFromDomain(&batches[i]))
	}
	return saveJSON(ctx, r.store, snapshot.KeyBatches, models)
}

func cloneBatches(batches []domain.Batch) []domain.Batch {
	out := make([]domain.Batch, 0, len(batches))
	for _, b := range batches {
		out = append(out, b.Clone())
	}
	return out
}
