package repository

import (
	"context"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
)

type LotRepository interface {
	Load(ctx context.Context) ([]domain.Lot, error)
	Save(ctx context.Context, lots []domain.Lot) error
}

type CompletedBatchRepository interface {
	Load(ctx context.Context) ([]domain.CompletedBatch, error)
	Save(ctx context.Context, completed []domain.CompletedBatch) error
}

type SnapshotLotRepo struct {
	store snapshot.Store
}

func NewSnapshotLotRepo(store snapshot.Store) *SnapshotLotRepo {
	return &SnapshotLotRepo{store: store}
}

func (r *SnapshotLotRepo) Load(ctx context.Context) ([]domain.Lot, error) {
	var lots []domain.Lot
	if _, err := loadJSON(ctx, r.store, snapshot.KeyLots, &lots); err != nil {
		return nil, err
	}
	if lots == nil {
		lots = []domain.Lot{}
	}
	for i := range lots {
		if lots[i].Inputs == nil {
			lots[i].Inputs = []domain.LotInput{}
		}
	}
	return lots, nil
}

func (r *SnapshotLotRepo) Save(ctx context.Context, lots []domain.Lot) error {
	if lots == nil {
		lots = []domain.Lot{}
	}
	return saveJSON(ctx, r.store, snapshot.KeyLots, lots)
}

type SnapshotCompletedBatchRepo struct {
	store snapshot.Store
}

func NewSnapshotCompletedBatchRepo(store snapshot.Store) *SnapshotCompletedBatchRepo {
	return &SnapshotCompletedBatchRepo{store: store}
}

func (r *SnapshotCompletedBatchRepo) Load(ctx context.Context) ([]domain.CompletedBatch, error) {
	var completed []domain.CompletedBatch
	if _, err := loadJSON(ctx, r.store, snapshot.KeyCompletedBatches, &completed); err != nil {
		return nil, err
	}
	if completed == nil {
		completed = []domain.CompletedBatch{}
	}
	return completed, nil
}

func (r *SnapshotCompletedBatchRepo) Save(ctx context.Context, completed []domain.CompletedBatch) error {
	if completed == nil {
		completed = []domain.CompletedBatch{}
	}
	return saveJSON(ctx, r.store, snapshot.KeyCompletedBatches, completed)
}
