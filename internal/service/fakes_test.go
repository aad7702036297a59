package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/infra/memory"
	"github.com/kursadbilgin/batch-trace/internal/repository"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
)

// The repository fakes keep the last successful Save and return it from later
// Loads, like a real store would. loadFn only serves until the first Save.
type fakeBatchRepo struct {
	mu     sync.Mutex
	saved  []domain.Batch
	loadFn func(ctx context.Context) ([]domain.Batch, error)
	saveFn func(ctx context.Context, batches []domain.Batch) error
}

func (f *fakeBatchRepo) Load(ctx context.Context) ([]domain.Batch, error) {
	f.mu.Lock()
	saved := f.saved
	f.mu.Unlock()

	switch {
	case saved != nil:
		return cloneBatches(saved), nil
	case f.loadFn != nil:
		batches, err := f.loadFn(ctx)
		return cloneBatches(batches), err
	}
	return repository.DefaultSeedBatches(), nil
}

func (f *fakeBatchRepo) Save(ctx context.Context, batches []domain.Batch) error {
	if f.saveFn != nil {
		if err := f.saveFn(ctx, batches); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.saved = cloneBatches(batches)
	f.mu.Unlock()
	return nil
}

type fakeLotRepo struct {
	mu     sync.Mutex
	saved  []domain.Lot
	loadFn func(ctx context.Context) ([]domain.Lot, error)
	saveFn func(ctx context.Context, lots []domain.Lot) error
}

func (f *fakeLotRepo) Load(ctx context.Context) ([]domain.Lot, error) {
	f.mu.Lock()
	saved := f.saved
	f.mu.Unlock()

	switch {
	case saved != nil:
		return cloneLots(saved), nil
	case f.loadFn != nil:
		lots, err := f.loadFn(ctx)
		return cloneLots(lots), err
	}
	return []domain.Lot{}, nil
}

func (f *fakeLotRepo) Save(ctx context.Context, lots []domain.Lot) error {
	if f.saveFn != nil {
		if err := f.saveFn(ctx, lots); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.saved = cloneLots(lots)
	f.mu.Unlock()
	return nil
}

type fakeCompletedBatchRepo struct {
	mu     sync.Mutex
	saved  []domain.CompletedBatch
	saveFn func(ctx context.Context, completed []domain.CompletedBatch) error
}

func (f *fakeCompletedBatchRepo) Load(context.Context) ([]domain.CompletedBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.CompletedBatch, 0, len(f.saved))
	for _, c := range f.saved {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (f *fakeCompletedBatchRepo) Save(ctx context.Context, completed []domain.CompletedBatch) error {
	if f.saveFn != nil {
		if err := f.saveFn(ctx, completed); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = make([]domain.CompletedBatch, 0, len(completed))
	for _, c := range completed {
		f.saved = append(f.saved, c.Clone())
	}
	return nil
}

func cloneBatches(batches []domain.Batch) []domain.Batch {
	if batches == nil {
		return nil
	}
	out := make([]domain.Batch, 0, len(batches))
	for _, b := range batches {
		out = append(out, b.Clone())
	}
	return out
}

func cloneLots(lots []domain.Lot) []domain.Lot {
	if lots == nil {
		return nil
	}
	out := make([]domain.Lot, 0, len(lots))
	for _, l := range lots {
		out = append(out, l.Clone())
	}
	return out
}

type fakeOperatorRepo struct {
	getFn   func(ctx context.Context) (string, error)
	setFn   func(ctx context.Context, operator string) error
	clearFn func(ctx context.Context) error
}

func (f *fakeOperatorRepo) Get(ctx context.Context) (string, error) {
	if f.getFn != nil {
		return f.getFn(ctx)
	}
	return "", nil
}

func (f *fakeOperatorRepo) Set(ctx context.Context, operator string) error {
	if f.setFn != nil {
		return f.setFn(ctx, operator)
	}
	return nil
}

func (f *fakeOperatorRepo) Clear(ctx context.Context) error {
	if f.clearFn != nil {
		return f.clearFn(ctx)
	}
	return nil
}

type fakeDeriver struct {
	deriveFn func(ctx context.Context, batch domain.Batch, payload domain.CompletionPayload, now time.Time) (domain.CompletedBatch, domain.Lot, error)
}

func (f *fakeDeriver) Derive(
	ctx context.Context,
	batch domain.Batch,
	payload domain.CompletionPayload,
	now time.Time,
) (domain.CompletedBatch, domain.Lot, error) {
	if f.deriveFn != nil {
		return f.deriveFn(ctx, batch, payload, now)
	}
	return domain.CompletedBatch{Batch: batch}, domain.Lot{BatchID: batch.ID}, nil
}

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServices struct {
	store      *memory.Store
	lifecycle  *LifecycleService
	completion *CompletionService
	clock      *testClock
}

// newTestServices wires both services against one in-memory snapshot store
// seeded with the default batches.
func newTestServices(t *testing.T, store *memory.Store) testServices {
	t.Helper()

	if store == nil {
		store = memory.New()
	}
	ctx := context.Background()

	completion, err := NewCompletionService(ctx,
		repository.NewSnapshotLotRepo(store),
		repository.NewSnapshotCompletedBatchRepo(store),
		nil,
	)
	if err != nil {
		t.Fatalf("NewCompletionService() error = %v", err)
	}

	lifecycle, err := NewLifecycleService(ctx, repository.NewSnapshotBatchRepo(store, nil), completion, nil)
	if err != nil {
		t.Fatalf("NewLifecycleService() error = %v", err)
	}

	clock := newTestClock()
	lifecycle.now = clock.Now

	return testServices{store: store, lifecycle: lifecycle, completion: completion, clock: clock}
}

func loadLots(t *testing.T, store snapshot.Store) []domain.Lot {
	t.Helper()

	lots, err := repository.NewSnapshotLotRepo(store).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() lots error = %v", err)
	}
	return lots
}
