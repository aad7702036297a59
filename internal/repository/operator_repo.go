package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
)

type OperatorRepository interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, operator string) error
	Clear(ctx context.Context) error
}

type SnapshotOperatorRepo struct {
	store snapshot.Store
}

func NewSnapshotOperatorRepo(store snapshot.Store) *SnapshotOperatorRepo {
	return &SnapshotOperatorRepo{store: store}
}

// Get returns the persisted operator, or "" when none is set.
func (r *SnapshotOperatorRepo) Get(ctx context.Context) (string, error) {
	raw, err := r.store.Get(ctx, snapshot.KeyOperator)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return DecodeOperator(raw), nil
}

func (r *SnapshotOperatorRepo) Set(ctx context.Context, operator string) error {
	return saveJSON(ctx, r.store, snapshot.KeyOperator, operator)
}

func (r *SnapshotOperatorRepo) Clear(ctx context.Context) error {
	if err := r.store.Delete(ctx, snapshot.KeyOperator); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

// DecodeOperator accepts both a JSON string and the bare name written by
// earlier clients.
func DecodeOperator(raw []byte) string {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(string(raw))
}
