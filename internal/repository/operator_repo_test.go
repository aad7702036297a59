package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/infra/memory"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
)

func TestSnapshotOperatorRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	repo := NewSnapshotOperatorRepo(store)

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "" {
		t.Fatalf("Get() = %q, want empty", got)
	}

	if err := repo.Set(ctx, "Maria Garcia"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	raw, _ := store.Get(ctx, snapshot.KeyOperator)
	if string(raw) != `"Maria Garcia"` {
		t.Fatalf("stored operator = %s, want JSON string", raw)
	}
	if got, _ := repo.Get(ctx); got != "Maria Garcia" {
		t.Fatalf("Get() = %q, want Maria Garcia", got)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got, _ := repo.Get(ctx); got != "" {
		t.Fatalf("Get() after Clear = %q, want empty", got)
	}
}

func TestDecodeOperator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "json string", raw: `"Ahmed Hassan"`, want: "Ahmed Hassan"},
		{name: "bare string", raw: `Ahmed Hassan`, want: "Ahmed Hassan"},
		{name: "padded", raw: `  "Ahmed Hassan " `, want: "Ahmed Hassan"},
		{name: "empty", raw: ``, want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := DecodeOperator([]byte(tt.raw)); got != tt.want {
				t.Fatalf("DecodeOperator(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSnapshotOperatorRepoClearFailure(t *testing.T) {
	t.Parallel()

	repo := NewSnapshotOperatorRepo(&deleteFailingStore{Store: memory.New()})
	if err := repo.Clear(context.Background()); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("Clear() error = %v, want ErrPersistence", err)
	}
}

type deleteFailingStore struct {
	snapshot.Store
}

func (deleteFailingStore) Delete(context.Context, string) error {
	return errors.New("connection reset")
}
