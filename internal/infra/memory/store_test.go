package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
)

func TestStoreGetSetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	if _, err := s.Get(ctx, snapshot.KeyBatches); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	value := []byte(`[{"id":"B-001"}]`)
	if err := s.Set(ctx, snapshot.KeyBatches, value); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value[0] = '{'

	got, err := s.Get(ctx, snapshot.KeyBatches)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `[{"id":"B-001"}]` {
		t.Fatalf("Get() = %s, store should copy on write", got)
	}

	got[0] = '{'
	again, _ := s.Get(ctx, snapshot.KeyBatches)
	if string(again) != `[{"id":"B-001"}]` {
		t.Fatalf("Get() = %s, store should copy on read", again)
	}

	if err := s.Delete(ctx, snapshot.KeyBatches); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, snapshot.KeyBatches); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if len(s.Keys()) != 0 {
		t.Fatalf("Keys() = %v, want empty", s.Keys())
	}
}

func TestStoreSubscribe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	var values []string
	var deletes int
	cancel, err := s.Subscribe(ctx, snapshot.KeyOperator, func(value []byte) {
		if value == nil {
			deletes++
			return
		}
		values = append(values, string(value))
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	_ = s.Set(ctx, snapshot.KeyOperator, []byte(`"John Smith"`))
	_ = s.Set(ctx, snapshot.KeyLots, []byte(`[]`))
	_ = s.Delete(ctx, snapshot.KeyOperator)
	_ = s.Delete(ctx, snapshot.KeyOperator)

	if len(values) != 1 || values[0] != `"John Smith"` {
		t.Fatalf("values = %v, want [\"John Smith\"]", values)
	}
	if deletes != 1 {
		t.Fatalf("deletes = %d, want 1", deletes)
	}

	cancel()
	_ = s.Set(ctx, snapshot.KeyOperator, []byte(`"Maria Garcia"`))
	if len(values) != 1 {
		t.Fatalf("listener called after cancel: %v", values)
	}

	if _, err := s.Subscribe(ctx, snapshot.KeyOperator, nil); err == nil {
		t.Fatal("Subscribe(nil) should fail")
	}
}
