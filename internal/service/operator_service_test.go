package service

import (
	"context"
	"errors"
	"testing"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/infra/memory"
	"github.com/kursadbilgin/batch-trace/internal/repository"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
)

func TestOperatorServiceLoginLogout(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ctx := context.Background()
	svc, err := NewOperatorService(ctx, repository.NewSnapshotOperatorRepo(store), nil)
	if err != nil {
		t.Fatalf("NewOperatorService() error = %v", err)
	}

	if _, ok := svc.Current(); ok {
		t.Fatal("Current() should be empty before login")
	}

	got, err := svc.Login(ctx, "sarah johnson")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got != "Sarah Johnson" {
		t.Fatalf("Login() = %q, want canonical name", got)
	}
	if current, ok := svc.Current(); !ok || current != "Sarah Johnson" {
		t.Fatalf("Current() = %q, %v", current, ok)
	}

	reopened, _ := NewOperatorService(ctx, repository.NewSnapshotOperatorRepo(store), nil)
	if current, _ := reopened.Current(); current != "Sarah Johnson" {
		t.Fatalf("reloaded operator = %q, want Sarah Johnson", current)
	}

	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, ok := svc.Current(); ok {
		t.Fatal("Current() should be empty after logout")
	}
	if _, err := store.Get(ctx, snapshot.KeyOperator); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("operator key error = %v, want deleted", err)
	}
}

func TestOperatorServiceRejectsUnknownOperator(t *testing.T) {
	t.Parallel()

	svc, _ := NewOperatorService(context.Background(), &fakeOperatorRepo{
		setFn: func(ctx context.Context, operator string) error {
			t.Fatal("Set() should not be called for unknown operator")
			return nil
		},
	}, nil)

	if _, err := svc.Login(context.Background(), "Jane Doe"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Login() error = %v, want ErrValidation", err)
	}
	if got := len(svc.Operators()); got != 5 {
		t.Fatalf("Operators() = %d names, want 5", got)
	}
}

func TestOperatorServiceIgnoresUnknownStoredOperator(t *testing.T) {
	t.Parallel()

	svc, err := NewOperatorService(context.Background(), &fakeOperatorRepo{
		getFn: func(ctx context.Context) (string, error) { return "Former Employee", nil },
	}, nil)
	if err != nil {
		t.Fatalf("NewOperatorService() error = %v", err)
	}
	if _, ok := svc.Current(); ok {
		t.Fatal("unknown stored operator should not be signed in")
	}
}

func TestOperatorServiceLoginPersistenceWarning(t *testing.T) {
	t.Parallel()

	svc, _ := NewOperatorService(context.Background(), &fakeOperatorRepo{
		setFn: func(ctx context.Context, operator string) error { return errors.New("read-only") },
	}, nil)

	got, err := svc.Login(context.Background(), "David Chen")
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("Login() error = %v, want ErrPersistence", err)
	}
	if current, _ := svc.Current(); got != "David Chen" || current != "David Chen" {
		t.Fatalf("Login() = %q, current %q, want David Chen signed in", got, current)
	}
}

func TestOperatorServiceWatch(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ctx := context.Background()
	svc, _ := NewOperatorService(ctx, repository.NewSnapshotOperatorRepo(store), nil)
	if err := svc.Watch(ctx, store); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// Another station writing the shared key.
	other := repository.NewSnapshotOperatorRepo(store)
	_ = other.Set(ctx, "Ahmed Hassan")
	if current, _ := svc.Current(); current != "Ahmed Hassan" {
		t.Fatalf("Current() = %q, want Ahmed Hassan after external write", current)
	}

	_ = store.Set(ctx, snapshot.KeyOperator, []byte(`"Nobody"`))
	if _, ok := svc.Current(); ok {
		t.Fatal("unknown external operator should sign out")
	}

	_ = other.Set(ctx, "Maria Garcia")
	_ = other.Clear(ctx)
	if _, ok := svc.Current(); ok {
		t.Fatal("external delete should sign out")
	}

	svc.Close()
	_ = other.Set(ctx, "John Smith")
	if _, ok := svc.Current(); ok {
		t.Fatal("closed service should stop following the store")
	}
}

func TestOperatorServiceFlushRetriesFailedWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var stored []string
	failSet := true
	svc, _ := NewOperatorService(ctx, &fakeOperatorRepo{
		setFn: func(ctx context.Context, operator string) error {
			if failSet {
				return errors.New("read-only")
			}
			stored = append(stored, operator)
			return nil
		},
	}, nil)

	if _, err := svc.Login(ctx, "David Chen"); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("Login() error = %v, want ErrPersistence", err)
	}
	if err := svc.Flush(ctx); err == nil {
		t.Fatal("Flush() expected error while the store is read-only")
	}

	failSet = false
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("second Flush() error = %v", err)
	}
	if len(stored) != 1 || stored[0] != "David Chen" {
		t.Fatalf("stored = %v, want one write of David Chen", stored)
	}
}

func TestOperatorServiceFlushRetriesFailedLogout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clears := 0
	failClear := true
	svc, _ := NewOperatorService(ctx, &fakeOperatorRepo{
		getFn: func(ctx context.Context) (string, error) { return "John Smith", nil },
		clearFn: func(ctx context.Context) error {
			if failClear {
				return errors.New("timeout")
			}
			clears++
			return nil
		},
	}, nil)

	if err := svc.Logout(ctx); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("Logout() error = %v, want ErrPersistence", err)
	}

	failClear = false
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if clears != 1 {
		t.Fatalf("clears = %d, want 1", clears)
	}
	if _, ok := svc.Current(); ok {
		t.Fatal("Current() should stay signed out")
	}
}
