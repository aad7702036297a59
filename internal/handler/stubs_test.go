package handler

import (
	"context"
	"errors"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/service"
	"github.com/kursadbilgin/batch-trace/internal/trace"
)

type stubLifecycleService struct {
	startFn func(ctx context.Context, id string, operator string) (domain.Batch, error)
}

func (s *stubLifecycleService) List(context.Context, service.BatchFilter) []domain.Batch {
	return nil
}

func (s *stubLifecycleService) Get(context.Context, string) (domain.Batch, error) {
	return domain.Batch{}, domain.ErrNotFound
}

func (s *stubLifecycleService) Start(ctx context.Context, id string, operator string) (domain.Batch, error) {
	if s.startFn != nil {
		return s.startFn(ctx, id, operator)
	}
	return domain.Batch{}, errors.New("not implemented")
}

func (s *stubLifecycleService) Pause(context.Context, string) (domain.Batch, error) {
	return domain.Batch{}, errors.New("not implemented")
}

func (s *stubLifecycleService) Complete(context.Context, string, domain.CompletionPayload) (service.CompletionResult, error) {
	return service.CompletionResult{}, errors.New("not implemented")
}

func (s *stubLifecycleService) Update(context.Context, string, domain.BatchPatch) (domain.Batch, error) {
	return domain.Batch{}, errors.New("not implemented")
}

func (s *stubLifecycleService) Elapsed(domain.Batch) (string, bool) { return "", false }

func (s *stubLifecycleService) StatusCounts(context.Context) map[domain.BatchStatus]int { return nil }

type stubLotService struct{}

func (stubLotService) ListLots(context.Context) []domain.Lot { return nil }

func (stubLotService) GetLot(context.Context, string) (domain.Lot, error) {
	return domain.Lot{}, domain.ErrNotFound
}

func (stubLotService) ListCompletedBatches(context.Context) []domain.CompletedBatch { return nil }

type stubTraceService struct{}

func (stubTraceService) Graph(context.Context, string) (trace.Graph, error) {
	return trace.Graph{}, domain.ErrNotFound
}

type stubOperatorService struct {
	current string
}

func (s *stubOperatorService) Operators() []string { return domain.Operators() }

func (s *stubOperatorService) Current() (string, bool) { return s.current, s.current != "" }

func (s *stubOperatorService) Login(_ context.Context, name string) (string, error) {
	s.current = name
	return name, nil
}

func (s *stubOperatorService) Logout(context.Context) error {
	s.current = ""
	return nil
}
