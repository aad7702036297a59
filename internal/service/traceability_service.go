package service

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/trace"
)

// LotLookup finds a recorded lot by number.
type LotLookup interface {
	GetLot(ctx context.Context, lotNumber string) (domain.Lot, error)
}

type TraceabilityService struct {
	lots LotLookup
}

func NewTraceabilityService(lots LotLookup) (*TraceabilityService, error) {
	if lots == nil {
		return nil, fmt.Errorf("lot lookup is required")
	}
	return &TraceabilityService{lots: lots}, nil
}

// Graph returns the material -> batch -> lot graph for lotNumber.
func (s *TraceabilityService) Graph(ctx context.Context, lotNumber string) (trace.Graph, error) {
	lot, err := s.lots.GetLot(ctx, lotNumber)
	if err != nil {
		return trace.Graph{}, err
	}
	return trace.BuildGraph(lot), nil
}
