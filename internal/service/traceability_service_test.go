package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/batch-trace/internal/domain"
)

func TestTraceabilityServiceGraph(t *testing.T) {
	t.Parallel()

	svc := newTestServices(t, nil)
	ctx := context.Background()

	_, _ = svc.lifecycle.Start(ctx, "B-001", "John Smith")
	svc.clock.Advance(time.Hour)
	result, err := svc.lifecycle.Complete(ctx, "B-001", domain.CompletionPayload{
		ActualYield: domain.Float64(950),
		Operator:    "John Smith",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	tracer, err := NewTraceabilityService(svc.completion)
	if err != nil {
		t.Fatalf("NewTraceabilityService() error = %v", err)
	}

	graph, err := tracer.Graph(ctx, result.Lot.Lot)
	if err != nil {
		t.Fatalf("Graph() error = %v", err)
	}
	if len(graph.Nodes) != 5 || len(graph.Edges) != 4 {
		t.Fatalf("graph = %d nodes, %d edges, want 5 and 4", len(graph.Nodes), len(graph.Edges))
	}
	if graph.Nodes[0].Label != result.Lot.Lot+"\nChocolate Syrup 10L\n950 L" {
		t.Fatalf("lot label = %q", graph.Nodes[0].Label)
	}

	if _, err := tracer.Graph(ctx, "LOT-B-404-000000"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Graph() error = %v, want ErrNotFound", err)
	}
}
