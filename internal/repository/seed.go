package repository

import "github.com/kursadbilgin/batch-trace/internal/domain"

// DefaultSeedBatches is the batch list used when no snapshot exists yet.
func DefaultSeedBatches() []domain.Batch {
	return []domain.Batch{
		{
			ID:             "B-001",
			ProductName:    "Chocolate Syrup 10L",
			TargetQuantity: 1000,
			Unit:           "L",
			Status:         domain.BatchStatusPlanned,
			Materials: []domain.Material{
				{Name: "Cocoa Powder", PlannedQty: 200, Unit: "kg"},
				{Name: "Sugar", PlannedQty: 300, Unit: "kg"},
				{Name: "Milk", PlannedQty: 500, Unit: "L"},
			},
		},
		{
			ID:             "B-002",
			ProductName:    "Vanilla Mix 5L",
			TargetQuantity: 500,
			Unit:           "L",
			Status:         domain.BatchStatusPlanned,
			Materials: []domain.Material{
				{Name: "Vanilla Extract", PlannedQty: 50, Unit: "L"},
				{Name: "Sugar", PlannedQty: 150, Unit: "kg"},
				{Name: "Water", PlannedQty: 300, Unit: "L"},
			},
		},
		{
			ID:             "B-003",
			ProductName:    "Strawberry Syrup 15L",
			TargetQuantity: 1500,
			Unit:           "L",
			Status:         domain.BatchStatusPlanned,
			Materials: []domain.Material{
				{Name: "Strawberry Puree", PlannedQty: 400, Unit: "kg"},
				{Name: "Sugar", PlannedQty: 500, Unit: "kg"},
				{Name: "Preservative", PlannedQty: 10, Unit: "kg"},
			},
		},
	}
}
