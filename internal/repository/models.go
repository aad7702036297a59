package repository

import (
	"strings"
	"time"

	"github.com/kursadbilgin/batch-trace/internal/domain"
)

// SnapshotModel is the persistence model for the snapshots table used by the
// gorm-backed store.
type SnapshotModel struct {
	Key       string `gorm:"column:snapshot_key;type:varchar(128);primaryKey"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (SnapshotModel) TableName() string {
	return "snapshots"
}

// batchSnapshot is the stored JSON shape of a batch. Older snapshots carried
// the material list under "inputs" and the unit under "uom"; both are folded
// into the current shape on load.
type batchSnapshot struct {
	ID             string             `json:"id"`
	ProductName    string             `json:"productName"`
	TargetQuantity float64            `json:"targetQuantity"`
	Unit           string             `json:"unit,omitempty"`
	LegacyUOM      string             `json:"uom,omitempty"`
	Status         domain.BatchStatus `json:"status"`
	StartTime      *time.Time         `json:"startTime,omitempty"`
	PauseTime      *time.Time         `json:"pauseTime,omitempty"`
	EndTime        *time.Time         `json:"endTime,omitempty"`
	Materials      []domain.Material  `json:"materials"`
	LegacyInputs   []domain.Material  `json:"inputs,omitempty"`
	Operator       string             `json:"operator,omitempty"`
}

func batchSnapshotFromDomain(b *domain.Batch) *batchSnapshot {
	if b == nil {
		return nil
	}

	materials := b.Materials
	if materials == nil {
		materials = []domain.Material{}
	}

	return &batchSnapshot{
		ID:             b.ID,
		ProductName:    b.ProductName,
		TargetQuantity: b.TargetQuantity,
		Unit:           b.Unit,
		Status:         b.Status,
		StartTime:      b.StartTime,
		PauseTime:      b.PauseTime,
		EndTime:        b.EndTime,
		Materials:      materials,
		Operator:       b.Operator,
	}
}

func batchSnapshotToDomain(m *batchSnapshot) *domain.Batch {
	if m == nil {
		return nil
	}

	materials := m.Materials
	if len(materials) == 0 && len(m.LegacyInputs) > 0 {
		materials = m.LegacyInputs
	}
	if materials == nil {
		materials = []domain.Material{}
	}

	unit := strings.TrimSpace(m.Unit)
	if unit == "" {
		unit = strings.TrimSpace(m.LegacyUOM)
	}

	status := m.Status
	if parsed, err := domain.ParseBatchStatusFromString(string(m.Status)); err == nil {
		status = parsed
	}

	return &domain.Batch{
		ID:             m.ID,
		ProductName:    m.ProductName,
		TargetQuantity: m.TargetQuantity,
		Unit:           unit,
		Status:         status,
		StartTime:      m.StartTime,
		PauseTime:      m.PauseTime,
		EndTime:        m.EndTime,
		Materials:      materials,
		Operator:       m.Operator,
	}
}
