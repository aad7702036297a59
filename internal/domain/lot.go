package domain

import (
	"fmt"
	"strings"
	"time"
)

// CompletedBatch is the immutable snapshot of a batch taken when it completes.
type CompletedBatch struct {
	Batch
	ActualYield   float64    `json:"actualYield"`
	ScrapQuantity float64    `json:"scrapQuantity"`
	LotNumber     string     `json:"lotNumber"`
	MaterialsUsed []Material `json:"materialsUsed"`
}

func (c CompletedBatch) Clone() CompletedBatch {
	out := c
	out.Batch = c.Batch.Clone()
	out.MaterialsUsed = cloneMaterials(c.MaterialsUsed)
	return out
}

// LotInput is one consumed material recorded against a lot.
type LotInput struct {
	Material string  `json:"material"`
	Qty      float64 `json:"qty"`
	Unit     string  `json:"unit"`
}

// Lot is the traceable finished-goods record produced by a completed batch.
type Lot struct {
	Lot         string     `json:"lot"`
	Product     string     `json:"product"`
	Yield       float64    `json:"yield"`
	Unit        string     `json:"unit,omitempty"`
	BatchID     string     `json:"batchId"`
	CompletedAt time.Time  `json:"completedAt"`
	Operator    string     `json:"operator"`
	Inputs      []LotInput `json:"inputs"`
}

func (l Lot) Clone() Lot {
	out := l
	out.Inputs = make([]LotInput, len(l.Inputs))
	copy(out.Inputs, l.Inputs)
	return out
}

// CompletionPayload carries the operator-entered completion data.
type CompletionPayload struct {
	ActualYield   *float64   `json:"actualYield"`
	ScrapQuantity *float64   `json:"scrapQuantity"`
	MaterialsUsed []Material `json:"materialsUsed"`
	Operator      string     `json:"operator"`
}

func (p CompletionPayload) Validate() error {
	if p.ActualYield == nil || !isFinite(*p.ActualYield) {
		return fmt.Errorf("%w: actual yield is required", ErrValidation)
	}
	if *p.ActualYield < 0 {
		return fmt.Errorf("%w: actual yield must not be negative", ErrValidation)
	}
	if strings.TrimSpace(p.Operator) == "" {
		return fmt.Errorf("%w: operator is required", ErrValidation)
	}
	for _, m := range p.MaterialsUsed {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Scrap returns the scrap quantity, treating absent or non-numeric values as 0.
func (p CompletionPayload) Scrap() float64 {
	if p.ScrapQuantity == nil || !isFinite(*p.ScrapQuantity) {
		return 0
	}
	return *p.ScrapQuantity
}

const lotSuffixModulo = 1_000_000

// FormatLotNumber builds LOT-{batchID}-{last 6 digits of epochMillis}.
func FormatLotNumber(batchID string, epochMillis int64) string {
	suffix := epochMillis % lotSuffixModulo
	if suffix < 0 {
		suffix = -suffix
	}
	return fmt.Sprintf("LOT-%s-%06d", batchID, suffix)
}
