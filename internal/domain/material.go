package domain

import (
	"fmt"
	"math"
	"strings"
)

// Material is a planned/actual input quantity consumed by a batch.
type Material struct {
	Name       string   `json:"name" yaml:"name"`
	PlannedQty float64  `json:"plannedQty" yaml:"plannedQty"`
	ActualQty  *float64 `json:"actualQty,omitempty" yaml:"actualQty,omitempty"`
	Unit       string   `json:"unit" yaml:"unit"`
}

func (m Material) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: material name is required", ErrValidation)
	}
	if !isFinite(m.PlannedQty) || m.PlannedQty < 0 {
		return fmt.Errorf("%w: material %q planned quantity must be a non-negative number", ErrValidation, m.Name)
	}
	if m.ActualQty != nil && (!isFinite(*m.ActualQty) || *m.ActualQty < 0) {
		return fmt.Errorf("%w: material %q actual quantity must be a non-negative number", ErrValidation, m.Name)
	}
	return nil
}

// ActualOrZero returns the recorded actual quantity, or 0 when none was recorded.
func (m Material) ActualOrZero() float64 {
	if m.ActualQty == nil {
		return 0
	}
	return *m.ActualQty
}

func cloneMaterials(materials []Material) []Material {
	if materials == nil {
		return nil
	}
	out := make([]Material, len(materials))
	for i, m := range materials {
		out[i] = m
		if m.ActualQty != nil {
			qty := *m.ActualQty
			out[i].ActualQty = &qty
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}
