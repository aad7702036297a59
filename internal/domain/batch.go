package domain

import (
	"fmt"
	"strings"
	"time"
)

// BatchStatus represents the lifecycle state of a production batch.
type BatchStatus string

const (
	BatchStatusPlanned   BatchStatus = "Planned"
	BatchStatusInProcess BatchStatus = "In Process"
	BatchStatusPaused    BatchStatus = "Paused"
	BatchStatusCompleted BatchStatus = "Completed"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusPlanned, BatchStatusInProcess, BatchStatusPaused, BatchStatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted
}

// Paused has no edge to Completed: an operator resumes before finishing.
var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusPlanned:   {BatchStatusInProcess},
	BatchStatusInProcess: {BatchStatusPaused, BatchStatusCompleted},
	BatchStatusPaused:    {BatchStatusInProcess},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseBatchStatusFromString(s string) (BatchStatus, error) {
	normalized := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch normalized {
	case "planned":
		return BatchStatusPlanned, nil
	case "inprocess":
		return BatchStatusInProcess, nil
	case "paused":
		return BatchStatusPaused, nil
	case "completed":
		return BatchStatusCompleted, nil
	}
	return "", fmt.Errorf("%w: invalid batch status %q", ErrValidation, s)
}

// Batch is one production run of a product against a planned quantity and
// material list.
type Batch struct {
	ID             string      `json:"id" yaml:"id"`
	ProductName    string      `json:"productName" yaml:"productName"`
	TargetQuantity float64     `json:"targetQuantity" yaml:"targetQuantity"`
	Unit           string      `json:"unit" yaml:"unit"`
	Status         BatchStatus `json:"status" yaml:"status"`
	StartTime      *time.Time  `json:"startTime,omitempty" yaml:"startTime,omitempty"`
	PauseTime      *time.Time  `json:"pauseTime,omitempty" yaml:"pauseTime,omitempty"`
	EndTime        *time.Time  `json:"endTime,omitempty" yaml:"endTime,omitempty"`
	Materials      []Material  `json:"materials" yaml:"materials"`
	Operator       string      `json:"operator,omitempty" yaml:"operator,omitempty"`
}

func (b *Batch) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("%w: batch id is required", ErrValidation)
	}
	if strings.TrimSpace(b.ProductName) == "" {
		return fmt.Errorf("%w: batch %s product name is required", ErrValidation, b.ID)
	}
	if !isFinite(b.TargetQuantity) || b.TargetQuantity < 0 {
		return fmt.Errorf("%w: batch %s target quantity must be a non-negative number", ErrValidation, b.ID)
	}
	if !b.Status.IsValid() {
		return fmt.Errorf("%w: batch %s has invalid status %q", ErrValidation, b.ID, b.Status)
	}
	for _, m := range b.Materials {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate state they do not own.
func (b Batch) Clone() Batch {
	out := b
	out.StartTime = cloneTime(b.StartTime)
	out.PauseTime = cloneTime(b.PauseTime)
	out.EndTime = cloneTime(b.EndTime)
	out.Materials = cloneMaterials(b.Materials)
	return out
}

// BatchPatch is a merge-patch over Batch. A nil field leaves the value as is.
// There is deliberately no ID field.
type BatchPatch struct {
	ProductName    *string
	TargetQuantity *float64
	Unit           *string
	Materials      *[]Material
	Operator       *string

	Status         *BatchStatus
	StartTime      *time.Time
	PauseTime      *time.Time
	ClearPauseTime bool
	EndTime        *time.Time
}

// TouchesLifecycle reports whether the patch changes status or lifecycle timestamps.
func (p BatchPatch) TouchesLifecycle() bool {
	return p.Status != nil || p.StartTime != nil || p.PauseTime != nil || p.ClearPauseTime || p.EndTime != nil
}

// Apply merges p into b.
func (b *Batch) Apply(p BatchPatch) {
	if p.ProductName != nil {
		b.ProductName = strings.TrimSpace(*p.ProductName)
	}
	if p.TargetQuantity != nil {
		b.TargetQuantity = *p.TargetQuantity
	}
	if p.Unit != nil {
		b.Unit = strings.TrimSpace(*p.Unit)
	}
	if p.Materials != nil {
		b.Materials = cloneMaterials(*p.Materials)
	}
	if p.Operator != nil {
		b.Operator = strings.TrimSpace(*p.Operator)
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.StartTime != nil {
		b.StartTime = cloneTime(p.StartTime)
	}
	if p.ClearPauseTime {
		b.PauseTime = nil
	}
	if p.PauseTime != nil {
		b.PauseTime = cloneTime(p.PauseTime)
	}
	if p.EndTime != nil {
		b.EndTime = cloneTime(p.EndTime)
	}
}

// Elapsed returns the running time of the batch. The end of the interval is the
// pause time while paused, the end time once completed and now otherwise. ok is
// false when the batch has never been started.
func (b Batch) Elapsed(now time.Time) (elapsed time.Duration, ok bool) {
	if b.StartTime == nil {
		return 0, false
	}

	end := now
	switch {
	case b.Status == BatchStatusPaused && b.PauseTime != nil:
		end = *b.PauseTime
	case b.Status == BatchStatusCompleted && b.EndTime != nil:
		end = *b.EndTime
	}

	elapsed = end.Sub(*b.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed, true
}

// FormatElapsed renders whole minutes as "{hours}h {minutes}m".
func FormatElapsed(d time.Duration) string {
	minutes := int64(d / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
