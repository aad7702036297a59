package domain

import (
	"errors"
	"math"
	"regexp"
	"testing"
)

func TestFormatLotNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		batchID string
		millis  int64
		want    string
	}{
		{batchID: "B-001", millis: 1_772_352_123_456, want: "LOT-B-001-123456"},
		{batchID: "B-002", millis: 1_772_352_000_042, want: "LOT-B-002-000042"},
	}

	pattern := regexp.MustCompile(`^LOT-B-00\d-\d{6}$`)
	for _, tt := range tests {
		got := FormatLotNumber(tt.batchID, tt.millis)
		if got != tt.want {
			t.Errorf("FormatLotNumber(%q, %d) = %q, want %q", tt.batchID, tt.millis, got, tt.want)
		}
		if !pattern.MatchString(got) {
			t.Errorf("FormatLotNumber(%q, %d) = %q does not match %s", tt.batchID, tt.millis, got, pattern)
		}
	}
}

func TestCompletionPayloadValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload CompletionPayload
		wantErr bool
	}{
		{
			name:    "valid",
			payload: CompletionPayload{ActualYield: Float64(950), Operator: "John Smith"},
		},
		{
			name:    "missing yield",
			payload: CompletionPayload{Operator: "John Smith"},
			wantErr: true,
		},
		{
			name:    "nan yield",
			payload: CompletionPayload{ActualYield: Float64(math.NaN()), Operator: "John Smith"},
			wantErr: true,
		},
		{
			name:    "negative yield",
			payload: CompletionPayload{ActualYield: Float64(-1), Operator: "John Smith"},
			wantErr: true,
		},
		{
			name:    "missing operator",
			payload: CompletionPayload{ActualYield: Float64(950), Operator: "  "},
			wantErr: true,
		},
		{
			name: "invalid material",
			payload: CompletionPayload{
				ActualYield:   Float64(950),
				Operator:      "John Smith",
				MaterialsUsed: []Material{{Name: "Sugar", ActualQty: Float64(math.Inf(1))}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.payload.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestCompletionPayloadScrapDefaultsToZero(t *testing.T) {
	t.Parallel()

	if got := (CompletionPayload{}).Scrap(); got != 0 {
		t.Fatalf("Scrap() = %v, want 0", got)
	}
	if got := (CompletionPayload{ScrapQuantity: Float64(math.NaN())}).Scrap(); got != 0 {
		t.Fatalf("Scrap() = %v, want 0 for NaN", got)
	}
	if got := (CompletionPayload{ScrapQuantity: Float64(20)}).Scrap(); got != 20 {
		t.Fatalf("Scrap() = %v, want 20", got)
	}
}

func TestParseOperator(t *testing.T) {
	t.Parallel()

	got, err := ParseOperator(" john smith ")
	if err != nil {
		t.Fatalf("ParseOperator() unexpected error = %v", err)
	}
	if got != "John Smith" {
		t.Fatalf("ParseOperator() = %q, want John Smith", got)
	}

	if _, err := ParseOperator("Jane Doe"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseOperator(unknown) error = %v, want ErrValidation", err)
	}
	if _, err := ParseOperator(""); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseOperator(empty) error = %v, want ErrValidation", err)
	}

	list := Operators()
	list[0] = "mutated"
	if Operators()[0] != "John Smith" {
		t.Fatal("Operators() should return a copy")
	}
}
