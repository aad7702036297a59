package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kursadbilgin/batch-trace/internal/domain"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}
	return path
}

func TestLoadSeedFile(t *testing.T) {
	t.Parallel()

	path := writeSeed(t, `
batches:
  - id: B-101
    productName: Caramel Sauce 2L
    targetQuantity: 200
    unit: L
    materials:
      - name: Sugar
        plannedQty: 120
        unit: kg
      - name: Cream
        plannedQty: 80
        unit: L
  - id: B-102
    productName: Mint Syrup 1L
    targetQuantity: 100
    unit: L
    status: in process
`)

	batches, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile() error = %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("len(batches) = %d, want 2", len(batches))
	}
	if batches[0].Status != domain.BatchStatusPlanned {
		t.Errorf("status = %q, want Planned by default", batches[0].Status)
	}
	if len(batches[0].Materials) != 2 || batches[0].Materials[1].Name != "Cream" {
		t.Errorf("materials = %+v", batches[0].Materials)
	}
	if batches[1].Status != domain.BatchStatusInProcess {
		t.Errorf("status = %q, want In Process", batches[1].Status)
	}
	if batches[1].Materials == nil {
		t.Error("materials should default to an empty list")
	}
}

func TestLoadSeedFileEmptyPath(t *testing.T) {
	t.Parallel()

	batches, err := LoadSeedFile("")
	if err != nil || batches != nil {
		t.Fatalf("LoadSeedFile(\"\") = %v, %v, want nil, nil", batches, err)
	}
}

func TestLoadSeedFileRejectsInvalidBatches(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
	}{
		{
			name:    "duplicate id",
			content: "batches:\n  - {id: B-1, productName: A, targetQuantity: 1, unit: L}\n  - {id: B-1, productName: B, targetQuantity: 1, unit: L}\n",
		},
		{
			name:    "missing product",
			content: "batches:\n  - {id: B-1, targetQuantity: 1, unit: L}\n",
		},
		{
			name:    "unknown status",
			content: "batches:\n  - {id: B-1, productName: A, targetQuantity: 1, unit: L, status: archived}\n",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadSeedFile(writeSeed(t, tc.content))
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("LoadSeedFile() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestLoadSeedFileMissing(t *testing.T) {
	t.Parallel()

	if _, err := LoadSeedFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing seed file")
	}
}
