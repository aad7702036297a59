package config

import (
	"fmt"
	"os"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Batches []domain.Batch `yaml:"batches"`
}

// LoadSeedFile reads the initial batch list from a YAML file. An empty path
// returns nil so the built-in seed is used.
func LoadSeedFile(path string) ([]domain.Batch, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(file.Batches))
	for i := range file.Batches {
		b := &file.Batches[i]
		if b.Status == "" {
			b.Status = domain.BatchStatusPlanned
		} else if status, err := domain.ParseBatchStatusFromString(string(b.Status)); err == nil {
			b.Status = status
		}
		if b.Materials == nil {
			b.Materials = []domain.Material{}
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("seed file %s: %w", path, err)
		}
		if _, dup := seen[b.ID]; dup {
			return nil, fmt.Errorf("seed file %s: %w: duplicate batch id %q", path, domain.ErrValidation, b.ID)
		}
		seen[b.ID] = struct{}{}
	}

	return file.Batches, nil
}
