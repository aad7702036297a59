package domain

import (
	"fmt"
	"strings"
)

var operators = []string{
	"John Smith",
	"Maria Garcia",
	"David Chen",
	"Sarah Johnson",
	"Ahmed Hassan",
}

// Operators returns the closed list of operator display names.
func Operators() []string {
	out := make([]string, len(operators))
	copy(out, operators)
	return out
}

func ParseOperator(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: operator is required", ErrValidation)
	}
	for _, op := range operators {
		if strings.EqualFold(op, trimmed) {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: unknown operator %q", ErrValidation, name)
}
