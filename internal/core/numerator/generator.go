package numerator

import (
	"context"
	"time"
)

// Generator generates sequential numbers. The implementation lives in
// infrastructure/numerator.
type Generator interface {
	// Next returns the next number for cfg in the period containing period.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., ORD-2026-00001)
	Next(ctx context.Context, cfg Config, period time.Time) (string, error)
}
