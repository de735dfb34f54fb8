package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	NextFunc func(ctx context.Context, cfg Config, period time.Time) (string, error)

	mu   sync.Mutex
	seqs map[string]int64
}

// Next implements Generator. Without NextFunc it counts per prefix and year.
func (m *MockGenerator) Next(ctx context.Context, cfg Config, period time.Time) (string, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, cfg, period)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seqs == nil {
		m.seqs = make(map[string]int64)
	}
	key := fmt.Sprintf("%s-%d", cfg.Prefix, period.Year())
	m.seqs[key]++
	return fmt.Sprintf("%s-%0*d", key, cfg.PadWidth, m.seqs[key]), nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
