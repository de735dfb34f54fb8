// Package numerator provides PostgreSQL-backed sequential numbering.
// It implements core/numerator.Generator.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "freshledger/internal/core/numerator"
)

// Querier is the subset of pgx used here.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ corenumerator.Generator = (*Service)(nil)

// Service hands out gapless numbers from sys_sequences.
type Service struct {
	querier func(ctx context.Context) Querier
}

// New creates a numerator. querier resolves the connection for a call,
// normally TxManager.GetQuerier so numbering joins the caller's transaction.
func New(querier func(ctx context.Context) Querier) *Service {
	return &Service{querier: querier}
}

// Next returns the next number, e.g. ORD-2026-00001.
func (s *Service) Next(ctx context.Context, cfg corenumerator.Config, period time.Time) (string, error) {
	key := buildKey(cfg, period)

	var num int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next number for %s: %w", key, err)
	}
	return formatNumber(cfg, period, num), nil
}

// Set moves a sequence so the next number is value+1. Used when importing
// existing orders.
func (s *Service) Set(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	var result int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val
	`, buildKey(cfg, period), value).Scan(&result)
	if err != nil {
		return fmt.Errorf("set sequence: %w", err)
	}
	return nil
}

func buildKey(cfg corenumerator.Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

func formatNumber(cfg corenumerator.Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}
	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// ParseNumber extracts the sequence part of a formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	i := strings.LastIndexByte(formatted, '-')
	if i < 0 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[i+1:], 10, 64)
	if err != nil {
		return -1
	}
	return num
}
