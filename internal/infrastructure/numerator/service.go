// Package numerator provides PostgreSQL implementation of document auto-numbering.
// This is the infrastructure layer - it implements core/numerator.Generator interface.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "fieldbill/internal/core/numerator"
	"fieldbill/pkg/logger"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service provides document numbering backed by PostgreSQL.
//
// The increment is a single atomic UPSERT + RETURNING, so two concurrent
// callers for the same counter key never observe the same value. Numbers are
// assigned outside business transactions; a rolled-back document may leave a
// gap in issued numbers, but the counter itself never moves backwards.
type Service struct {
	querier Querier
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a new numerator service.
func New(querier Querier) *Service {
	return &Service{querier: querier}
}

// Next assigns the next document number for the config and reference date.
func (s *Service) Next(ctx context.Context, cfg corenumerator.Config, period time.Time) (corenumerator.Result, error) {
	if s == nil || s.querier == nil {
		return corenumerator.Result{}, fmt.Errorf("numerator service is not initialized")
	}

	start := cfg.Start
	if start < 1 {
		start = 1
	}

	key := cfg.CounterKey(period)

	var seq int64
	err := s.querier.QueryRow(ctx, `
        INSERT INTO sys_sequences (counter_key, current_val)
        VALUES ($1, $2)
        ON CONFLICT (counter_key) DO UPDATE SET current_val = sys_sequences.current_val + 1
        RETURNING current_val
	`, key, start).Scan(&seq)
	if err != nil {
		return corenumerator.Result{}, fmt.Errorf("next sequence for %s: %w", key, err)
	}

	pattern, fellBack := cfg.CompiledPattern()
	if fellBack {
		logger.Warn(ctx, "invalid numbering pattern, using default",
			"docType", cfg.DocType,
			"pattern", cfg.Pattern)
	}

	return corenumerator.Result{
		Number:   pattern.Render(period, seq),
		Sequence: seq,
	}, nil
}

// SetNext sets the next counter value (for migration purposes).
// The stored value is value-1 so the following Next call returns value.
func (s *Service) SetNext(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	if value < 1 {
		return fmt.Errorf("next value must be positive, got %d", value)
	}

	key := cfg.CounterKey(period)

	var result int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (counter_key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (counter_key) DO UPDATE SET current_val = $2
		RETURNING current_val
	`, key, value-1).Scan(&result)
	if err != nil {
		return fmt.Errorf("set sequence for %s: %w", key, err)
	}

	return nil
}
