package numerator

import (
	"context"
	"sync"
	"time"
)

// MockGenerator is a test implementation of Generator.
// Without overrides it behaves like a real generator backed by an in-memory
// counter map, so domain tests get realistic, unique numbers.
type MockGenerator struct {
	NextFunc    func(ctx context.Context, cfg Config, period time.Time) (Result, error)
	SetNextFunc func(ctx context.Context, cfg Config, period time.Time, value int64) error

	mu       sync.Mutex
	counters map[string]int64
}

// NewMockGenerator creates a mock with an empty counter map.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{counters: make(map[string]int64)}
}

// Next implements Generator.
func (m *MockGenerator) Next(ctx context.Context, cfg Config, period time.Time) (Result, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, cfg, period)
	}

	m.mu.Lock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	key := cfg.CounterKey(period)
	if _, ok := m.counters[key]; !ok && cfg.Start > 0 {
		m.counters[key] = cfg.Start - 1
	}
	m.counters[key]++
	seq := m.counters[key]
	m.mu.Unlock()

	pattern, _ := cfg.CompiledPattern()
	return Result{Number: pattern.Render(period, seq), Sequence: seq}, nil
}

// SetNext implements Generator.
func (m *MockGenerator) SetNext(ctx context.Context, cfg Config, period time.Time, value int64) error {
	if m.SetNextFunc != nil {
		return m.SetNextFunc(ctx, cfg, period, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[cfg.CounterKey(period)] = value - 1
	return nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
