package numerator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "fieldbill/internal/core/numerator"
)

// mockQuerier emulates the sys_sequences upsert semantics in memory.
type mockQuerier struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{counters: make(map[string]int64)}
}

type mockRow struct {
	val int64
}

func (r mockRow) Scan(dest ...any) error {
	if p, ok := dest[0].(*int64); ok {
		*p = r.val
	}
	return nil
}

func (q *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := args[0].(string)
	arg := args[1].(int64)

	if strings.Contains(sql, "current_val + 1") {
		// Next: insert with start value or increment existing
		if cur, ok := q.counters[key]; ok {
			q.counters[key] = cur + 1
		} else {
			q.counters[key] = arg
		}
		return mockRow{val: q.counters[key]}
	}

	// SetNext: overwrite unconditionally
	q.counters[key] = arg
	return mockRow{val: arg}
}

func offerConfig() corenumerator.Config {
	return corenumerator.Config{
		DocType: "PON",
		Pattern: "PON-{YYYY}-{SEQ:000}",
		Reset:   corenumerator.ResetYearly,
	}
}

func TestNext_SequentialNumbers(t *testing.T) {
	svc := New(newMockQuerier())
	period := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	want := []string{"PON-2025-001", "PON-2025-002", "PON-2025-003"}
	for i, expected := range want {
		res, err := svc.Next(context.Background(), offerConfig(), period)
		if err != nil {
			t.Fatalf("next %d: %v", i+1, err)
		}
		if res.Number != expected {
			t.Errorf("expected %s, got %s", expected, res.Number)
		}
		if res.Sequence != int64(i+1) {
			t.Errorf("expected sequence %d, got %d", i+1, res.Sequence)
		}
	}
}

func TestNext_YearlyReset(t *testing.T) {
	svc := New(newMockQuerier())

	dec := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if _, err := svc.Next(context.Background(), offerConfig(), dec); err != nil {
			t.Fatalf("next 2024: %v", err)
		}
	}

	res, err := svc.Next(context.Background(), offerConfig(), jan)
	if err != nil {
		t.Fatalf("next 2025: %v", err)
	}
	if res.Number != "PON-2025-001" {
		t.Errorf("expected counter restart in new year, got %s", res.Number)
	}
}

func TestNext_StartOverride(t *testing.T) {
	svc := New(newMockQuerier())
	cfg := offerConfig()
	cfg.Start = 100
	period := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	res, err := svc.Next(context.Background(), cfg, period)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if res.Number != "PON-2025-100" {
		t.Errorf("fresh counter must start at configured value, got %s", res.Number)
	}

	res, err = svc.Next(context.Background(), cfg, period)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if res.Number != "PON-2025-101" {
		t.Errorf("existing counter must increment, got %s", res.Number)
	}
}

func TestNext_InvalidPatternFallsBack(t *testing.T) {
	svc := New(newMockQuerier())
	cfg := corenumerator.Config{
		DocType: "RAC",
		Pattern: "RAC-{BOGUS}",
		Reset:   corenumerator.ResetYearly,
	}
	period := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	res, err := svc.Next(context.Background(), cfg, period)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if res.Number != "RAC-2025-00001" {
		t.Errorf("expected hard-default pattern, got %s", res.Number)
	}
}

func TestSetNext(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	cfg := offerConfig()
	period := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	if err := svc.SetNext(context.Background(), cfg, period, 42); err != nil {
		t.Fatalf("set next: %v", err)
	}

	res, err := svc.Next(context.Background(), cfg, period)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if res.Number != "PON-2025-042" {
		t.Errorf("expected PON-2025-042 after SetNext(42), got %s", res.Number)
	}

	if err := svc.SetNext(context.Background(), cfg, period, 0); err == nil {
		t.Error("non-positive next value must be rejected")
	}
}

func TestNext_ConcurrentCallersUniqueNumbers(t *testing.T) {
	svc := New(newMockQuerier())
	period := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	const n = 16
	results := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Next(context.Background(), offerConfig(), period)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			results <- res.Number
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for num := range results {
		if seen[num] {
			t.Errorf("duplicate number %s", num)
		}
		seen[num] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d distinct numbers, got %d", n, len(seen))
	}
}
