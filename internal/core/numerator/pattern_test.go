package numerator

import (
	"strings"
	"testing"
	"time"
)

func TestCompile_RendersAllTokens(t *testing.T) {
	p, err := Compile("DOC-{YYYY}{YY}{MM}{DD}-{SEQ:000}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	period := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	if got := p.Render(period, 7); got != "DOC-2025250115-007" {
		t.Errorf("expected DOC-2025250115-007, got %s", got)
	}
}

func TestCompile_RejectsUnknownToken(t *testing.T) {
	if _, err := Compile("X-{QQ}-{SEQ:00}"); err == nil {
		t.Error("expected error for unknown token")
	}
}

func TestCompile_RejectsMissingSeq(t *testing.T) {
	if _, err := Compile("X-{YYYY}"); err == nil {
		t.Error("expected error for pattern without SEQ")
	}
}

func TestCompile_RejectsOversizedPattern(t *testing.T) {
	long := strings.Repeat("A", MaxPatternLength) + "-{SEQ:000}"
	if _, err := Compile(long); err == nil {
		t.Error("expected error for oversized pattern")
	}
}

func TestCompile_RejectsUnclosedToken(t *testing.T) {
	if _, err := Compile("X-{SEQ:000"); err == nil {
		t.Error("expected error for unclosed token")
	}
}

func TestConfig_CompiledPatternFallsBack(t *testing.T) {
	cfg := Config{DocType: "OFFER", Pattern: "{BROKEN}"}
	p, fellBack := cfg.CompiledPattern()
	if !fellBack {
		t.Error("expected fallback to default pattern")
	}
	if p.String() != DefaultPattern("OFFER") {
		t.Errorf("expected default pattern, got %s", p.String())
	}
}

func TestConfig_CounterKey(t *testing.T) {
	period := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	yearly := Config{DocType: "INVOICE", Reset: ResetYearly}
	if key := yearly.CounterKey(period); key != "INVOICE:2025" {
		t.Errorf("expected INVOICE:2025, got %s", key)
	}

	never := Config{DocType: "INVOICE", Reset: ResetNever}
	if key := never.CounterKey(period); key != "INVOICE" {
		t.Errorf("expected INVOICE, got %s", key)
	}
}

func TestPattern_ParseSequence(t *testing.T) {
	p := MustCompile("PON-{YYYY}-{SEQ:000}")
	period := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)

	n := p.Render(period, 42)
	if n != "PON-2025-042" {
		t.Fatalf("expected PON-2025-042, got %s", n)
	}
	if seq := p.ParseSequence(n, period); seq != 42 {
		t.Errorf("expected 42, got %d", seq)
	}
	if seq := p.ParseSequence("garbage", period); seq != -1 {
		t.Errorf("expected -1, got %d", seq)
	}
}

func TestFallback_MarksLocalNumber(t *testing.T) {
	res := Fallback(Config{DocType: "PON", Pattern: "PON-{YYYY}-{SEQ:000}"})

	if !strings.HasPrefix(res.Number, "PON-LOCAL-") {
		t.Fatalf("expected PON-LOCAL- prefix, got %q", res.Number)
	}
	if !res.Local {
		t.Fatal("expected Local flag")
	}
	if res.Sequence != 0 {
		t.Fatalf("local numbers carry no sequence, got %d", res.Sequence)
	}
}
