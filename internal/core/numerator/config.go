// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"fmt"
	"time"
)

// ResetPolicy controls when the sequence counter starts over.
type ResetPolicy string

const (
	// ResetNever keeps a single counter per document type.
	ResetNever ResetPolicy = "never"

	// ResetYearly scopes the counter to the reference date's year.
	ResetYearly ResetPolicy = "yearly"
)

// Config holds numbering configuration for one document type.
type Config struct {
	// DocType identifies the document family (e.g., "OFFER", "INVOICE")
	DocType string

	// Pattern is the token string, e.g. "PON-{YYYY}-{SEQ:000}".
	// Invalid or oversized patterns fall back to DefaultPattern.
	Pattern string

	// Reset controls yearly counter scoping
	Reset ResetPolicy

	// Start overrides the first sequence value for a fresh counter (default 1)
	Start int64
}

// DefaultPattern returns the hard-default pattern for a document type.
func DefaultPattern(docType string) string {
	return docType + "-{YYYY}-{SEQ:00000}"
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(docType string) Config {
	return Config{
		DocType: docType,
		Pattern: DefaultPattern(docType),
		Reset:   ResetYearly,
	}
}

// CounterKey builds the durable counter key: docType alone when the counter
// never resets, docType:year when it resets yearly.
func (c Config) CounterKey(period time.Time) string {
	if c.Reset == ResetYearly {
		return fmt.Sprintf("%s:%d", c.DocType, period.Year())
	}
	return c.DocType
}

// CompiledPattern compiles the configured pattern, falling back to the hard
// default when the pattern is invalid or oversized. The bool reports whether
// the fallback was taken.
func (c Config) CompiledPattern() (Pattern, bool) {
	if p, err := Compile(c.Pattern); err == nil {
		return p, false
	}
	return MustCompile(DefaultPattern(c.DocType)), true
}
