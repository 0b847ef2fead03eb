package offer

import "fieldbill/internal/core/numerator"

// DocType identifies offers in the numbering service ("ponudba").
const DocType = "PON"

// DefaultNumbering is the numbering configuration for offer versions.
// Counters reset yearly so numbers read PON-2025-001, PON-2025-002, ...
func DefaultNumbering() numerator.Config {
	return numerator.Config{
		DocType: DocType,
		Pattern: "PON-{YYYY}-{SEQ:000}",
		Reset:   numerator.ResetYearly,
	}
}
