package invoice

import "fieldbill/internal/core/numerator"

// DocType identifies invoices in the numbering service ("račun").
const DocType = "RAC"

// DefaultNumbering is the numbering configuration for invoice versions.
func DefaultNumbering() numerator.Config {
	return numerator.Config{
		DocType: DocType,
		Pattern: "RAC-{YYYY}-{SEQ:000}",
		Reset:   numerator.ResetYearly,
	}
}
