package workorder

import "fieldbill/internal/core/numerator"

// Document types in the numbering service: "delovni nalog" and material order.
const (
	DocType         = "DN"
	MaterialDocType = "NM"
)

// DefaultNumbering is the numbering configuration for work orders.
func DefaultNumbering() numerator.Config {
	return numerator.Config{
		DocType: DocType,
		Pattern: "DN-{YYYY}-{SEQ:000}",
		Reset:   numerator.ResetYearly,
	}
}

// MaterialNumbering is the numbering configuration for material orders.
func MaterialNumbering() numerator.Config {
	return numerator.Config{
		DocType: MaterialDocType,
		Pattern: "NM-{YYYY}-{SEQ:000}",
		Reset:   numerator.ResetYearly,
	}
}
