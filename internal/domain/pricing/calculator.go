// Package pricing computes monetary summaries for commercial documents.
// The pipeline is fixed: base, per-item discount, global discount, VAT, total.
// Intermediate math runs at full decimal precision; only the final summary
// fields are rounded to 2 decimals, so accumulated rounding drift cannot occur.
package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/id"
	"fieldbill/internal/core/types"
)

// Supported VAT modes. Anything else computes as 0% and produces a warning.
const (
	VATStandard = "22"
	VATReduced  = "9.5"
	VATZero     = "0"
)

// LineItem is a single priced line of an offer or invoice version.
// Immutable once its owning version is issued.
type LineItem struct {
	LineID          id.ID           `db:"line_id" json:"lineId"`
	LineNo          int             `db:"line_no" json:"lineNo"`
	ProductRef      string          `db:"product_ref" json:"productRef,omitempty"`
	Name            string          `db:"name" json:"name"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity"`
	Unit            string          `db:"unit" json:"unit"`
	UnitPrice       types.Money     `db:"unit_price" json:"unitPrice"`
	VATRate         string          `db:"vat_rate" json:"vatRate"` // "0", "9.5", "22"
	DiscountPercent decimal.Decimal `db:"discount_percent" json:"discountPercent"`

	// QuantityFormula is an optional arithmetic rule used when planned
	// quantities are derived from measured values (see domain/rules).
	QuantityFormula string `db:"quantity_formula" json:"quantityFormula,omitempty"`
}

// Validate checks line item invariants.
func (li *LineItem) Validate(ctx context.Context) error {
	if li.Name == "" {
		return apperror.NewValidation("line item name is required").
			WithDetail("field", "name").
			WithDetail("lineNo", li.LineNo)
	}
	if !li.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("lineNo", li.LineNo)
	}
	if li.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price must not be negative").
			WithDetail("field", "unitPrice").
			WithDetail("lineNo", li.LineNo)
	}
	switch li.VATRate {
	case VATStandard, VATReduced, VATZero:
	default:
		return apperror.NewValidation("unsupported VAT rate").
			WithDetail("field", "vatRate").
			WithDetail("value", li.VATRate).
			WithDetail("lineNo", li.LineNo)
	}
	return nil
}

// DiscountConfig controls the discount/VAT pipeline for a document version.
type DiscountConfig struct {
	UsePerItemDiscount    bool            `db:"use_per_item_discount" json:"usePerItemDiscount"`
	UseGlobalDiscount     bool            `db:"use_global_discount" json:"useGlobalDiscount"`
	GlobalDiscountPercent decimal.Decimal `db:"global_discount_percent" json:"globalDiscountPercent"`
	VATMode               string          `db:"vat_mode" json:"vatMode"` // "22", "9.5", "0"
}

// Summary is the derived monetary summary of a document version.
// Never stored independently of the version it belongs to.
// All fields are rounded to 2 decimals at computation time.
type Summary struct {
	BaseWithoutVAT    types.Money `db:"base_without_vat" json:"baseWithoutVat"`
	PerItemDiscount   types.Money `db:"per_item_discount" json:"perItemDiscountAmount"`
	GlobalDiscount    types.Money `db:"global_discount" json:"globalDiscountAmount"`
	BaseAfterDiscount types.Money `db:"base_after_discount" json:"baseAfterDiscount"`
	VATAmount         types.Money `db:"vat_amount" json:"vatAmount"`
	TotalWithVAT      types.Money `db:"total_with_vat" json:"totalWithVat"`
}

// Warning reports a non-fatal computation note surfaced to the caller.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const warnUnsupportedVATMode = "UNSUPPORTED_VAT_MODE"

// vatMultiplier looks up the multiplier for a VAT mode.
// Unsupported modes fall back to 0% - an explicit design choice, surfaced
// to the caller via a warning rather than failing the computation.
func vatMultiplier(mode string) (decimal.Decimal, bool) {
	switch mode {
	case VATStandard:
		return decimal.NewFromFloat(0.22), true
	case VATReduced:
		return decimal.NewFromFloat(0.095), true
	case VATZero:
		return decimal.Zero, true
	default:
		return decimal.Zero, false
	}
}

// ComputeTotals derives the monetary summary for a set of line items.
// Pure function; item order does not affect any summary field.
// An empty item set yields an all-zero summary - rejecting zero-item
// documents is the caller's responsibility.
func ComputeTotals(items []LineItem, cfg DiscountConfig) (Summary, []Warning) {
	var warnings []Warning

	base := decimal.Zero
	perItem := decimal.Zero

	for _, li := range items {
		lineBase := li.UnitPrice.Mul(li.Quantity)
		base = base.Add(lineBase)

		if cfg.UsePerItemDiscount {
			pct := types.ClampPercent(li.DiscountPercent)
			perItem = perItem.Add(lineBase.Mul(pct).Div(types.Hundred))
		}
	}

	afterPerItem := base.Sub(perItem)

	global := decimal.Zero
	if cfg.UseGlobalDiscount {
		pct := types.ClampPercent(cfg.GlobalDiscountPercent)
		global = afterPerItem.Mul(pct).Div(types.Hundred)
	}

	afterDiscount := afterPerItem.Sub(global)

	mult, known := vatMultiplier(cfg.VATMode)
	if !known {
		warnings = append(warnings, Warning{
			Code:    warnUnsupportedVATMode,
			Message: "unsupported VAT mode " + cfg.VATMode + ", computed with 0%",
		})
	}
	vat := afterDiscount.Mul(mult)
	total := afterDiscount.Add(vat)

	return Summary{
		BaseWithoutVAT:    types.Round2(base),
		PerItemDiscount:   types.Round2(perItem),
		GlobalDiscount:    types.Round2(global),
		BaseAfterDiscount: types.Round2(afterDiscount),
		VATAmount:         types.Round2(vat),
		TotalWithVAT:      types.Round2(total),
	}, warnings
}

// CloneItems deep-copies a line item slice with fresh backing storage.
func CloneItems(items []LineItem) []LineItem {
	cloned := make([]LineItem, len(items))
	copy(cloned, items)
	return cloned
}
