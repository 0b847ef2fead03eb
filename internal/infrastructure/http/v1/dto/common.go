// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"github.com/shopspring/decimal"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain/pricing"
)

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- Line items ---

// LineItemRequest represents a priced line in create/update requests.
type LineItemRequest struct {
	LineID          string          `json:"lineId,omitempty"`
	ProductRef      string          `json:"productRef,omitempty"`
	Name            string          `json:"name" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	Unit            string          `json:"unit,omitempty"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	VATRate         string          `json:"vatRate,omitempty"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	QuantityFormula string          `json:"quantityFormula,omitempty"`
}

// ToLineItem converts a line request to a domain line. Missing line IDs get
// fresh ones; line numbers are assigned from position.
func (r *LineItemRequest) ToLineItem(lineNo int) pricing.LineItem {
	lineID := id.New()
	if r.LineID != "" {
		if parsed, err := id.Parse(r.LineID); err == nil {
			lineID = parsed
		}
	}

	vatRate := r.VATRate
	if vatRate == "" {
		vatRate = pricing.VATStandard
	}

	return pricing.LineItem{
		LineID:          lineID,
		LineNo:          lineNo,
		ProductRef:      r.ProductRef,
		Name:            r.Name,
		Quantity:        r.Quantity,
		Unit:            r.Unit,
		UnitPrice:       r.UnitPrice,
		VATRate:         vatRate,
		DiscountPercent: r.DiscountPercent,
		QuantityFormula: r.QuantityFormula,
	}
}

// ToLineItems converts line requests to domain lines.
func ToLineItems(reqs []LineItemRequest) []pricing.LineItem {
	items := make([]pricing.LineItem, len(reqs))
	for i := range reqs {
		items[i] = reqs[i].ToLineItem(i + 1)
	}
	return items
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
