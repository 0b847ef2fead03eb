package dto

import (
	"github.com/shopspring/decimal"

	"fieldbill/internal/domain/workorder"
)

// --- Request DTOs ---

// RecordExecutionRequest records executed quantity against a work-order line.
type RecordExecutionRequest struct {
	LineID   string          `json:"lineId" binding:"required"`
	Executed decimal.Decimal `json:"executed" binding:"required"`
}

// AddExtraItemRequest appends a line for work performed outside the accepted
// offer. The service assigns line identity and marks the item extra.
type AddExtraItemRequest struct {
	Name       string          `json:"name" binding:"required"`
	Unit       string          `json:"unit,omitempty"`
	ProductRef string          `json:"productRef,omitempty"`
	Executed   decimal.Decimal `json:"executed"`
}

// ToItem converts the request to a domain item.
func (r *AddExtraItemRequest) ToItem() workorder.Item {
	return workorder.Item{
		Name:       r.Name,
		Unit:       r.Unit,
		ProductRef: r.ProductRef,
		Executed:   r.Executed,
	}
}
