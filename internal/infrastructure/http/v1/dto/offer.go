package dto

import (
	"fieldbill/internal/domain/pricing"
)

// --- Request DTOs ---

// CreateOfferVersionRequest represents a request to create an offer version.
// The title may carry a trailing _<number>; the service strips it and assigns
// the next version number in the chain.
type CreateOfferVersionRequest struct {
	ProjectID string                 `json:"projectId" binding:"required"`
	Title     string                 `json:"title" binding:"required"`
	Items     []LineItemRequest      `json:"items" binding:"required,min=1,dive"`
	Discount  pricing.DiscountConfig `json:"discount"`
}

// UpdateOfferVersionRequest replaces the items and discount configuration of
// a draft version.
type UpdateOfferVersionRequest struct {
	Items    []LineItemRequest      `json:"items" binding:"required,min=1,dive"`
	Discount pricing.DiscountConfig `json:"discount"`
}
