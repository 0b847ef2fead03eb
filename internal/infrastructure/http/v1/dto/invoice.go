package dto

import (
	"fieldbill/internal/core/id"
	"fieldbill/internal/domain/documents/invoice"
)

// --- Request DTOs ---

// InvoiceItemRequest represents an invoice line in update requests.
type InvoiceItemRequest struct {
	LineItemRequest

	Kind        string `json:"kind" binding:"required"`
	OfferLineID string `json:"offerLineId,omitempty"`
}

// UpdateInvoiceRequest replaces the items of a draft invoice version.
type UpdateInvoiceRequest struct {
	ProjectID string               `json:"projectId" binding:"required"`
	Items     []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToItems converts item requests to domain invoice items.
func (r *UpdateInvoiceRequest) ToItems() []invoice.Item {
	items := make([]invoice.Item, len(r.Items))
	for i := range r.Items {
		offerLineID := id.Nil()
		if r.Items[i].OfferLineID != "" {
			if parsed, err := id.Parse(r.Items[i].OfferLineID); err == nil {
				offerLineID = parsed
			}
		}
		items[i] = invoice.Item{
			LineItem:    r.Items[i].ToLineItem(i + 1),
			Kind:        invoice.ItemKind(r.Items[i].Kind),
			OfferLineID: offerLineID,
		}
	}
	return items
}

// IssueInvoiceRequest issues a draft invoice version.
type IssueInvoiceRequest struct {
	ProjectID string `json:"projectId" binding:"required"`
}

// CloneInvoiceRequest clones an issued version into a fresh draft.
type CloneInvoiceRequest struct {
	ProjectID string `json:"projectId" binding:"required"`
}
