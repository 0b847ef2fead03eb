// Package workorder provides work orders and material orders materialized
// from accepted offers. Field execution is recorded against work-order items
// and later drives invoice snapshots.
package workorder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/entity"
	"fieldbill/internal/core/id"
)

// Status of a work or material order.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Item is one executable line of a work or material order.
type Item struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// OfferLineID links back to the originating offer line; nil UUID for
	// extra items added during execution.
	OfferLineID id.ID `db:"offer_line_id" json:"offerLineId,omitempty"`

	ProductRef string `db:"product_ref" json:"productRef,omitempty"`
	Name       string `db:"name" json:"name"`
	Unit       string `db:"unit" json:"unit"`

	// Offered is the quantity sold, Planned the quantity prepared for the
	// crew, Executed what was actually done on site.
	Offered  decimal.Decimal `db:"offered" json:"offered"`
	Planned  decimal.Decimal `db:"planned" json:"planned"`
	Executed decimal.Decimal `db:"executed" json:"executed"`

	// IsExtra marks work performed outside the accepted offer
	IsExtra bool `db:"is_extra" json:"isExtra"`
}

// WorkOrder is the execution document of a project. At most one non-cancelled
// work order exists per project; re-accepting a different offer version
// refreshes it in place.
type WorkOrder struct {
	entity.Document

	// OfferID is the accepted offer version this order was built from
	OfferID id.ID `db:"offer_id" json:"offerId"`

	// CustomerName snapshot for the crew's paperwork
	CustomerName string `db:"customer_name" json:"customerName,omitempty"`

	Status Status `db:"status" json:"status"`

	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// MaterialOrder lists material to procure for a project, derived from offer
// lines that reference a product.
type MaterialOrder struct {
	entity.Document

	OfferID id.ID `db:"offer_id" json:"offerId"`

	Status Status `db:"status" json:"status"`

	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// ExecutedQuantity is the per-line execution record fed into invoice
// snapshots.
type ExecutedQuantity struct {
	OfferLineID id.ID
	LineNo      int
	ProductRef  string
	Name        string
	Unit        string
	Executed    decimal.Decimal
	IsExtra     bool
}

// NewWorkOrder creates an open work order for a project.
func NewWorkOrder(projectID, offerID id.ID) *WorkOrder {
	return &WorkOrder{
		Document: entity.NewDocument(projectID),
		OfferID:  offerID,
		Status:   StatusOpen,
		Items:    make([]Item, 0),
	}
}

// NewMaterialOrder creates an open material order for a project.
func NewMaterialOrder(projectID, offerID id.ID) *MaterialOrder {
	return &MaterialOrder{
		Document: entity.NewDocument(projectID),
		OfferID:  offerID,
		Status:   StatusOpen,
		Items:    make([]Item, 0),
	}
}

// Validate implements entity.Validatable.
func (w *WorkOrder) Validate(ctx context.Context) error {
	if err := w.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(w.OfferID) {
		return apperror.NewValidation("offer reference is required").
			WithDetail("field", "offerId")
	}
	return nil
}

// Validate implements entity.Validatable.
func (m *MaterialOrder) Validate(ctx context.Context) error {
	if err := m.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(m.OfferID) {
		return apperror.NewValidation("offer reference is required").
			WithDetail("field", "offerId")
	}
	return nil
}
