// Package invoice provides the InvoiceVersion document (račun). Invoices are
// built from work-order execution snapshots and versioned per project.
package invoice

import (
	"context"
	"time"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/entity"
	"fieldbill/internal/core/id"
	"fieldbill/internal/domain/pricing"
)

// Status of an invoice version.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusIssued    Status = "issued"
	StatusCancelled Status = "cancelled"
)

// ItemKind classifies how an invoice line relates to the accepted offer.
type ItemKind string

const (
	// KindBase covers work sold in the offer and executed in full
	KindBase ItemKind = "base"

	// KindShortfall covers offered work executed below the offered quantity
	KindShortfall ItemKind = "shortfall"

	// KindExtra covers work performed outside the accepted offer
	KindExtra ItemKind = "extra"
)

// Item is one invoice line with its classification and provenance.
type Item struct {
	pricing.LineItem

	Kind ItemKind `db:"kind" json:"kind"`

	// OfferLineID links back to the originating offer line; nil UUID for
	// extra lines.
	OfferLineID id.ID `db:"offer_line_id" json:"offerLineId,omitempty"`
}

// InvoiceVersion represents one version of a project's invoice.
// At most one draft and at most one issued version exist per project.
// Issued versions are immutable.
type InvoiceVersion struct {
	entity.Document

	// VersionNumber is 1-based within the project
	VersionNumber int `db:"version_number" json:"versionNumber"`

	Status Status `db:"status" json:"status"`

	IssuedAt    *time.Time `db:"issued_at" json:"issuedAt,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`

	Discount pricing.DiscountConfig `db:"-" json:"discount"`
	Summary  pricing.Summary        `db:"-" json:"summary"`

	Items []Item `db:"-" json:"items"`

	// Warnings from the last totals computation. Not persisted.
	Warnings []pricing.Warning `db:"-" json:"warnings,omitempty"`
}

// NewInvoiceVersion creates a draft version. VersionNumber is assigned by the
// service at persist time.
func NewInvoiceVersion(projectID id.ID, items []Item, cfg pricing.DiscountConfig) *InvoiceVersion {
	v := &InvoiceVersion{
		Document: entity.NewDocument(projectID),
		Status:   StatusDraft,
		Discount: cfg,
		Items:    CloneItems(items),
	}
	v.Recalculate()
	return v
}

// CloneItems deep-copies invoice items with fresh backing storage.
func CloneItems(items []Item) []Item {
	cloned := make([]Item, len(items))
	copy(cloned, items)
	return cloned
}

// LineItems flattens typed items into plain priced lines for the calculator.
func (v *InvoiceVersion) LineItems() []pricing.LineItem {
	lines := make([]pricing.LineItem, len(v.Items))
	for i, it := range v.Items {
		lines[i] = it.LineItem
	}
	return lines
}

// Recalculate recomputes the monetary summary from items and discount config.
func (v *InvoiceVersion) Recalculate() {
	v.Summary, v.Warnings = pricing.ComputeTotals(v.LineItems(), v.Discount)
}

// CanModify reports whether the version is still editable.
func (v *InvoiceVersion) CanModify() error {
	if v.Status != StatusDraft {
		return apperror.NewImmutableVersion("invoice version", v.ID, string(v.Status))
	}
	return nil
}

// Validate implements entity.Validatable.
func (v *InvoiceVersion) Validate(ctx context.Context) error {
	if err := v.Document.Validate(ctx); err != nil {
		return err
	}

	if len(v.Items) == 0 {
		return apperror.NewValidation("at least one line item is required").
			WithDetail("field", "items")
	}

	for i := range v.Items {
		if err := v.Items[i].LineItem.Validate(ctx); err != nil {
			return err
		}
		switch v.Items[i].Kind {
		case KindBase, KindShortfall, KindExtra:
		default:
			return apperror.NewValidation("unknown item kind").
				WithDetail("field", "items").
				WithDetail("lineNo", v.Items[i].LineNo).
				WithDetail("value", string(v.Items[i].Kind))
		}
	}

	switch v.Status {
	case StatusDraft, StatusIssued, StatusCancelled:
	default:
		return apperror.NewValidation("unknown invoice status").
			WithDetail("field", "status").
			WithDetail("value", string(v.Status))
	}

	return nil
}
