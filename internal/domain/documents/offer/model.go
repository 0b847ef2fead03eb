// Package offer provides the OfferVersion document (ponudba).
package offer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/entity"
	"fieldbill/internal/core/id"
	"fieldbill/internal/domain/pricing"
)

// Status of an offer version.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusAccepted  Status = "accepted"
	StatusCancelled Status = "cancelled"
)

// OfferVersion represents one version of a commercial offer. Versions of the
// same offer share a base title and are numbered 1..N; version numbers are
// never reused, even after cancellation.
type OfferVersion struct {
	entity.Document

	// BaseTitle is the title shared by all versions of this offer
	BaseTitle string `db:"base_title" json:"baseTitle"`

	// VersionNumber is 1-based within (projectId, baseTitle)
	VersionNumber int `db:"version_number" json:"versionNumber"`

	Status Status `db:"status" json:"status"`

	// ValidUntil is an optional offer expiry date
	ValidUntil *time.Time `db:"valid_until" json:"validUntil,omitempty"`

	AcceptedAt  *time.Time `db:"accepted_at" json:"acceptedAt,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`

	// Discount configuration and derived summary
	Discount pricing.DiscountConfig `db:"-" json:"discount"`
	Summary  pricing.Summary        `db:"-" json:"summary"`

	// Table part: priced lines
	Items []pricing.LineItem `db:"-" json:"items"`

	// Warnings from the last totals computation. Not persisted.
	Warnings []pricing.Warning `db:"-" json:"warnings,omitempty"`
}

// versionSuffix matches a trailing _<number> on a title candidate.
var versionSuffix = regexp.MustCompile(`_\d+$`)

// BaseTitleOf strips a trailing _<number> from a title candidate, so creating
// a version from "Fasada_3" lands in the "Fasada" version chain.
func BaseTitleOf(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	return versionSuffix.ReplaceAllString(trimmed, "")
}

// NewOfferVersion creates a draft version. VersionNumber is assigned by the
// service at persist time.
func NewOfferVersion(projectID id.ID, baseTitle string, items []pricing.LineItem, cfg pricing.DiscountConfig) *OfferVersion {
	v := &OfferVersion{
		Document:  entity.NewDocument(projectID),
		BaseTitle: BaseTitleOf(baseTitle),
		Status:    StatusDraft,
		Discount:  cfg,
		Items:     pricing.CloneItems(items),
	}
	v.Recalculate()
	return v
}

// Title returns the display title, e.g. "Fasada_2".
func (o *OfferVersion) Title() string {
	return fmt.Sprintf("%s_%d", o.BaseTitle, o.VersionNumber)
}

// Recalculate recomputes the monetary summary from items and discount config.
func (o *OfferVersion) Recalculate() {
	o.Summary, o.Warnings = pricing.ComputeTotals(o.Items, o.Discount)
}

// CanModify reports whether the version is still editable.
func (o *OfferVersion) CanModify() error {
	if o.Status != StatusDraft {
		return apperror.NewImmutableVersion("offer version", o.ID, string(o.Status))
	}
	return nil
}

// Validate implements entity.Validatable.
func (o *OfferVersion) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}

	if o.BaseTitle == "" {
		return apperror.NewValidation("offer title is required").
			WithDetail("field", "baseTitle")
	}

	if len(o.Items) == 0 {
		return apperror.NewValidation("at least one line item is required").
			WithDetail("field", "items")
	}

	for i := range o.Items {
		if err := o.Items[i].Validate(ctx); err != nil {
			return err
		}
	}

	switch o.Status {
	case StatusDraft, StatusAccepted, StatusCancelled:
	default:
		return apperror.NewValidation("unknown offer status").
			WithDetail("field", "status").
			WithDetail("value", string(o.Status))
	}

	return nil
}
