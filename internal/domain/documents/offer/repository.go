// Package offer provides the OfferVersion document repository.
package offer

import (
	"context"
	"time"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/pricing"
)

// Repository defines operations for offer versions.
type Repository interface {
	// CRUD operations
	Create(ctx context.Context, v *OfferVersion) error
	GetByID(ctx context.Context, versionID id.ID) (*OfferVersion, error)
	Update(ctx context.Context, v *OfferVersion) error

	// Item operations
	GetItems(ctx context.Context, versionID id.ID) ([]pricing.LineItem, error)
	SaveItems(ctx context.Context, versionID id.ID, items []pricing.LineItem) error

	// List operations
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*OfferVersion], error)

	// Version chain
	MaxVersionNumber(ctx context.Context, projectID id.ID, baseTitle string) (int, error)

	// GetAccepted returns the accepted version of a project, NotFound otherwise.
	GetAccepted(ctx context.Context, projectID id.ID) (*OfferVersion, error)

	// MarkAccepted conditionally flips draft to accepted in one statement:
	// succeeds only while the version is draft and no other version of the
	// project is accepted. Returns false when the condition fails, which the
	// loser of a concurrent acceptance race observes.
	MarkAccepted(ctx context.Context, versionID id.ID, at time.Time) (bool, error)

	// RetireAccepted cancels accepted versions of the project except the given
	// one. Returns the number of versions retired.
	RetireAccepted(ctx context.Context, projectID, exceptID id.ID, at time.Time) (int64, error)

	// Locking
	GetForUpdate(ctx context.Context, versionID id.ID) (*OfferVersion, error)
}

// ListFilter for filtering offer versions.
type ListFilter struct {
	domain.ListFilter

	ProjectID *id.ID
	BaseTitle *string
	Status    *Status
	DateFrom  *time.Time
	DateTo    *time.Time
}
