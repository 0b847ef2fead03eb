// Package invoice provides the InvoiceVersion document repository.
package invoice

import (
	"context"
	"time"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain"
)

// Repository defines operations for invoice versions.
type Repository interface {
	// CRUD operations
	Create(ctx context.Context, v *InvoiceVersion) error
	GetByID(ctx context.Context, versionID id.ID) (*InvoiceVersion, error)
	Update(ctx context.Context, v *InvoiceVersion) error

	// Item operations
	GetItems(ctx context.Context, versionID id.ID) ([]Item, error)
	SaveItems(ctx context.Context, versionID id.ID, items []Item) error

	// List operations
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*InvoiceVersion], error)

	// Version chain
	MaxVersionNumber(ctx context.Context, projectID id.ID) (int, error)

	// GetDraft returns the project's draft version, NotFound when none.
	GetDraft(ctx context.Context, projectID id.ID) (*InvoiceVersion, error)

	// GetIssued returns the project's issued version, NotFound when none.
	GetIssued(ctx context.Context, projectID id.ID) (*InvoiceVersion, error)

	// MarkIssued conditionally flips draft to issued in one statement:
	// succeeds only while the version is draft and no other version of the
	// project is issued. Returns false when the condition fails.
	MarkIssued(ctx context.Context, versionID id.ID, at time.Time) (bool, error)

	// RetireIssued cancels issued versions of the project except the given
	// one. Returns the number of versions retired.
	RetireIssued(ctx context.Context, projectID, exceptID id.ID, at time.Time) (int64, error)

	// Locking
	GetForUpdate(ctx context.Context, versionID id.ID) (*InvoiceVersion, error)
}

// ListFilter for filtering invoice versions.
type ListFilter struct {
	domain.ListFilter

	ProjectID *id.ID
	Status    *Status
	DateFrom  *time.Time
	DateTo    *time.Time
}
