// Package workorder provides work order and material order repositories.
package workorder

import (
	"context"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain"
)

// Repository defines operations for work orders.
type Repository interface {
	Create(ctx context.Context, wo *WorkOrder) error
	GetByID(ctx context.Context, orderID id.ID) (*WorkOrder, error)
	Update(ctx context.Context, wo *WorkOrder) error

	// GetActiveByProject returns the non-cancelled work order of a project,
	// NotFound when the project has none.
	GetActiveByProject(ctx context.Context, projectID id.ID) (*WorkOrder, error)

	// ListByProject returns all work orders of a project, cancelled included.
	ListByProject(ctx context.Context, projectID id.ID) ([]*WorkOrder, error)

	GetItems(ctx context.Context, orderID id.ID) ([]Item, error)
	SaveItems(ctx context.Context, orderID id.ID, items []Item) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*WorkOrder], error)
}

// MaterialRepository defines operations for material orders.
type MaterialRepository interface {
	Create(ctx context.Context, mo *MaterialOrder) error
	GetByID(ctx context.Context, orderID id.ID) (*MaterialOrder, error)
	Update(ctx context.Context, mo *MaterialOrder) error

	GetActiveByProject(ctx context.Context, projectID id.ID) (*MaterialOrder, error)

	GetItems(ctx context.Context, orderID id.ID) ([]Item, error)
	SaveItems(ctx context.Context, orderID id.ID, items []Item) error
}

// ListFilter for filtering work orders.
type ListFilter struct {
	domain.ListFilter

	ProjectID *id.ID
	Status    *Status
}
