// Package project provides the project repository.
package project

import (
	"context"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain"
)

// Repository defines operations for projects.
type Repository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, projectID id.ID) (*Project, error)
	Update(ctx context.Context, p *Project) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Project], error)
}

// ListFilter for filtering projects.
type ListFilter struct {
	domain.ListFilter

	Status *Status
}
