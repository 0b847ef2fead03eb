// Package project provides the project service.
package project

import (
	"context"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/id"
	"fieldbill/internal/core/tx"
	"fieldbill/internal/domain"
	"fieldbill/pkg/logger"
)

// Service provides business operations for projects.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new project service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Create persists a new project.
func (s *Service) Create(ctx context.Context, p *Project) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	})
}

// GetByID retrieves a project.
func (s *Service) GetByID(ctx context.Context, projectID id.ID) (*Project, error) {
	return s.repo.GetByID(ctx, projectID)
}

// GetCustomer returns the customer snapshot of a project.
func (s *Service) GetCustomer(ctx context.Context, projectID id.ID) (Customer, error) {
	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return Customer{}, err
	}
	return p.Customer, nil
}

// AdvanceStatus moves a project along the pipeline. Already being in the
// target status is a no-op; anything else off the allowed path is a business
// rule violation.
func (s *Service) AdvanceStatus(ctx context.Context, projectID id.ID, next Status) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, projectID)
		if err != nil {
			return err
		}

		if p.Status == next {
			return nil
		}
		if !CanTransition(p.Status, next) {
			return apperror.NewBusinessRule("INVALID_STATUS_TRANSITION", "status transition not allowed").
				WithDetail("from", string(p.Status)).
				WithDetail("to", string(next))
		}

		prev := p.Status
		p.Status = next
		p.Touch()
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}

		logger.Info(ctx, "project status advanced",
			"projectId", p.ID,
			"from", string(prev),
			"to", string(next))
		return nil
	})
}

// List retrieves projects with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Project], error) {
	return s.repo.List(ctx, filter)
}
