// Package offer provides the OfferVersion document service.
package offer

import (
	"context"
	"fmt"
	"time"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/id"
	"fieldbill/internal/core/numerator"
	"fieldbill/internal/core/tx"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/pricing"
	"fieldbill/pkg/logger"
)

// createRetries bounds retries when concurrent creates collide on the
// (project, baseTitle, versionNumber) unique constraint.
const createRetries = 3

// Service provides business operations for offer versions.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	numbering numerator.Config
	hooks     *domain.HookRegistry[*OfferVersion]
}

// NewService creates a new offer service.
func NewService(repo Repository, gen numerator.Generator, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		numerator: gen,
		txManager: txManager,
		numbering: DefaultNumbering(),
		hooks:     domain.NewHookRegistry[*OfferVersion](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*OfferVersion] {
	return s.hooks
}

// CreateVersion creates a new draft version in the chain identified by the
// title candidate. A trailing _<number> on the candidate is stripped, so
// creating from "Fasada_3" extends the "Fasada" chain. The version number is
// always max existing + 1; numbers are never reused.
func (s *Service) CreateVersion(ctx context.Context, projectID id.ID, titleCandidate string, items []pricing.LineItem, cfg pricing.DiscountConfig) (*OfferVersion, error) {
	doc := NewOfferVersion(projectID, titleCandidate, items, cfg)

	if err := s.hooks.Run(ctx, domain.BeforeCreate, doc); err != nil {
		return nil, err
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	result, err := s.numerator.Next(ctx, s.numbering, doc.Date)
	if err != nil {
		result = numerator.Fallback(s.numbering)
		logger.Warn(ctx, "number allocation failed, assigned local number",
			"number", result.Number,
			"error", err)
	}
	doc.Number = result.Number

	var lastErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		lastErr = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			max, err := s.repo.MaxVersionNumber(ctx, doc.ProjectID, doc.BaseTitle)
			if err != nil {
				return fmt.Errorf("resolve version number: %w", err)
			}
			doc.VersionNumber = max + 1

			if err := s.repo.Create(ctx, doc); err != nil {
				return fmt.Errorf("create version: %w", err)
			}
			return s.repo.SaveItems(ctx, doc.ID, doc.Items)
		})
		if !apperror.IsCode(lastErr, apperror.CodeDuplicate) {
			break
		}
		// lost the version-number race, recompute and try again
	}
	if lastErr != nil {
		return nil, lastErr
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "offer version created",
		"id", doc.ID,
		"number", doc.Number,
		"title", doc.Title())

	return doc, nil
}

// UpdateVersion replaces items and discount config of a draft version and
// recomputes its summary. Issued states are immutable.
func (s *Service) UpdateVersion(ctx context.Context, versionID id.ID, items []pricing.LineItem, cfg pricing.DiscountConfig) (*OfferVersion, error) {
	var doc *OfferVersion

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, versionID)
		if err != nil {
			return err
		}

		if err := doc.CanModify(); err != nil {
			return err
		}

		doc.Items = pricing.CloneItems(items)
		doc.Discount = cfg
		doc.Recalculate()
		doc.Touch()

		if err := doc.Validate(ctx); err != nil {
			return err
		}

		if err := s.hooks.Run(ctx, domain.BeforeUpdate, doc); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
		return s.repo.SaveItems(ctx, doc.ID, doc.Items)
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterUpdate, doc); err != nil {
		logger.Warn(ctx, "after-update hook failed", "error", err)
	}

	return doc, nil
}

// Accept marks a version accepted. Any previously accepted version of the
// project is retired to cancelled in the same transaction. When two
// acceptances race, the store-level conditional update lets exactly one win;
// the loser observes AlreadyAcceptedError. Accepting an already accepted
// version is a no-op.
func (s *Service) Accept(ctx context.Context, versionID id.ID) (*OfferVersion, error) {
	var doc *OfferVersion
	alreadyAccepted := false

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, versionID)
		if err != nil {
			return err
		}

		if doc.Status == StatusAccepted {
			alreadyAccepted = true
			return nil
		}
		if doc.Status == StatusCancelled {
			return apperror.NewImmutableVersion("offer version", doc.ID, string(doc.Status))
		}

		now := time.Now().UTC()

		retired, err := s.repo.RetireAccepted(ctx, doc.ProjectID, doc.ID, now)
		if err != nil {
			return fmt.Errorf("retire accepted versions: %w", err)
		}
		if retired > 0 {
			logger.Info(ctx, "previously accepted offer version retired",
				"projectId", doc.ProjectID,
				"count", retired)
		}

		ok, err := s.repo.MarkAccepted(ctx, doc.ID, now)
		if err != nil {
			return fmt.Errorf("mark accepted: %w", err)
		}
		if !ok {
			return apperror.NewAlreadyAccepted(doc.ProjectID)
		}

		doc.Status = StatusAccepted
		doc.AcceptedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if alreadyAccepted {
		return doc, nil
	}

	s.runFanOut(ctx, domain.AfterAccept, doc)

	logger.Info(ctx, "offer version accepted",
		"id", doc.ID,
		"number", doc.Number,
		"projectId", doc.ProjectID)

	return doc, nil
}

// CancelAcceptance reverts the accepted version of a project to cancelled.
// Returns NoAcceptedVersionError when the project has none.
func (s *Service) CancelAcceptance(ctx context.Context, projectID id.ID) (*OfferVersion, error) {
	var doc *OfferVersion

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetAccepted(ctx, projectID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNoAcceptedVersion(projectID)
			}
			return err
		}

		now := time.Now().UTC()
		doc.Status = StatusCancelled
		doc.CancelledAt = &now
		doc.Touch()

		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.runFanOut(ctx, domain.AfterCancel, doc)

	logger.Info(ctx, "offer acceptance cancelled",
		"id", doc.ID,
		"projectId", doc.ProjectID)

	return doc, nil
}

// CancelAcceptanceByID reverts a specific accepted version to cancelled, for
// callers holding the version id rather than the project. Returns
// NoAcceptedVersionError when that version is not the accepted one.
func (s *Service) CancelAcceptanceByID(ctx context.Context, versionID id.ID) (*OfferVersion, error) {
	var doc *OfferVersion

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, versionID)
		if err != nil {
			return err
		}
		if doc.Status != StatusAccepted {
			return apperror.NewNoAcceptedVersion(doc.ProjectID).
				WithDetail("versionId", versionID)
		}

		now := time.Now().UTC()
		doc.Status = StatusCancelled
		doc.CancelledAt = &now
		doc.Touch()

		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.runFanOut(ctx, domain.AfterCancel, doc)

	logger.Info(ctx, "offer acceptance cancelled",
		"id", doc.ID,
		"projectId", doc.ProjectID)

	return doc, nil
}

// runFanOut executes transition hooks outside the transaction, isolated per
// hook: a failing side effect is logged but never surfaces as the primary
// operation's error.
func (s *Service) runFanOut(ctx context.Context, event domain.HookEvent, doc *OfferVersion) {
	for _, err := range s.hooks.RunIsolated(ctx, event, doc) {
		logger.Error(ctx, "offer transition side effect failed",
			"event", string(event),
			"id", doc.ID,
			"error", err)
	}
}

// GetByID retrieves an offer version with items.
func (s *Service) GetByID(ctx context.Context, versionID id.ID) (*OfferVersion, error) {
	doc, err := s.repo.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	doc.Items = items
	doc.Recalculate()

	return doc, nil
}

// GetAccepted retrieves the accepted version of a project with items.
func (s *Service) GetAccepted(ctx context.Context, projectID id.ID) (*OfferVersion, error) {
	doc, err := s.repo.GetAccepted(ctx, projectID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	doc.Items = items
	doc.Recalculate()

	return doc, nil
}

// List retrieves offer versions with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*OfferVersion], error) {
	return s.repo.List(ctx, filter)
}
