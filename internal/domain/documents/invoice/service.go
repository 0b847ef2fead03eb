// Package invoice provides the InvoiceVersion document service.
package invoice

import (
	"context"
	"fmt"
	"time"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/id"
	"fieldbill/internal/core/numerator"
	"fieldbill/internal/core/tx"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/documents/offer"
	"fieldbill/internal/domain/pricing"
	"fieldbill/internal/domain/workorder"
	"fieldbill/pkg/logger"
)

// AcceptedOfferSource resolves the accepted offer of a project, used to price
// snapshot lines.
type AcceptedOfferSource interface {
	GetAccepted(ctx context.Context, projectID id.ID) (*offer.OfferVersion, error)
}

// ExecutionSource provides execution records from the project's work orders.
type ExecutionSource interface {
	ListExecutedQuantities(ctx context.Context, projectID id.ID) ([]workorder.ExecutedQuantity, error)
}

// Service provides business operations for invoice versions.
type Service struct {
	repo      Repository
	offers    AcceptedOfferSource
	execution ExecutionSource
	numerator numerator.Generator
	txManager tx.Manager
	numbering numerator.Config
	hooks     *domain.HookRegistry[*InvoiceVersion]
}

// NewService creates a new invoice service.
func NewService(
	repo Repository,
	offers AcceptedOfferSource,
	execution ExecutionSource,
	gen numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		offers:    offers,
		execution: execution,
		numerator: gen,
		txManager: txManager,
		numbering: DefaultNumbering(),
		hooks:     domain.NewHookRegistry[*InvoiceVersion](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*InvoiceVersion] {
	return s.hooks
}

// CreateFromExecutionSnapshot builds a draft invoice from the executed
// quantities of the project's work orders. Idempotent: an existing draft is
// returned untouched, so repeated calls cannot pile up drafts.
func (s *Service) CreateFromExecutionSnapshot(ctx context.Context, projectID id.ID) (*InvoiceVersion, error) {
	var doc *InvoiceVersion

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetDraft(ctx, projectID)
		if err == nil {
			doc, err = s.withItems(ctx, existing)
			return err
		}
		if !apperror.IsNotFound(err) {
			return err
		}

		executed, err := s.execution.ListExecutedQuantities(ctx, projectID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewBusinessRule("NOTHING_TO_INVOICE", "project has no work order execution to invoice").
					WithDetail("projectId", projectID)
			}
			return err
		}

		var offerItems []pricing.LineItem
		cfg := pricing.DiscountConfig{VATMode: pricing.VATStandard}
		accepted, err := s.offers.GetAccepted(ctx, projectID)
		switch {
		case err == nil:
			offerItems = accepted.Items
			cfg = accepted.Discount
		case apperror.IsNotFound(err):
			// no accepted offer: lines go out unpriced for manual pricing
			logger.Warn(ctx, "snapshot without accepted offer, lines unpriced",
				"projectId", projectID)
		default:
			return err
		}

		items := BuildSnapshot(executed, offerItems)
		if len(items) == 0 {
			return apperror.NewBusinessRule("NOTHING_TO_INVOICE", "no executed quantities to invoice").
				WithDetail("projectId", projectID)
		}

		doc = NewInvoiceVersion(projectID, items, cfg)

		result, err := s.numerator.Next(ctx, s.numbering, doc.Date)
		if err != nil {
			result = numerator.Fallback(s.numbering)
			logger.Warn(ctx, "number allocation failed, assigned local number",
				"number", result.Number,
				"error", err)
		}
		doc.Number = result.Number

		max, err := s.repo.MaxVersionNumber(ctx, projectID)
		if err != nil {
			return fmt.Errorf("resolve version number: %w", err)
		}
		doc.VersionNumber = max + 1

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create version: %w", err)
		}
		return s.repo.SaveItems(ctx, doc.ID, doc.Items)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice draft ready",
		"id", doc.ID,
		"number", doc.Number,
		"projectId", projectID,
		"version", doc.VersionNumber)

	return doc, nil
}

// UpdateVersion replaces the items of a draft version and recomputes totals.
func (s *Service) UpdateVersion(ctx context.Context, projectID, versionID id.ID, items []Item) (*InvoiceVersion, error) {
	var doc *InvoiceVersion

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.getProjectVersion(ctx, projectID, versionID, true)
		if err != nil {
			return err
		}

		if err := doc.CanModify(); err != nil {
			return err
		}

		doc.Items = CloneItems(items)
		doc.Recalculate()
		doc.Touch()

		if err := doc.Validate(ctx); err != nil {
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

	return doc, nil
}

// Issue marks a draft version issued. Any previously issued version of the
// project is cancelled in the same transaction, keeping at most one issued
// version. Issuing an already issued version is a no-op. Side effects
// (ledger entry, project completion) run as isolated fan-out hooks and never
// block issuance.
func (s *Service) Issue(ctx context.Context, projectID, versionID id.ID) (*InvoiceVersion, error) {
	var doc *InvoiceVersion
	alreadyIssued := false

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.getProjectVersion(ctx, projectID, versionID, true)
		if err != nil {
			return err
		}

		if doc.Status == StatusIssued {
			alreadyIssued = true
			return nil
		}
		if doc.Status == StatusCancelled {
			return apperror.NewImmutableVersion("invoice version", doc.ID, string(doc.Status))
		}

		now := time.Now().UTC()

		retired, err := s.repo.RetireIssued(ctx, projectID, doc.ID, now)
		if err != nil {
			return fmt.Errorf("retire issued versions: %w", err)
		}
		if retired > 0 {
			logger.Info(ctx, "previously issued invoice version cancelled",
				"projectId", projectID,
				"count", retired)
		}

		ok, err := s.repo.MarkIssued(ctx, doc.ID, now)
		if err != nil {
			return fmt.Errorf("mark issued: %w", err)
		}
		if !ok {
			return apperror.NewConflict("another invoice version was issued concurrently")
		}

		doc.Status = StatusIssued
		doc.IssuedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if alreadyIssued {
		return doc, nil
	}

	for _, err := range s.hooks.RunIsolated(ctx, domain.AfterIssue, doc) {
		logger.Error(ctx, "invoice issue side effect failed",
			"id", doc.ID,
			"error", err)
	}

	logger.Info(ctx, "invoice issued",
		"id", doc.ID,
		"number", doc.Number,
		"projectId", projectID,
		"total", doc.Summary.TotalWithVAT)

	return doc, nil
}

// CloneForEdit re-opens an issued invoice: the original is cancelled and its
// items and configuration are deep-copied into a new draft with the next
// version number. Idempotent: an existing draft is returned untouched.
func (s *Service) CloneForEdit(ctx context.Context, projectID, versionID id.ID) (*InvoiceVersion, error) {
	var doc *InvoiceVersion

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetDraft(ctx, projectID)
		if err == nil {
			doc, err = s.withItems(ctx, existing)
			return err
		}
		if !apperror.IsNotFound(err) {
			return err
		}

		source, err := s.getProjectVersion(ctx, projectID, versionID, true)
		if err != nil {
			return err
		}
		if source.Status != StatusIssued {
			return apperror.NewBusinessRule("CLONE_REQUIRES_ISSUED", "only issued invoice versions can be re-opened").
				WithDetail("status", string(source.Status))
		}

		items, err := s.repo.GetItems(ctx, source.ID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}

		now := time.Now().UTC()
		source.Status = StatusCancelled
		source.CancelledAt = &now
		source.Touch()
		if err := s.repo.Update(ctx, source); err != nil {
			return fmt.Errorf("cancel source version: %w", err)
		}

		doc = NewInvoiceVersion(projectID, items, source.Discount)

		result, err := s.numerator.Next(ctx, s.numbering, doc.Date)
		if err != nil {
			result = numerator.Fallback(s.numbering)
			logger.Warn(ctx, "number allocation failed, assigned local number",
				"number", result.Number,
				"error", err)
		}
		doc.Number = result.Number

		max, err := s.repo.MaxVersionNumber(ctx, projectID)
		if err != nil {
			return fmt.Errorf("resolve version number: %w", err)
		}
		doc.VersionNumber = max + 1

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create version: %w", err)
		}
		return s.repo.SaveItems(ctx, doc.ID, doc.Items)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice version cloned for edit",
		"sourceId", versionID,
		"draftId", doc.ID,
		"projectId", projectID)

	return doc, nil
}

// GetByID retrieves an invoice version with items.
func (s *Service) GetByID(ctx context.Context, versionID id.ID) (*InvoiceVersion, error) {
	doc, err := s.repo.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, doc)
}

// List retrieves invoice versions with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*InvoiceVersion], error) {
	return s.repo.List(ctx, filter)
}

// withItems loads items into a version and recomputes its summary.
func (s *Service) withItems(ctx context.Context, doc *InvoiceVersion) (*InvoiceVersion, error) {
	items, err := s.repo.GetItems(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	doc.Items = items
	doc.Recalculate()
	return doc, nil
}

// getProjectVersion loads a version and checks it belongs to the project.
func (s *Service) getProjectVersion(ctx context.Context, projectID, versionID id.ID, forUpdate bool) (*InvoiceVersion, error) {
	var (
		doc *InvoiceVersion
		err error
	)
	if forUpdate {
		doc, err = s.repo.GetForUpdate(ctx, versionID)
	} else {
		doc, err = s.repo.GetByID(ctx, versionID)
	}
	if err != nil {
		return nil, err
	}
	if doc.ProjectID != projectID {
		return nil, apperror.NewNotFound("invoice version", versionID)
	}
	return doc, nil
}
