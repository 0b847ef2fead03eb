// Package workorder provides the work order service.
package workorder

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/id"
	"fieldbill/internal/core/numerator"
	"fieldbill/internal/core/tx"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/documents/offer"
	"fieldbill/internal/domain/rules"
	"fieldbill/pkg/logger"
)

// Service provides business operations for work and material orders.
type Service struct {
	repo         Repository
	materialRepo MaterialRepository
	numerator    numerator.Generator
	txManager    tx.Manager
	rules        *rules.Evaluator
	numbering    numerator.Config
	matNumbering numerator.Config
}

// NewService creates a new work order service. The rules evaluator may be nil,
// in which case quantity formulas are ignored and planned equals offered.
func NewService(
	repo Repository,
	materialRepo MaterialRepository,
	gen numerator.Generator,
	txManager tx.Manager,
	ruleEval *rules.Evaluator,
) *Service {
	return &Service{
		repo:         repo,
		materialRepo: materialRepo,
		numerator:    gen,
		txManager:    txManager,
		rules:        ruleEval,
		numbering:    DefaultNumbering(),
		matNumbering: MaterialNumbering(),
	}
}

// EnsureForOffer materializes the work order and material order of a project
// from an accepted offer version. Find-or-create semantics: an existing
// non-cancelled order is refreshed in place, never duplicated, and executed
// quantities recorded so far survive the refresh.
func (s *Service) EnsureForOffer(ctx context.Context, o *offer.OfferVersion, customerName string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.ensureWorkOrder(ctx, o, customerName); err != nil {
			return err
		}
		return s.ensureMaterialOrder(ctx, o)
	})
}

// EnsureWorkOrder materializes only the work order. Used when the lifecycle
// controller runs the two materialization steps independently.
func (s *Service) EnsureWorkOrder(ctx context.Context, o *offer.OfferVersion, customerName string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.ensureWorkOrder(ctx, o, customerName)
	})
}

// EnsureMaterialOrder materializes only the material order.
func (s *Service) EnsureMaterialOrder(ctx context.Context, o *offer.OfferVersion) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.ensureMaterialOrder(ctx, o)
	})
}

func (s *Service) ensureWorkOrder(ctx context.Context, o *offer.OfferVersion, customerName string) error {
	wo, err := s.repo.GetActiveByProject(ctx, o.ProjectID)
	switch {
	case apperror.IsNotFound(err):
		wo = NewWorkOrder(o.ProjectID, o.ID)
		result, err := s.numerator.Next(ctx, s.numbering, wo.Date)
		if err != nil {
			result = numerator.Fallback(s.numbering)
			logger.Warn(ctx, "work order number allocation failed, assigned local number",
				"number", result.Number,
				"error", err)
		}
		wo.Number = result.Number
		wo.CustomerName = customerName
		wo.Items = s.buildItems(ctx, o, nil)

		if err := s.repo.Create(ctx, wo); err != nil {
			return fmt.Errorf("create work order: %w", err)
		}
		if err := s.repo.SaveItems(ctx, wo.ID, wo.Items); err != nil {
			return fmt.Errorf("save work order items: %w", err)
		}

		logger.Info(ctx, "work order created",
			"id", wo.ID,
			"number", wo.Number,
			"projectId", wo.ProjectID)
		return nil

	case err != nil:
		return err
	}

	existing, err := s.repo.GetItems(ctx, wo.ID)
	if err != nil {
		return fmt.Errorf("get work order items: %w", err)
	}

	wo.OfferID = o.ID
	wo.CustomerName = customerName
	wo.Items = s.buildItems(ctx, o, existing)
	wo.Touch()

	if err := s.repo.Update(ctx, wo); err != nil {
		return fmt.Errorf("refresh work order: %w", err)
	}
	if err := s.repo.SaveItems(ctx, wo.ID, wo.Items); err != nil {
		return fmt.Errorf("save work order items: %w", err)
	}

	logger.Info(ctx, "work order refreshed",
		"id", wo.ID,
		"number", wo.Number,
		"offerId", o.ID)
	return nil
}

func (s *Service) ensureMaterialOrder(ctx context.Context, o *offer.OfferVersion) error {
	items := s.materialItems(ctx, o)

	mo, err := s.materialRepo.GetActiveByProject(ctx, o.ProjectID)
	switch {
	case apperror.IsNotFound(err):
		mo = NewMaterialOrder(o.ProjectID, o.ID)
		result, err := s.numerator.Next(ctx, s.matNumbering, mo.Date)
		if err != nil {
			result = numerator.Fallback(s.matNumbering)
			logger.Warn(ctx, "material order number allocation failed, assigned local number",
				"number", result.Number,
				"error", err)
		}
		mo.Number = result.Number
		mo.Items = items

		if err := s.materialRepo.Create(ctx, mo); err != nil {
			return fmt.Errorf("create material order: %w", err)
		}
		return s.materialRepo.SaveItems(ctx, mo.ID, mo.Items)

	case err != nil:
		return err
	}

	mo.OfferID = o.ID
	mo.Items = items
	mo.Touch()

	if err := s.materialRepo.Update(ctx, mo); err != nil {
		return fmt.Errorf("refresh material order: %w", err)
	}
	return s.materialRepo.SaveItems(ctx, mo.ID, mo.Items)
}

// buildItems derives work order items from offer lines. Executed quantities
// of lines already present on the order are preserved, as are extra items
// recorded during execution.
func (s *Service) buildItems(ctx context.Context, o *offer.OfferVersion, existing []Item) []Item {
	executedByLine := make(map[id.ID]decimal.Decimal, len(existing))
	var extras []Item
	for _, it := range existing {
		if it.IsExtra {
			extras = append(extras, it)
			continue
		}
		executedByLine[it.OfferLineID] = it.Executed
	}

	items := make([]Item, 0, len(o.Items)+len(extras))
	for _, line := range o.Items {
		planned := line.Quantity
		if line.QuantityFormula != "" && s.rules != nil {
			result, err := s.rules.Eval(ctx, line.QuantityFormula, map[string]decimal.Decimal{
				"quantity": line.Quantity,
			})
			if err != nil {
				logger.Warn(ctx, "quantity formula failed, planned falls back to offered",
					"formula", line.QuantityFormula,
					"lineNo", line.LineNo,
					"error", err)
			} else {
				planned = result
			}
		}

		executed := line.Quantity
		if prev, ok := executedByLine[line.LineID]; ok {
			executed = prev
		}

		items = append(items, Item{
			LineID:      id.New(),
			LineNo:      line.LineNo,
			OfferLineID: line.LineID,
			ProductRef:  line.ProductRef,
			Name:        line.Name,
			Unit:        line.Unit,
			Offered:     line.Quantity,
			Planned:     planned,
			Executed:    executed,
			IsExtra:     false,
		})
	}

	for _, extra := range extras {
		extra.LineNo = len(items) + 1
		items = append(items, extra)
	}
	return items
}

// materialItems keeps only offer lines that reference a product.
func (s *Service) materialItems(ctx context.Context, o *offer.OfferVersion) []Item {
	items := make([]Item, 0, len(o.Items))
	for _, line := range o.Items {
		if line.ProductRef == "" {
			continue
		}
		items = append(items, Item{
			LineID:      id.New(),
			LineNo:      len(items) + 1,
			OfferLineID: line.LineID,
			ProductRef:  line.ProductRef,
			Name:        line.Name,
			Unit:        line.Unit,
			Offered:     line.Quantity,
			Planned:     line.Quantity,
		})
	}
	return items
}

// Cancel marks the project's work and material orders cancelled with a
// timestamp. Orders are never deleted. Idempotent.
func (s *Service) Cancel(ctx context.Context, projectID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		wo, err := s.repo.GetActiveByProject(ctx, projectID)
		switch {
		case err == nil:
			wo.Status = StatusCancelled
			wo.CancelledAt = &now
			wo.Touch()
			if err := s.repo.Update(ctx, wo); err != nil {
				return fmt.Errorf("cancel work order: %w", err)
			}
		case !apperror.IsNotFound(err):
			return err
		}

		mo, err := s.materialRepo.GetActiveByProject(ctx, projectID)
		switch {
		case err == nil:
			mo.Status = StatusCancelled
			mo.CancelledAt = &now
			mo.Touch()
			if err := s.materialRepo.Update(ctx, mo); err != nil {
				return fmt.Errorf("cancel material order: %w", err)
			}
		case !apperror.IsNotFound(err):
			return err
		}

		return nil
	})
}

// RecordExecution updates the executed quantity of a work order item.
func (s *Service) RecordExecution(ctx context.Context, orderID, lineID id.ID, executed decimal.Decimal) error {
	if executed.IsNegative() {
		return apperror.NewValidation("executed quantity must not be negative").
			WithDetail("field", "executed")
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		wo, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if wo.Status != StatusOpen {
			return apperror.NewBusinessRule("WORK_ORDER_NOT_OPEN", "execution can only be recorded on open work orders").
				WithDetail("status", string(wo.Status))
		}

		items, err := s.repo.GetItems(ctx, orderID)
		if err != nil {
			return err
		}

		found := false
		for i := range items {
			if items[i].LineID == lineID {
				items[i].Executed = executed
				found = true
				break
			}
		}
		if !found {
			return apperror.NewNotFound("work order item", lineID)
		}

		return s.repo.SaveItems(ctx, orderID, items)
	})
}

// AddExtraItem appends a line for work performed outside the accepted offer.
func (s *Service) AddExtraItem(ctx context.Context, orderID id.ID, item Item) error {
	if item.Name == "" {
		return apperror.NewValidation("item name is required").
			WithDetail("field", "name")
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		wo, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if wo.Status != StatusOpen {
			return apperror.NewBusinessRule("WORK_ORDER_NOT_OPEN", "items can only be added to open work orders").
				WithDetail("status", string(wo.Status))
		}

		items, err := s.repo.GetItems(ctx, orderID)
		if err != nil {
			return err
		}

		item.LineID = id.New()
		item.LineNo = len(items) + 1
		item.OfferLineID = id.Nil()
		item.IsExtra = true
		items = append(items, item)

		return s.repo.SaveItems(ctx, orderID, items)
	})
}

// Complete marks a work order completed.
func (s *Service) Complete(ctx context.Context, orderID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		wo, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if wo.Status == StatusCompleted {
			return nil
		}
		if wo.Status == StatusCancelled {
			return apperror.NewBusinessRule("WORK_ORDER_CANCELLED", "cancelled work orders cannot be completed")
		}

		now := time.Now().UTC()
		wo.Status = StatusCompleted
		wo.CompletedAt = &now
		wo.Touch()
		return s.repo.Update(ctx, wo)
	})
}

// AllCompleted reports whether the project has work orders and every
// non-cancelled one is completed.
func (s *Service) AllCompleted(ctx context.Context, projectID id.ID) (bool, error) {
	orders, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return false, err
	}

	seen := false
	for _, wo := range orders {
		if wo.Status == StatusCancelled {
			continue
		}
		seen = true
		if wo.Status != StatusCompleted {
			return false, nil
		}
	}
	return seen, nil
}

// ListExecutedQuantities returns the execution records of the project's
// active work order, the input for invoice snapshots.
func (s *Service) ListExecutedQuantities(ctx context.Context, projectID id.ID) ([]ExecutedQuantity, error) {
	wo, err := s.repo.GetActiveByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, wo.ID)
	if err != nil {
		return nil, fmt.Errorf("get work order items: %w", err)
	}

	out := make([]ExecutedQuantity, 0, len(items))
	for _, it := range items {
		out = append(out, ExecutedQuantity{
			OfferLineID: it.OfferLineID,
			LineNo:      it.LineNo,
			ProductRef:  it.ProductRef,
			Name:        it.Name,
			Unit:        it.Unit,
			Executed:    it.Executed,
			IsExtra:     it.IsExtra,
		})
	}
	return out, nil
}

// GetByID retrieves a work order with items.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*WorkOrder, error) {
	wo, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	wo.Items = items
	return wo, nil
}

// List retrieves work orders with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*WorkOrder], error) {
	return s.repo.List(ctx, filter)
}
