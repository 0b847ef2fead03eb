// Package lifecycle wires transition side effects between document services.
// Each transition has an explicit, named step list registered on the owning
// service's hook registry. Steps run isolated from each other: one failing
// side effect is logged and, for ledger writes, queued for reconciliation,
// but never stops the remaining steps or fails the primary operation.
package lifecycle

import (
	"context"
	"fmt"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/id"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/documents/invoice"
	"fieldbill/internal/domain/documents/offer"
	"fieldbill/internal/domain/finance"
	"fieldbill/internal/domain/project"
	"fieldbill/pkg/logger"
)

// WorkOrderMaterializer is the work-order surface the controller drives.
type WorkOrderMaterializer interface {
	EnsureWorkOrder(ctx context.Context, o *offer.OfferVersion, customerName string) error
	EnsureMaterialOrder(ctx context.Context, o *offer.OfferVersion) error
	Cancel(ctx context.Context, projectID id.ID) error
	AllCompleted(ctx context.Context, projectID id.ID) (bool, error)
}

// ProjectPipeline is the project surface the controller drives.
type ProjectPipeline interface {
	GetCustomer(ctx context.Context, projectID id.ID) (project.Customer, error)
	AdvanceStatus(ctx context.Context, projectID id.ID, next project.Status) error
}

// Controller registers transition side effects.
type Controller struct {
	offerHooks   *domain.HookRegistry[*offer.OfferVersion]
	invoiceHooks *domain.HookRegistry[*invoice.InvoiceVersion]
	workOrders   WorkOrderMaterializer
	projects     ProjectPipeline
	ledger       finance.Ledger
	reconQueue   finance.ReconciliationQueue
}

// NewController creates a lifecycle controller over the document services.
func NewController(
	offerHooks *domain.HookRegistry[*offer.OfferVersion],
	invoiceHooks *domain.HookRegistry[*invoice.InvoiceVersion],
	workOrders WorkOrderMaterializer,
	projects ProjectPipeline,
	ledger finance.Ledger,
	reconQueue finance.ReconciliationQueue,
) *Controller {
	return &Controller{
		offerHooks:   offerHooks,
		invoiceHooks: invoiceHooks,
		workOrders:   workOrders,
		projects:     projects,
		ledger:       ledger,
		reconQueue:   reconQueue,
	}
}

// Register attaches the transition step lists. Call once at wiring time.
//
//	offer accepted  -> ensureWorkOrder, ensureMaterialOrder, startProject
//	offer cancelled -> cancelExecutionOrders
//	invoice issued  -> recordFinanceEntry, completeProject
func (c *Controller) Register() {
	c.offerHooks.On(domain.AfterAccept, c.ensureWorkOrder)
	c.offerHooks.On(domain.AfterAccept, c.ensureMaterialOrder)
	c.offerHooks.On(domain.AfterAccept, c.startProject)

	c.offerHooks.On(domain.AfterCancel, c.cancelExecutionOrders)

	c.invoiceHooks.On(domain.AfterIssue, c.recordFinanceEntry)
	c.invoiceHooks.On(domain.AfterIssue, c.completeProject)
}

func (c *Controller) ensureWorkOrder(ctx context.Context, o *offer.OfferVersion) error {
	customer, err := c.projects.GetCustomer(ctx, o.ProjectID)
	if err != nil {
		logger.Warn(ctx, "customer snapshot unavailable for work order",
			"projectId", o.ProjectID,
			"error", err)
	}
	if err := c.workOrders.EnsureWorkOrder(ctx, o, customer.Name); err != nil {
		return apperror.NewSideEffect("ensureWorkOrder", err)
	}
	return nil
}

func (c *Controller) ensureMaterialOrder(ctx context.Context, o *offer.OfferVersion) error {
	if err := c.workOrders.EnsureMaterialOrder(ctx, o); err != nil {
		return apperror.NewSideEffect("ensureMaterialOrder", err)
	}
	return nil
}

// startProject walks the project pipeline up to in_progress when an offer is
// accepted. Projects already further along stay untouched.
func (c *Controller) startProject(ctx context.Context, o *offer.OfferVersion) error {
	c.tryAdvance(ctx, o.ProjectID, project.StatusOffered)
	c.tryAdvance(ctx, o.ProjectID, project.StatusInProgress)
	return nil
}

func (c *Controller) cancelExecutionOrders(ctx context.Context, o *offer.OfferVersion) error {
	if err := c.workOrders.Cancel(ctx, o.ProjectID); err != nil {
		return apperror.NewSideEffect("cancelExecutionOrders", err)
	}
	return nil
}

// recordFinanceEntry posts the issued invoice to the accounting ledger.
// Best-effort: a failed write is queued for reconciliation so issuance is
// never blocked on accounting.
func (c *Controller) recordFinanceEntry(ctx context.Context, v *invoice.InvoiceVersion) error {
	entry := ledgerEntry(v)

	created, err := c.ledger.RecordInvoiceIssued(ctx, entry)
	if err != nil {
		logger.Warn(ctx, "ledger write failed, queueing for reconciliation",
			"invoiceId", v.ID,
			"error", err)
		if qErr := c.reconQueue.Enqueue(ctx, entry, err.Error()); qErr != nil {
			return apperror.NewSideEffect("recordFinanceEntry", fmt.Errorf("enqueue reconciliation: %w", qErr))
		}
		return nil
	}
	if !created {
		logger.Info(ctx, "ledger entry already recorded", "invoiceId", v.ID)
	}
	return nil
}

// completeProject advances the project to completed once every work order is
// done.
func (c *Controller) completeProject(ctx context.Context, v *invoice.InvoiceVersion) error {
	done, err := c.workOrders.AllCompleted(ctx, v.ProjectID)
	if err != nil {
		return apperror.NewSideEffect("completeProject", err)
	}
	if !done {
		return nil
	}
	c.tryAdvance(ctx, v.ProjectID, project.StatusCompleted)
	return nil
}

// tryAdvance attempts a single pipeline move, ignoring transitions the
// project has already passed.
func (c *Controller) tryAdvance(ctx context.Context, projectID id.ID, next project.Status) {
	if err := c.projects.AdvanceStatus(ctx, projectID, next); err != nil {
		logger.Debug(ctx, "project status not advanced",
			"projectId", projectID,
			"target", string(next),
			"error", err)
	}
}

// ledgerEntry maps an issued invoice version to the ledger's entry shape.
func ledgerEntry(v *invoice.InvoiceVersion) finance.Entry {
	lines := make([]finance.InvoiceLine, 0, len(v.Items))
	for _, it := range v.Items {
		lines = append(lines, finance.InvoiceLine{
			Name:      it.Name,
			Kind:      string(it.Kind),
			Quantity:  it.Quantity,
			Unit:      it.Unit,
			UnitPrice: it.UnitPrice,
			VATRate:   it.VATRate,
		})
	}

	issuedAt := v.UpdatedAt
	if v.IssuedAt != nil {
		issuedAt = *v.IssuedAt
	}

	return finance.NewEntry(
		v.ID,
		v.ProjectID,
		v.Number,
		issuedAt,
		v.Summary.BaseAfterDiscount,
		v.Summary.VATAmount,
		v.Summary.TotalWithVAT,
		lines,
	)
}
