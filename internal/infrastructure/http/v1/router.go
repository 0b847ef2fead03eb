// Package v1 provides HTTP API version 1.
package v1

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"fieldbill/internal/core/numerator"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/documents/invoice"
	"fieldbill/internal/domain/documents/offer"
	"fieldbill/internal/domain/lifecycle"
	"fieldbill/internal/domain/preview"
	"fieldbill/internal/domain/project"
	"fieldbill/internal/domain/rules"
	"fieldbill/internal/domain/workorder"
	"fieldbill/internal/infrastructure/http/v1/handlers"
	"fieldbill/internal/infrastructure/http/v1/middleware"
	"fieldbill/internal/infrastructure/storage/postgres"
	"fieldbill/internal/infrastructure/storage/postgres/document_repo"
	"fieldbill/internal/infrastructure/storage/postgres/finance_repo"
	"fieldbill/internal/infrastructure/storage/postgres/project_repo"
	"fieldbill/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (health checks, sequences)
	Pool *postgres.Pool

	// TxManager drives transactions for all repositories
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Numerator for document number generation
	Numerator numerator.Generator

	// Rules evaluates quantity formulas on work-order materialization
	Rules *rules.Evaluator

	// Audit records document transitions
	Audit *postgres.AuditService

	// Company is the issuing company's letterhead data for previews
	Company preview.CompanyProfile

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool

	// IdempotencyTTL is how long completed keys replay
	IdempotencyTTL time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		if cfg.IdempotencyEnabled {
			ttl := cfg.IdempotencyTTL
			if ttl <= 0 {
				ttl = 10 * time.Minute
			}
			store := postgres.NewIdempotencyStore(cfg.TxManager, ttl)
			protected.Use(middleware.Idempotency(store))
		}

		registerDocumentRoutes(protected, cfg)
	}

	return router
}

// registerDocumentRoutes wires repositories, services, the lifecycle
// controller and the HTTP handlers.
func registerDocumentRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	// Repositories
	offerRepo := document_repo.NewOfferRepo(cfg.TxManager)
	invoiceRepo := document_repo.NewInvoiceRepo(cfg.TxManager)
	workOrderRepo := document_repo.NewWorkOrderRepo(cfg.TxManager)
	materialRepo := document_repo.NewMaterialOrderRepo(cfg.TxManager)
	projectRepo := project_repo.New(cfg.TxManager)
	ledgerRepo := finance_repo.NewLedgerRepo(cfg.TxManager)
	reconRepo := finance_repo.NewReconciliationRepo(cfg.TxManager)

	// Services
	projectService := project.NewService(projectRepo, cfg.TxManager)
	offerService := offer.NewService(offerRepo, cfg.Numerator, cfg.TxManager)
	workOrderService := workorder.NewService(workOrderRepo, materialRepo, cfg.Numerator, cfg.TxManager, cfg.Rules)
	invoiceService := invoice.NewService(invoiceRepo, offerService, workOrderService, cfg.Numerator, cfg.TxManager)

	// Transition fan-out
	controller := lifecycle.NewController(
		offerService.Hooks(),
		invoiceService.Hooks(),
		workOrderService,
		projectService,
		ledgerRepo,
		reconRepo,
	)
	controller.Register()

	// Audit trail of document transitions
	registerAuditHooks(cfg.Audit, offerService, invoiceService)

	previewBuilder := preview.NewBuilder(cfg.Company, projectService)

	// Handlers
	projectHandler := handlers.NewProjectHandler(baseHandler, projectService)
	offerHandler := handlers.NewOfferHandler(baseHandler, offerService, previewBuilder, cfg.Audit)
	invoiceHandler := handlers.NewInvoiceHandler(baseHandler, invoiceService, previewBuilder, cfg.Audit)
	workOrderHandler := handlers.NewWorkOrderHandler(baseHandler, workOrderService)

	projects := rg.Group("/projects")
	projectHandler.RegisterRoutes(projects)

	offers := rg.Group("/offers")
	offerHandler.RegisterRoutes(offers, projects)

	invoices := rg.Group("/invoices")
	invoiceHandler.RegisterRoutes(invoices, projects)

	workOrders := rg.Group("/work-orders")
	workOrderHandler.RegisterRoutes(workOrders, projects)
}

// registerAuditHooks records accepted, cancelled and issued transitions with
// the document payload at transition time. Runs inside the isolated fan-out,
// so a failed audit write never blocks the transition.
func registerAuditHooks(audit *postgres.AuditService, offers *offer.Service, invoices *invoice.Service) {
	if audit == nil {
		return
	}

	offers.Hooks().On(domain.AfterAccept, func(ctx context.Context, o *offer.OfferVersion) error {
		return audit.LogTransition(ctx, "offer_version", o.ID, postgres.AuditActionAccept, o)
	})
	offers.Hooks().On(domain.AfterCancel, func(ctx context.Context, o *offer.OfferVersion) error {
		return audit.LogTransition(ctx, "offer_version", o.ID, postgres.AuditActionCancel, o)
	})
	invoices.Hooks().On(domain.AfterIssue, func(ctx context.Context, v *invoice.InvoiceVersion) error {
		return audit.LogTransition(ctx, "invoice_version", v.ID, postgres.AuditActionIssue, v)
	})
}
