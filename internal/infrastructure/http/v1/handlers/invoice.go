package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/documents/invoice"
	"fieldbill/internal/domain/preview"
	"fieldbill/internal/infrastructure/http/v1/dto"
	"fieldbill/internal/infrastructure/storage/postgres"
)

// InvoiceHandler handles HTTP requests for invoice versions.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
	preview *preview.Builder
	audit   *postgres.AuditService
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service, previewBuilder *preview.Builder, audit *postgres.AuditService) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: base,
		service:     service,
		preview:     previewBuilder,
		audit:       audit,
	}
}

// CreateSnapshot handles POST /projects/:id/invoices/snapshot - builds a
// draft invoice from the project's execution records.
func (h *InvoiceHandler) CreateSnapshot(c *gin.Context) {
	projectID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	v, err := h.service.CreateFromExecutionSnapshot(c.Request.Context(), projectID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedJSON(c, v)
}

// Get handles GET /invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	versionID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	v, err := h.service.GetByID(c.Request.Context(), versionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, v)
}

// List handles GET /invoices - list with filtering.
func (h *InvoiceHandler) List(c *gin.Context) {
	filter := invoice.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "-date")

	if projectID := c.Query("projectId"); projectID != "" {
		if parsed, err := id.Parse(projectID); err == nil {
			filter.ProjectID = &parsed
		}
	}
	if status := c.Query("status"); status != "" {
		val := invoice.Status(status)
		filter.Status = &val
	}
	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Update handles PUT /invoices/:id - replaces the items of a draft version.
func (h *InvoiceHandler) Update(c *gin.Context) {
	versionID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	projectID, ok := h.ParseIDField(c, req.ProjectID, "projectId")
	if !ok {
		return
	}

	v, err := h.service.UpdateVersion(c.Request.Context(), projectID, versionID, req.ToItems())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, v)
}

// Issue handles POST /invoices/:id/issue.
func (h *InvoiceHandler) Issue(c *gin.Context) {
	versionID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.IssueInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	projectID, ok := h.ParseIDField(c, req.ProjectID, "projectId")
	if !ok {
		return
	}

	v, err := h.service.Issue(c.Request.Context(), projectID, versionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, v)
}

// Clone handles POST /invoices/:id/clone - clones an issued version into a
// fresh draft for corrections.
func (h *InvoiceHandler) Clone(c *gin.Context) {
	versionID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CloneInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	projectID, ok := h.ParseIDField(c, req.ProjectID, "projectId")
	if !ok {
		return
	}

	v, err := h.service.CloneForEdit(c.Request.Context(), projectID, versionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedJSON(c, v)
}

// Preview handles GET /invoices/:id/preview - render-ready document context.
func (h *InvoiceHandler) Preview(c *gin.Context) {
	ctx := c.Request.Context()

	versionID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	v, err := h.service.GetByID(ctx, versionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	pc, err := h.preview.ForInvoice(ctx, v)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, pc)
}

// History handles GET /invoices/:id/history - audit trail of the version.
func (h *InvoiceHandler) History(c *gin.Context) {
	versionID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	entries, err := h.audit.GetEntityHistory(c.Request.Context(), "invoice_version", versionID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": entries})
}

// RegisterRoutes registers invoice routes. The snapshot route hangs off the
// projects group to avoid wildcard conflicts.
func (h *InvoiceHandler) RegisterRoutes(invoices, projects *gin.RouterGroup) {
	invoices.GET("", h.List)
	invoices.GET("/:id", h.Get)
	invoices.PUT("/:id", h.Update)
	invoices.POST("/:id/issue", h.Issue)
	invoices.POST("/:id/clone", h.Clone)
	invoices.GET("/:id/preview", h.Preview)
	invoices.GET("/:id/history", h.History)

	projects.POST("/:id/invoices/snapshot", h.CreateSnapshot)
}
