package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/documents/offer"
	"fieldbill/internal/domain/preview"
	"fieldbill/internal/infrastructure/http/v1/dto"
	"fieldbill/internal/infrastructure/storage/postgres"
)

// OfferHandler handles HTTP requests for offer versions.
type OfferHandler struct {
	*BaseHandler
	service *offer.Service
	preview *preview.Builder
	audit   *postgres.AuditService
}

// NewOfferHandler creates a new offer handler.
func NewOfferHandler(base *BaseHandler, service *offer.Service, previewBuilder *preview.Builder, audit *postgres.AuditService) *OfferHandler {
	return &OfferHandler{
		BaseHandler: base,
		service:     service,
		preview:     previewBuilder,
		audit:       audit,
	}
}

// Create handles POST /offers - creates the next version in a title chain.
func (h *OfferHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateOfferVersionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	projectID, ok := h.ParseIDField(c, req.ProjectID, "projectId")
	if !ok {
		return
	}

	v, err := h.service.CreateVersion(ctx, projectID, req.Title, dto.ToLineItems(req.Items), req.Discount)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedJSON(c, v)
}

// Get handles GET /offers/:id.
func (h *OfferHandler) Get(c *gin.Context) {
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

// List handles GET /offers - list with filtering.
func (h *OfferHandler) List(c *gin.Context) {
	filter := offer.ListFilter{
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
	if baseTitle := c.Query("baseTitle"); baseTitle != "" {
		filter.BaseTitle = &baseTitle
	}
	if status := c.Query("status"); status != "" {
		val := offer.Status(status)
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

// Update handles PUT /offers/:id - replaces items and discount of a draft.
func (h *OfferHandler) Update(c *gin.Context) {
	versionID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateOfferVersionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	v, err := h.service.UpdateVersion(c.Request.Context(), versionID, dto.ToLineItems(req.Items), req.Discount)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, v)
}

// Accept handles POST /offers/:id/accept.
func (h *OfferHandler) Accept(c *gin.Context) {
	versionID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	v, err := h.service.Accept(c.Request.Context(), versionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, v)
}

// CancelAcceptance handles POST /projects/:id/offers/cancel-acceptance -
// withdraws the project's accepted version back to cancelled.
func (h *OfferHandler) CancelAcceptance(c *gin.Context) {
	projectID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	v, err := h.service.CancelAcceptance(c.Request.Context(), projectID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, v)
}

// CancelAcceptanceByID handles POST /offers/:id/cancel-acceptance - withdraws
// acceptance of a specific version.
func (h *OfferHandler) CancelAcceptanceByID(c *gin.Context) {
	versionID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	v, err := h.service.CancelAcceptanceByID(c.Request.Context(), versionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, v)
}

// GetAccepted handles GET /projects/:id/offers/accepted.
func (h *OfferHandler) GetAccepted(c *gin.Context) {
	projectID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	v, err := h.service.GetAccepted(c.Request.Context(), projectID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, v)
}

// Preview handles GET /offers/:id/preview - render-ready document context.
func (h *OfferHandler) Preview(c *gin.Context) {
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

	pc, err := h.preview.ForOffer(ctx, v)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, pc)
}

// History handles GET /offers/:id/history - audit trail of the version.
func (h *OfferHandler) History(c *gin.Context) {
	versionID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	entries, err := h.audit.GetEntityHistory(c.Request.Context(), "offer_version", versionID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": entries})
}

// RegisterRoutes registers offer routes. Project-scoped acceptance routes
// hang off the projects group to avoid wildcard conflicts.
func (h *OfferHandler) RegisterRoutes(offers, projects *gin.RouterGroup) {
	offers.POST("", h.Create)
	offers.GET("", h.List)
	offers.GET("/:id", h.Get)
	offers.PUT("/:id", h.Update)
	offers.POST("/:id/accept", h.Accept)
	offers.POST("/:id/cancel-acceptance", h.CancelAcceptanceByID)
	offers.GET("/:id/preview", h.Preview)
	offers.GET("/:id/history", h.History)

	projects.POST("/:id/offers/cancel-acceptance", h.CancelAcceptance)
	projects.GET("/:id/offers/accepted", h.GetAccepted)
}
