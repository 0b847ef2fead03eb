package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/workorder"
	"fieldbill/internal/infrastructure/http/v1/dto"
)

// WorkOrderHandler handles HTTP requests for work orders.
type WorkOrderHandler struct {
	*BaseHandler
	service *workorder.Service
}

// NewWorkOrderHandler creates a new work order handler.
func NewWorkOrderHandler(base *BaseHandler, service *workorder.Service) *WorkOrderHandler {
	return &WorkOrderHandler{BaseHandler: base, service: service}
}

// Get handles GET /work-orders/:id.
func (h *WorkOrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	wo, err := h.service.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, wo)
}

// List handles GET /work-orders - list with filtering.
func (h *WorkOrderHandler) List(c *gin.Context) {
	filter := workorder.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "-created_at")

	if projectID := c.Query("projectId"); projectID != "" {
		if parsed, err := id.Parse(projectID); err == nil {
			filter.ProjectID = &parsed
		}
	}
	if status := c.Query("status"); status != "" {
		val := workorder.Status(status)
		filter.Status = &val
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

// RecordExecution handles POST /work-orders/:id/execution - records executed
// quantity against a line.
func (h *WorkOrderHandler) RecordExecution(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RecordExecutionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lineID, ok := h.ParseIDField(c, req.LineID, "lineId")
	if !ok {
		return
	}

	if err := h.service.RecordExecution(c.Request.Context(), orderID, lineID, req.Executed); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "execution recorded")
}

// AddExtraItem handles POST /work-orders/:id/items - adds a line for work
// performed outside the accepted offer.
func (h *WorkOrderHandler) AddExtraItem(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AddExtraItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.AddExtraItem(c.Request.Context(), orderID, req.ToItem()); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "item added")
}

// ExecutedQuantities handles GET /projects/:id/executed-quantities - the
// aggregated execution records across the project's work orders.
func (h *WorkOrderHandler) ExecutedQuantities(c *gin.Context) {
	projectID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	quantities, err := h.service.ListExecutedQuantities(c.Request.Context(), projectID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": quantities})
}

// Complete handles POST /work-orders/:id/complete.
func (h *WorkOrderHandler) Complete(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Complete(c.Request.Context(), orderID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "work order completed")
}

// RegisterRoutes registers work order routes. The executed-quantities read is
// project scoped, so it lives on the projects group.
func (h *WorkOrderHandler) RegisterRoutes(rg, projects *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/execution", h.RecordExecution)
	rg.POST("/:id/items", h.AddExtraItem)
	rg.POST("/:id/complete", h.Complete)

	projects.GET("/:id/executed-quantities", h.ExecutedQuantities)
}
