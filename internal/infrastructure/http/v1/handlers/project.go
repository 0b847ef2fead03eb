package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldbill/internal/domain"
	"fieldbill/internal/domain/project"
	"fieldbill/internal/infrastructure/http/v1/dto"
)

// ProjectHandler handles HTTP requests for projects.
type ProjectHandler struct {
	*BaseHandler
	service *project.Service
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(base *BaseHandler, service *project.Service) *ProjectHandler {
	return &ProjectHandler{BaseHandler: base, service: service}
}

// Create handles POST /projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateProjectRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToEntity()
	if err := h.service.Create(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, p.ID.String())
}

// Get handles GET /projects/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	projectID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), projectID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// List handles GET /projects - list with filtering.
func (h *ProjectHandler) List(c *gin.Context) {
	filter := project.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	if status := c.Query("status"); status != "" {
		val := project.Status(status)
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

// AdvanceStatus handles POST /projects/:id/status.
func (h *ProjectHandler) AdvanceStatus(c *gin.Context) {
	projectID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AdvanceProjectStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.AdvanceStatus(c.Request.Context(), projectID, project.Status(req.Status)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "status advanced")
}

// RegisterRoutes registers project routes.
func (h *ProjectHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/status", h.AdvanceStatus)
}
