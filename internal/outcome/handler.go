package outcome

import (
	"net/http"

	apphttp "salesflow_backend/internal/http"
	"salesflow_backend/platform/apperr"
	"salesflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ResolveRequest settles a pending outcome by hand with an observed status
// and an optional score. Resolutions through this endpoint are human labels.
type ResolveRequest struct {
	Status string   `json:"status" binding:"required"`
	Score  *float64 `json:"outcome_score"`
}

// Handler serves the outcome record endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an outcome handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the outcome routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.Get)
	rg.POST("/:id/resolve", h.Resolve)
	rg.GET("/conversation/:id", h.ListByConversation)
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.WriteError(c, apperr.Validation("invalid outcome id"))
		return uuid.UUID{}, false
	}
	return id, true
}

// Get handles GET /api/v1/outcomes/:id
func (h *Handler) Get(c *gin.Context) {
	identity, ok := httpkit.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), identity.TenantID(), id)
	if err != nil {
		httpkit.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Resolve handles POST /api/v1/outcomes/:id/resolve
func (h *Handler) Resolve(c *gin.Context) {
	identity, ok := httpkit.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.WriteError(c, apperr.Validation("invalid request").WithDetails(err.Error()))
		return
	}

	rec, err := h.svc.Resolve(c.Request.Context(), identity.TenantID(), id, req.Status, req.Score, SourceHumanLabel)
	if err != nil {
		httpkit.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListByConversation handles GET /api/v1/outcomes/conversation/:id
func (h *Handler) ListByConversation(c *gin.Context) {
	identity, ok := httpkit.MustIdentity(c)
	if !ok {
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.WriteError(c, apperr.Validation("invalid conversation id"))
		return
	}

	records, err := h.svc.ListByConversation(c.Request.Context(), identity.TenantID(), conversationID)
	if err != nil {
		httpkit.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": records})
}

// Module wires the outcome bounded context for HTTP.
type Module struct {
	handler *Handler
	Service *Service
}

// NewModule creates the outcome module around an already-built service.
func NewModule(svc *Service) *Module {
	return &Module{handler: NewHandler(svc), Service: svc}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "outcome"
}

// RegisterRoutes registers the module's routes under /api/v1/outcomes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/outcomes"))
}

var _ apphttp.Module = (*Module)(nil)
