package coaching

import (
	"net/http"

	apphttp "salesflow_backend/internal/http"
	"salesflow_backend/platform/apperr"
	"salesflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler serves the coaching analytics endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a coaching handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the coaching routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/overview", h.Overview)
	rg.GET("/calibration/:action_type", h.Calibration)
}

// Overview handles GET /api/v1/coaching/overview
func (h *Handler) Overview(c *gin.Context) {
	identity, ok := httpkit.MustIdentity(c)
	if !ok {
		return
	}

	overview, err := h.svc.Overview(c.Request.Context(), identity.TenantID())
	if err != nil {
		httpkit.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// Calibration handles GET /api/v1/coaching/calibration/:action_type
func (h *Handler) Calibration(c *gin.Context) {
	identity, ok := httpkit.MustIdentity(c)
	if !ok {
		return
	}

	actionType := c.Param("action_type")
	if !trackedAction(actionType) {
		httpkit.WriteError(c, apperr.Validation("unknown action type"))
		return
	}

	curve, err := h.svc.Curve(c.Request.Context(), identity.TenantID(), actionType)
	if err != nil {
		httpkit.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, curve)
}

// Module wires the coaching bounded context.
type Module struct {
	handler *Handler
	Service *Service
}

// NewModule creates the coaching module with all dependencies wired.
func NewModule(aggregates Aggregates, curves CurveSource, feedbackSource FeedbackSource) *Module {
	svc := NewService(aggregates, curves, feedbackSource)
	return &Module{handler: NewHandler(svc), Service: svc}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "coaching"
}

// RegisterRoutes registers the module's routes under /api/v1/coaching.
// Coaching aggregates cover every rep in the tenant, so access is limited
// to managers.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	rg := ctx.Protected.Group("/coaching")
	rg.Use(httpkit.RequireRole("manager"))
	m.handler.RegisterRoutes(rg)
}

var _ apphttp.Module = (*Module)(nil)
