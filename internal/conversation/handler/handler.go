// Package handler exposes the conversation pipeline over HTTP.
package handler

import (
	"net/http"

	"salesflow_backend/internal/conversation/domain"
	"salesflow_backend/internal/conversation/service"
	"salesflow_backend/internal/conversation/transport"
	"salesflow_backend/internal/feedback"
	"salesflow_backend/platform/apperr"
	"salesflow_backend/platform/httpkit"
	"salesflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for conversations.
type Handler struct {
	svc      *service.Service
	feedback *feedback.Service
	val      *validator.Validator
}

// New creates a conversation handler.
func New(svc *service.Service, feedbackSvc *feedback.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, feedback: feedbackSvc, val: val}
}

// RegisterRoutes registers the conversation routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/interactions", h.ProcessInteraction)
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/next-actions", h.NextActions)
	rg.PATCH("/:id/stage", h.OverrideStage)
	rg.POST("/:id/feedback", h.RecordFeedback)
	rg.GET("/:id/feedback", h.ListFeedback)
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.WriteError(c, apperr.Validation("invalid conversation id"))
		return uuid.UUID{}, false
	}
	return id, true
}

// ProcessInteraction handles POST /api/v1/conversations/interactions
func (h *Handler) ProcessInteraction(c *gin.Context) {
	var req transport.InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.WriteError(c, apperr.Validation("invalid request").WithDetails(err.Error()))
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.WriteError(c, apperr.Validation("validation failed").WithDetails(err.Error()))
		return
	}

	identity, ok := httpkit.MustIdentity(c)
	if !ok {
		return
	}

	result, err := h.svc.ProcessInteraction(c.Request.Context(), identity.TenantID(), &req)
	if err != nil {
		httpkit.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, transport.InteractionResponse{
		Conversation: transport.NewConversationResponse(result.Conversation),
		StageChanged: result.StageChanged,
		Escalation:   result.Escalation,
		NextActions:  result.NextActions,
	})
}

// List handles GET /api/v1/conversations
func (h *Handler) List(c *gin.Context) {
	var req transport.ListConversationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.WriteError(c, apperr.Validation("invalid query").WithDetails(err.Error()))
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.WriteError(c, apperr.Validation("validation failed").WithDetails(err.Error()))
		return
	}

	identity, ok := httpkit.MustIdentity(c)
	if !ok {
		return
	}

	conversations, err := h.svc.List(c.Request.Context(), identity.TenantID(), req.Stage, req.Limit, req.Offset)
	if err != nil {
		httpkit.WriteError(c, err)
		return
	}

	out := make([]*transport.ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		out = append(out, transport.NewConversationResponse(conv))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

// GetByID handles GET /api/v1/conversations/:id
func (h *Handler) GetByID(c *gin.Context) {
	identity, ok := httpkit.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	conv, err := h.svc.Get(c.Request.Context(), identity.TenantID(), id)
	if err != nil {
		httpkit.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.NewConversationResponse(conv))
}

// NextActions handles GET /api/v1/conversations/:id/next-actions
func (h *Handler) NextActions(c *gin.Context) {
	identity, ok := httpkit.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	actions, err := h.svc.PlanActions(c.Request.Context(), identity.TenantID(), id)
	if err != nil {
		httpkit.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.NextActionsResponse{ConversationID: id, Actions: actions})
}

// OverrideStage handles PATCH /api/v1/conversations/:id/stage
func (h *Handler) OverrideStage(c *gin.Context) {
	var req transport.StageOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.WriteError(c, apperr.Validation("invalid request").WithDetails(err.Error()))
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.WriteError(c, apperr.Validation("validation failed").WithDetails(err.Error()))
		return
	}

	identity, ok := httpkit.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	conv, err := h.svc.OverrideStage(c.Request.Context(), identity.TenantID(), id, domain.DealStage(req.Stage), req.Reason)
	if err != nil {
		httpkit.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.NewConversationResponse(conv))
}

// RecordFeedback handles POST /api/v1/conversations/:id/feedback
func (h *Handler) RecordFeedback(c *gin.Context) {
	var req transport.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.WriteError(c, apperr.Validation("invalid request").WithDetails(err.Error()))
		return
	}

	identity, ok := httpkit.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	entry, err := h.feedback.Record(c.Request.Context(), identity.TenantID(), id, identity.UserID(),
		req.DecisionKind, req.Source, req.Rating, req.Comment)
	if err != nil {
		httpkit.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListFeedback handles GET /api/v1/conversations/:id/feedback
func (h *Handler) ListFeedback(c *gin.Context) {
	identity, ok := httpkit.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	entries, err := h.feedback.ListByConversation(c.Request.Context(), identity.TenantID(), id)
	if err != nil {
		httpkit.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": entries})
}
