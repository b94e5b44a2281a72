// Package conversation provides the conversation bounded context: state,
// qualification, stage progression, escalation, and next-action planning.
package conversation

import (
	"salesflow_backend/internal/conversation/handler"
	"salesflow_backend/internal/conversation/repository"
	"salesflow_backend/internal/conversation/service"
	"salesflow_backend/internal/escalation"
	"salesflow_backend/internal/feedback"
	apphttp "salesflow_backend/internal/http"
	"salesflow_backend/internal/nextaction"
	"salesflow_backend/internal/progression"
	"salesflow_backend/internal/tuning"
	"salesflow_backend/platform/events"
	"salesflow_backend/platform/logger"
	"salesflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the conversation domain module.
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// Deps are the cross-module dependencies the conversation module consumes.
type Deps struct {
	Pool      *pgxpool.Pool
	Validator *validator.Validator
	Tuning    tuning.Tuning
	Extractor service.Extractor
	Completer escalation.Completer
	Outcomes  service.OutcomeOpener
	Publisher escalation.Publisher
	Feedback  *feedback.Service
	Bus       events.Bus
	Logger    *logger.Logger
}

// NewModule creates the conversation module with all dependencies wired.
func NewModule(deps Deps) *Module {
	repo := repository.New(deps.Pool)
	progressionEngine := progression.New(deps.Tuning.Progression)
	escalationEngine := escalation.New(deps.Tuning.Escalation, deps.Completer, deps.Logger)
	planner := nextaction.New(deps.Tuning.NextAction, plannerCompleter(deps.Completer), deps.Logger)

	svc := service.New(
		repo,
		deps.Extractor,
		progressionEngine,
		escalationEngine,
		planner,
		deps.Outcomes,
		deps.Publisher,
		deps.Bus,
		deps.Logger,
	)
	h := handler.New(svc, deps.Feedback, deps.Validator)

	return &Module{handler: h, Service: svc}
}

// plannerCompleter adapts the shared completer to the planner's interface
// without forcing a nil interface through.
func plannerCompleter(c escalation.Completer) nextaction.Completer {
	if c == nil {
		return nil
	}
	return c
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "conversation"
}

// RegisterRoutes registers the module's routes under /api/v1/conversations.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/conversations"))
}

var _ apphttp.Module = (*Module)(nil)
