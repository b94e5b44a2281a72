// Package agent runs the qualification extraction agent: an LLM pass over
// each inbound message that calls a SaveQualification tool with whatever
// BANT and MEDDIC signals the message supports.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/genai"

	"salesflow_backend/internal/conversation/domain"
	"salesflow_backend/platform/ai/kimi"
	"salesflow_backend/platform/apperr"
	"salesflow_backend/platform/logger"
)

const extractorAppName = "qualification-extractor"

const extractorInstruction = `You extract sales qualification signals from customer messages.
Read the message in the context of what is already known, then call SaveQualification ONCE
with every signal the message supports. Only mark a signal identified when the message gives
real evidence for it, and always quote the supporting sentence verbatim in the evidence field.
Confidence is how sure you are of each signal, between 0 and 1. Never invent signals.`

// Extractor wraps the ADK agent and collects its tool output.
type Extractor struct {
	agent          agent.Agent
	runner         *runner.Runner
	sessionService session.Service
	deps           *toolDeps
	log            *logger.Logger
	runMu          sync.Mutex
}

// toolDeps carries the per-run result slot for the SaveQualification tool.
type toolDeps struct {
	mu     sync.Mutex
	result *domain.Qualification
}

func (d *toolDeps) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = nil
}

func (d *toolDeps) save(q *domain.Qualification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = q
}

func (d *toolDeps) take() *domain.Qualification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// NewExtractor creates the extraction agent.
func NewExtractor(apiKey, baseURL, modelName string, log *logger.Logger) (*Extractor, error) {
	model := kimi.NewModel(kimi.Config{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   modelName,
	})

	deps := &toolDeps{}
	saveTool, err := createSaveQualificationTool(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build SaveQualification tool: %w", err)
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "QualificationExtractor",
		Model:       model,
		Description: "Extracts BANT and MEDDIC qualification signals from customer messages.",
		Instruction: extractorInstruction,
		Tools:       []tool.Tool{saveTool},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        extractorAppName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor runner: %w", err)
	}

	return &Extractor{
		agent:          adkAgent,
		runner:         r,
		sessionService: sessionService,
		deps:           deps,
		log:            log,
	}, nil
}

// Extract runs the agent over one message and returns the signals it found.
// Any failure, including the agent never calling the tool, comes back as a
// dependency error so callers can degrade instead of dropping the message.
func (e *Extractor) Extract(ctx context.Context, conv *domain.Conversation, message string) (*domain.Qualification, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.deps.reset()
	if err := e.runWithPrompt(ctx, buildExtractionPrompt(conv, message), conv.ID); err != nil {
		return nil, apperr.Dependency("qualification extraction failed", err)
	}

	result := e.deps.take()
	if result == nil {
		return nil, apperr.Dependency("extractor did not report any qualification", nil)
	}
	return result, nil
}

func (e *Extractor) runWithPrompt(ctx context.Context, promptText string, conversationID uuid.UUID) error {
	sessionID := uuid.New().String()
	userID := "extractor-" + conversationID.String()

	_, err := e.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   extractorAppName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return fmt.Errorf("failed to create extractor session: %w", err)
	}
	defer func() {
		_ = e.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   extractorAppName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: promptText}},
	}

	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}
	for event := range e.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		_ = event
	}
	return nil
}

func buildExtractionPrompt(conv *domain.Conversation, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contact: %s (%s persona), deal stage %s, %d prior interactions.\n",
		conv.ContactName, conv.Persona, conv.Stage, conv.InteractionCount)

	if known := knownSignals(conv.Qualification); len(known) > 0 {
		fmt.Fprintf(&b, "Already identified signals: %s.\n", strings.Join(known, ", "))
	} else {
		b.WriteString("No signals identified yet.\n")
	}

	fmt.Fprintf(&b, "\nNew message from the contact:\n%s\n", message)
	b.WriteString("\nExtract qualification signals and call SaveQualification.")
	return b.String()
}

func knownSignals(q domain.Qualification) []string {
	names := []string{
		domain.SignalBudget, domain.SignalAuthority, domain.SignalNeed, domain.SignalTimeline,
		domain.SignalMetrics, domain.SignalEconomicBuyer, domain.SignalDecisionCriteria,
		domain.SignalDecisionProcess, domain.SignalPain, domain.SignalChampion,
	}
	var known []string
	for _, name := range names {
		if q.SignalIdentified(name) {
			known = append(known, name)
		}
	}
	return known
}
