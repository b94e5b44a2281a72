// Package notification delivers escalation reports to humans. Delivery is
// best-effort by contract: a failed send is logged and dropped, never
// surfaced to the engine that made the escalation decision.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesflow_backend/internal/escalation"
	"salesflow_backend/platform/config"
	"salesflow_backend/platform/logger"

	gomail "github.com/wneessen/go-mail"
)

// Mailer emails escalation reports to the rep and manager on record.
type Mailer struct {
	client   *gomail.Client
	fromName string
	fromAddr string
	log      *logger.Logger
}

// NewMailer builds an SMTP-backed escalation publisher. Returns an error
// only on client construction; send failures at runtime are swallowed.
func NewMailer(cfg config.NotifyConfig, log *logger.Logger) (*Mailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.GetSMTPPort()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(10 * time.Second),
	}
	if cfg.GetSMTPUsername() != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.GetSMTPUsername()),
			gomail.WithPassword(cfg.GetSMTPPassword()),
		)
	}

	client, err := gomail.NewClient(cfg.GetSMTPHost(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return &Mailer{
		client:   client,
		fromName: cfg.GetNotifyFromName(),
		fromAddr: cfg.GetNotifyFromAddress(),
		log:      log,
	}, nil
}

// Publish emails the report to its notification targets. Never returns an
// error: the escalation decision stands regardless of delivery.
func (m *Mailer) Publish(ctx context.Context, report *escalation.Report) {
	if len(report.NotificationTargets) == 0 {
		m.log.Info("escalation has no notification targets, skipping email",
			"escalationId", report.EscalationID,
			"tenantId", report.TenantID,
		)
		return
	}

	msg, err := m.buildMessage(report)
	if err != nil {
		m.log.DependencyFailure("smtp", "escalation email dropped", err)
		return
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.log.DependencyFailure("smtp", "escalation email dropped", err)
		return
	}

	m.log.Info("escalation email sent",
		"escalationId", report.EscalationID,
		"trigger", report.EscalationTrigger,
		"targets", len(report.NotificationTargets),
	)
}

func (m *Mailer) buildMessage(report *escalation.Report) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.fromAddr); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(report.NotificationTargets...); err != nil {
		return nil, fmt.Errorf("invalid notification target: %w", err)
	}
	msg.Subject(fmt.Sprintf("Escalation: %s (%s)", report.ContactName, report.EscalationTrigger))
	msg.SetBodyString(gomail.TypeTextPlain, renderReport(report))
	return msg, nil
}

func renderReport(report *escalation.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A conversation needs human attention.\n\n")
	fmt.Fprintf(&b, "Contact:    %s\n", report.ContactName)
	fmt.Fprintf(&b, "Deal stage: %s\n", report.DealStage)
	fmt.Fprintf(&b, "Trigger:    %s\n", report.EscalationTrigger)
	fmt.Fprintf(&b, "Confidence: %.2f\n\n", report.ConfidenceScore)
	fmt.Fprintf(&b, "Context:\n%s\n\n", report.AccountContext)
	fmt.Fprintf(&b, "What the agent tried:\n%s\n\n", report.WhatAgentTried)
	fmt.Fprintf(&b, "Why this is escalating:\n%s\n\n", report.WhyEscalating)
	fmt.Fprintf(&b, "Recommended next action:\n%s\n", report.RecommendedNextAction)

	if len(report.ConversationExcerpts) > 0 {
		fmt.Fprintf(&b, "\nRelevant excerpts:\n")
		for _, excerpt := range report.ConversationExcerpts {
			fmt.Fprintf(&b, "  - %s\n", excerpt)
		}
	}
	return b.String()
}

var _ escalation.Publisher = (*Mailer)(nil)
