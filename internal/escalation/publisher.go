package escalation

import "context"

// Publisher delivers a handoff report to the humans who need it. Delivery
// failures must not block the conversation pipeline, so implementations log
// and swallow their own errors.
type Publisher interface {
	Publish(ctx context.Context, report *Report)
}

// NopPublisher discards reports. Used when notifications are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Report) {}
