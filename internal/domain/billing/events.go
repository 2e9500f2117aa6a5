package billing

import (
	"context"
	"time"
)

// EventType identifies a reconciliation audit event.
type EventType string

const (
	EventUserAssigned       EventType = "billing.user_assigned"
	EventUserRemoved        EventType = "billing.user_removed"
	EventUserMigrated       EventType = "billing.user_migrated"
	EventSubscriptionEdited EventType = "billing.subscription_edited"
	EventPlanDeleted        EventType = "billing.plan_deleted"
	EventUsageIncremented   EventType = "billing.usage_incremented"
)

// Event is the audit record emitted after every successful reconciliation
// operation.  Events are advisory: delivery is best-effort and never blocks
// the operation that produced them.
type Event struct {
	Type             EventType `json:"type"`
	UserID           string    `json:"user_id,omitempty"`
	SubscriptionID   string    `json:"subscription_id,omitempty"`
	FromSubscription string    `json:"from_subscription,omitempty"`
	PlanID           string    `json:"plan_id,omitempty"`
	JobID            string    `json:"job_id,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// EventPublisher delivers reconciliation audit events to an external stream.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopEventPublisher discards events.  Used when no broker is configured.
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(context.Context, Event) error { return nil }
