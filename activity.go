package membership

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventUserRegistered       ActivityEventType = "membership.user.registered"
	ActivityEventUserActivated        ActivityEventType = "membership.user.activated"
	ActivityEventUserDeactivated      ActivityEventType = "membership.user.deactivated"
	ActivityEventLoginSuccess         ActivityEventType = "membership.login.success"
	ActivityEventLoginFailure         ActivityEventType = "membership.login.failure"
	ActivityEventRememberLogin        ActivityEventType = "membership.login.remembered"
	ActivityEventLogout               ActivityEventType = "membership.logout"
	ActivityEventPasswordResetRequest ActivityEventType = "membership.password.reset.requested"
	ActivityEventPasswordResetSuccess ActivityEventType = "membership.password.reset"
	ActivityEventCodeExpired          ActivityEventType = "membership.code.expired"
)

// ActorRef identifies who performed an action.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
