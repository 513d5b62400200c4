package auth

import (
	"context"
	"time"
)

// ActivityEventType names an audited action
type ActivityEventType string

const (
	ActivityEventLoginSuccess         ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure         ActivityEventType = "auth.login.failure"
	ActivityEventUserRegistered       ActivityEventType = "auth.user.registered"
	ActivityEventImpersonationSuccess ActivityEventType = "auth.impersonation.success"
	ActivityEventImpersonationFailure ActivityEventType = "auth.impersonation.failure"
	ActivityEventImpersonationStopped ActivityEventType = "auth.impersonation.stopped"
	ActivityEventUserCreated          ActivityEventType = "users.created"
	ActivityEventUserUpdated          ActivityEventType = "users.updated"
	ActivityEventUserDeleted          ActivityEventType = "users.deleted"
)

// ActorRef is the account behind an event. Role is "unknown" for
// anonymous callers such as failed logins.
type ActorRef struct {
	ID   string
	Role string
}

// ActivityEvent is one audit record
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink receives audit records. Errors are logged by the caller and
// never fail the audited action.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc lets a plain function act as a sink. A nil func
// discards events.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f != nil {
		return f(ctx, event)
	}
	return nil
}

type discardActivity struct{}

func (discardActivity) Record(context.Context, ActivityEvent) error { return nil }

func sinkOrDiscard(sink ActivitySink) ActivitySink {
	if sink != nil {
		return sink
	}
	return discardActivity{}
}

// LoggerActivitySink writes every event to a Logger
func LoggerActivitySink(logger Logger) ActivitySink {
	if logger == nil {
		logger = defLogger{}
	}
	return ActivitySinkFunc(func(_ context.Context, event ActivityEvent) error {
		args := make([]any, 0, 8+2*len(event.Metadata))
		args = append(args,
			"event", string(event.EventType),
			"actor_id", event.Actor.ID,
			"actor_role", event.Actor.Role,
			"user_id", event.UserID,
		)
		for k, v := range event.Metadata {
			args = append(args, k, v)
		}
		logger.Info("activity", args...)
		return nil
	})
}
