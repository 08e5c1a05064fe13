package auth

import (
	"time"

	"github.com/tablepilot/auth-service/principals"
)

// EventKind names a security-relevant transition point.
type EventKind string

const (
	EventLoginSucceeded        EventKind = "login_succeeded"
	EventLoginFailed           EventKind = "login_failed"
	EventLogoutCompleted       EventKind = "logout_completed"
	EventTokenRefreshed        EventKind = "token_refreshed"
	EventTokenRefreshFailed    EventKind = "token_refresh_failed"
	EventInvalidTokenPresented EventKind = "invalid_token_presented"
	EventAuthorizationDenied   EventKind = "authorization_denied"
)

// AnonymousActor is the actor id used when no principal was resolved.
const AnonymousActor = "anonymous"

// Event is the structured record handed to the security event logger.
// Storage, alerting and retention are the logger's concern; this core only
// produces events at the right transition points.
type Event struct {
	Kind       EventKind
	ActorID    string
	Role       principals.RoleType
	RemoteAddr string
	Timestamp  time.Time
	Details    map[string]string
}

// EventLogger is the collaborator contract for the security event sink.
type EventLogger interface {
	Log(event Event)
}

// NopEventLogger discards events. Used in tests and as a default.
type NopEventLogger struct{}

func (NopEventLogger) Log(Event) {}
