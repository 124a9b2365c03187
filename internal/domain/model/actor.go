package model

import (
	"context"
	"time"
)

// Role is the acting identity's privilege level.
type Role string

// Roles.
const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// Actor is the identity performing a call.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsAdmin reports whether the actor may mutate score records.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanView reports whether the actor may read admin summaries.
func (a Actor) CanView() bool { return a.Role == RoleAdmin || a.Role == RoleModerator }

// SystemActor is used by background jobs acting on behalf of the service.
var SystemActor = Actor{ID: "system", Role: RoleAdmin}

type actorKey struct{}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored in ctx.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// Profile is the externally owned display identity of a player.
type Profile struct {
	PlayerID  string `json:"player_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// NotificationType classifies an inbox entry.
type NotificationType string

// Notification types.
const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Valid reports whether t is a known type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return true
	}
	return false
}

// Notification is a player-targeted inbox entry.
type Notification struct {
	ID        string           `json:"id"`
	PlayerID  string           `json:"player_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
	DeletedAt *time.Time       `json:"-"`
}
