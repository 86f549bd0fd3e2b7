// Package actor identifies the user performing an action. The acting user is
// recorded on every ledger entry and timeline event for audit purposes.
package actor

import (
	"context"
)

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the unique identifier of the actor (user ID)
	ID string `json:"id"`

	// Name is the actor's display name
	Name string `json:"name"`

	// TenantID is the tenant the actor belongs to
	TenantID string `json:"tenant_id"`
}

// systemActorID is the reserved ID for system-initiated operations.
const systemActorID = "00000000-0000-0000-0000-000000000000"

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return a.Name + " (" + a.ID + ")"
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g. system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// ActorID returns the acting user's ID, or the system actor ID when no actor
// is present in the context.
func ActorID(ctx context.Context) string {
	if a := FromContext(ctx); a != nil {
		return a.ID
	}
	return systemActorID
}

// SystemActor returns an Actor representing the system itself.
// Use this for seeding and system-initiated operations.
func SystemActor() *Actor {
	return &Actor{
		ID:   systemActorID,
		Name: "System",
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == systemActorID
}
