package shared

import (
	"context"
	"slices"
)

// CapabilityAdmin grants access to posting and reporting.
const CapabilityAdmin = "admin"

// Actor is the authenticated caller.
type Actor struct {
	Subject      string
	Capabilities []string
}

// Can reports whether the actor holds capability.
func (a Actor) Can(capability string) bool {
	return slices.Contains(a.Capabilities, capability)
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// SubjectFromContext returns the actor subject or "system".
func SubjectFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.Subject != "" {
		return actor.Subject
	}
	return "system"
}
