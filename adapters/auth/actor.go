package auth

import (
	"context"

	"github.com/revmura/revmura-suite/ports"
)

// Role is what an actor may do.
type Role string

const (
	// RoleOperator may read state and administer modules and schemas.
	RoleOperator Role = "operator"
	// RoleViewer may only read state.
	RoleViewer Role = "viewer"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	Name string
	Role Role
	// Via records how the actor authenticated: "api_key", "session" or "local".
	Via string
}

// LocalOperator is the actor used by the command line, which runs with the
// operator's own database access.
var LocalOperator = Actor{Name: "local", Role: RoleOperator, Via: "local"}

type actorKey struct{}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor carried by ctx.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// ContextAuthorizer grants administration to operator actors found in the
// context.
type ContextAuthorizer struct{}

// MayAdminister implements ports.Authorizer.
func (ContextAuthorizer) MayAdminister(ctx context.Context) bool {
	a, ok := ActorFrom(ctx)
	return ok && a.Role == RoleOperator
}

// Ensure interface compliance.
var _ ports.Authorizer = ContextAuthorizer{}
