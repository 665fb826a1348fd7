package shared

import "context"

// Role names used for route guards.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// Actor identifies the authenticated user behind a request.
type Actor struct {
	UserID   int64
	Username string
	Role     string
}

// IsAdmin reports whether the actor holds the admin role.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

type actorContextKey struct{}

// ContextWithActor stores the authenticated actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. Nil when the request is
// unauthenticated.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}
