package httpx

import (
	"context"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
)

// userKey is an unexported context key type to avoid collisions across packages.
type userKey struct{}

type principal struct {
	user *domainauth.Profile
	kind domainauth.Kind
}

// SetUserInContext returns a child context carrying the authenticated user.
// If user is nil, the original ctx is returned unchanged.
func SetUserInContext(ctx context.Context, user *domainauth.Profile, kind domainauth.Kind) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, userKey{}, principal{user: user, kind: kind})
}

// UserFromContext returns the user placed by a guard and a boolean indicating presence.
func UserFromContext(ctx context.Context) (*domainauth.Profile, domainauth.Kind, bool) {
	p, ok := ctx.Value(userKey{}).(principal)
	if !ok || p.user == nil {
		return nil, "", false
	}
	return p.user, p.kind, true
}
