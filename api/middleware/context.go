package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgAuth "github.com/angelmondragon/carline-backend/pkg/auth"
	"github.com/angelmondragon/carline-backend/pkg/enums"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// WithIdentity stores the verified caller on the context.
func WithIdentity(ctx context.Context, identity pkgAuth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, identity)
}

// IdentityFromContext returns the caller placed by Auth.
func IdentityFromContext(ctx context.Context) (pkgAuth.Identity, bool) {
	if ctx == nil {
		return pkgAuth.Identity{}, false
	}
	identity, ok := ctx.Value(ctxIdentity).(pkgAuth.Identity)
	return identity, ok
}

func UserIDFromContext(ctx context.Context) uuid.UUID {
	identity, _ := IdentityFromContext(ctx)
	return identity.UserID
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	identity, _ := IdentityFromContext(ctx)
	return identity.Role
}
