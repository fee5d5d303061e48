package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/models"
	pkghttp "github.com/echopoint/echopoint/pkg/http"
)

type contextKey string

const identityContextKey contextKey = "identity"

// AccountReader loads an account for identity resolution.
type AccountReader interface {
	GetByID(ctx context.Context, q database.Querier, id string) (*models.User, error)
}

// BearerToken extracts the credential from the Authorization header or the
// jwt cookie. The header wins when both are present.
func BearerToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token != "" {
			return token, true
		}
	}

	if cookie, err := r.Cookie(JWTCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	return "", false
}

// Protect resolves the request's bearer credential into a verified identity
// and attaches it to the context. Tokens issued before the account's last
// password change are rejected.
func Protect(tm *TokenManager, db database.Querier, users AccountReader) func(pkghttp.HandlerFunc) pkghttp.HandlerFunc {
	return func(next pkghttp.HandlerFunc) pkghttp.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			token, ok := BearerToken(r)
			if !ok {
				return models.NewUnauthorizedError("Token not found. Please log in again.")
			}

			claims, err := tm.Verify(token)
			if err != nil {
				return err
			}

			user, err := users.GetByID(r.Context(), db, claims.UserID)
			if err != nil {
				var appErr *models.AppError
				if errors.As(err, &appErr) && appErr.Kind == models.KindNotFound {
					return models.NewUnauthorizedError("User belonging to this token does not exist.")
				}
				return err
			}

			if claims.IssuedAt != nil && user.PasswordChangedAfter(claims.IssuedAt.Time) {
				return models.NewUnauthorizedError("Password changed recently. Please sign in again for security reasons.")
			}

			ctx := context.WithValue(r.Context(), identityContextKey, user.Identity())
			return next(w, r.WithContext(ctx))
		}
	}
}

// RestrictTo gates a handler behind an allow-list of roles. Must run after
// Protect has attached the identity.
func RestrictTo(roles ...string) func(pkghttp.HandlerFunc) pkghttp.HandlerFunc {
	return func(next pkghttp.HandlerFunc) pkghttp.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				return models.NewUnauthorizedError("Token not found. Please log in again.")
			}

			for _, role := range roles {
				if identity.Role == role {
					return next(w, r)
				}
			}

			return models.NewForbiddenError("Forbidden. Access denied.")
		}
	}
}

// IdentityFromContext returns the identity attached by Protect.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*models.Identity)
	return identity, ok
}

// ContextWithIdentity attaches an identity. Exported for handler tests.
func ContextWithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
