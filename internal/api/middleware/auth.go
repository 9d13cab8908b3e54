package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/auth"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/service"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	actorKey  contextKey = "actor"
)

// TokenValidator parses bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// UserLookup loads the current state of the token's user.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Auth requires a valid bearer token. When users is non-nil the actor is
// rebuilt from the stored user, so deactivation and workspace moves apply
// before the token expires; with a nil lookup the claims are trusted as is.
func Auth(tokens TokenValidator, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			actor := service.Actor{
				UserID:      claims.UserID,
				WorkspaceID: claims.WorkspaceID,
				IsSuperuser: claims.IsSuperuser,
			}

			if users != nil {
				user, err := users.GetUserByID(r.Context(), claims.UserID)
				switch {
				case errors.Is(err, auth.ErrUserNotFound):
					writeError(w, http.StatusUnauthorized, "Unauthorized")
					return
				case err != nil:
					writeError(w, http.StatusInternalServerError, "Internal server error")
					return
				case !user.IsActive:
					writeError(w, http.StatusForbidden, "Account is inactive")
					return
				}
				actor.WorkspaceID = user.WorkspaceID
				actor.IsSuperuser = user.IsSuperuser
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, actorKey, actor)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithActor stores actor in ctx. Used by tests and internal callers.
func WithActor(ctx context.Context, actor service.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetClaims returns the validated token claims, or nil.
func GetClaims(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(claimsKey).(*auth.Claims); ok {
		return c
	}
	return nil
}

// GetActor returns the authenticated caller. ok is false on public routes.
func GetActor(ctx context.Context) (service.Actor, bool) {
	a, ok := ctx.Value(actorKey).(service.Actor)
	return a, ok
}

func GetUserID(ctx context.Context) uuid.UUID {
	if a, ok := GetActor(ctx); ok {
		return a.UserID
	}
	return uuid.Nil
}

// RequireSuperuser must be mounted after Auth.
func RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !actor.IsSuperuser {
			writeError(w, http.StatusForbidden, "Superuser privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
