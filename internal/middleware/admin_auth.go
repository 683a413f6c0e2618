package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/boostly/backend/internal/models"
)

type contextKey string

const ctxAdminKey contextKey = "admin"

// TokenValidator is the subset of the auth service used here.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// UserLookup resolves the token subject to a full user row.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AdminAuth authenticates requests by validating the Bearer JWT and requires
// an active admin account. On success the admin user is set into request
// context.
func AdminAuth(validator TokenValidator, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}

			id, role, err := validator.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			if role != models.RoleAdmin {
				http.Error(w, `{"error":"admin access required"}`, http.StatusForbidden)
				return
			}

			admin, err := users.GetByID(r.Context(), id)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			if admin.Role != models.RoleAdmin || admin.Status != models.UserStatusActive {
				http.Error(w, `{"error":"admin access required"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), admin)))
		})
	}
}

// AdminFromCtx returns the authenticated admin or nil.
func AdminFromCtx(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxAdminKey).(*models.User)
	return u
}

// WithAdmin returns a context carrying the given admin user.
func WithAdmin(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxAdminKey, u)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
