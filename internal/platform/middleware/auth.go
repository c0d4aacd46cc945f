package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator validates staff access tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*StaffClaims, error)
}

// StaffClaims represents the claims we expect from the token validator.
type StaffClaims struct {
	StaffID string
	Email   string
	Role    string
}

type contextKeyStaffID struct{}
type contextKeyStaffRole struct{}

var (
	ContextKeyStaffID   = contextKeyStaffID{}
	ContextKeyStaffRole = contextKeyStaffRole{}
)

// GetStaffID retrieves the authenticated staff member's ID from the context.
func GetStaffID(ctx context.Context) string {
	id, ok := ctx.Value(ContextKeyStaffID).(string)
	if !ok {
		return ""
	}
	return id
}

// GetStaffRole retrieves the authenticated staff member's role from the context.
func GetStaffRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyStaffRole).(string)
	if !ok {
		return ""
	}
	return role
}

// RequireStaff rejects requests without a valid staff bearer token and puts
// the staff identity into the request context.
func RequireStaff(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, ContextKeyStaffID, claims.StaffID)
			ctx = context.WithValue(ctx, ContextKeyStaffRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route on the staff role stored by RequireStaff.
func RequireRole(role string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if GetStaffRole(ctx) != role {
				logger.WarnContext(ctx, "forbidden - role mismatch",
					"required_role", role,
					"request_id", GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
