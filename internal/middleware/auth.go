package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Varun5711/clubhouse/internal/auth"
	"github.com/Varun5711/clubhouse/internal/logger"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// TokenVerifier validates a session token and returns its claims. Rejected
// tokens give auth.ErrTokenExpired or auth.ErrInvalidToken.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	verifier   TokenVerifier
	cookieName string
	log        *logger.Logger
}

func NewAuthMiddleware(verifier TokenVerifier, cookieName string, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:   verifier,
		cookieName: cookieName,
		log:        log.With("auth"),
	}
}

// TokenFromRequest reads the bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return ""
	}

	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r, m.cookieName)
		if token == "" {
			writeError(w, http.StatusBadRequest, "Authentication token required")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		claims, err := m.verifier.Verify(ctx, token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				writeError(w, http.StatusGone, "Token expired")
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, http.StatusUnauthorized, "Invalid authentication token")
			default:
				m.log.Error("Token verification failed: %v", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
			return
		}

		ctx = context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequireAdmin must run inside RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil || !claims.IsAdmin {
			m.log.Warn("Member %s denied admin route %s", GetMemberID(r.Context()), r.URL.Path)
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func GetMemberID(ctx context.Context) string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.MemberID()
	}
	return ""
}
