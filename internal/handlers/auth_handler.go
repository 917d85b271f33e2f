package handlers

import (
	"net/http"
	"time"

	"github.com/Varun5711/clubhouse/internal/auth"
	"github.com/Varun5711/clubhouse/internal/config"
	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/middleware"
	"github.com/Varun5711/clubhouse/internal/service"
	"github.com/Varun5711/clubhouse/internal/validation"
)

type AuthHandler struct {
	auth     *service.AuthService
	cookie   config.AuthConfig
	attempts *middleware.RateLimiter
	log      *logger.Logger
}

// NewAuthHandler builds the auth routes. attempts, when set, also limits login
// attempts per phone number.
func NewAuthHandler(authService *service.AuthService, cookie config.AuthConfig, attempts *middleware.RateLimiter, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		cookie:   cookie,
		attempts: attempts,
		log:      log.With("auth"),
	}
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message           string `json:"message"`
	Token             string `json:"token"`
	ID                string `json:"id"`
	Phone             string `json:"phone"`
	IsProfileComplete bool   `json:"is_profile_complete"`
	IsAdmin           bool   `json:"is_admin"`
}

type RefreshRequest struct {
	MemberID string `json:"member_id"`
}

type RefreshResponse struct {
	Message           string `json:"message"`
	Token             string `json:"token"`
	IsProfileComplete bool   `json:"is_profile_complete"`
	IsAdmin           bool   `json:"is_admin"`
}

type ClaimsResponse struct {
	ID                string `json:"id"`
	Phone             string `json:"phone"`
	IsProfileComplete bool   `json:"is_profile_complete"`
	IsAdmin           bool   `json:"is_admin"`
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if h.attempts != nil {
		phone := validation.NormalizePhone(req.Phone)
		if ok, reset := h.attempts.Allow(ctx, "login-phone", phone); !ok {
			h.attempts.TooManyRequests(w, "login-phone:"+phone, reset)
			return
		}
	}

	session, err := h.auth.Login(ctx, req.Phone, req.Password, r.UserAgent())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	h.setSessionCookie(w, session.Token, session.ExpiresAt)
	respondJSON(w, http.StatusOK, LoginResponse{
		Message:           "Login successful",
		Token:             session.Token,
		ID:                session.Member.ID,
		Phone:             session.Member.Phone,
		IsProfileComplete: session.Member.IsProfileComplete(),
		IsAdmin:           session.Member.IsAdmin,
	})
}

// Logout always clears the cookie. A valid token is revoked as well.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if token := middleware.TokenFromRequest(r, h.cookie.CookieName); token != "" {
		if claims, err := h.auth.Verify(ctx, token); err == nil {
			if err := h.auth.Logout(ctx, claims); err != nil {
				h.log.Error("Failed to revoke token of member %s: %v", claims.MemberID(), err)
			}
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// VerifyToken serves both /verify-token and /jwt-claims.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	respondJSON(w, http.StatusOK, claimsResponse(claims))
}

func claimsResponse(claims *auth.Claims) ClaimsResponse {
	return ClaimsResponse{
		ID:                claims.MemberID(),
		Phone:             claims.Phone,
		IsProfileComplete: claims.IsProfileComplete,
		IsAdmin:           claims.IsAdmin,
	}
}

func (h *AuthHandler) RefreshJWT(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	session, err := h.auth.Refresh(ctx, middleware.ClaimsFromContext(r.Context()), req.MemberID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	h.setSessionCookie(w, session.Token, session.ExpiresAt)
	respondJSON(w, http.StatusOK, RefreshResponse{
		Message:           "JWT refreshed successfully",
		Token:             session.Token,
		IsProfileComplete: session.Member.IsProfileComplete(),
		IsAdmin:           session.Member.IsAdmin,
	})
}

// TestAuth only reports whether a token was sent.
func (h *AuthHandler) TestAuth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if middleware.TokenFromRequest(r, h.cookie.CookieName) == "" {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("No token"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Token found"))
}
