package handlers

import (
	"net/http"
	"strings"

	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/service"
)

type PasswordHandler struct {
	members *service.MemberService
	resets  *service.PasswordResetService
	log     *logger.Logger
}

func NewPasswordHandler(members *service.MemberService, resets *service.PasswordResetService, log *logger.Logger) *PasswordHandler {
	return &PasswordHandler{
		members: members,
		resets:  resets,
		log:     log.With("password"),
	}
}

type ForgottenPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}

type ChangePasswordRequest struct {
	ID              string `json:"id"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Forgotten answers the same way whether or not the email is known.
func (h *PasswordHandler) Forgotten(w http.ResponseWriter, r *http.Request) {
	var req ForgottenPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.resets.Forgot(ctx, req.Email); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondMessage(w, "If this email is registered, a reset link has been sent.")
}

func (h *PasswordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.resets.Reset(ctx, req.Token, req.Email, req.NewPassword); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondMessage(w, "Password reset successfully.")
}

// Change updates the password of the caller, or of any member for admins.
func (h *PasswordHandler) Change(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor := actorFrom(r)
	id := strings.ToUpper(strings.TrimSpace(req.ID))
	if id == "" {
		id = actor.MemberID
	}
	if !actor.CanAccess(id) {
		writeServiceError(w, h.log, service.ErrForbidden)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.members.ChangePassword(ctx, id, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondMessage(w, "Password updated successfully.")
}
