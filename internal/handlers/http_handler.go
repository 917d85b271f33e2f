package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/middleware"
	"github.com/Varun5711/clubhouse/internal/service"
)

const (
	requestTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func respondMessage(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// decodeJSON reads one JSON object of at most maxBodyBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON: %v", err)
	}
	return nil
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

func actorFrom(r *http.Request) *service.Actor {
	return service.ActorFromClaims(middleware.ClaimsFromContext(r.Context()))
}

// writeServiceError maps service errors to status codes. Unexpected errors are
// logged and answered with a generic message.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, service.ErrWrongCredentials):
		respondError(w, http.StatusUnauthorized, "Wrong credentials")
	case errors.Is(err, service.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, "Invalid authentication token")
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, service.ErrConflict):
		respondError(w, http.StatusConflict, "Duplicate entry")
	case errors.Is(err, service.ErrSlotTaken):
		respondError(w, http.StatusConflict, "Court already reserved for this slot")
	case errors.Is(err, service.ErrForeignKey):
		respondError(w, http.StatusBadRequest, "Foreign key constraint violation")
	case errors.Is(err, service.ErrTokenExpired):
		respondError(w, http.StatusGone, "Token expired")
	case errors.Is(err, service.ErrPasswordUnchanged):
		respondError(w, http.StatusUnprocessableEntity, "New password must be different from the current password")
	case errors.Is(err, context.DeadlineExceeded):
		log.Error("Request timed out: %v", err)
		respondError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		log.Error("Internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
