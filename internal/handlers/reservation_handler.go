package handlers

import (
	"net/http"

	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/Varun5711/clubhouse/internal/service"
)

type ReservationHandler struct {
	reservations *service.ReservationService
	log          *logger.Logger
}

func NewReservationHandler(reservations *service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		reservations: reservations,
		log:          log.With("reservation"),
	}
}

type ReservationMemberRequest struct {
	MemberID string `json:"member_id"`
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.ReservationInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	created, err := h.reservations.Create(ctx, &in, actorFrom(r))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.ReservationInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.reservations.Update(ctx, &in, actorFrom(r)); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondMessage(w, "Reservation updated successfully.")
}

// Planning serves GET /reservations/{date}.
func (h *ReservationHandler) Planning(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	entries, err := h.reservations.Planning(ctx, r.PathValue("date"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if entries == nil {
		entries = []*models.PlanningEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	reservation, err := h.reservations.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, reservation)
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.reservations.Delete(ctx, r.PathValue("id"), actorFrom(r)); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondMessage(w, "Reservation deleted successfully.")
}

func (h *ReservationHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req ReservationMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.reservations.AddMember(ctx, r.PathValue("id"), req.MemberID, actorFrom(r)); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondMessage(w, "Member added to reservation.")
}

func (h *ReservationHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.reservations.RemoveMember(ctx, r.PathValue("id"), r.PathValue("member_id"), actorFrom(r)); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondMessage(w, "Member removed from reservation.")
}
