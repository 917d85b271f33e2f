package handlers

import (
	"net/http"
	"strconv"

	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/Varun5711/clubhouse/internal/service"
)

type MemberHandler struct {
	members      *service.MemberService
	reservations *service.ReservationService
	log          *logger.Logger
}

func NewMemberHandler(members *service.MemberService, reservations *service.ReservationService, log *logger.Logger) *MemberHandler {
	return &MemberHandler{
		members:      members,
		reservations: reservations,
		log:          log.With("member"),
	}
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.MemberInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	created, err := h.members.Create(ctx, &in, actorFrom(r))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.MemberInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.members.Update(ctx, &in, actorFrom(r)); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondMessage(w, "Member updated successfully.")
}

func (h *MemberHandler) UpdateWithPassword(w http.ResponseWriter, r *http.Request) {
	var in models.MemberInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.members.UpdateWithPassword(ctx, &in, actorFrom(r)); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondMessage(w, "Member updated successfully.")
}

// List serves GET /members?page=&per_page=&q=.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := queryInt(query.Get("page"), 1)
	perPage := queryInt(query.Get("per_page"), service.DefaultPerPage)

	ctx, cancel := requestContext(r)
	defer cancel()

	result, err := h.members.List(ctx, page, perPage, query.Get("q"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	member, err := h.members.Get(ctx, r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.members.Delete(ctx, r.PathValue("id")); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondMessage(w, "Member deleted successfully.")
}

func (h *MemberHandler) Card(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	card, err := h.members.Card(ctx, r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (h *MemberHandler) Reservations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	list, err := h.reservations.ListForMember(ctx, r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if list == nil {
		list = []*models.Reservation{}
	}
	respondJSON(w, http.StatusOK, list)
}
