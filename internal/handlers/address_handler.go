package handlers

import (
	"net/http"

	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/Varun5711/clubhouse/internal/service"
)

type AddressHandler struct {
	addresses *service.AddressService
	log       *logger.Logger
}

func NewAddressHandler(addresses *service.AddressService, log *logger.Logger) *AddressHandler {
	return &AddressHandler{
		addresses: addresses,
		log:       log.With("address"),
	}
}

func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.AddressInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	created, err := h.addresses.Create(ctx, &in, actorFrom(r))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *AddressHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	address, err := h.addresses.Get(ctx, r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, address)
}

// Update replaces the address of the member in the path.
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.AddressInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.MemberID = r.PathValue("id")

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.addresses.Update(ctx, &in, actorFrom(r)); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondMessage(w, "Address updated successfully.")
}

func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.addresses.Delete(ctx, r.PathValue("id"), actorFrom(r)); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondMessage(w, "Address deleted successfully.")
}
