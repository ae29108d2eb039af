package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/findosh/audioguide/internal/models"
	"github.com/go-chi/chi/v5"
)

// ListLibrary returns the device's purchased guides
func (h *Handler) ListLibrary(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, currentDevice(r).Library.Guides())
}

// LibraryEntry reports whether a guide is unlocked on this device
func (h *Handler) LibraryEntry(w http.ResponseWriter, r *http.Request) {
	id := models.GuideIDOf(chi.URLParam(r, "id"))
	h.writeJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"purchased": currentDevice(r).Gate.Allowed(id),
	})
}

// RemoveFromLibrary drops a guide from the device library
func (h *Handler) RemoveFromLibrary(w http.ResponseWriter, r *http.Request) {
	if err := currentDevice(r).Library.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout pays for a guide and adds it to the library
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	d := currentDevice(r)
	receipt, err := h.checkout.Purchase(r.Context(), d.Session, d.Library, id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if receipt.AlreadyOwned {
		status = http.StatusOK
	}
	h.writeJSON(w, status, receipt)
}

// ViewGuide returns one stop of a purchased guide. ?stop= selects the
// zero-based stop and ?lang= the narration language.
func (h *Handler) ViewGuide(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	stop := 0
	if v := r.URL.Query().Get("stop"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.jsonError(w, "Invalid stop", http.StatusBadRequest)
			return
		}
		stop = n
	}

	tour, err := h.viewer.Open(r.Context(), currentDevice(r).Gate, id, strings.TrimSpace(r.URL.Query().Get("lang")), stop)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tour)
}
