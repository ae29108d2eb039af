// Package handlers provides HTTP request handlers
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/findosh/audioguide/internal/config"
	"github.com/findosh/audioguide/internal/device"
	"github.com/findosh/audioguide/internal/middleware"
	"github.com/findosh/audioguide/internal/models"
	"github.com/findosh/audioguide/internal/services/catalog"
	"github.com/findosh/audioguide/internal/services/checkout"
	"github.com/findosh/audioguide/internal/services/media"
	"github.com/findosh/audioguide/internal/services/session"
	"github.com/findosh/audioguide/internal/services/viewer"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler contains all HTTP handlers and dependencies
type Handler struct {
	cfg      *config.Config
	log      *zap.Logger
	devices  *device.Registry
	catalog  *catalog.Service
	checkout *checkout.Service
	viewer   *viewer.Service
}

// New creates a new handler with all dependencies
func New(
	cfg *config.Config,
	log *zap.Logger,
	devices *device.Registry,
	catalogService *catalog.Service,
	checkoutService *checkout.Service,
	viewerService *viewer.Service,
) *Handler {
	return &Handler{
		cfg:      cfg,
		log:      log,
		devices:  devices,
		catalog:  catalogService,
		checkout: checkoutService,
		viewer:   viewerService,
	}
}

// writeJSON writes v as a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("failed to write response", zap.Error(err))
	}
}

// jsonError writes a JSON error response
func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON request body into v
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// productID parses the {id} route parameter
func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.jsonError(w, "Invalid product id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// serviceError maps service errors to responses
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrAuthRequired),
		errors.Is(err, media.ErrAuthRequired),
		errors.Is(err, checkout.ErrAuthRequired):
		h.jsonError(w, "Authentication required", http.StatusUnauthorized)
	case errors.Is(err, catalog.ErrAdminRequired):
		h.jsonError(w, "Admin access required", http.StatusForbidden)
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, viewer.ErrNotFound):
		h.jsonError(w, "Product not found", http.StatusNotFound)
	case errors.Is(err, viewer.ErrAccessDenied):
		h.jsonError(w, "You need to purchase this guide to access it", http.StatusForbidden)
	case errors.Is(err, viewer.ErrNoContent):
		h.jsonError(w, "No content available", http.StatusNotFound)
	case errors.Is(err, models.ErrTitleRequired),
		errors.Is(err, models.ErrCityRequired),
		errors.Is(err, models.ErrInvalidPrice),
		errors.Is(err, catalog.ErrInvalidLanguage),
		errors.Is(err, media.ErrValidation):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		if kind := session.KindOf(err); kind != 0 {
			h.sessionError(w, err, kind)
			return
		}
		h.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.jsonError(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
	}
}

func (h *Handler) sessionError(w http.ResponseWriter, err error, kind session.Kind) {
	switch kind {
	case session.KindInvalidCredentials:
		h.jsonError(w, "Invalid email or password", http.StatusUnauthorized)
	case session.KindRejected:
		msg := "Request rejected"
		var se *session.Error
		if errors.As(err, &se) && se.Err != nil {
			msg = se.Err.Error()
		}
		h.jsonError(w, msg, http.StatusBadRequest)
	case session.KindSuperseded:
		h.jsonError(w, "Another sign-in is in progress", http.StatusConflict)
	default:
		h.log.Warn("identity provider error", zap.Error(err))
		h.jsonError(w, "Authentication service unavailable", http.StatusBadGateway)
	}
}

// currentDevice returns the request's device. Device middleware guarantees it.
func currentDevice(r *http.Request) *device.Device {
	return middleware.GetDevice(r)
}
