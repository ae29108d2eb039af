package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/findosh/audioguide/internal/models"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type sessionResponse struct {
	User      *models.User `json:"user"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	IsAdmin   bool         `json:"is_admin"`
}

// SignIn handles email/password sign-in
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !h.decode(w, r, &req) {
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		h.jsonError(w, "Email and password required", http.StatusBadRequest)
		return
	}

	d := currentDevice(r)
	if _, err := d.Session.SignIn(r.Context(), email, req.Password); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.sessionOf(r))
}

// SignUp handles account creation
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !h.decode(w, r, &req) {
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		h.jsonError(w, "Email and password required", http.StatusBadRequest)
		return
	}

	profile := map[string]any{}
	if name := strings.TrimSpace(req.Name); name != "" {
		profile["name"] = name
	}

	d := currentDevice(r)
	if _, err := d.Session.SignUp(r.Context(), email, req.Password, profile); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.sessionOf(r))
}

// SignOut ends the session and clears the device library. Local state is
// gone even when the provider call fails, so the response is still 200.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	d := currentDevice(r)
	resp := map[string]any{"signed_out": true}
	if err := d.Session.SignOut(r.Context()); err != nil {
		resp["warning"] = "Signed out locally; the identity provider could not be reached"
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Me returns the current session, with a null user when signed out
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.sessionOf(r))
}

func (h *Handler) sessionOf(r *http.Request) sessionResponse {
	d := currentDevice(r)
	s := d.Session.Session(r.Context())
	if s == nil {
		return sessionResponse{}
	}
	expires := s.ExpiresAt
	return sessionResponse{
		User:      s.User,
		ExpiresAt: &expires,
		IsAdmin:   d.Session.IsAdmin(r.Context()),
	}
}
