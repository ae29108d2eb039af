package middleware

import (
	"net/http"
	"strings"
)

const (
	AuthPath = "/auth"
	HomePath = "/"
)

// RequireAuth lets the request through only when the device has a signed-in
// user. Browsers are redirected to the sign-in page; API clients get 401.
// Until the session has been hydrated the response is 503 "loading".
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorize(w, r, false) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin is RequireAuth plus the administrator check. Signed-in
// non-admins are redirected home or get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorize(w, r, true) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authorize(w http.ResponseWriter, r *http.Request, admin bool) bool {
	d := GetDevice(r)
	if d == nil || !d.Session.Resolved() {
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "loading"})
		return false
	}

	ctx := r.Context()
	if d.Session.CurrentUser(ctx) == nil {
		if wantsHTML(r) {
			http.Redirect(w, r, AuthPath, http.StatusSeeOther)
			return false
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
		return false
	}

	if admin && !d.Session.IsAdmin(ctx) {
		if wantsHTML(r) {
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
			return false
		}
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Admin access required"})
		return false
	}
	return true
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
