package middleware

import (
	"context"
	"net/http"

	"github.com/findosh/audioguide/internal/device"
	"github.com/google/uuid"
)

type contextKey string

const (
	deviceContextKey contextKey = "device"

	// DeviceCookie names the cookie that identifies a device
	DeviceCookie = "device_id"

	deviceCookieMaxAge = 400 * 24 * 60 * 60
)

// Devices attaches the caller's device to the request context, issuing a new
// device cookie when the request carries none
func Devices(registry *device.Registry, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(DeviceCookie); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     DeviceCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   deviceCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			d, err := registry.Get(r.Context(), id)
			if err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{
					"error": "Could not load your device. Please try again.",
					"retry": true,
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithDevice(r.Context(), d)))
		})
	}
}

// WithDevice returns a context carrying d
func WithDevice(ctx context.Context, d *device.Device) context.Context {
	return context.WithValue(ctx, deviceContextKey, d)
}

// GetDevice retrieves the device from the request context
func GetDevice(r *http.Request) *device.Device {
	d, ok := r.Context().Value(deviceContextKey).(*device.Device)
	if !ok {
		return nil
	}
	return d
}
