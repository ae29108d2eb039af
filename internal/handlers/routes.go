package handlers

import (
	"net/http"

	"github.com/findosh/audioguide/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes builds the HTTP router
func (h *Handler) Routes(metrics *middleware.Metrics, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recover(h.log))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logger(h.log))
	if metrics != nil {
		r.Use(metrics.Handler)
	}

	r.Get("/healthz", h.Healthz)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Devices(h.devices, h.cfg.DeviceCookieSecure))

		r.Get("/languages", h.Languages)
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Post("/auth/signin", h.SignIn)
		r.Post("/auth/signup", h.SignUp)
		r.Post("/auth/signout", h.SignOut)
		r.Get("/auth/me", h.Me)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/library", h.ListLibrary)
			r.Get("/library/{id}", h.LibraryEntry)
			r.Delete("/library/{id}", h.RemoveFromLibrary)
			r.Post("/checkout/{id}", h.Checkout)
			r.Get("/guides/{id}", h.ViewGuide)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/products", h.AdminListProducts)
			r.Post("/products", h.CreateProduct)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Get("/products/{id}/pois", h.ListPOIs)
			r.Put("/products/{id}/pois/{lang}", h.ReplacePOIs)
			r.Post("/products/{id}/pois/{lang}/import", h.ImportPOIs)
			r.Delete("/products/{id}/pois", h.DeletePOIs)
			r.Get("/users", h.ListUsers)
			r.Post("/uploads", h.Upload)
		})
	})

	return r
}

// Healthz reports liveness
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"devices": h.devices.Len(),
	})
}
