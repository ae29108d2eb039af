package handlers

import (
	"net/http"
	"strings"

	"github.com/findosh/audioguide/internal/models"
	"github.com/findosh/audioguide/internal/services/importer"
	"github.com/go-chi/chi/v5"
)

const maxImportSize = 5 << 20

// Languages returns the narration languages
func (h *Handler) Languages(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.catalog.Languages())
}

// ListProducts returns the published catalog
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.FetchProducts(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if products == nil {
		products = []*models.Product{}
	}
	h.writeJSON(w, http.StatusOK, products)
}

// GetProduct returns one product with the device's ownership flag
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.FetchProductByID(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"product":   product,
		"purchased": currentDevice(r).Gate.Allowed(product.ID),
	})
}

// AdminListProducts returns every product including drafts
func (h *Handler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.FetchAllProducts(r.Context(), currentDevice(r).Session)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if products == nil {
		products = []*models.Product{}
	}
	h.writeJSON(w, http.StatusOK, products)
}

// CreateProduct stores a new product
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if !h.decode(w, r, &p) {
		return
	}

	created, err := h.catalog.CreateProduct(r.Context(), currentDevice(r).Session, &p)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// UpdateProduct replaces an existing product
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	var p models.Product
	if !h.decode(w, r, &p) {
		return
	}

	updated, err := h.catalog.UpdateProduct(r.Context(), currentDevice(r).Session, id, &p)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// ListPOIs returns the stops of a product, optionally filtered by ?lang=
func (h *Handler) ListPOIs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	pois, err := h.catalog.FetchPOIs(r.Context(), id, strings.TrimSpace(r.URL.Query().Get("lang")))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pois)
}

// ReplacePOIs swaps the stops of one language for the request body, in order
func (h *Handler) ReplacePOIs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	var pois []*models.POI
	if !h.decode(w, r, &pois) {
		return
	}

	saved, err := h.catalog.ReplacePOIs(r.Context(), currentDevice(r).Session, id, chi.URLParam(r, "lang"), pois)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, saved)
}

// DeletePOIs removes the stops of a product, optionally for ?lang= only
func (h *Handler) DeletePOIs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	n, err := h.catalog.DeletePOIsByProduct(r.Context(), currentDevice(r).Session, id, strings.TrimSpace(r.URL.Query().Get("lang")))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// ListUsers returns all accounts
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	d := currentDevice(r)
	users, err := h.catalog.FetchUsers(r.Context(), d.Session, d.Store)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

// ImportPOIs replaces the stops of one language from a CSV request body
func (h *Handler) ImportPOIs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	parsed, err := importer.ParsePOIs(r.Body)
	if err != nil {
		h.jsonError(w, "Could not read CSV: "+err.Error(), http.StatusBadRequest)
		return
	}

	saved, err := h.catalog.ReplacePOIs(r.Context(), currentDevice(r).Session, id, chi.URLParam(r, "lang"), parsed.POIs)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	skipped := parsed.Errors
	if skipped == nil {
		skipped = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"pois":    saved,
		"skipped": skipped,
	})
}
