package api

import (
	"net/http"

	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/service"
)

// TaxonomyHandler serves one taxonomy: categories or locations.
type TaxonomyHandler struct {
	Taxonomy *service.Taxonomy
	Kind     model.Taxonomy
}

type termRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/categories and /api/locations.
func (h *TaxonomyHandler) List(w http.ResponseWriter, r *http.Request) {
	terms, err := h.Taxonomy.List(r.Context(), h.Kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, terms)
}

// Create handles POST /api/categories and /api/locations.
func (h *TaxonomyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req termRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	term, err := h.Taxonomy.Create(r.Context(), GetSession(r.Context()), h.Kind, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, term)
}

// Rename handles PUT /api/categories/{id} and /api/locations/{id}.
func (h *TaxonomyHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req termRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Taxonomy.Rename(r.Context(), GetSession(r.Context()), h.Kind, id, req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, model.Term{ID: id, Name: req.Name})
}

// Delete handles DELETE /api/categories/{id} and /api/locations/{id}.
func (h *TaxonomyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Taxonomy.Delete(r.Context(), GetSession(r.Context()), h.Kind, id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": string(h.Kind) + " deleted"})
}
