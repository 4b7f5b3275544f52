package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/service"
)

// DateLayout is the format of the from and to query parameters.
const DateLayout = "2006-01-02"

// MovementsHandler handles ledger endpoints.
type MovementsHandler struct {
	Ledger *service.Ledger
}

type movementRequest struct {
	ComponentID int64       `json:"component_id"`
	Kind        string      `json:"kind"`
	Quantity    json.Number `json:"quantity"`
	Person      string      `json:"person"`
	Notes       string      `json:"notes"`
}

type returnRequest struct {
	Notes string `json:"notes"`
}

func optionalDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return nil, &model.ValidationError{Field: field, Message: "must be a date in YYYY-MM-DD form"}
	}
	return &t, nil
}

func movementFilter(q url.Values) (model.MovementFilter, error) {
	f := model.MovementFilter{PersonContains: strings.TrimSpace(q.Get("person"))}

	var err error
	if f.DateFrom, err = optionalDate("from", q.Get("from")); err != nil {
		return f, err
	}
	if f.DateTo, err = optionalDate("to", q.Get("to")); err != nil {
		return f, err
	}
	if f.ComponentID, err = optionalID("component", q.Get("component")); err != nil {
		return f, err
	}
	return f, nil
}

// List handles GET /api/movements.
func (h *MovementsHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := movementFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	movements, err := h.Ledger.Query(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, movements)
}

// Create handles POST /api/movements.
func (h *MovementsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Fractional or missing quantities are a ledger error, not a bad body.
	qty, err := strconv.Atoi(req.Quantity.String())
	if err != nil {
		writeError(w, r, model.ErrInvalidQuantity)
		return
	}

	m, err := h.Ledger.Record(r.Context(), GetSession(r.Context()), service.RecordInput{
		ComponentID: req.ComponentID,
		Kind:        req.Kind,
		Quantity:    qty,
		Person:      req.Person,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, m)
}

// Return handles POST /api/movements/{id}/return.
func (h *MovementsHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The body is optional.
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.Ledger.ReturnLoan(r.Context(), GetSession(r.Context()), id, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, m)
}
