package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/erazemk/komponente/internal/imaging"
	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/service"
)

// maxFormBytes bounds a multipart component request: one image plus fields.
const maxFormBytes = imaging.MaxUploadBytes + 1<<20

// ComponentsHandler handles component catalog endpoints.
type ComponentsHandler struct {
	Inventory *service.Inventory
}

type componentRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Quantity    json.Number `json:"quantity"`
	CategoryID  *int64      `json:"category_id"`
	LocationID  *int64      `json:"location_id"`
	Status      string      `json:"status"`
}

// optionalID parses an ID query or form value. Empty means unset.
func optionalID(field, raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, &model.ValidationError{Field: field, Message: "must be a positive integer"}
	}
	return &id, nil
}

func parseQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, model.Required("quantity")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &model.ValidationError{Field: "quantity", Message: "must be an integer"}
	}
	return n, nil
}

func componentFilter(q url.Values) (model.ComponentFilter, error) {
	f := model.ComponentFilter{NameContains: strings.TrimSpace(q.Get("name"))}

	var err error
	if f.CategoryID, err = optionalID("category", q.Get("category")); err != nil {
		return f, err
	}
	if f.LocationID, err = optionalID("location", q.Get("location")); err != nil {
		return f, err
	}
	return f, nil
}

// readComponent parses a component from a multipart form or a JSON body.
// The returned image is nil when none was sent.
func readComponent(w http.ResponseWriter, r *http.Request) (model.ComponentInput, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readComponentForm(w, r)
	}

	var req componentRequest
	if err := decodeJSON(r, &req); err != nil {
		return model.ComponentInput{}, nil, &model.ValidationError{Field: "body", Message: "invalid request body"}
	}
	qty, err := parseQuantity(req.Quantity.String())
	if err != nil {
		return model.ComponentInput{}, nil, err
	}
	return model.ComponentInput{
		Name:        req.Name,
		Description: req.Description,
		Quantity:    qty,
		CategoryID:  req.CategoryID,
		LocationID:  req.LocationID,
		Status:      req.Status,
	}, nil, nil
}

func readComponentForm(w http.ResponseWriter, r *http.Request) (model.ComponentInput, []byte, error) {
	var in model.ComponentInput

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		return in, nil, &model.ValidationError{Field: "body", Message: "file too large or invalid multipart form"}
	}

	var err error
	in.Name = r.FormValue("name")
	in.Description = r.FormValue("description")
	in.Status = r.FormValue("status")
	if in.Quantity, err = parseQuantity(r.FormValue("quantity")); err != nil {
		return in, nil, err
	}
	if in.CategoryID, err = optionalID("category_id", r.FormValue("category_id")); err != nil {
		return in, nil, err
	}
	if in.LocationID, err = optionalID("location_id", r.FormValue("location_id")); err != nil {
		return in, nil, err
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, &model.ValidationError{Field: "image", Message: "unreadable upload"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return in, nil, err
	}
	return in, data, nil
}

// List handles GET /api/components.
func (h *ComponentsHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := componentFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	components, err := h.Inventory.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, components)
}

// Get handles GET /api/components/{id}.
func (h *ComponentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.Inventory.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// Create handles POST /api/components.
func (h *ComponentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, image, err := readComponent(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.Inventory.Create(r.Context(), GetSession(r.Context()), in, image)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}

// Update handles PUT /api/components/{id}.
func (h *ComponentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	in, image, err := readComponent(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.Inventory.Update(r.Context(), GetSession(r.Context()), id, in, image)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// Delete handles DELETE /api/components/{id}.
func (h *ComponentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Inventory.Delete(r.Context(), GetSession(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "component deleted"})
}
