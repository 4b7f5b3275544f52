package api

import (
	"net/http"

	"github.com/erazemk/komponente/internal/service"
)

// ContactHandler relays contact form submissions.
type ContactHandler struct {
	Contact *service.Contact
}

// Send handles POST /api/contact.
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req service.ContactInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Contact.Send(r.Context(), GetSession(r.Context()), req); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "message sent"})
}
