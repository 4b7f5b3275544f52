package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/report"
	"github.com/erazemk/komponente/internal/service"
)

// ReportsHandler serves spreadsheet and PDF exports.
type ReportsHandler struct {
	Reports *service.Reports
}

// Export handles GET /api/reports/{file}, where file is components.xlsx,
// components.pdf, movements.xlsx or movements.pdf.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	name, ext, _ := strings.Cut(r.PathValue("file"), ".")
	format, err := report.ParseFormat(ext)
	if err != nil {
		jsonError(w, http.StatusNotFound, "unknown report")
		return
	}

	ctx := r.Context()
	s := GetSession(ctx)
	q := r.URL.Query()

	var buf bytes.Buffer
	var filename string
	switch name {
	case "components":
		var f model.ComponentFilter
		if f, err = componentFilter(q); err == nil {
			err = h.Reports.Components(ctx, s, f, format, &buf)
		}
		filename = "inventario"
	case "movements":
		var f model.MovementFilter
		if f, err = movementFilter(q); err == nil {
			err = h.Reports.Movements(ctx, s, f, format, &buf)
		}
		filename = "historial"
	default:
		jsonError(w, http.StatusNotFound, "unknown report")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, filename, format))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
