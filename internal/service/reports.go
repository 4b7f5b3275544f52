package service

import (
	"context"
	"io"
	"strconv"

	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/report"
)

// Placeholders for missing references in exports.
const (
	noCategory = "Sin categoría"
	noLocation = "Sin ubicación"
)

// ReportDateLayout formats movement timestamps in exports.
const ReportDateLayout = "2006-01-02 15:04"

// Reports exports the same rows the listings return for a given filter.
type Reports struct {
	Inventory *Inventory
	Ledger    *Ledger
}

// Components writes the component listing for f to w.
func (r *Reports) Components(ctx context.Context, s *model.Session, f model.ComponentFilter, format report.Format, w io.Writer) error {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return err
	}
	components, err := r.Inventory.List(ctx, f)
	if err != nil {
		return err
	}
	return report.Render(ctx, w, ComponentsTable(components), format)
}

// Movements writes the movement listing for f to w.
func (r *Reports) Movements(ctx context.Context, s *model.Session, f model.MovementFilter, format report.Format, w io.Writer) error {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return err
	}
	movements, err := r.Ledger.Query(ctx, f)
	if err != nil {
		return err
	}
	return report.Render(ctx, w, MovementsTable(movements), format)
}

// ComponentsTable projects components into the export layout.
func ComponentsTable(components []model.Component) *report.Table {
	t := &report.Table{
		Title: "Inventario",
		Columns: []report.Column{
			{Header: "Nombre", XLSXWidth: 30, PDFWidth: 150},
			{Header: "Categoría", XLSXWidth: 25, PDFWidth: 120},
			{Header: "Ubicación", XLSXWidth: 25, PDFWidth: 180},
			{Header: "Cantidad", XLSXWidth: 10, PDFWidth: 60},
		},
		Rows: make([][]string, 0, len(components)),
	}
	for _, c := range components {
		t.Rows = append(t.Rows, []string{
			c.Name,
			valueOr(c.CategoryName, noCategory),
			valueOr(c.LocationName, noLocation),
			strconv.Itoa(c.Quantity),
		})
	}
	return t
}

// MovementsTable projects movements into the export layout.
func MovementsTable(movements []model.Movement) *report.Table {
	t := &report.Table{
		Title: "Historial",
		Columns: []report.Column{
			{Header: "ID", XLSXWidth: 5, PDFWidth: 30},
			{Header: "Componente", XLSXWidth: 25, PDFWidth: 120},
			{Header: "Movimiento", XLSXWidth: 15, PDFWidth: 80},
			{Header: "Cantidad", XLSXWidth: 10, PDFWidth: 50},
			{Header: "Persona", XLSXWidth: 20, PDFWidth: 80},
			{Header: "Observaciones", XLSXWidth: 30, PDFWidth: 120},
			{Header: "Fecha", XLSXWidth: 20, PDFWidth: 100},
		},
		Rows: make([][]string, 0, len(movements)),
	}
	for _, m := range movements {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(m.ID, 10),
			m.ComponentName,
			m.Kind.Label(),
			strconv.Itoa(m.Quantity),
			m.Person,
			m.Notes,
			m.CreatedAt.Format(ReportDateLayout),
		})
	}
	return t
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
