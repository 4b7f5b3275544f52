package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/komponente/internal/metrics"
	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/store"
)

// Ledger records stock movements and keeps component quantities in step.
type Ledger struct {
	DB *sqlx.DB
}

// RecordInput is a movement request.
type RecordInput struct {
	ComponentID int64
	Kind        string
	Quantity    int
	Person      string
	Notes       string
}

// Record validates and applies a movement. Checks run in a fixed order:
// quantity, person, component, kind, stock. A rejected movement changes
// nothing.
func (l *Ledger) Record(ctx context.Context, s *model.Session, in RecordInput) (*model.Movement, error) {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return nil, err
	}

	m, err := l.record(ctx, in)
	metrics.ObserveMovement(kindLabel(in.Kind), outcome(err))
	if err != nil {
		return nil, err
	}

	slog.Info("movement recorded", "user", s.Username, "id", m.ID,
		"component", m.ComponentID, "kind", m.Kind, "quantity", m.Quantity, "person", m.Person)
	return m, nil
}

func (l *Ledger) record(ctx context.Context, in RecordInput) (*model.Movement, error) {
	if in.Quantity <= 0 || in.Quantity > model.MaxQuantity {
		return nil, model.ErrInvalidQuantity
	}

	person := strings.TrimSpace(in.Person)
	if person != "" {
		ok, err := store.DisplayNameExists(ctx, l.DB, person)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, model.ErrUnknownPerson
		}
	}

	c, err := store.GetComponent(ctx, l.DB, in.ComponentID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, model.ErrComponentNotFound
	}

	kind, err := model.ParseMovementKind(in.Kind)
	if err != nil {
		return nil, err
	}
	delta, err := kind.Delta(in.Quantity)
	if err != nil {
		return nil, err
	}

	return store.ApplyMovement(ctx, l.DB, model.Movement{
		ComponentID: c.ID,
		Kind:        kind,
		Quantity:    in.Quantity,
		Person:      person,
		Notes:       strings.TrimSpace(in.Notes),
	}, delta)
}

// ReturnLoan credits the quantity of an earlier movement back to its
// component and appends a return movement for the same person. The kind of
// the original movement is not checked.
func (l *Ledger) ReturnLoan(ctx context.Context, s *model.Session, movementID int64, notes string) (*model.Movement, error) {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return nil, err
	}

	original, err := store.GetMovement(ctx, l.DB, movementID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, model.ErrMovementNotFound
	}

	m, err := store.ApplyMovement(ctx, l.DB, model.Movement{
		ComponentID: original.ComponentID,
		Kind:        model.KindReturn,
		Quantity:    original.Quantity,
		Person:      original.Person,
		Notes:       strings.TrimSpace(notes),
	}, original.Quantity)
	metrics.ObserveMovement(string(model.KindReturn), outcome(err))
	if err != nil {
		return nil, err
	}

	if original.Kind != model.KindLoan {
		slog.Warn("return recorded against non-loan movement",
			"original", original.ID, "original_kind", original.Kind)
	}
	slog.Info("loan returned", "user", s.Username, "original", original.ID, "id", m.ID,
		"quantity", m.Quantity, "person", m.Person)
	return m, nil
}

// Query returns movements matching f, newest first.
func (l *Ledger) Query(ctx context.Context, f model.MovementFilter) ([]model.Movement, error) {
	movements, err := store.ListMovements(ctx, l.DB, f)
	if err != nil {
		return nil, err
	}
	if movements == nil {
		movements = []model.Movement{}
	}
	return movements, nil
}

// kindLabel bounds the metric label to known kinds.
func kindLabel(kind string) string {
	k, err := model.ParseMovementKind(kind)
	if err != nil {
		return "unknown"
	}
	return string(k)
}

// outcome turns an error into a metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, model.ErrUnknownPerson):
		return "unknown_person"
	case errors.Is(err, model.ErrInvalidMovementKind):
		return "invalid_kind"
	case errors.Is(err, model.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	}
	return "error"
}
