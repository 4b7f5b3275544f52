package model

import (
	"strings"
	"time"
)

// MovementKind is the type of a ledger entry.
type MovementKind string

// Movement kinds.
const (
	KindEntry  MovementKind = "entry"
	KindExit   MovementKind = "exit"
	KindLoan   MovementKind = "loan"
	KindReturn MovementKind = "return"
)

// kindAliases maps accepted spellings, including the Spanish labels used
// on paper forms, to movement kinds.
var kindAliases = map[string]MovementKind{
	"entry":      KindEntry,
	"ingreso":    KindEntry,
	"exit":       KindExit,
	"salida":     KindExit,
	"loan":       KindLoan,
	"préstamo":   KindLoan,
	"prestamo":   KindLoan,
	"return":     KindReturn,
	"devolución": KindReturn,
	"devolucion": KindReturn,
}

// ParseMovementKind resolves s to a movement kind, case-insensitively.
func ParseMovementKind(s string) (MovementKind, error) {
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", ErrInvalidMovementKind
	}
	return kind, nil
}

// Delta returns the signed stock change for moving quantity units of this kind.
func (k MovementKind) Delta(quantity int) (int, error) {
	switch k {
	case KindLoan, KindExit:
		return -quantity, nil
	case KindReturn, KindEntry:
		return quantity, nil
	default:
		return 0, ErrInvalidMovementKind
	}
}

// Label returns the display label used in reports.
func (k MovementKind) Label() string {
	switch k {
	case KindEntry:
		return "ingreso"
	case KindExit:
		return "salida"
	case KindLoan:
		return "préstamo"
	case KindReturn:
		return "devolución"
	}
	return string(k)
}

// Movement is an immutable ledger entry against one component.
type Movement struct {
	ID            int64        `db:"id" json:"id"`
	ComponentID   int64        `db:"component_id" json:"component_id"`
	ComponentName string       `db:"component_name" json:"component_name"`
	Kind          MovementKind `db:"kind" json:"kind"`
	Quantity      int          `db:"quantity" json:"quantity"`
	Person        string       `db:"person" json:"person"`
	Notes         string       `db:"notes" json:"notes"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// MovementFilter narrows a movement query. Dates are calendar days and both
// ends are inclusive.
type MovementFilter struct {
	PersonContains string
	DateFrom       *time.Time
	DateTo         *time.Time
	ComponentID    *int64
}
