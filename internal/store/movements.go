package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/komponente/internal/model"
)

const movementSelect = `SELECT m.id, m.component_id, c.name AS component_name,
       m.kind, m.quantity, m.person, m.notes, m.created_at
FROM movements m
JOIN components c ON c.id = m.component_id`

// ApplyMovement adjusts the component's stock by delta and appends the
// movement in one transaction. The stock update is guarded in SQL, so
// concurrent callers can never drive quantity below zero or above
// model.MaxQuantity: when the guard rejects the update nothing is written and
// model.ErrInsufficientStock, model.ErrInvalidQuantity or
// model.ErrComponentNotFound is returned.
func ApplyMovement(ctx context.Context, db *sqlx.DB, m model.Movement, delta int) (*model.Movement, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, tx.Rebind(
		`UPDATE components SET quantity = quantity + ?, updated_at = ?
		 WHERE id = ? AND quantity + CAST(? AS BIGINT) BETWEEN 0 AND ?`),
		delta, now(), m.ComponentID, delta, model.MaxQuantity,
	)
	if err != nil {
		return nil, fmt.Errorf("updating stock: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("reading affected rows: %w", err)
	} else if n == 0 {
		c, err := GetComponent(ctx, tx, m.ComponentID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, model.ErrComponentNotFound
		}
		if delta > 0 {
			return nil, fmt.Errorf("%w: stock of %d cannot grow by %d", model.ErrInvalidQuantity, c.Quantity, delta)
		}
		return nil, fmt.Errorf("%w: have %d, need %d", model.ErrInsufficientStock, c.Quantity, -delta)
	}

	m.CreatedAt = now()
	err = sqlx.GetContext(ctx, tx, &m.ID, tx.Rebind(
		`INSERT INTO movements (component_id, kind, quantity, person, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		m.ComponentID, m.Kind, m.Quantity, m.Person, m.Notes, m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording movement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing movement: %w", err)
	}

	return GetMovement(ctx, db, m.ID)
}

// GetMovement returns a movement by ID, or nil if it does not exist.
func GetMovement(ctx context.Context, db sqlx.ExtContext, id int64) (*model.Movement, error) {
	m := &model.Movement{}
	err := sqlx.GetContext(ctx, db, m, db.Rebind(movementSelect+` WHERE m.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting movement: %w", err)
	}
	return m, nil
}

// MovementFilter builds the predicate shared by the ledger view and reports.
func MovementFilter(f model.MovementFilter) *Filter {
	var filter Filter
	return filter.
		Contains("m.person", f.PersonContains).
		OnOrAfter("m.created_at", f.DateFrom).
		OnOrBefore("m.created_at", f.DateTo).
		Equal("m.component_id", f.ComponentID)
}

// ListMovements returns movements matching f, newest first.
func ListMovements(ctx context.Context, db sqlx.ExtContext, f model.MovementFilter) ([]model.Movement, error) {
	where, args, err := MovementFilter(f).SQL()
	if err != nil {
		return nil, fmt.Errorf("filtering movements: %w", err)
	}

	var movements []model.Movement
	err = sqlx.SelectContext(ctx, db, &movements,
		db.Rebind(movementSelect+where+` ORDER BY m.created_at DESC, m.id DESC`), args...)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	return movements, nil
}

// DeleteComponentMovements removes the whole history of a component and
// returns how many movements were deleted.
func DeleteComponentMovements(ctx context.Context, db sqlx.ExtContext, componentID int64) (int64, error) {
	result, err := db.ExecContext(ctx, db.Rebind(
		`DELETE FROM movements WHERE component_id = ?`), componentID)
	if err != nil {
		return 0, fmt.Errorf("deleting movements: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}
