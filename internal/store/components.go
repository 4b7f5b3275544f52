package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/komponente/internal/model"
)

const componentSelect = `SELECT c.id, c.name, c.description, c.quantity,
       c.category_id, cat.name AS category_name,
       c.location_id, loc.name AS location_name,
       c.status, c.image_url, c.created_at, c.updated_at
FROM components c
LEFT JOIN categories cat ON cat.id = c.category_id
LEFT JOIN locations loc ON loc.id = c.location_id`

// ComponentFilter builds the predicate shared by listings and reports.
func ComponentFilter(f model.ComponentFilter) *Filter {
	var filter Filter
	return filter.
		Contains("c.name", f.NameContains).
		Equal("c.category_id", f.CategoryID).
		Equal("c.location_id", f.LocationID)
}

// ListComponents returns components matching f, ordered by ID.
func ListComponents(ctx context.Context, db sqlx.ExtContext, f model.ComponentFilter) ([]model.Component, error) {
	where, args, err := ComponentFilter(f).SQL()
	if err != nil {
		return nil, fmt.Errorf("filtering components: %w", err)
	}

	var components []model.Component
	err = sqlx.SelectContext(ctx, db, &components,
		db.Rebind(componentSelect+where+` ORDER BY c.id`), args...)
	if err != nil {
		return nil, fmt.Errorf("listing components: %w", err)
	}
	return components, nil
}

// GetComponent returns a component by ID, or nil if it does not exist.
func GetComponent(ctx context.Context, db sqlx.ExtContext, id int64) (*model.Component, error) {
	c := &model.Component{}
	err := sqlx.GetContext(ctx, db, c, db.Rebind(componentSelect+` WHERE c.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting component: %w", err)
	}
	return c, nil
}

// CreateComponent inserts a component. imageURL may be nil.
func CreateComponent(ctx context.Context, db sqlx.ExtContext, in model.ComponentInput, imageURL *string) (*model.Component, error) {
	ts := now()

	var id int64
	err := sqlx.GetContext(ctx, db, &id, db.Rebind(
		`INSERT INTO components
		   (name, description, quantity, category_id, location_id, status, image_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		in.Name, in.Description, in.Quantity, in.CategoryID, in.LocationID, in.Status, imageURL, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating component: %w", err)
	}

	return GetComponent(ctx, db, id)
}

// UpdateComponent overwrites a component's fields. A nil imageURL keeps the
// stored image reference.
func UpdateComponent(ctx context.Context, db sqlx.ExtContext, id int64, in model.ComponentInput, imageURL *string) error {
	result, err := db.ExecContext(ctx, db.Rebind(
		`UPDATE components
		 SET name = ?, description = ?, quantity = ?, category_id = ?, location_id = ?,
		     status = ?, image_url = COALESCE(?, image_url), updated_at = ?
		 WHERE id = ?`),
		in.Name, in.Description, in.Quantity, in.CategoryID, in.LocationID,
		in.Status, imageURL, now(), id,
	)
	if err != nil {
		return fmt.Errorf("updating component: %w", err)
	}
	return expectOne(result, model.ErrComponentNotFound)
}

// DeleteComponent removes a component row.
func DeleteComponent(ctx context.Context, db sqlx.ExtContext, id int64) error {
	result, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM components WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting component: %w", err)
	}
	return expectOne(result, model.ErrComponentNotFound)
}
