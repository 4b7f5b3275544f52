package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/erazemk/komponente/internal/model"
)

// termTable maps a taxonomy to its table. Only these constants ever reach SQL.
func termTable(t model.Taxonomy) (string, error) {
	switch t {
	case model.TaxonomyCategory:
		return "categories", nil
	case model.TaxonomyLocation:
		return "locations", nil
	}
	return "", fmt.Errorf("unknown taxonomy %q", t)
}

// CreateTerm creates a category or location.
func CreateTerm(ctx context.Context, db sqlx.ExtContext, t model.Taxonomy, name string) (*model.Term, error) {
	table, err := termTable(t)
	if err != nil {
		return nil, err
	}

	term := &model.Term{Name: name}
	err = sqlx.GetContext(ctx, db, &term.ID, db.Rebind(
		`INSERT INTO `+table+` (name) VALUES (?) RETURNING id`), name)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", t, err)
	}
	return term, nil
}

// ListTerms returns all terms of a taxonomy in Spanish alphabetical order,
// ignoring case. Names that collate equal keep ID order.
func ListTerms(ctx context.Context, db sqlx.ExtContext, t model.Taxonomy) ([]model.Term, error) {
	table, err := termTable(t)
	if err != nil {
		return nil, err
	}

	var terms []model.Term
	err = sqlx.SelectContext(ctx, db, &terms,
		`SELECT id, name FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", table, err)
	}

	col := collate.New(language.Spanish, collate.IgnoreCase)
	slices.SortStableFunc(terms, func(a, b model.Term) int {
		return col.CompareString(a.Name, b.Name)
	})
	return terms, nil
}

// RenameTerm changes a term's name.
func RenameTerm(ctx context.Context, db sqlx.ExtContext, t model.Taxonomy, id int64, name string) error {
	table, err := termTable(t)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, db.Rebind(
		`UPDATE `+table+` SET name = ? WHERE id = ?`), name, id)
	if err != nil {
		return fmt.Errorf("renaming %s: %w", t, err)
	}
	return expectOne(result, model.ErrNotFound)
}

// DeleteTerm removes a term. Components that referenced it keep existing
// with a null reference.
func DeleteTerm(ctx context.Context, db sqlx.ExtContext, t model.Taxonomy, id int64) error {
	table, err := termTable(t)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, db.Rebind(
		`DELETE FROM `+table+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", t, err)
	}
	return expectOne(result, model.ErrNotFound)
}
