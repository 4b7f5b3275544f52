package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/store"
)

// Taxonomy manages categories and locations.
type Taxonomy struct {
	DB *sqlx.DB
}

func checkTaxonomy(t model.Taxonomy) error {
	if !t.Valid() {
		return &model.ValidationError{Field: "taxonomy", Message: fmt.Sprintf("unknown taxonomy %q", t)}
	}
	return nil
}

func termName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", model.Required("name")
	}
	return name, nil
}

// List returns every term of t alphabetically.
func (ts *Taxonomy) List(ctx context.Context, t model.Taxonomy) ([]model.Term, error) {
	if err := checkTaxonomy(t); err != nil {
		return nil, err
	}
	terms, err := store.ListTerms(ctx, ts.DB, t)
	if err != nil {
		return nil, err
	}
	if terms == nil {
		terms = []model.Term{}
	}
	return terms, nil
}

// Create adds a term.
func (ts *Taxonomy) Create(ctx context.Context, s *model.Session, t model.Taxonomy, name string) (*model.Term, error) {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := checkTaxonomy(t); err != nil {
		return nil, err
	}
	name, err := termName(name)
	if err != nil {
		return nil, err
	}

	term, err := store.CreateTerm(ctx, ts.DB, t, name)
	if err != nil {
		return nil, err
	}
	slog.Info(string(t)+" created", "user", s.Username, "id", term.ID, "name", term.Name)
	return term, nil
}

// Rename changes a term's name.
func (ts *Taxonomy) Rename(ctx context.Context, s *model.Session, t model.Taxonomy, id int64, name string) error {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return err
	}
	if err := checkTaxonomy(t); err != nil {
		return err
	}
	name, err := termName(name)
	if err != nil {
		return err
	}

	if err := store.RenameTerm(ctx, ts.DB, t, id, name); err != nil {
		return err
	}
	slog.Info(string(t)+" renamed", "user", s.Username, "id", id, "name", name)
	return nil
}

// Delete removes a term without checking whether components use it.
func (ts *Taxonomy) Delete(ctx context.Context, s *model.Session, t model.Taxonomy, id int64) error {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return err
	}
	if err := checkTaxonomy(t); err != nil {
		return err
	}

	if err := store.DeleteTerm(ctx, ts.DB, t, id); err != nil {
		return err
	}
	slog.Info(string(t)+" deleted", "user", s.Username, "id", id)
	return nil
}
