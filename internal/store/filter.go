package store

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/komponente/internal/db"
)

// Filter composes optional predicates into a WHERE clause joined with AND.
// Methods that receive a zero value add nothing, so callers can chain
// optional filters without branching.
type Filter struct {
	preds sq.And
}

// Where adds a raw predicate. Use ? placeholders for args.
func (f *Filter) Where(pred string, args ...any) *Filter {
	f.preds = append(f.preds, sq.Expr(pred, args...))
	return f
}

// Contains adds a case-insensitive substring match on column. Case folding
// covers the full Unicode range, so "ÓHMETRO" matches "Óhmetro".
func (f *Filter) Contains(column, value string) *Filter {
	value = strings.TrimSpace(value)
	if value == "" {
		return f
	}
	return f.Where(db.LowerFunc+"("+column+") LIKE ? ESCAPE '\\'",
		"%"+escapeLike(strings.ToLower(value))+"%")
}

// Equal adds column = value when value is set.
func (f *Filter) Equal(column string, value *int64) *Filter {
	if value == nil {
		return f
	}
	f.preds = append(f.preds, sq.Eq{column: *value})
	return f
}

// OnOrAfter adds column >= the start of day's calendar day.
func (f *Filter) OnOrAfter(column string, day *time.Time) *Filter {
	if day == nil {
		return f
	}
	f.preds = append(f.preds, sq.GtOrEq{column: startOfDay(*day)})
	return f
}

// OnOrBefore adds column < the start of the day after day, so the whole
// calendar day is included.
func (f *Filter) OnOrBefore(column string, day *time.Time) *Filter {
	if day == nil {
		return f
	}
	f.preds = append(f.preds, sq.Lt{column: startOfDay(*day).AddDate(0, 0, 1)})
	return f
}

// Len returns the number of predicates.
func (f *Filter) Len() int {
	return len(f.preds)
}

// SQL renders the filter as " WHERE (...)" with ? placeholders and its
// arguments in order. An empty filter renders as "".
func (f *Filter) SQL() (string, []any, error) {
	if len(f.preds) == 0 {
		return "", nil, nil
	}

	where, args, err := f.preds.ToSql()
	if err != nil {
		return "", nil, err
	}
	return " WHERE " + where, args, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
