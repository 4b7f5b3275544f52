// Package store holds the SQL for every table. Functions take the database
// handle explicitly and work with both SQLite and PostgreSQL; queries are
// written with ? placeholders and rebound for the active driver.
package store

import (
	"database/sql"
	"fmt"
	"time"
)

// now returns the timestamp stored on new rows.
func now() time.Time {
	return time.Now().UTC()
}

// expectOne returns notFound when a write matched no rows.
func expectOne(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
