package db

import (
	"database/sql/driver"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
)

// Dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "pgx"
)

// LowerFunc names the SQL function that lowercases text across the full
// Unicode range. SQLite's LOWER folds ASCII only. On SQLite it is registered
// below; on Postgres the schema creates it as a wrapper around lower().
const LowerFunc = "ulower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(LowerFunc, 1, unicodeLower)
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// DialectFor returns the driver name for a DATABASE_URL value.
// Anything that is not a postgres URL is treated as a SQLite path.
func DialectFor(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// IsSQLiteFile reports whether url names an on-disk SQLite database.
func IsSQLiteFile(url string) bool {
	return DialectFor(url) == DialectSQLite && url != ":memory:"
}

// Open connects to the database named by url and configures the connection pool.
func Open(url string) (*sqlx.DB, error) {
	dialect := DialectFor(url)

	dsn := url
	if dialect == DialectSQLite {
		dsn = sqliteDSN(url)
	}

	db, err := sqlx.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every :memory: connection is its own database.
	if url == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}

// sqliteDSN appends per-connection pragmas so they apply to every pooled
// connection, not only the first one.
func sqliteDSN(path string) string {
	pragmas := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=foreign_keys(1)",
		"_pragma=synchronous(NORMAL)",
		"_time_format=sqlite",
		"_txlock=immediate",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(pragmas, "&")
}
