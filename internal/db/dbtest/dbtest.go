// Package dbtest provides SQLite-backed fixtures for tests that exercise
// metadata traversal without a database server.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	// pure Go driver, registered as "sqlite"
	_ "modernc.org/sqlite"
)

// Open creates an empty SQLite database file in a temporary directory.
// The pool is limited to one connection so ATTACH statements stay visible.
// The connection is closed when the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// Exec runs each statement and fails the test on the first error
func Exec(t testing.TB, conn *sql.DB, statements ...string) {
	t.Helper()

	for _, stmt := range statements {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("failed to execute %q: %v", stmt, err)
		}
	}
}

const fixtureSchema = `
	CREATE TABLE fx_schemas (name TEXT NOT NULL);
	CREATE TABLE fx_tables (schema_name TEXT, label TEXT, name TEXT, comment TEXT);
	CREATE TABLE fx_fields (
		schema_name TEXT, table_name TEXT,
		label TEXT, name TEXT, type TEXT, extra TEXT,
		"notnull" INTEGER, dflt TEXT, comment TEXT
	);
	CREATE TABLE fx_indexes (
		schema_name TEXT, table_name TEXT,
		name TEXT, field_name TEXT, unique_key INTEGER, primary_key INTEGER
	);
	CREATE TABLE fx_foreign_keys (
		schema_name TEXT, table_name TEXT,
		name TEXT, field_name TEXT, ref_table_name TEXT, ref_field_name TEXT
	);
`

// Fixture holds metadata rows that FixtureDialect serves back in insertion
// order, so tests control exactly what a dialect query returns.
type Fixture struct {
	t  testing.TB
	DB *sql.DB
}

// NewFixture opens a database and creates the fixture tables
func NewFixture(t testing.TB) *Fixture {
	t.Helper()

	conn := Open(t)
	Exec(t, conn, fixtureSchema)
	return &Fixture{t: t, DB: conn}
}

// Field describes one fixture column. A nil Default means no default.
type Field struct {
	Name    string
	Type    string
	Extra   string
	NotNull bool
	Default *string
	Comment string
}

// String returns a pointer to s, for Field.Default
func String(s string) *string {
	return &s
}

// Schema adds a schema row
func (f *Fixture) Schema(name string) *Fixture {
	f.exec(`INSERT INTO fx_schemas (name) VALUES (?)`, name)
	return f
}

// Table adds a table row
func (f *Fixture) Table(schemaName, name, comment string) *Fixture {
	f.exec(`INSERT INTO fx_tables VALUES (?, ?, ?, ?)`, schemaName, name, name, comment)
	return f
}

// Field adds a field row
func (f *Fixture) Field(schemaName, tableName string, fd Field) *Fixture {
	var dflt any
	if fd.Default != nil {
		dflt = *fd.Default
	}
	f.exec(`INSERT INTO fx_fields VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		schemaName, tableName, fd.Name, fd.Name, fd.Type, fd.Extra, fd.NotNull, dflt, fd.Comment)
	return f
}

// Index adds one index row; rows sharing a name describe one index
func (f *Fixture) Index(schemaName, tableName, name, field string, unique, primary bool) *Fixture {
	f.exec(`INSERT INTO fx_indexes VALUES (?, ?, ?, ?, ?, ?)`,
		schemaName, tableName, name, field, unique, primary)
	return f
}

// ForeignKey adds one foreign key row; rows sharing a name describe one constraint
func (f *Fixture) ForeignKey(schemaName, tableName, name, field, refTable, refField string) *Fixture {
	f.exec(`INSERT INTO fx_foreign_keys VALUES (?, ?, ?, ?, ?, ?)`,
		schemaName, tableName, name, field, refTable, refField)
	return f
}

func (f *Fixture) exec(query string, args ...any) {
	f.t.Helper()
	if _, err := f.DB.Exec(query, args...); err != nil {
		f.t.Fatalf("failed to insert fixture row: %v", err)
	}
}

// Broken is a query that fails when executed
const Broken = `SELECT name FROM fx_missing`

// FixtureDialect serves the rows of a Fixture.
// A non-empty *Query field replaces the corresponding query.
type FixtureDialect struct {
	NoIndexes     bool
	NoForeignKeys bool

	SchemaQuery string
	TablesQuery string
	FieldsQuery string
	IndexQuery  string
}

func (FixtureDialect) Name() string { return "fixture" }

func (d FixtureDialect) SchemaSQL() string {
	return or(d.SchemaQuery, `SELECT name FROM fx_schemas ORDER BY rowid`)
}

func (d FixtureDialect) TableListSQL() string {
	return or(d.TablesQuery, `
		SELECT label, name, comment FROM fx_tables
		WHERE schema_name = ?1
		ORDER BY rowid
	`)
}

func (FixtureDialect) TableSQL() string {
	return `
		SELECT label, name, comment FROM fx_tables
		WHERE schema_name = ?1 AND name = ?2
		ORDER BY rowid
	`
}

func (d FixtureDialect) FieldSQL() string {
	return or(d.FieldsQuery, `
		SELECT label, name, type, extra, "notnull", dflt AS "default", comment
		FROM fx_fields
		WHERE schema_name = ?1 AND table_name = ?2
		ORDER BY rowid
	`)
}

func (d FixtureDialect) IndexSQL() string {
	if d.NoIndexes {
		return ""
	}
	return or(d.IndexQuery, `
		SELECT name, field_name, unique_key, primary_key
		FROM fx_indexes
		WHERE schema_name = ?1 AND table_name = ?2
		ORDER BY rowid
	`)
}

func (d FixtureDialect) ForeignKeySQL() string {
	if d.NoForeignKeys {
		return ""
	}
	return `
		SELECT name, field_name, ref_table_name, ref_field_name
		FROM fx_foreign_keys
		WHERE schema_name = ?1 AND table_name = ?2
		ORDER BY rowid
	`
}

func or(override, query string) string {
	if override != "" {
		return override
	}
	return query
}
