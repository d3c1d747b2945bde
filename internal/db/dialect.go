package db

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
)

// Dialect supplies the metadata queries of one database product.
//
// Every query takes the placeholders its product expects. TableListSQL takes
// the schema name; TableSQL, FieldSQL, IndexSQL and ForeignKeySQL take the
// schema name then the table name. Result columns are matched by name:
//
//	schemas:      name
//	tables:       label, name, comment
//	fields:       label, name, type, extra, notnull, default, comment
//	indexes:      name, field_name, unique_key, primary_key
//	foreign keys: name, field_name, ref_table_name, ref_field_name
//
// IndexSQL and ForeignKeySQL may return "" when the product has no such
// metadata; the step is then skipped for every table.
type Dialect interface {
	Name() string
	SchemaSQL() string
	TableListSQL() string
	TableSQL() string
	FieldSQL() string
	IndexSQL() string
	ForeignKeySQL() string
}

// Dialect names
const (
	PostgreSQL = "postgresql"
	MySQL      = "mysql"
	SQLite     = "sqlite"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Dialect{}
)

func init() {
	Register(PostgresDialect{})
	Register(MySQLDialect{})
	Register(SQLiteDialect{})
}

// Register adds d to the registry under d.Name(), replacing any previous entry
func Register(d Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(d.Name())] = d
}

// Lookup returns the dialect registered under name
func Lookup(name string) (Dialect, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
	return d, nil
}

// Dialects returns the registered dialect names, sorted
func Dialects() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Drivers returns the database/sql driver names Connect understands
func Drivers() []string {
	names := make([]string, 0, len(driverDialects))
	for name := range driverDialects {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var driverDialects = map[string]string{
	"pgx":      PostgreSQL,
	"postgres": PostgreSQL,
	"mysql":    MySQL,
	"sqlite3":  SQLite,
	"sqlite":   SQLite,
}

// DialectForDriver maps a database/sql driver name to its dialect
func DialectForDriver(driver string) (Dialect, error) {
	name, ok := driverDialects[strings.ToLower(driver)]
	if !ok {
		return nil, fmt.Errorf("%w for driver %q", ErrUnknownDialect, driver)
	}
	return Lookup(name)
}

// CheckDriver returns an *InitError when driver belongs to one of the shipped
// dialects but d is a different one. Other dialects accept any driver.
func CheckDriver(d Dialect, driver string) error {
	want, ok := driverDialects[strings.ToLower(driver)]
	if !ok || want == d.Name() {
		return nil
	}
	for _, name := range driverDialects {
		if name == d.Name() {
			return &InitError{
				Driver: driver,
				Reason: ReasonWrongDialect,
				Err:    fmt.Errorf("driver reads %s, not %s", want, d.Name()),
			}
		}
	}
	return nil
}

// InferDialect picks the dialect matching the driver behind conn
func InferDialect(conn *sql.DB) (Dialect, error) {
	switch drv := conn.Driver().(type) {
	case *stdlib.Driver, *pq.Driver:
		return Lookup(PostgreSQL)
	case *mysql.MySQLDriver:
		return Lookup(MySQL)
	case *sqlite3.SQLiteDriver, *sqlite.Driver:
		return Lookup(SQLite)
	default:
		return nil, fmt.Errorf("%w for driver %T", ErrUnknownDialect, drv)
	}
}
