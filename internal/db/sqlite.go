package db

import "database/sql"

// openSQLite opens a database file. SQLite has no credentials, so user and
// password are ignored; drivers without special handling are opened the same way.
func openSQLite(driver, path string) (*Client, error) {
	conn, err := sql.Open(driver, path)
	if err != nil {
		return nil, &InitError{Driver: driver, Reason: ReasonInvalidDSN, Err: err}
	}
	return &Client{db: conn, driver: driver}, nil
}
