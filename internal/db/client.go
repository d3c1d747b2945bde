package db

import (
	"context"
	"database/sql"
	"slices"
)

// Client manages a connection opened from a driver name and DSN
type Client struct {
	db     *sql.DB
	driver string
	close  func() error
}

// Connect opens and pings a connection. user and password, when set,
// override the credentials in dsn. Failures are *InitError.
func Connect(ctx context.Context, driver, dsn, user, password string) (*Client, error) {
	if !slices.Contains(sql.Drivers(), driver) {
		return nil, &InitError{Driver: driver, Reason: ReasonDriverNotFound}
	}

	var (
		client *Client
		err    error
	)
	switch driver {
	case "pgx":
		client, err = openPgx(ctx, dsn, user, password)
	case "postgres":
		client, err = openPostgres(dsn, user, password)
	case "mysql":
		client, err = openMySQL(dsn, user, password)
	default:
		client, err = openSQLite(driver, dsn)
	}
	if err != nil {
		return nil, err
	}

	if err := client.db.PingContext(ctx); err != nil {
		_ = client.Close()
		return nil, &InitError{Driver: driver, Reason: ReasonCannotConnect, Err: err}
	}

	return client, nil
}

// DB returns the underlying database handle
func (c *Client) DB() *sql.DB {
	return c.db
}

// Driver returns the database/sql driver name the client was opened with
func (c *Client) Driver() string {
	return c.driver
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.close != nil {
		return c.close()
	}
	return c.db.Close()
}
