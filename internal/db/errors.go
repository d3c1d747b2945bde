package db

import (
	"errors"
	"fmt"
)

var (
	// ErrQuery marks a metadata query that could not be executed or read
	ErrQuery = errors.New("metadata query failed")
	// ErrInitialization marks a driver or connection that could not be set up
	ErrInitialization = errors.New("initialization failed")
	// ErrUnknownDialect is returned for dialect names missing from the registry
	ErrUnknownDialect = errors.New("unknown dialect")
	// ErrMissingColumn is wrapped in a QueryError when a result set lacks a required column
	ErrMissingColumn = errors.New("missing result column")
)

// Query steps reported by QueryError
const (
	StepSchemas     = "schemas"
	StepTables      = "tables"
	StepTable       = "table"
	StepFields      = "fields"
	StepIndexes     = "indexes"
	StepForeignKeys = "foreign keys"
)

// QueryError wraps a failure of one metadata query
type QueryError struct {
	Step   string
	Schema string
	Table  string
	Err    error
}

func (e *QueryError) Error() string {
	switch {
	case e.Table != "":
		return fmt.Sprintf("failed to query %s of %s.%s: %v", e.Step, e.Schema, e.Table, e.Err)
	case e.Schema != "":
		return fmt.Sprintf("failed to query %s of %s: %v", e.Step, e.Schema, e.Err)
	default:
		return fmt.Sprintf("failed to query %s: %v", e.Step, e.Err)
	}
}

func (e *QueryError) Unwrap() []error {
	return []error{ErrQuery, e.Err}
}

// Reasons reported by InitError
const (
	ReasonDriverNotFound = "driver not found"
	ReasonCannotConnect  = "cannot connect"
	ReasonInvalidDSN     = "invalid dsn"
	ReasonWrongDialect   = "wrong dialect"
)

// InitError wraps a failure to prepare a connection
type InitError struct {
	Driver string
	Reason string
	Err    error
}

func (e *InitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Reason, e.Driver)
	}
	return fmt.Sprintf("%s: %s: %v", e.Reason, e.Driver, e.Err)
}

func (e *InitError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInitialization}
	}
	return []error{ErrInitialization, e.Err}
}
