// Package filter decides which schemas and tables a traversal materializes.
package filter

import (
	"strings"

	"github.com/tordrt/dbdefinition/internal/schema"
)

// Option holds include and exclude rules for schemas and tables.
//
// Rules are exact names compared without regard to case; there is no
// wildcard syntax. A table rule may be qualified as "schema.table", in which
// case both parts must match. Exclusions always win over inclusions, and an
// empty include list admits everything that is not excluded.
//
// A nil *Option admits everything.
type Option struct {
	IncludeSchemas []string `koanf:"include_schemas"`
	ExcludeSchemas []string `koanf:"exclude_schemas"`
	IncludeTables  []string `koanf:"include_tables"`
	ExcludeTables  []string `koanf:"exclude_tables"`
}

// New creates an Option that admits everything
func New() *Option {
	return &Option{}
}

// AddIncludeSchema admits only the named schemas (plus any others added)
func (o *Option) AddIncludeSchema(name string) *Option {
	o.IncludeSchemas = append(o.IncludeSchemas, name)
	return o
}

// AddExcludeSchema rejects the named schema
func (o *Option) AddExcludeSchema(name string) *Option {
	o.ExcludeSchemas = append(o.ExcludeSchemas, name)
	return o
}

// AddIncludeTable admits the named table in any schema
func (o *Option) AddIncludeTable(name string) *Option {
	o.IncludeTables = append(o.IncludeTables, name)
	return o
}

// AddIncludeTableIn admits the named table in one schema
func (o *Option) AddIncludeTableIn(schemaName, name string) *Option {
	return o.AddIncludeTable(schemaName + "." + name)
}

// AddExcludeTable rejects the named table in any schema
func (o *Option) AddExcludeTable(name string) *Option {
	o.ExcludeTables = append(o.ExcludeTables, name)
	return o
}

// AddExcludeTableIn rejects the named table in one schema
func (o *Option) AddExcludeTableIn(schemaName, name string) *Option {
	return o.AddExcludeTable(schemaName + "." + name)
}

// SchemaEnabled reports whether a schema should be traversed
func (o *Option) SchemaEnabled(name string) bool {
	if o == nil {
		return true
	}

	for _, pattern := range o.ExcludeSchemas {
		if schema.SameName(pattern, name) {
			return false
		}
	}

	if len(o.IncludeSchemas) == 0 {
		return true
	}

	for _, pattern := range o.IncludeSchemas {
		if schema.SameName(pattern, name) {
			return true
		}
	}
	return false
}

// TableEnabled reports whether a table in the given schema should be materialized
func (o *Option) TableEnabled(schemaName, tableName string) bool {
	if o == nil {
		return true
	}

	for _, pattern := range o.ExcludeTables {
		if matchTable(pattern, schemaName, tableName) {
			return false
		}
	}

	if len(o.IncludeTables) == 0 {
		return true
	}

	for _, pattern := range o.IncludeTables {
		if matchTable(pattern, schemaName, tableName) {
			return true
		}
	}
	return false
}

// matchTable splits a pattern on its first dot.
func matchTable(pattern, schemaName, tableName string) bool {
	if s, t, ok := strings.Cut(pattern, "."); ok {
		return schema.SameName(s, schemaName) && schema.SameName(t, tableName)
	}
	return schema.SameName(pattern, tableName)
}
