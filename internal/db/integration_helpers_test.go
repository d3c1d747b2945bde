//go:build integration

package db

import (
	"context"
	"net"
	"slices"
	"testing"

	"github.com/tordrt/dbdefinition/internal/schema"
)

// loadSchema lists the tables of schemaName and loads every one of them
func loadSchema(t *testing.T, def *Definition, schemaName string) []*schema.Table {
	t.Helper()
	ctx := context.Background()

	schemas, err := def.Schemas(ctx)
	if err != nil {
		t.Fatalf("failed to list schemas: %v", err)
	}
	idx := slices.IndexFunc(schemas, func(s *schema.Schema) bool { return s.Name == schemaName })
	if idx < 0 {
		t.Fatalf("schema %s not found", schemaName)
	}

	tables, err := def.Tables(ctx, schemas[idx])
	if err != nil {
		t.Fatalf("failed to list tables: %v", err)
	}
	for _, table := range tables {
		if err := def.LoadTable(ctx, table); err != nil {
			t.Fatalf("failed to load table %s: %v", table.Name, err)
		}
	}
	return tables
}

// verifyTablesExist checks that exactly the expected tables are present
func verifyTablesExist(t *testing.T, tables []*schema.Table, expectedTables []string) {
	t.Helper()

	if len(tables) != len(expectedTables) {
		t.Errorf("Expected %d tables, got %d", len(expectedTables), len(tables))
	}
	for _, name := range expectedTables {
		if findTable(tables, name) == nil {
			t.Errorf("Expected table %s not found in schema", name)
		}
	}
}

// verifyColumns checks that fields appear in the expected order
func verifyColumns(t *testing.T, table *schema.Table, expectedColumns []string) {
	t.Helper()

	var got []string
	for _, f := range table.Fields {
		got = append(got, f.Name)
	}
	if !slices.Equal(got, expectedColumns) {
		t.Errorf("Expected columns %v in %s table, got %v", expectedColumns, table.Name, got)
	}
}

// verifyPrimaryKey checks that a table has the expected primary key
func verifyPrimaryKey(t *testing.T, table *schema.Table, expectedPK []string) {
	t.Helper()

	pk := table.PrimaryKey()
	if pk == nil {
		t.Errorf("Expected primary key %v on %s, got none", expectedPK, table.Name)
		return
	}
	if !slices.Equal(pk.FieldNames(), expectedPK) {
		t.Errorf("Expected primary key %v, got %v", expectedPK, pk.FieldNames())
	}
}

// verifyForeignKey checks that a foreign key from sourceColumn to targetTable exists
func verifyForeignKey(t *testing.T, table *schema.Table, sourceColumn, targetTable, targetColumn string) {
	t.Helper()

	for _, fk := range table.ForeignKeys {
		if len(fk.Fields) != len(fk.ReferenceFields) {
			t.Errorf("Foreign key %s has %d fields but %d reference fields", fk.Name, len(fk.Fields), len(fk.ReferenceFields))
		}
		if fk.ReferenceTableName != targetTable {
			continue
		}
		for i, f := range fk.Fields {
			if f.Name == sourceColumn && fk.ReferenceFields[i].Name == targetColumn {
				return
			}
		}
	}

	t.Errorf("Expected foreign key from %s.%s to %s.%s not found", table.Name, sourceColumn, targetTable, targetColumn)
}

// verifyIndex checks that an index exists with the expected columns
func verifyIndex(t *testing.T, table *schema.Table, indexName string, unique bool, expectedColumns []string) {
	t.Helper()

	idx := table.Index(indexName)
	if idx == nil {
		t.Errorf("Expected index %s on %s table not found", indexName, table.Name)
		return
	}
	if idx.Unique != unique {
		t.Errorf("Expected index %s unique=%v, got %v", indexName, unique, idx.Unique)
	}
	if !slices.Equal(idx.FieldNames(), expectedColumns) {
		t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.FieldNames())
	}
}

// verifyDefault checks a field's default; a nil want means no default
func verifyDefault(t *testing.T, table *schema.Table, fieldName string, want *string) {
	t.Helper()

	f := table.Field(fieldName)
	if f == nil {
		t.Errorf("Column %s not found in table %s", fieldName, table.Name)
		return
	}
	switch {
	case want == nil && f.HasDefault():
		t.Errorf("Expected %s.%s to have no default, got %q", table.Name, fieldName, f.DefaultValue())
	case want != nil && !f.HasDefault():
		t.Errorf("Expected %s.%s default %q, got none", table.Name, fieldName, *want)
	case want != nil && f.DefaultValue() != *want:
		t.Errorf("Expected %s.%s default %q, got %q", table.Name, fieldName, *want, f.DefaultValue())
	}
}

// findTable finds a table by name
func findTable(tables []*schema.Table, tableName string) *schema.Table {
	for _, table := range tables {
		if table.Name == tableName {
			return table
		}
	}
	return nil
}

func mustTable(t *testing.T, tables []*schema.Table, tableName string) *schema.Table {
	t.Helper()
	table := findTable(tables, tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}
	return table
}

func getFreePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not get a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func ptr(s string) *string {
	return &s
}
