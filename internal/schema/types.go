package schema

import "github.com/aarondl/opt/null"

// Database is the root aggregate produced by one traversal.
// Tables keep discovery order; (schema, table) pairs are unique under case folding.
type Database struct {
	Tables []*Table

	keys map[tableKey]*Table
}

type tableKey struct {
	schema string
	table  string
}

// NewDatabase creates an empty database model
func NewDatabase() *Database {
	return &Database{keys: make(map[tableKey]*Table)}
}

// AddTable appends t unless a table with the same schema and name is already
// present, in which case the existing table is kept and false is returned.
func (d *Database) AddTable(t *Table) bool {
	if d.keys == nil {
		d.keys = make(map[tableKey]*Table)
	}

	key := tableKey{schema: Fold(t.SchemaName()), table: Fold(t.Name)}
	if _, ok := d.keys[key]; ok {
		return false
	}

	d.keys[key] = t
	d.Tables = append(d.Tables, t)
	return true
}

// Table looks up a table by schema and name, ignoring case
func (d *Database) Table(schemaName, tableName string) *Table {
	return d.keys[tableKey{schema: Fold(schemaName), table: Fold(tableName)}]
}

// Schema is a database namespace
type Schema struct {
	Name string
}

// Table represents a database table
type Table struct {
	Schema  *Schema
	Name    string
	Label   string
	Comment string

	// Fields are ordered by column ordinal position
	Fields []*Field
	// Indexes and ForeignKeys are ordered by first appearance
	Indexes     []*Index
	ForeignKeys []*ForeignKey

	indexes     map[string]*Index
	foreignKeys map[string]*ForeignKey
}

// SchemaName returns the owning schema's name, or "" when the table is unscoped
func (t *Table) SchemaName() string {
	if t.Schema == nil {
		return ""
	}
	return t.Schema.Name
}

// QualifiedName returns schema.table
func (t *Table) QualifiedName() string {
	if t.Schema == nil || t.Schema.Name == "" {
		return t.Name
	}
	return t.Schema.Name + "." + t.Name
}

// AddField appends a field
func (t *Table) AddField(f *Field) {
	t.Fields = append(t.Fields, f)
}

// Field returns the field with the given name, or nil
func (t *Table) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// AddIndex registers an index. An index whose name is already registered is ignored.
func (t *Table) AddIndex(idx *Index) {
	if t.indexes == nil {
		t.indexes = make(map[string]*Index)
	}
	if _, ok := t.indexes[idx.Name]; ok {
		return
	}
	t.indexes[idx.Name] = idx
	t.Indexes = append(t.Indexes, idx)
}

// Index returns the index with the given name, or nil
func (t *Table) Index(name string) *Index {
	return t.indexes[name]
}

// PrimaryKey returns the primary key index, or nil
func (t *Table) PrimaryKey() *Index {
	for _, idx := range t.Indexes {
		if idx.PrimaryKey {
			return idx
		}
	}
	return nil
}

// AddForeignKey registers a foreign key. A name that is already registered is ignored.
func (t *Table) AddForeignKey(fk *ForeignKey) {
	if t.foreignKeys == nil {
		t.foreignKeys = make(map[string]*ForeignKey)
	}
	if _, ok := t.foreignKeys[fk.Name]; ok {
		return
	}
	t.foreignKeys[fk.Name] = fk
	t.ForeignKeys = append(t.ForeignKeys, fk)
}

// ForeignKey returns the foreign key with the given name, or nil
func (t *Table) ForeignKey(name string) *ForeignKey {
	return t.foreignKeys[name]
}

// FieldType describes a column type as reported by the database
type FieldType struct {
	Label string
}

// Field represents a table column
type Field struct {
	Name    string
	Label   string
	Type    FieldType
	Extra   string
	NotNull bool
	// Default is null when the column has no default. A present value is kept verbatim.
	Default null.Val[string]
	Comment string
}

// HasDefault reports whether the column declares a default value
func (f *Field) HasDefault() bool {
	return f.Default.IsValue()
}

// DefaultValue returns the declared default, or "" when there is none
func (f *Field) DefaultValue() string {
	return f.Default.GetOrZero()
}

// IndexField is a column reference inside an index
type IndexField struct {
	Name string
}

// Index represents a database index
type Index struct {
	Name       string
	PrimaryKey bool
	Unique     bool
	Fields     []IndexField
}

// AddField appends a column to the index. Duplicates are kept.
func (i *Index) AddField(name string) {
	i.Fields = append(i.Fields, IndexField{Name: name})
}

// FieldNames returns the index's column names in order
func (i *Index) FieldNames() []string {
	names := make([]string, len(i.Fields))
	for n, f := range i.Fields {
		names[n] = f.Name
	}
	return names
}

// ForeignKeyField is a column reference inside a foreign key
type ForeignKeyField struct {
	Name string
}

// ForeignKey represents a foreign key constraint.
// Fields[i] references ReferenceFields[i].
type ForeignKey struct {
	Name               string
	ReferenceTableName string
	Fields             []ForeignKeyField
	ReferenceFields    []ForeignKeyField
}

// AddFieldPair appends a local column and the column it references
func (fk *ForeignKey) AddFieldPair(field, referenceField string) {
	fk.Fields = append(fk.Fields, ForeignKeyField{Name: field})
	fk.ReferenceFields = append(fk.ReferenceFields, ForeignKeyField{Name: referenceField})
}

// FieldNames returns the local column names in order
func (fk *ForeignKey) FieldNames() []string {
	return foreignKeyNames(fk.Fields)
}

// ReferenceFieldNames returns the referenced column names in order
func (fk *ForeignKey) ReferenceFieldNames() []string {
	return foreignKeyNames(fk.ReferenceFields)
}

func foreignKeyNames(fields []ForeignKeyField) []string {
	names := make([]string, len(fields))
	for n, f := range fields {
		names[n] = f.Name
	}
	return names
}
