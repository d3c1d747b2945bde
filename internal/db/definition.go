package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"slices"

	"github.com/aarondl/opt/null"
	"github.com/stephenafamo/scan"
	"go.uber.org/zap"

	"github.com/tordrt/dbdefinition/internal/schema"
)

// Queryer runs a parameterized query. *sql.DB, *sql.Conn and *sql.Tx satisfy it.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type schemaRow struct {
	Name string `db:"name"`
}

type tableRow struct {
	Label   sql.NullString `db:"label"`
	Name    string         `db:"name"`
	Comment sql.NullString `db:"comment"`
}

type fieldRow struct {
	Label   sql.NullString `db:"label"`
	Name    string         `db:"name"`
	Type    sql.NullString `db:"type"`
	Extra   sql.NullString `db:"extra"`
	NotNull bool           `db:"notnull"`
	Default sql.NullString `db:"default"`
	Comment sql.NullString `db:"comment"`
}

type indexRow struct {
	Name       string `db:"name"`
	FieldName  string `db:"field_name"`
	UniqueKey  bool   `db:"unique_key"`
	PrimaryKey bool   `db:"primary_key"`
}

type foreignKeyRow struct {
	Name         string         `db:"name"`
	FieldName    string         `db:"field_name"`
	RefTableName string         `db:"ref_table_name"`
	RefFieldName sql.NullString `db:"ref_field_name"`
}

// Definition runs a dialect's metadata queries against one connection and
// maps the rows into the schema model.
type Definition struct {
	conn    Queryer
	dialect Dialect
	log     *zap.Logger
}

// NewDefinition creates a Definition. A nil logger discards output.
func NewDefinition(conn Queryer, dialect Dialect, log *zap.Logger) *Definition {
	if log == nil {
		log = zap.NewNop()
	}
	return &Definition{
		conn:    conn,
		dialect: dialect,
		log:     log.With(zap.String("dialect", dialect.Name())),
	}
}

// Dialect returns the dialect whose queries this Definition runs
func (d *Definition) Dialect() Dialect {
	return d.dialect
}

// Schemas lists the schemas of the database, in the dialect's order
func (d *Definition) Schemas(ctx context.Context) ([]*schema.Schema, error) {
	var schemas []*schema.Schema
	q := &QueryError{Step: StepSchemas}
	err := each(ctx, d, q, d.dialect.SchemaSQL(), nil, func(r schemaRow) {
		schemas = append(schemas, &schema.Schema{Name: r.Name})
	})
	return schemas, err
}

// Tables lists the tables of s without fields, indexes or foreign keys
func (d *Definition) Tables(ctx context.Context, s *schema.Schema) ([]*schema.Table, error) {
	var tables []*schema.Table
	q := &QueryError{Step: StepTables, Schema: s.Name}
	err := each(ctx, d, q, d.dialect.TableListSQL(), []any{s.Name}, func(r tableRow) {
		tables = append(tables, newTable(s, r))
	})
	return tables, err
}

// Table fetches a single table with its fields, indexes and foreign keys.
// It returns nil without error when the table does not exist.
func (d *Definition) Table(ctx context.Context, s *schema.Schema, name string) (*schema.Table, error) {
	var table *schema.Table
	q := &QueryError{Step: StepTable, Schema: s.Name, Table: name}
	err := each(ctx, d, q, d.dialect.TableSQL(), []any{s.Name, name}, func(r tableRow) {
		if table == nil {
			table = newTable(s, r)
		}
	})
	if err != nil || table == nil {
		return nil, err
	}

	if err := d.LoadTable(ctx, table); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadTable populates t with fields, then indexes, then foreign keys.
// Index and foreign key steps are skipped when the dialect has no query for them.
func (d *Definition) LoadTable(ctx context.Context, t *schema.Table) error {
	if err := d.loadFields(ctx, t); err != nil {
		return err
	}
	if err := d.loadIndexes(ctx, t); err != nil {
		return err
	}
	return d.loadForeignKeys(ctx, t)
}

func (d *Definition) loadFields(ctx context.Context, t *schema.Table) error {
	q := &QueryError{Step: StepFields, Schema: t.SchemaName(), Table: t.Name}
	return each(ctx, d, q, d.dialect.FieldSQL(), tableArgs(t), func(r fieldRow) {
		t.AddField(&schema.Field{
			Name:    r.Name,
			Label:   r.Label.String,
			Type:    schema.FieldType{Label: r.Type.String},
			Extra:   r.Extra.String,
			NotNull: r.NotNull,
			Default: nullDefault(r.Default),
			Comment: r.Comment.String,
		})
	})
}

func (d *Definition) loadIndexes(ctx context.Context, t *schema.Table) error {
	query := d.dialect.IndexSQL()
	if query == "" {
		return nil
	}

	q := &QueryError{Step: StepIndexes, Schema: t.SchemaName(), Table: t.Name}
	return each(ctx, d, q, query, tableArgs(t), func(r indexRow) {
		idx := t.Index(r.Name)
		if idx == nil {
			idx = &schema.Index{Name: r.Name, PrimaryKey: r.PrimaryKey, Unique: r.UniqueKey}
			t.AddIndex(idx)
		}
		idx.AddField(r.FieldName)
	})
}

func (d *Definition) loadForeignKeys(ctx context.Context, t *schema.Table) error {
	query := d.dialect.ForeignKeySQL()
	if query == "" {
		return nil
	}

	q := &QueryError{Step: StepForeignKeys, Schema: t.SchemaName(), Table: t.Name}
	return each(ctx, d, q, query, tableArgs(t), func(r foreignKeyRow) {
		fk := t.ForeignKey(r.Name)
		if fk == nil {
			fk = &schema.ForeignKey{Name: r.Name, ReferenceTableName: r.RefTableName}
			t.AddForeignKey(fk)
		}
		fk.AddFieldPair(r.FieldName, r.RefFieldName.String)
	})
}

// each runs query and hands every mapped row to fn. The rows are fully read
// and released before each returns, so callers may issue further queries on
// the same connection.
func each[T any](ctx context.Context, d *Definition, qe *QueryError, query string, args []any, fn func(T)) error {
	log := d.log.With(zap.String("step", qe.Step))
	if qe.Schema != "" {
		log = log.With(zap.String("schema", qe.Schema))
	}
	if qe.Table != "" {
		log = log.With(zap.String("table", qe.Table))
	}
	log.Debug("running metadata query")

	fail := func(err error) error {
		qe.Err = err
		return qe
	}

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fail(err)
	}

	if err := requireColumns[T](rows); err != nil {
		release(log, rows)
		return fail(err)
	}

	cursor, err := scan.CursorFromRows(ctx, scan.StructMapper[T](), rows)
	if err != nil {
		release(log, rows)
		return fail(err)
	}
	defer release(log, cursor)

	for cursor.Next() {
		row, err := cursor.Get()
		if err != nil {
			return fail(err)
		}
		fn(row)
	}
	if err := cursor.Err(); err != nil {
		return fail(err)
	}
	return nil
}

// requireColumns checks that rows has every column the struct mapper for T
// reads. The mapper leaves fields without a column at their zero value.
func requireColumns[T any](rows *sql.Rows) error {
	want, err := scan.StructMapperColumns[T]()
	if err != nil {
		return err
	}
	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	for _, name := range want {
		if !slices.Contains(columns, name) {
			return fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
	}
	return nil
}

func release(log *zap.Logger, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn("failed to release result set", zap.Error(err))
	}
}

func newTable(s *schema.Schema, r tableRow) *schema.Table {
	return &schema.Table{
		Schema:  s,
		Name:    r.Name,
		Label:   r.Label.String,
		Comment: r.Comment.String,
	}
}

func tableArgs(t *schema.Table) []any {
	return []any{t.SchemaName(), t.Name}
}

func nullDefault(v sql.NullString) null.Val[string] {
	if !v.Valid {
		return null.Val[string]{}
	}
	return null.From(v.String)
}
