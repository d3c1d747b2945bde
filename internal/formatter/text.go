package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/dbdefinition/internal/schema"
)

// TextFormatter formats a database definition as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the database in compact text format
func (f *TextFormatter) Format(d *schema.Database) error {
	for i, table := range d.Tables {
		if i > 0 {
			if _, err := fmt.Fprintln(f.writer); err != nil {
				return err
			}
		}

		if err := f.formatTable(table); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) formatTable(table *schema.Table) error {
	var b strings.Builder

	// Table header with primary key
	pkStr := ""
	if pk := table.PrimaryKey(); pk != nil {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(pk.FieldNames(), ", "))
	}
	fmt.Fprintf(&b, "TABLE %s%s\n", table.QualifiedName(), pkStr)
	if table.Comment != "" {
		fmt.Fprintf(&b, "  -- %s\n", table.Comment)
	}

	for _, field := range table.Fields {
		fmt.Fprintf(&b, "  %s\n", formatField(field))
	}

	if len(table.ForeignKeys) > 0 {
		b.WriteString("\n  FOREIGN KEYS:\n")
		for _, fk := range table.ForeignKeys {
			fmt.Fprintf(&b, "    %s (%s) → %s (%s)\n",
				fk.Name,
				strings.Join(fk.FieldNames(), ", "),
				fk.ReferenceTableName,
				strings.Join(fk.ReferenceFieldNames(), ", "))
		}
	}

	if len(table.Indexes) > 0 {
		b.WriteString("\n  INDEXES:\n")
		for _, idx := range table.Indexes {
			kind := ""
			switch {
			case idx.PrimaryKey:
				kind = " PRIMARY KEY"
			case idx.Unique:
				kind = " UNIQUE"
			}
			fmt.Fprintf(&b, "    %s (%s)%s\n", idx.Name, strings.Join(idx.FieldNames(), ", "), kind)
		}
	}

	_, err := io.WriteString(f.writer, b.String())
	return err
}

func formatField(field *schema.Field) string {
	parts := []string{field.Name + ":"}

	if field.Type.Label != "" {
		parts = append(parts, field.Type.Label)
	}
	if field.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if field.HasDefault() {
		parts = append(parts, "DEFAULT "+defaultText(field))
	}
	if field.Extra != "" {
		parts = append(parts, "["+field.Extra+"]")
	}
	if field.Comment != "" {
		parts = append(parts, "-- "+field.Comment)
	}

	return strings.Join(parts, " ")
}

// defaultText quotes an empty default so it reads differently from none
func defaultText(field *schema.Field) string {
	if v := field.DefaultValue(); v != "" {
		return v
	}
	return `""`
}
