// Package formatter renders a schema.Database for people and tools.
package formatter

import (
	"fmt"
	"io"

	"github.com/tordrt/dbdefinition/internal/schema"
)

// Output formats
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatYAML     = "yaml"
)

// Formatter writes a database definition
type Formatter interface {
	Format(d *schema.Database) error
}

// New creates the formatter for format writing to w
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatMarkdown, "md":
		return NewMarkdownFormatter(w), nil
	case FormatYAML, "yml":
		return NewYAMLFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Formats lists the accepted output formats
func Formats() []string {
	return []string{FormatText, FormatMarkdown, FormatYAML}
}

// Extension returns the file extension used for format
func Extension(format string) string {
	switch format {
	case FormatMarkdown, "md":
		return ".md"
	case FormatYAML, "yml":
		return ".yaml"
	default:
		return ".txt"
	}
}

// Reference is a foreign key of another table pointing at a table
type Reference struct {
	Table      *schema.Table
	ForeignKey *schema.ForeignKey
}

// ReferencedBy finds the foreign keys in d that point at table. Foreign keys
// do not record the referenced schema, so only tables of the same schema are
// considered.
func ReferencedBy(d *schema.Database, table *schema.Table) []Reference {
	var refs []Reference
	for _, other := range d.Tables {
		if !schema.SameName(other.SchemaName(), table.SchemaName()) {
			continue
		}
		for _, fk := range other.ForeignKeys {
			if schema.SameName(fk.ReferenceTableName, table.Name) {
				refs = append(refs, Reference{Table: other, ForeignKey: fk})
			}
		}
	}
	return refs
}
