package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/dbdefinition/internal/schema"
)

// MultiFileFormatter writes each table to its own file in a directory,
// plus an overview listing every table
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string

	create func(name string) (io.WriteCloser, error)
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
		create:       createFile,
	}
}

// Format writes the database to multiple files
func (f *MultiFileFormatter) Format(d *schema.Database) error {
	if _, err := New(f.OutputFormat, nil); err != nil {
		return err
	}

	if err := os.MkdirAll(f.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeOverview(d); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, table := range d.Tables {
		if err := f.writeTableFile(d, table); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.QualifiedName(), err)
		}
	}

	return nil
}

// TableFile returns the file name used for a table
func (f *MultiFileFormatter) TableFile(table *schema.Table) string {
	return table.QualifiedName() + Extension(f.OutputFormat)
}

// OverviewFile returns the overview's file name. The overview is plain text
// unless the output format is markdown.
func (f *MultiFileFormatter) OverviewFile() string {
	if f.OutputFormat == FormatMarkdown {
		return "_overview.md"
	}
	return "_overview.txt"
}

// writeOverview writes the overview file
func (f *MultiFileFormatter) writeOverview(d *schema.Database) error {
	sorted := make([]*schema.Table, len(d.Tables))
	copy(sorted, d.Tables)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].QualifiedName() < sorted[j].QualifiedName()
	})

	var b strings.Builder
	if f.OutputFormat == FormatMarkdown {
		b.WriteString("# Overview\n\n")
		fmt.Fprintf(&b, "Each table has a corresponding file: `<schema>.<table>%s`\n\n", Extension(f.OutputFormat))
		b.WriteString("## Tables\n\n")
	} else {
		b.WriteString("OVERVIEW\n")
		fmt.Fprintf(&b, "Each table has a file: <schema>.<table>%s\n\n", Extension(f.OutputFormat))
	}

	for _, table := range sorted {
		if f.OutputFormat == FormatMarkdown {
			fmt.Fprintf(&b, "- **%s**", table.QualifiedName())
		} else {
			b.WriteString(table.QualifiedName())
		}

		// Outgoing references
		if len(table.ForeignKeys) > 0 {
			targets := make([]string, 0, len(table.ForeignKeys))
			for _, fk := range table.ForeignKeys {
				targets = append(targets, fk.ReferenceTableName)
			}
			fmt.Fprintf(&b, " (references: %s)", strings.Join(targets, ", "))
		}
		b.WriteString("\n")
	}

	return f.writeFile(f.OverviewFile(), func(w io.Writer) error {
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// writeTableFile writes a single table to its own file. The table is
// rendered with the tables referencing it so markdown can list them.
func (f *MultiFileFormatter) writeTableFile(d *schema.Database, table *schema.Table) error {
	return f.writeFile(f.TableFile(table), func(w io.Writer) error {
		if f.OutputFormat == FormatMarkdown {
			return NewMarkdownFormatter(w).formatTables([]markdownTable{
				{Table: table, ReferencedBy: ReferencedBy(d, table)},
			})
		}

		single := schema.NewDatabase()
		single.AddTable(table)
		formatter, err := New(f.OutputFormat, w)
		if err != nil {
			return err
		}
		return formatter.Format(single)
	})
}

// writeFile creates name in the output directory and hands it to write.
// A failed close is returned when write itself succeeded.
func (f *MultiFileFormatter) writeFile(name string, write func(io.Writer) error) (err error) {
	create := f.create
	if create == nil {
		create = createFile
	}

	file, err := create(filepath.Join(f.OutputDir, name))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", name, cerr)
		}
	}()

	return write(file)
}

func createFile(name string) (io.WriteCloser, error) {
	return os.Create(name)
}
