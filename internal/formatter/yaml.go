package formatter

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/dbdefinition/internal/schema"
)

type yamlDatabase struct {
	Tables []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Schema      string           `yaml:"schema,omitempty"`
	Name        string           `yaml:"name"`
	Label       string           `yaml:"label,omitempty"`
	Comment     string           `yaml:"comment,omitempty"`
	Fields      []yamlField      `yaml:"fields"`
	Indexes     []yamlIndex      `yaml:"indexes,omitempty"`
	ForeignKeys []yamlForeignKey `yaml:"foreign_keys,omitempty"`
}

type yamlField struct {
	Name    string `yaml:"name"`
	Label   string `yaml:"label,omitempty"`
	Type    string `yaml:"type"`
	Extra   string `yaml:"extra,omitempty"`
	NotNull bool   `yaml:"not_null"`
	// nil when the column has no default
	Default *string `yaml:"default,omitempty"`
	Comment string  `yaml:"comment,omitempty"`
}

type yamlIndex struct {
	Name       string   `yaml:"name"`
	PrimaryKey bool     `yaml:"primary_key,omitempty"`
	Unique     bool     `yaml:"unique,omitempty"`
	Fields     []string `yaml:"fields,flow"`
}

type yamlForeignKey struct {
	Name            string   `yaml:"name"`
	Fields          []string `yaml:"fields,flow"`
	ReferenceTable  string   `yaml:"reference_table"`
	ReferenceFields []string `yaml:"reference_fields,flow"`
}

// YAMLFormatter formats a database definition as YAML
type YAMLFormatter struct {
	writer io.Writer
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(w io.Writer) *YAMLFormatter {
	return &YAMLFormatter{writer: w}
}

// Format writes the database as a YAML document
func (f *YAMLFormatter) Format(d *schema.Database) error {
	enc := yaml.NewEncoder(f.writer)
	enc.SetIndent(2)
	if err := enc.Encode(yamlView(d)); err != nil {
		return err
	}
	return enc.Close()
}

func yamlView(d *schema.Database) yamlDatabase {
	view := yamlDatabase{Tables: make([]yamlTable, 0, len(d.Tables))}
	for _, t := range d.Tables {
		table := yamlTable{
			Schema:  t.SchemaName(),
			Name:    t.Name,
			Comment: t.Comment,
			Fields:  make([]yamlField, 0, len(t.Fields)),
		}
		if t.Label != t.Name {
			table.Label = t.Label
		}

		for _, f := range t.Fields {
			field := yamlField{
				Name:    f.Name,
				Type:    f.Type.Label,
				Extra:   f.Extra,
				NotNull: f.NotNull,
				Comment: f.Comment,
			}
			if f.Label != f.Name {
				field.Label = f.Label
			}
			if f.HasDefault() {
				v := f.DefaultValue()
				field.Default = &v
			}
			table.Fields = append(table.Fields, field)
		}

		for _, idx := range t.Indexes {
			table.Indexes = append(table.Indexes, yamlIndex{
				Name:       idx.Name,
				PrimaryKey: idx.PrimaryKey,
				Unique:     idx.Unique,
				Fields:     idx.FieldNames(),
			})
		}

		for _, fk := range t.ForeignKeys {
			table.ForeignKeys = append(table.ForeignKeys, yamlForeignKey{
				Name:            fk.Name,
				Fields:          fk.FieldNames(),
				ReferenceTable:  fk.ReferenceTableName,
				ReferenceFields: fk.ReferenceFieldNames(),
			})
		}

		view.Tables = append(view.Tables, table)
	}
	return view
}
