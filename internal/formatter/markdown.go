package formatter

import (
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/tordrt/dbdefinition/internal/schema"
)

const markdownTemplate = `# Database Definition
{{ range .Tables }}
## {{ .Table.QualifiedName }}
{{- with .Table.Comment }}

{{ . }}
{{- end }}

### Columns

| Name | Type | Not Null | Default | Extra | Comment |
|------|------|----------|---------|-------|---------|
{{- range .Table.Fields }}
| {{ cell .Name }} | {{ cell .Type.Label }} | {{ if .NotNull }}yes{{ end }} | {{ if .HasDefault }}{{ cell (defaultText .) }}{{ end }} | {{ cell .Extra }} | {{ cell .Comment }} |
{{- end }}
{{- with .Table.Indexes }}

### Indexes
{{ range . }}
- {{ .Name }} on ({{ join ", " .FieldNames }}){{ if .PrimaryKey }}, primary key{{ else if .Unique }}, unique{{ end }}
{{- end }}
{{- end }}
{{- with .Table.ForeignKeys }}

### References
{{ range . }}
- {{ .Name }}: ({{ join ", " .FieldNames }}) → {{ .ReferenceTableName }} ({{ join ", " .ReferenceFieldNames }})
{{- end }}
{{- end }}
{{- with .ReferencedBy }}

### Referenced by
{{ range . }}
- {{ .Table.Name }}.{{ .ForeignKey.Name }} ({{ join ", " .ForeignKey.FieldNames }})
{{- end }}
{{- end }}
{{ end -}}
`

var markdown = template.Must(template.New("markdown").
	Funcs(sprig.TxtFuncMap()).
	Funcs(template.FuncMap{"cell": markdownCell, "defaultText": defaultText}).
	Parse(markdownTemplate))

// MarkdownFormatter formats a database definition as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

type markdownTable struct {
	Table        *schema.Table
	ReferencedBy []Reference
}

// Format writes the database in markdown format
func (f *MarkdownFormatter) Format(d *schema.Database) error {
	tables := make([]markdownTable, 0, len(d.Tables))
	for _, table := range d.Tables {
		tables = append(tables, markdownTable{Table: table, ReferencedBy: ReferencedBy(d, table)})
	}
	return f.formatTables(tables)
}

func (f *MarkdownFormatter) formatTables(tables []markdownTable) error {
	return markdown.Execute(f.writer, struct{ Tables []markdownTable }{Tables: tables})
}

// markdownCell keeps a value inside one table cell
func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
