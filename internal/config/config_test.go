package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
datasources:
  - name: main
    driver: pgx
    url: postgres://localhost:5432/app
    user: reader
  - name: local
    driver: sqlite
    url: ./app.db
filter:
  exclude_schemas: [audit]
  include_tables: [public.users, orders]
  exclude_tables: [tmp_log]
output:
  format: markdown
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Empty(t, cfg.Datasources)

	_, err = cfg.Datasource("")
	assert.True(t, errors.Is(err, ErrNoDatasource))
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeFile(t, "dbdefinition.yaml", sampleConfig), "")
	require.NoError(t, err)

	want := []Datasource{
		{Name: "main", Driver: "pgx", URL: "postgres://localhost:5432/app", User: "reader"},
		{Name: "local", Driver: "sqlite", URL: "./app.db"},
	}
	if diff := cmp.Diff(want, cfg.Datasources); diff != "" {
		t.Errorf("datasources mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.Equal(t, "info", cfg.Log.Level, "defaults fill keys the file leaves out")

	opt := cfg.Option()
	assert.False(t, opt.SchemaEnabled("audit"))
	assert.True(t, opt.TableEnabled("public", "users"))
	assert.False(t, opt.TableEnabled("sales", "users"))
	assert.True(t, opt.TableEnabled("sales", "orders"))
	assert.False(t, opt.TableEnabled("public", "tmp_log"))

	// The returned option is independent of the configuration.
	opt.AddExcludeTable("orders")
	assert.Equal(t, []string{"tmp_log"}, cfg.Filter.ExcludeTables)
}

func TestDatasourceSelection(t *testing.T) {
	cfg, err := Load(writeFile(t, "dbdefinition.yaml", sampleConfig), "")
	require.NoError(t, err)

	ds, err := cfg.Datasource("")
	require.NoError(t, err)
	assert.Equal(t, "main", ds.Name)

	ds, err = cfg.Datasource("local")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", ds.Driver)

	_, err = cfg.Datasource("missing")
	assert.True(t, errors.Is(err, ErrNoDatasource))

	cfg.Datasources = append(cfg.Datasources, Datasource{Name: "broken", Driver: "mysql"})
	_, err = cfg.Datasource("broken")
	assert.True(t, errors.Is(err, ErrNoDatasource))
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("DBDEF_LOG__LEVEL", "debug")
	t.Setenv("DBDEF_OUTPUT__FORMAT", "yaml")
	t.Setenv("DBDEF_FILTER__EXCLUDE_TABLES", "tmp_log,tmp_audit")

	cfg, err := Load(writeFile(t, "dbdefinition.yaml", sampleConfig), "")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "yaml", cfg.Output.Format, "environment overrides the file")
	assert.Equal(t, []string{"tmp_log", "tmp_audit"}, cfg.Filter.ExcludeTables)
}

func TestLoadEnvFile(t *testing.T) {
	t.Cleanup(func() { _ = os.Unsetenv("DBDEF_OUTPUT__FILE") })

	envFile := writeFile(t, "test.env", "DBDEF_OUTPUT__FILE=schema.md\n")
	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "schema.md", cfg.Output.File)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "log.level", envKey("DBDEF_LOG__LEVEL"))
	assert.Equal(t, "filter.include_schemas", envKey("DBDEF_FILTER__INCLUDE_SCHEMAS"))
}

func TestEnvValue(t *testing.T) {
	tests := []struct {
		name      string
		variable  string
		value     string
		wantKey   string
		wantValue any
	}{
		{name: "scalar", variable: "DBDEF_LOG__LEVEL", value: "debug", wantKey: "log.level", wantValue: "debug"},
		{name: "scalar keeps commas", variable: "DBDEF_OUTPUT__FILE", value: "a,b.md", wantKey: "output.file", wantValue: "a,b.md"},
		{name: "filter list", variable: "DBDEF_FILTER__EXCLUDE_TABLES", value: "tmp_log, tmp_audit", wantKey: "filter.exclude_tables", wantValue: []string{"tmp_log", "tmp_audit"}},
		{name: "filter single", variable: "DBDEF_FILTER__INCLUDE_SCHEMAS", value: "public", wantKey: "filter.include_schemas", wantValue: []string{"public"}},
		{name: "filter empty items dropped", variable: "DBDEF_FILTER__INCLUDE_TABLES", value: "users,,", wantKey: "filter.include_tables", wantValue: []string{"users"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, value := envValue(tt.variable, tt.value)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestLoadEnvironmentFilter(t *testing.T) {
	t.Setenv("DBDEF_FILTER__EXCLUDE_TABLES", "tmp_log,tmp_audit")
	t.Setenv("DBDEF_FILTER__INCLUDE_SCHEMAS", "public")

	cfg, err := Load("", "")
	require.NoError(t, err)

	opt := cfg.Option()
	assert.False(t, opt.TableEnabled("public", "tmp_log"))
	assert.False(t, opt.TableEnabled("public", "tmp_audit"))
	assert.True(t, opt.TableEnabled("public", "users"))
	assert.False(t, opt.SchemaEnabled("audit"))
}
