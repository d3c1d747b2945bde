// Package config loads datasources, filter rules and output settings from
// defaults, an optional YAML file, a .env file and DBDEF_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tordrt/dbdefinition/internal/filter"
)

// EnvPrefix prefixes every environment variable read by Load.
// Nested keys are separated by a double underscore: DBDEF_LOG__LEVEL.
const EnvPrefix = "DBDEF_"

// ErrNoDatasource is returned when a datasource is missing or incomplete
var ErrNoDatasource = errors.New("no datasource")

// Datasource describes one database to read
type Datasource struct {
	Name     string `koanf:"name"`
	Driver   string `koanf:"driver"`
	URL      string `koanf:"url"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	// Dialect overrides the dialect derived from Driver
	Dialect string `koanf:"dialect"`
}

// Log configures logging
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Output configures how the result is rendered
type Output struct {
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// Config holds the application configuration
type Config struct {
	Datasources []Datasource  `koanf:"datasources"`
	Filter      filter.Option `koanf:"filter"`
	Log         Log           `koanf:"log"`
	Output      Output        `koanf:"output"`
}

var defaults = map[string]any{
	"log.level":     "info",
	"log.format":    "auto",
	"output.format": "text",
}

// Load reads configuration. path is an optional YAML file. envFile is an
// optional dotenv file; when empty, a .env in the working directory is used
// if it exists.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// envKey maps DBDEF_OUTPUT__FORMAT to output.format
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// envValue maps an environment variable to its key. Filter lists are
// comma-separated: DBDEF_FILTER__EXCLUDE_TABLES=tmp_log,tmp_audit.
func envValue(name, value string) (string, any) {
	key := envKey(name)
	if !strings.HasPrefix(key, "filter.") {
		return key, value
	}

	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return key, list
}

// Datasource returns the datasource with the given name, or the first one
// when name is empty.
func (c *Config) Datasource(name string) (Datasource, error) {
	if len(c.Datasources) == 0 {
		return Datasource{}, fmt.Errorf("%w configured", ErrNoDatasource)
	}

	if name == "" {
		return c.Datasources[0].validate()
	}
	for _, ds := range c.Datasources {
		if ds.Name == name {
			return ds.validate()
		}
	}
	return Datasource{}, fmt.Errorf("%w named %q", ErrNoDatasource, name)
}

func (d Datasource) validate() (Datasource, error) {
	if d.Driver == "" || d.URL == "" {
		return Datasource{}, fmt.Errorf("%w: datasource %q needs a driver and a url", ErrNoDatasource, d.Name)
	}
	return d, nil
}

// Option returns a copy of the configured filter rules
func (c *Config) Option() *filter.Option {
	opt := filter.New()
	opt.IncludeSchemas = append(opt.IncludeSchemas, c.Filter.IncludeSchemas...)
	opt.ExcludeSchemas = append(opt.ExcludeSchemas, c.Filter.ExcludeSchemas...)
	opt.IncludeTables = append(opt.IncludeTables, c.Filter.IncludeTables...)
	opt.ExcludeTables = append(opt.ExcludeTables, c.Filter.ExcludeTables...)
	return opt
}
