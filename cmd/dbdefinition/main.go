package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tordrt/dbdefinition"
	"github.com/tordrt/dbdefinition/internal/config"
	"github.com/tordrt/dbdefinition/internal/db"
	"github.com/tordrt/dbdefinition/internal/formatter"
	"github.com/tordrt/dbdefinition/internal/logging"
	"github.com/tordrt/dbdefinition/internal/parser"
	"github.com/tordrt/dbdefinition/internal/schema"
)

var (
	configFile     string
	envFile        string
	datasourceName string
	driverName     string
	dbURL          string
	dbUser         string
	dbPassword     string
	dialectName    string
	includeSchemas []string
	excludeSchemas []string
	includeTables  []string
	excludeTables  []string
	format         string
	outputFile     string
	outputDir      string
	logLevel       string
	logFormat      string
)

var rootCmd = &cobra.Command{
	Use:   "dbdefinition",
	Short: "Read the structure of a database",
	Long: `dbdefinition reads schemas, tables, columns, indexes and foreign keys from
PostgreSQL, MySQL or SQLite and writes them as text, markdown or YAML.

The datasource comes from --url or from the datasources list of the config
file. Settings can also be given as DBDEF_ environment variables.`,
	SilenceUsage: true,
	RunE:         run,
}

var tableCmd = &cobra.Command{
	Use:          "table <schema> <table>",
	Short:        "Describe a single table",
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE:         runTable,
}

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List supported dialects and drivers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "dialects: %s\n", strings.Join(db.Dialects(), ", "))
		fmt.Fprintf(out, "drivers:  %s\n", strings.Join(db.Drivers(), ", "))
		fmt.Fprintf(out, "formats:  %s\n", strings.Join(formatter.Formats(), ", "))
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "YAML config file")
	flags.StringVar(&envFile, "env-file", "", "dotenv file (default: .env if present)")
	flags.StringVar(&datasourceName, "datasource", "", "Datasource name from the config file (default: first)")
	flags.StringVar(&driverName, "driver", "", "Driver: pgx, postgres, mysql, sqlite or sqlite3 (default: from --url scheme)")
	flags.StringVar(&dbURL, "url", "", "Connection URL or DSN")
	flags.StringVar(&dbUser, "user", "", "Database user, overrides the URL")
	flags.StringVar(&dbPassword, "password", "", "Database password, overrides the URL")
	flags.StringVar(&dialectName, "dialect", "", "Dialect override: postgresql, mysql or sqlite")
	flags.StringVarP(&format, "format", "f", "", "Output format: text, markdown or yaml (default: text)")
	flags.StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default: info)")
	flags.StringVar(&logFormat, "log-format", "", "Log format: auto, console or json (default: auto)")

	rootCmd.Flags().StringSliceVar(&includeSchemas, "include-schema", nil, "Only read these schemas (comma-separated)")
	rootCmd.Flags().StringSliceVar(&excludeSchemas, "exclude-schema", nil, "Skip these schemas (comma-separated)")
	rootCmd.Flags().StringSliceVarP(&includeTables, "include-table", "t", nil, "Only read these tables, optionally schema-qualified (comma-separated)")
	rootCmd.Flags().StringSliceVar(&excludeTables, "exclude-table", nil, "Skip these tables, optionally schema-qualified (comma-separated)")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file output")

	rootCmd.AddCommand(tableCmd, dialectsCmd)
}

// loadConfig reads the config file and environment, then applies flags on top
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if format != "" {
		cfg.Output.Format = format
	}
	if outputFile != "" {
		cfg.Output.File = outputFile
	}

	cfg.Filter.IncludeSchemas = append(cfg.Filter.IncludeSchemas, includeSchemas...)
	cfg.Filter.ExcludeSchemas = append(cfg.Filter.ExcludeSchemas, excludeSchemas...)
	cfg.Filter.IncludeTables = append(cfg.Filter.IncludeTables, includeTables...)
	cfg.Filter.ExcludeTables = append(cfg.Filter.ExcludeTables, excludeTables...)

	return cfg, nil
}

// resolveDatasource picks the datasource from --url or the config file.
// A URL without --driver is mapped to a driver by its scheme.
func resolveDatasource(cfg *config.Config) (config.Datasource, error) {
	var ds config.Datasource
	if dbURL != "" {
		ds = config.Datasource{Name: "command line", Driver: driverName, URL: dbURL}
	} else {
		if len(cfg.Datasources) == 0 {
			return config.Datasource{}, errors.New("one of --url or a config file with datasources must be specified")
		}
		// The driver may be left out of the config when the url carries a scheme.
		for i := range cfg.Datasources {
			if cfg.Datasources[i].Driver == "" {
				if drv, dsn, err := dbdefinition.ParseURL(cfg.Datasources[i].URL); err == nil {
					cfg.Datasources[i].Driver, cfg.Datasources[i].URL = drv, dsn
				}
			}
		}
		var err error
		if ds, err = cfg.Datasource(datasourceName); err != nil {
			return config.Datasource{}, err
		}
	}

	if ds.Driver == "" {
		drv, dsn, err := dbdefinition.ParseURL(ds.URL)
		if err != nil {
			return config.Datasource{}, fmt.Errorf("cannot determine driver, use --driver: %w", err)
		}
		ds.Driver, ds.URL = drv, dsn
	}
	if dialectName != "" {
		ds.Dialect = dialectName
	}
	if dbUser != "" {
		ds.User = dbUser
	}
	if dbPassword != "" {
		ds.Password = dbPassword
	}

	return ds, nil
}

func datasourceDialect(ds config.Datasource) (db.Dialect, error) {
	if ds.Dialect != "" {
		return db.Lookup(ds.Dialect)
	}
	return db.DialectForDriver(ds.Driver)
}

// progressListener logs when a traversal starts and how long it took
func progressListener(log *zap.Logger) parser.Listener {
	var start time.Time
	return parser.ListenerFuncs{
		Started: func(e parser.Event) {
			start = time.Now()
			log.Info("reading database definition",
				zap.Stringer("run", e.RunID),
				zap.String("dialect", e.Parser.Dialect().Name()))
		},
		Finished: func(e parser.Event) {
			log.Info("database definition read",
				zap.Stringer("run", e.RunID),
				zap.Duration("elapsed", time.Since(start)))
		},
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Validate flag combinations
	if outputDir != "" && cfg.Output.File != "" {
		return fmt.Errorf("cannot use both --output-dir and --output flags")
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ds, err := resolveDatasource(cfg)
	if err != nil {
		return err
	}
	dialect, err := datasourceDialect(ds)
	if err != nil {
		return err
	}

	p := parser.New(dialect, log.With(zap.String("datasource", ds.Name)))
	p.AddListener(progressListener(log))

	d := p.RunDriver(ctx, ds.Driver, ds.URL, ds.User, ds.Password, cfg.Option())
	if d == nil {
		return errors.New("could not read database definition")
	}

	// Multi-file output
	if outputDir != "" {
		if err := formatter.NewMultiFileFormatter(outputDir, cfg.Output.Format).Format(d); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		log.Info("wrote database definition", zap.String("dir", outputDir), zap.Int("tables", len(d.Tables)))
		return nil
	}

	return writeOutput(cmd.OutOrStdout(), cfg.Output, d, log)
}

func runTable(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	schemaName, tableName := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ds, err := resolveDatasource(cfg)
	if err != nil {
		return err
	}
	dialect, err := datasourceDialect(ds)
	if err != nil {
		return err
	}

	if err := db.CheckDriver(dialect, ds.Driver); err != nil {
		return err
	}

	client, err := db.Connect(ctx, ds.Driver, ds.URL, ds.User, ds.Password)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close connection", zap.Error(err))
		}
	}()

	def := db.NewDefinition(client.DB(), dialect, log.With(zap.String("driver", client.Driver())))
	table, err := def.Table(ctx, &schema.Schema{Name: schemaName}, tableName)
	if err != nil {
		return err
	}
	if table == nil {
		return fmt.Errorf("table %s.%s not found", schemaName, tableName)
	}

	d := schema.NewDatabase()
	d.AddTable(table)
	return writeOutput(cmd.OutOrStdout(), cfg.Output, d, log)
}

// writeOutput renders d to the configured file, or to stdout
func writeOutput(stdout io.Writer, out config.Output, d *schema.Database, log *zap.Logger) error {
	writer := stdout
	if out.File != "" {
		f, err := os.Create(out.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Warn("failed to close output file", zap.Error(err))
			}
		}()
		writer = f
	}

	f, err := formatter.New(out.Format, writer)
	if err != nil {
		return err
	}
	if err := f.Format(d); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
