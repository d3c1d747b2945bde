// Package logging builds the zap logger used by the command line tool.
package logging

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Formats accepted by New
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New builds a logger writing to stderr. format "auto" selects console
// output on a terminal and json otherwise.
func New(level, format string) (*zap.Logger, error) {
	config, err := Config(level, format, isatty.IsTerminal(os.Stderr.Fd()))
	if err != nil {
		return nil, err
	}
	return config.Build()
}

// Config returns the zap configuration New builds from
func Config(level, format string, terminal bool) (zap.Config, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.Config{}, fmt.Errorf("invalid log level: %w", err)
	}

	if format == "" || format == FormatAuto {
		format = FormatJSON
		if terminal {
			format = FormatConsole
		}
	}

	config := zap.NewDevelopmentConfig()
	switch format {
	case FormatConsole:
	case FormatJSON:
		config.EncoderConfig = zap.NewProductionEncoderConfig()
	default:
		return zap.Config{}, fmt.Errorf("invalid log format %q", format)
	}

	config.Encoding = format
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.DisableStacktrace = lvl > zapcore.DebugLevel

	return config, nil
}
