package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/specialistvlad/helpme/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// envConfig holds the defaults read from the environment. Flags override them.
type envConfig struct {
	DB        []string `env:"HELPME_DB" envSeparator:","`
	Locale    string   `env:"HELPME_LOCALE"`
	Hidden    bool     `env:"HELPME_HIDDEN"`
	Port      int      `env:"HELPME_PORT"`
	Watch     bool     `env:"HELPME_WATCH"`
	LogFormat string   `env:"HELPME_LOG_FORMAT" envDefault:"text"`
	LogLevel  string   `env:"HELPME_LOG_LEVEL"  envDefault:"info"`
}

// pathList is a repeatable string flag.
type pathList []string

func (p *pathList) String() string {
	return strings.Join(*p, ",")
}

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var defaults envConfig
	if err := env.Parse(&defaults); err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("parse env: %v", err)}
	}

	flagSet := flag.NewFlagSet("helpme", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
helpme - A locale-aware help text registry with live updates.

Usage:
  helpme [options] [DB_PATH...]

Arguments:
  DB_PATH
    Path to a help file (.hcl, .json, .yaml) or a directory of them.
    Later paths override earlier ones.

Environment:
  HELPME_DB, HELPME_LOCALE, HELPME_HIDDEN, HELPME_PORT, HELPME_WATCH,
  HELPME_LOG_FORMAT and HELPME_LOG_LEVEL set the defaults of the options.

Options:
`)
		flagSet.PrintDefaults()
	}

	var dbFlag pathList
	flagSet.Var(&dbFlag, "db", "Path to a help file or directory. Repeatable.")
	localeFlag := flagSet.String("locale", defaults.Locale, "Initial locale. Empty reads top-level entries.")
	hiddenFlag := flagSet.Bool("hidden", defaults.Hidden, "Start with help hidden.")
	portFlag := flagSet.Int("port", defaults.Port, "Port for the HTTP API and socket.io relay. 0 is disabled.")
	watchFlag := flagSet.Bool("watch", defaults.Watch, "Reload help files when they change.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	paths := append([]string(dbFlag), flagSet.Args()...)
	if len(paths) == 0 {
		paths = defaults.DB
	}
	slog.Debug("Help database paths determined.", "paths", paths)

	if len(paths) == 0 {
		slog.Debug("No help database path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		DBPaths:   paths,
		Locale:    *localeFlag,
		Hidden:    *hiddenFlag,
		Watch:     *watchFlag,
		Port:      *portFlag,
		LogFormat: logFormat,
		LogLevel:  logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
