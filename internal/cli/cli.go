package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/vk/dashboot/internal/app"
	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/loader"
	"github.com/vk/dashboot/internal/settings"
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

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
//
// Values come from, in increasing priority: built-in defaults, the settings
// file, and flags given explicitly on the command line.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("dashboot", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
dashboot - fetch a JSON configuration and hand it to a processing unit.

Usage:
  dashboot [options] [BASE_URL]

Arguments:
  BASE_URL
    Location the configuration resource is resolved against.

Unit output (such as the print unit's YAML) goes to stdout, logs go to stderr.

Options:
`)
		flagSet.PrintDefaults()
	}

	settingsFlag := flagSet.String("settings", "", "Path to an HCL settings file.")
	baseURLFlag := flagSet.String("base-url", loader.DefaultBaseURL, "Base URL the configuration resource is resolved against.")
	resourceFlag := flagSet.String("resource", loader.DefaultResource, "Path of the configuration resource, relative to the base URL.")
	unitFlag := flagSet.String("unit", "print", "Name of the unit that receives the configuration.")
	onFailureFlag := flagSet.String("on-failure", string(config.FailureSwallow), "What a failed configuration load does. Options: 'swallow' or 'surface'.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Timeout for the configuration request. 0 waits indefinitely.")
	maxBodyFlag := flagSet.Int64("max-body-bytes", 0, "Reject configuration documents larger than this. 0 accepts any size.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	listUnitsFlag := flagSet.Bool("list-units", false, "List the available units and exit.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	if *listUnitsFlag {
		printUnits(output)
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, usageError("expected at most one BASE_URL argument, got %d", flagSet.NArg())
	}

	explicit := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if flagSet.NArg() == 1 {
		if explicit["base-url"] {
			return nil, false, usageError("BASE_URL given both as argument and with -base-url")
		}
		*baseURLFlag = flagSet.Arg(0)
		explicit["base-url"] = true
	}

	file := &settings.File{}
	if *settingsFlag != "" {
		var err error
		file, err = settings.Load(*settingsFlag)
		if err != nil {
			return nil, false, usageError("%s", err.Error())
		}
		slog.Debug("Settings file loaded.", "path", *settingsFlag)
	}

	pick := func(name, flagVal, fileVal string) string {
		if explicit[name] || fileVal == "" {
			return flagVal
		}
		return fileVal
	}

	timeout := *timeoutFlag
	if !explicit["timeout"] && file.Timeout > 0 {
		timeout = file.Timeout
	}

	maxBody := *maxBodyFlag
	if !explicit["max-body-bytes"] && file.MaxBodyBytes > 0 {
		maxBody = file.MaxBodyBytes
	}
	if maxBody < 0 {
		return nil, false, usageError("invalid max-body-bytes: must not be negative")
	}

	fileUnit := ""
	if file.Unit != nil {
		fileUnit = file.Unit.Name
	}
	unitName := pick("unit", *unitFlag, fileUnit)

	policy, err := config.ParseFailurePolicy(pick("on-failure", *onFailureFlag, file.OnFailure))
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	slog.Debug("CLI parameter validation complete.")

	cfg := app.Config{
		BaseURL:         pick("base-url", *baseURLFlag, file.BaseURL),
		Resource:        pick("resource", *resourceFlag, file.Resource),
		Timeout:         timeout,
		MaxBodyBytes:    maxBody,
		OnFailure:       policy,
		Unit:            unitName,
		EvalContext:     file.EvalContext,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
	}
	if file.Unit != nil && file.Unit.Name == unitName {
		cfg.UnitArgs = file.Unit.Args
	}
	if cfg.EvalContext == nil {
		cfg.EvalContext = settings.ProcessEnvContext()
	}

	appConfig, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "unit", appConfig.Unit, "base_url", appConfig.BaseURL)
	return appConfig, false, nil
}

func printUnits(output io.Writer) {
	tw := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tDESCRIPTION")
	for _, entry := range app.UnitCatalog() {
		fmt.Fprintf(tw, "%s\t%s\n", entry[0], entry[1])
	}
	_ = tw.Flush()
}
