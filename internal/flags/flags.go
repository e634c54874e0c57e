// Package flags manages command-line flags and environment variables for
// Berth configuration.
package flags

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultDataDir is where container records are persisted unless overridden.
const DefaultDataDir = "/var/lib/berth"

// DefaultReconcileInterval is how often the daemon re-checks persisted
// records against their expiry deadlines.
const DefaultReconcileInterval = time.Minute

// defaultStopTimeoutSeconds is the default grace period for stopping a
// container before it is killed.
const defaultStopTimeoutSeconds = 10

// defaultWorkers is the default size of the scheduler worker pool.
const defaultWorkers = 4

// errInvalidLogFormat indicates an invalid log format was specified.
var errInvalidLogFormat = errors.New("invalid log format specified")

// errInvalidLogLevel indicates an invalid log level was specified.
var errInvalidLogLevel = errors.New("invalid log level specified")

// errGetFlagFailed indicates a failure to read a flag's value.
var errGetFlagFailed = errors.New("failed to get flag value")

// RegisterSystemFlags adds flags that modify Berth's program flow to the
// root command: persistence location, logging, and scheduling behavior.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP(
		"data-dir",
		"d",
		envStringOr("BERTH_DATA_DIR", DefaultDataDir),
		"Directory holding one persisted record per container")

	flags.IntP(
		"workers",
		"w",
		envIntOr("BERTH_WORKERS", defaultWorkers),
		"Size of the shared scheduler worker pool")

	flags.Duration(
		"reconcile-interval",
		envDurationOr("BERTH_RECONCILE_INTERVAL", DefaultReconcileInterval),
		"How often the daemon reconciles records against expiry deadlines")

	flags.StringP(
		"log-level",
		"",
		envStringOr("BERTH_LOG_LEVEL", "info"),
		"The maximum log level that will be written to STDERR. Possible values: panic, fatal, error, warn, info, debug or trace")

	flags.StringP(
		"log-format",
		"l",
		envStringOr("BERTH_LOG_FORMAT", "auto"),
		"Sets what logging format to use for console output. Possible values: Auto, LogFmt, Pretty, JSON")

	flags.Bool(
		"no-color",
		envBool("NO_COLOR"),
		"Disable color output in logs")
}

// RegisterRuntimeFlags adds flags used by the runtime adapter to the root
// command. These configure how the external containerization runtime is
// reached.
func RegisterRuntimeFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP(
		"runtime-binary",
		"r",
		envStringOr("BERTH_RUNTIME_BINARY", "docker"),
		"Runtime binary to execute for container operations")

	flags.Bool(
		"runtime-api",
		envBool("BERTH_RUNTIME_API"),
		"Talk to the Docker Engine API directly instead of executing the runtime binary")

	flags.IntP(
		"stop-timeout",
		"t",
		envIntOr("BERTH_STOP_TIMEOUT", defaultStopTimeoutSeconds),
		"Seconds to wait for a container to stop before killing it")
}

// SetupLogging configures the global logger based on log-related flags.
// It sets the log format and level, returning an error for invalid
// configurations.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

// StopTimeout reads the stop-timeout flag as a duration.
func StopTimeout(flags *pflag.FlagSet) (time.Duration, error) {
	seconds, err := flags.GetInt("stop-timeout")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	return time.Duration(seconds) * time.Second, nil
}

// configureLogFormat sets the logrus formatter based on the specified format
// and color preference. It returns an error if the format is invalid.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}

// envString reads an environment variable via viper.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envStringOr reads an environment variable, falling back to a default.
func envStringOr(key, fallback string) string {
	if value := envString(key); value != "" {
		return value
	}

	return fallback
}

// envBool reads a boolean environment variable via viper.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// envIntOr reads an integer environment variable, falling back to a default.
func envIntOr(key string, fallback int) int {
	viper.MustBindEnv(key)

	if !viper.IsSet(key) || viper.GetString(key) == "" {
		return fallback
	}

	return viper.GetInt(key)
}

// envDurationOr reads a duration environment variable, falling back to a
// default.
func envDurationOr(key string, fallback time.Duration) time.Duration {
	viper.MustBindEnv(key)

	if !viper.IsSet(key) || viper.GetString(key) == "" {
		return fallback
	}

	return viper.GetDuration(key)
}
