package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// EnvLogLevel is the environment variable used to set the log level
	EnvLogLevel string = "DDLOG_LOG_LEVEL"

	// EnvLogFormatJSON is the environment variable that switches
	// the output to json when not empty
	EnvLogFormatJSON string = "DDLOG_LOG_FORMAT_JSON"
)

// level maps the provided string to a zerolog level.
// Unknown values fall back to info
func level(value string) zerolog.Level {
	switch strings.TrimSpace(value) {
	case "panic":
		return zerolog.PanicLevel
	case "fatal":
		return zerolog.FatalLevel
	case "error":
		return zerolog.ErrorLevel
	case "warn":
		return zerolog.WarnLevel
	case "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	}
	return zerolog.InfoLevel
}

// NewLogger instantiate zerolog configuration
func NewLogger() *zerolog.Logger {
	var logger zerolog.Logger
	zerolog.SetGlobalLevel(level(os.Getenv(EnvLogLevel)))

	if strings.TrimSpace(os.Getenv(EnvLogFormatJSON)) == "" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, NoColor: true, TimeFormat: time.RFC3339}
		output.FormatLevel = func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %s |", i))
		}
		output.FormatMessage = func(i interface{}) string {
			return fmt.Sprintf("%s", i)
		}

		logger = zerolog.New(output).With().Timestamp().Caller().Str("subsystem", "ddl_log").Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Str("subsystem", "ddl_log").Logger()
	}
	return &logger
}
