package logger

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetLoggerLogLevel(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		logLevel string
		expected string
	}{
		{
			logLevel: "info",
			expected: "info",
		},
		{
			logLevel: "warn",
			expected: "warn",
		},
		{
			logLevel: "debug",
			expected: "debug",
		},
		{
			logLevel: "error",
			expected: "error",
		},
		{
			logLevel: "fatal",
			expected: "fatal",
		},
		{
			logLevel: "trace",
			expected: "trace",
		},
		{
			logLevel: "panic",
			expected: "panic",
		},
		{
			logLevel: " warn ",
			expected: "warn",
		},
		{
			logLevel: "plop",
			expected: "info",
		},
	}

	for _, tc := range tests {
		assert.Nil(os.Setenv(EnvLogLevel, tc.logLevel))
		log.Logger = *NewLogger()
		assert.Equal(tc.expected, zerolog.GlobalLevel().String())

		assert.Nil(os.Setenv(EnvLogFormatJSON, "true"))
		log.Logger = *NewLogger()
		assert.Equal(tc.expected, zerolog.GlobalLevel().String())

		assert.Nil(os.Unsetenv(EnvLogFormatJSON))
		assert.Nil(os.Unsetenv(EnvLogLevel))
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestLogger_info(t *testing.T) {
	log.Logger = *NewLogger()
	log.Info().Msgf("Testing logger")
}
