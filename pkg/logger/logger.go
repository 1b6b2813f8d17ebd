// Package logger provides structured logging setup for the application.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration
type Config struct {
	Level  string
	Pretty bool
}

// New creates a configured zerolog logger.
// Pretty mode enables human-readable console output for development;
// otherwise logs are emitted as JSON for machine consumption.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Pretty {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		log = zerolog.New(output)
	} else {
		log = zerolog.New(os.Stdout)
	}

	return log.Level(level).With().Timestamp().Logger()
}
