package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	func MyFunction() {
//	    defer utils.OperationTimer("my_function", log)()
//	}
func OperationTimer(operation string, log zerolog.Logger) func() {
	start := time.Now()

	return func() {
		duration := time.Since(start)

		log.Debug().
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg("Operation completed")

		if duration > 10*time.Second {
			log.Warn().
				Str("operation", operation).
				Dur("duration", duration).
				Msg("Slow operation detected")
		}
	}
}
