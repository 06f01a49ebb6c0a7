package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a JSON logger writing to stdout. The level string comes from
// config; unknown values fall back to info.
func New(service, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
