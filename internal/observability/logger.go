package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger wires the process-wide console logger. The daemon logs to
// stderr so piped response traffic on stdout stays clean.
func InitLogger(service string) zerolog.Logger {
	zerolog.DurationFieldUnit = time.Millisecond
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("service", service).Logger()
	log.Logger = logger
	return logger
}
