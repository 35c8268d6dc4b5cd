package testlog

import (
	"testing"

	"github.com/rs/zerolog"
)

// Start returns a logger that routes through the test's own output so
// failures carry the surrounding log context.
func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	logger.Info().Str("test", t.Name()).Msg("start")
	return logger
}
