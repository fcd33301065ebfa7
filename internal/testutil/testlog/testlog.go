package testlog

import (
	"testing"

	"github.com/danmuck/mmgctl/internal/logging"
	"github.com/rs/zerolog"
)

// Start configures the test logging profile and returns a logger that writes
// through t.Log, tagged with the test name.
func Start(t *testing.T) *zerolog.Logger {
	t.Helper()
	logging.ConfigureTests()
	out := zerolog.ConsoleWriter{Out: zerolog.NewTestWriter(t), NoColor: true}
	logger := zerolog.New(out).With().Str("test", t.Name()).Logger()
	logger.Debug().Msg("test start")
	return &logger
}
