// Package testlog wires zerolog into tests.
package testlog

import (
	"testing"

	"github.com/danmuck/schemawire/internal/logging"
	"github.com/rs/zerolog"
)

// Start configures the test logging profile and returns a logger that writes
// through t.Log, so output is attributed to the test that produced it.
func Start(t testing.TB) zerolog.Logger {
	t.Helper()
	logging.ConfigureTests()
	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Str("test", t.Name()).Logger()
	logger.Debug().Msg("start")
	return logger
}
