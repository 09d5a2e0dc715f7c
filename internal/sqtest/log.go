package sqtest

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a logger associated with t,
// so that log output is collated with the test's own output.
func NewLogger(t testing.TB) *slog.Logger {
	return slogt.New(t)
}
