package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Text handler on stdout;
// swap for JSON when shipping to a log collector.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
