package logger

import (
	"log/slog"
	"os"
)

// New returns the shared structured logger. The service name rides along on
// every line so logs from both binaries can be interleaved.
func New(service string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler).With("service", service)
}
