package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// NewJSONLogger builds the shared structured logger; every process tags its
// records with the service name so worker and trainer logs interleave
// cleanly in aggregation.
func NewJSONLogger(service, level string) *slog.Logger {
	return newJSONLogger(os.Stdout, service, level)
}

// NewWorkerLogger additionally tags every record with a worker instance id.
// Competing consumers on the same durable are otherwise indistinguishable
// in aggregated logs.
func NewWorkerLogger(service, level string) (*slog.Logger, string) {
	workerID := NewWorkerID()
	return NewJSONLogger(service, level).With("worker_id", workerID), workerID
}

// NewWorkerID returns a short unique instance id, stable for the lifetime
// of the process.
func NewWorkerID() string {
	return "worker-" + uuid.NewString()[:8]
}

func newJSONLogger(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
