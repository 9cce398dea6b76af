package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the process JSON logger. Records carry the environment,
// plus trace/span ids and the acting user when the context has them.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == "dev" {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	return slog.New(NewTraceHandler(slog.NewJSONHandler(w, opts))).With("env", env)
}
