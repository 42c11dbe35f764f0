package logger

import (
	"io"
	"os"
	"strings"

	stdlog "log"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Options controls the global logger
type Options struct {
	Level   string // debug, info, warn, error
	Pretty  bool   // console output instead of JSON
	Service string
	Out     io.Writer
}

// Init installs the global zerolog logger. Call once at startup.
//
// Pretty selects the colored console writer for local use; otherwise JSON
// lines are written for log collectors. Every line carries the service name.
// The standard library log package is redirected into zerolog.
func Init(opts Options) zerolog.Logger {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level))); err == nil && l != zerolog.NoLevel {
		level = l
	}
	zerolog.SetGlobalLevel(level)

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var w io.Writer = out
	if opts.Pretty {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	service := opts.Service
	if service == "" {
		service = "matchwatch"
	}

	logger := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()

	zlog.Logger = logger

	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog.Logger)
	return logger
}
