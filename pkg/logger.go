package digitizer

import (
	"io"
	"log/slog"
)

type Logger interface {
	Info(message string, module string)
	Error(string)
}

var logger Logger = nopLogger{}

// verbosity gates the detail level of library messages, 0 is silent.
var verbosity int

func SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	logger = l
}

func SetVerbosity(v int) {
	verbosity = v
}

type nopLogger struct{}

func (nopLogger) Info(string, string) {}
func (nopLogger) Error(string)        {}

// SlogLogger sends informational messages and errors to separate slog loggers.
type SlogLogger struct {
	InfoLog  *slog.Logger
	ErrorLog *slog.Logger
}

// NewSlogLogger writes info messages with the bracketed text handler and
// errors as JSON.
func NewSlogLogger(infoOut io.Writer, errOut io.Writer) SlogLogger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	return SlogLogger{
		InfoLog:  slog.New(NewHandler(infoOut, opts)),
		ErrorLog: slog.New(slog.NewJSONHandler(errOut, opts)),
	}
}

func (l SlogLogger) Info(message string, module string) {
	l.InfoLog.Info(message, "module", module)
}

func (l SlogLogger) Error(message string) {
	l.ErrorLog.Error(message)
}
