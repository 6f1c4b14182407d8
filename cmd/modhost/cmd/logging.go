package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

var logFormatters = map[string]log.Formatter{
	"text":   log.TextFormatter,
	"json":   log.JSONFormatter,
	"logfmt": log.LogfmtFormatter,
}

// newLogger builds the console logger: a charm handler behind slog.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	formatter, ok := logFormatters[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("invalid log format %q (want text, json or logfmt)", format)
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Formatter:       formatter,
		ReportTimestamp: true,
		Prefix:          "modhost",
	})
	return slog.New(handler), nil
}

func (o *globalOptions) logger(w io.Writer) (*slog.Logger, error) {
	return newLogger(w, o.logLevel, o.logFormat)
}
