// Package logging wires slog for a terminal program: the TUI owns
// stderr, so logs go to a file or nowhere.
package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

type Config struct {
	Path  string
	Level slog.Level
}

// New returns a JSON file logger and a close func. With an empty path
// every record is discarded.
func New(config Config) (*slog.Logger, func(), error) {
	if config.Path == "" {
		return slog.New(discardHandler{}), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: config.Level})
	return slog.New(handler), func() { _ = file.Close() }, nil
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
