package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

func newLogger(c Config) (*slog.Logger, error) {
	switch c.LogFormat {
	case "json":
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
	default:
		level, err := log.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		handler := log.NewWithOptions(os.Stderr, log.Options{
			Level:           level,
			ReportTimestamp: true,
		})
		return slog.New(handler), nil
	}
}
