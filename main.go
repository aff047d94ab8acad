package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

func main() {
	logger := newLogger(os.Getenv("WALKIE_LOG_LEVEL"))
	slog.SetDefault(logger)

	app := NewApp(os.Stdout, logger)
	os.Exit(app.Run(context.Background()))
}

func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
