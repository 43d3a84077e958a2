// Package logger sets up the process-wide slog logger from the environment.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.Mutex
	defaultLogger *slog.Logger
	logFile       *os.File
)

// Setup builds the default logger writing to stderr.
// LOG_LEVEL picks debug|info|warn|error, LOG_FORMAT=json switches handlers.
func Setup() *slog.Logger {
	return SetupWriter(os.Stderr)
}

// SetupWriter builds the default logger writing to w.
func SetupWriter(w io.Writer) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var h slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	l := slog.New(h)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	return l
}

// SetupForTUI keeps log lines off the terminal while a full-screen program
// runs: output goes to LOG_FILE when set and is discarded otherwise.
func SetupForTUI() (*slog.Logger, error) {
	path := os.Getenv("LOG_FILE")
	if path == "" {
		return SetupWriter(io.Discard), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	mu.Unlock()
	return SetupWriter(f), nil
}

// L returns the default logger, initializing it on first use.
func L() *slog.Logger {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	if l == nil {
		return Setup()
	}
	return l
}
