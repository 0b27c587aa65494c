package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu    sync.Mutex
	files []*os.File
)

// NewLogger builds a text logger writing to stdout and to a timestamped file
// in logDir. An empty name is the process-wide log, anything else a
// supervisor log.
func NewLogger(debug bool, logDir, name string) (*slog.Logger, error) {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("error creating log directory: %w", err)
	}

	fileName := "Walker-" + time.Now().Format("2006-01-02-15-04-05") + ".txt"
	if name != "" {
		fileName = fmt.Sprintf("Supervisor-%s-%s.txt", name, time.Now().Format("2006-01-02-15-04-05"))
	}

	f, err := os.OpenFile(filepath.Join(logDir, fileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	mu.Lock()
	files = append(files, f)
	mu.Unlock()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.TimeOnly))
			}
			return a
		},
	}

	logger := slog.New(slog.NewTextHandler(io.MultiWriter(os.Stdout, f), opts))
	if name != "" {
		logger = logger.With(slog.String("supervisor", name))
	}
	return logger, nil
}

// FlushLog syncs every open log file to disk.
func FlushLog() {
	mu.Lock()
	defer mu.Unlock()
	for _, f := range files {
		_ = f.Sync()
	}
}

func FlushAndClose() {
	mu.Lock()
	defer mu.Unlock()
	for _, f := range files {
		_ = f.Sync()
		_ = f.Close()
	}
	files = nil
}
