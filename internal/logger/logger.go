package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	Level   string   // debug/info/warn/error
	Format  string   // text/json
	Outputs []string // "stdout", "stderr" or a file path; stdout when empty
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New builds a logger writing to w.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Open builds a logger for cfg, opening every file output in append mode.
// The returned closer releases the files.
func Open(cfg Config) (*slog.Logger, io.Closer, error) {
	var writers []io.Writer
	var files multiCloser
	for _, output := range cfg.Outputs {
		switch output {
		case "", "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				files.Close()
				return nil, nil, fmt.Errorf("create log dir: %w", err)
			}
			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				files.Close()
				return nil, nil, fmt.Errorf("open log file: %w", err)
			}
			writers = append(writers, f)
			files = append(files, f)
		}
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	l, err := New(cfg.Level, cfg.Format, io.MultiWriter(writers...))
	if err != nil {
		files.Close()
		return nil, nil, err
	}
	return l, files, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
