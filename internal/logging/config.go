package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/demandcast/demandcast/internal/config"
)

// consoleTimeFormats are the layouts accepted by logging.time_format
var consoleTimeFormats = map[string]string{
	"RFC3339":  time.RFC3339,
	"DateTime": time.DateTime,
	"Kitchen":  time.Kitchen,
	"Unix":     time.UnixDate,
}

// NewFromConfig creates a logger from configuration. Unknown levels fall back
// to info; console format wraps the writer in a zerolog.ConsoleWriter.
func NewFromConfig(cfg config.LoggingConfig) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	output, err := openOutput(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	switch cfg.Format {
	case "console", "pretty":
		layout, ok := consoleTimeFormats[cfg.TimeFormat]
		if !ok {
			layout = time.RFC3339
		}
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: layout}
	}

	return NewWithWriter(output, level), nil
}

// openOutput resolves stdout, stderr or a log file, creating its directory
func openOutput(path string) (io.Writer, error) {
	switch path {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return file, nil
}
