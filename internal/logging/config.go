package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/soltixdb/rediswatch/internal/config"
)

// NewFromConfig creates a logger from configuration
func NewFromConfig(cfg config.LoggingConfig) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	output, err := openOutput(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	if cfg.Format == "console" || cfg.Format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: consoleTimeFormat(cfg.TimeFormat),
		}
	} else {
		zerolog.TimeFieldFormat = jsonTimeFormat(cfg.TimeFormat)
	}

	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "rediswatch").
		Logger()

	return &Logger{zl: zl, fields: make(map[string]interface{})}, nil
}

func openOutput(path string) (io.Writer, error) {
	switch path {
	case "stdout", "":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	logDir := filepath.Dir(path)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return file, nil
}

func consoleTimeFormat(format string) string {
	switch format {
	case "Kitchen":
		return time.Kitchen
	case "Unix":
		return time.UnixDate
	default:
		return time.RFC3339
	}
}

func jsonTimeFormat(format string) string {
	switch format {
	case "Unix":
		return zerolog.TimeFormatUnix
	case "UnixMs":
		return zerolog.TimeFormatUnixMs
	default:
		return time.RFC3339
	}
}
