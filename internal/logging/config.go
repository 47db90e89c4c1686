package logging

import (
	"fmt"
	"io"
	"os"
)

// Config holds the logger configuration.
type Config struct {
	// Level is the minimum level to emit (debug, info, warn, error, fatal).
	Level string
	// Format is the output encoding (json, text).
	Format string
	// Output is the destination (stdout, stderr, or a file path).
	Output string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: "stderr",
	}
}

// NewLogger builds a Logger from the configuration.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	output, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	return newLogger(level, format, output), nil
}

func parseFormat(format string) (Format, error) {
	switch format {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format %q", format)
	}
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log output: %w", err)
		}
		return file, nil
	}
}
