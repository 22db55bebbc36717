// Package logging builds the zerolog logger shared by the console packages.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the level and destination of log output.
type Config struct {
	// Level is one of debug, info, warn (or warning), error, disabled.
	Level string
	// Pretty renders human readable console lines instead of JSON.
	Pretty bool
	// File, when set, receives the log through a rotating writer. The
	// interactive console logs to a file so prompts stay readable.
	File string
	// FileSizeMB is the rotation size; defaults to 10.
	FileSizeMB int
	// FileCount is the number of rotated files kept; defaults to 5.
	FileCount int
}

// ParseLevel maps a level name to a zerolog level. Unknown names are info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New builds a logger writing to stderr or, when cfg.File is set, to a
// rotating file.
func New(cfg Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit fallback writer.
func NewWithWriter(cfg Config, out io.Writer) zerolog.Logger {
	level := ParseLevel(cfg.Level)
	if strings.TrimSpace(cfg.File) != "" {
		size := cfg.FileSizeMB
		if size <= 0 {
			size = 10
		}
		count := cfg.FileCount
		if count <= 0 {
			count = 5
		}
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    size,
			MaxBackups: count,
			MaxAge:     28,
		}
	} else if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if level == zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}
