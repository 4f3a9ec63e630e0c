package logger

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"exchange/src/config"
)

var (
	Logger  zerolog.Logger
	logFile *os.File
)

// New builds a logger that writes to out and, when cfg.File names a file, to
// that file as well. The returned file is nil when none was opened.
func New(cfg config.LogConfig, out io.Writer) (zerolog.Logger, *os.File, error) {
	if cfg.Format == "pretty" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	var file *os.File
	switch cfg.File {
	case "", "none", "disabled":
	default:
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return zerolog.New(out).With().Timestamp().Logger(), nil, errors.Wrapf(err, "open log file %s", cfg.File)
		}
		file = f
		out = io.MultiWriter(out, f)
	}

	return zerolog.New(out).With().Timestamp().Str("service", "exchange").Logger(), file, nil
}

// ParseLevel falls back to info for empty or unknown levels.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}

// InitLogger installs the configured logger as the package and zerolog
// global logger. A log file that cannot be opened degrades to stdout only.
func InitLogger(cfg config.LogConfig) {
	level := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var err error
	Logger, logFile, err = New(cfg, os.Stdout)
	log.Logger = Logger

	if err != nil {
		Logger.Error().Err(err).Msg("Failed to open log file, using stdout only")
	}
	Logger.Debug().
		Str("log_level", level.String()).
		Str("log_format", cfg.Format).
		Bool("log_file", logFile != nil).
		Msg("Logger initialized")
}

func CloseLogger() {
	if logFile == nil {
		return
	}
	_ = logFile.Sync()
	_ = logFile.Close()
	logFile = nil
}

func GetLogger() zerolog.Logger {
	return Logger
}
