package cli

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/GabrielNunesIT/log2gelf/internal/config"
)

// SetupLogging creates the process logger: human-readable output on stderr,
// plus JSON lines in a rotating file when file.Path is set. The returned
// function closes the file.
func SetupLogging(level string, file config.LogFileConfig) (zerolog.Logger, func()) {
	return newLogger(os.Stderr, level, file)
}

func newLogger(out io.Writer, level string, file config.LogFileConfig) (zerolog.Logger, func()) {
	var w io.Writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	closeFn := func() {}

	if file.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
			Compress:   file.Compress,
		}
		w = zerolog.MultiLevelWriter(w, rotator)
		closeFn = func() { _ = rotator.Close() }
	}

	log := zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
	return log, closeFn
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
