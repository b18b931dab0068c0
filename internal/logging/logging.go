// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetLogLevel maps a level name onto logrus, case-insensitively. Unknown
// names select info.
func SetLogLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "verbose":
		log.SetLevel(log.DebugLevel)
	case "warn", "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "quiet", "silent":
		log.SetLevel(log.FatalLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// Options selects the level and sink.
type Options struct {
	Level string
	File  string // empty logs to stderr
}

// Setup applies opts to the standard logger. The returned closer releases
// the log file, if any.
func Setup(opts Options) io.Closer {
	SetLogLevel(opts.Level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if opts.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}

	_ = os.MkdirAll(filepath.Dir(opts.File), 0o755)
	sink := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	}
	log.SetOutput(sink)
	return sink
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
