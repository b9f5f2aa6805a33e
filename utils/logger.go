package utils

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerOptions mirrors the logging section of the application config
type LoggerOptions struct {
	Level      string
	Format     string // json, text
	Output     string // stdout, file, both
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	Caller     bool
}

// NewLogger builds the process logger. File output is rotated by lumberjack.
func NewLogger(opts LoggerOptions) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetReportCaller(opts.Caller)

	if strings.EqualFold(opts.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	}

	var fileWriter io.Writer
	if opts.FilePath != "" {
		fileWriter = &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
			Compress:   opts.Compress,
		}
	}

	switch strings.ToLower(opts.Output) {
	case "file":
		if fileWriter != nil {
			logger.SetOutput(fileWriter)
		}
	case "both":
		if fileWriter != nil {
			logger.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
		}
	default:
		logger.SetOutput(os.Stdout)
	}

	return logger
}
