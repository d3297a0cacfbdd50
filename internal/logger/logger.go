package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. format is "json" or "text"; an unknown
// level falls back to info.
func New(level, format string) *logrus.Logger {
	return NewWithOutput(level, format, os.Stdout)
}

func NewWithOutput(level, format string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	if strings.EqualFold(format, "text") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
