// Package logging builds the application logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stdout. Debug mode logs colored text at
// debug level, otherwise JSON at info level.
func New(debug bool) *logrus.Logger {
	return NewWithOutput(os.Stdout, debug)
}

func NewWithOutput(out io.Writer, debug bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if debug {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
