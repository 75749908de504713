// Package logger is the process-wide logging facade, backed by logrus.
package logger

import (
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log  = logrus.New()
	once sync.Once
)

// Init configures the default logger with the given level string. Subsequent
// calls are no-ops; use SetLevel to change the level at runtime.
func Init(levelStr string) {
	once.Do(func() {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		log.SetLevel(parseLevel(levelStr))
	})
}

// SetLevel changes the logging level.
func SetLevel(levelStr string) {
	log.SetLevel(parseLevel(levelStr))
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func parseLevel(levelStr string) logrus.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }

// Infof logs an info message.
func Infof(format string, args ...interface{}) { log.Infof(format, args...) }

// Warnf logs a warning message.
func Warnf(format string, args ...interface{}) { log.Warnf(format, args...) }

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }

// Fatalf logs a fatal message and exits the program.
func Fatalf(format string, args ...interface{}) { log.Fatalf(format, args...) }
