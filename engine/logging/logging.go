// Package logging wraps logrus with a small leveled API used across the
// engine. Per-frame paths log at debug level so release builds stay quiet by
// default.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return l
}

// SetLevel sets the logging level by name ("debug", "info", "warn", "error").
// Unknown names fall back to info.
//
// Parameters:
//   - level: the level name
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
}

// SetOutput redirects log output, e.g. to a file or io.Discard in tests.
//
// Parameters:
//   - w: the destination writer
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// fields converts alternating key/value arguments into logrus fields.
// A trailing key without a value is ignored.
func fields(kvs []any) logrus.Fields {
	f := make(logrus.Fields, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		key, ok := kvs[i].(string)
		if !ok {
			continue
		}
		f[key] = kvs[i+1]
	}
	return f
}

// Debug logs at debug level with alternating key/value context.
//
// Parameters:
//   - msg: the log message
//   - kvs: alternating keys (string) and values
func Debug(msg string, kvs ...any) {
	if len(kvs) == 0 {
		log.Debug(msg)
		return
	}
	log.WithFields(fields(kvs)).Debug(msg)
}

// Info logs at info level with alternating key/value context.
//
// Parameters:
//   - msg: the log message
//   - kvs: alternating keys (string) and values
func Info(msg string, kvs ...any) {
	if len(kvs) == 0 {
		log.Info(msg)
		return
	}
	log.WithFields(fields(kvs)).Info(msg)
}

// Warn logs at warn level with alternating key/value context.
//
// Parameters:
//   - msg: the log message
//   - kvs: alternating keys (string) and values
func Warn(msg string, kvs ...any) {
	if len(kvs) == 0 {
		log.Warn(msg)
		return
	}
	log.WithFields(fields(kvs)).Warn(msg)
}

// Error logs at error level with alternating key/value context.
//
// Parameters:
//   - msg: the log message
//   - kvs: alternating keys (string) and values
func Error(msg string, kvs ...any) {
	if len(kvs) == 0 {
		log.Error(msg)
		return
	}
	log.WithFields(fields(kvs)).Error(msg)
}
