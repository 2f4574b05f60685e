// Package log provides structured logging for chatpane on top of zerolog.
// Call sites attach fields with WithField/WithFields/WithError and finish
// with a level method, e.g. log.WithError(err).Error("bridge call failed").
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// InitLogger replaces the global logger. When pretty is true output goes
// through zerolog.ConsoleWriter, otherwise one JSON object per line is written.
func InitLogger(w io.Writer, level zerolog.Level, pretty bool) {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	mu.Lock()
	logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	mu.Unlock()
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return level
}

// Logger returns the current global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Entry accumulates fields until a level method emits it.
type Entry struct {
	fields map[string]interface{}
	err    error
}

// WithField starts an entry with a single field.
func WithField(key string, value interface{}) *Entry {
	return (&Entry{}).WithField(key, value)
}

// WithFields starts an entry with several fields.
func WithFields(fields map[string]interface{}) *Entry {
	return (&Entry{}).WithFields(fields)
}

// WithError starts an entry carrying err.
func WithError(err error) *Entry {
	return (&Entry{}).WithError(err)
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	if e.fields == nil {
		e.fields = make(map[string]interface{}, 4)
	}
	e.fields[key] = value
	return e
}

func (e *Entry) WithFields(fields map[string]interface{}) *Entry {
	for k, v := range fields {
		e.WithField(k, v)
	}
	return e
}

func (e *Entry) WithError(err error) *Entry {
	e.err = err
	return e
}

func (e *Entry) Debug(msg string) { e.emit(zerolog.DebugLevel, msg) }
func (e *Entry) Info(msg string)  { e.emit(zerolog.InfoLevel, msg) }
func (e *Entry) Warn(msg string)  { e.emit(zerolog.WarnLevel, msg) }
func (e *Entry) Error(msg string) { e.emit(zerolog.ErrorLevel, msg) }

func (e *Entry) Debugf(format string, args ...interface{}) { e.Debug(fmt.Sprintf(format, args...)) }
func (e *Entry) Infof(format string, args ...interface{})  { e.Info(fmt.Sprintf(format, args...)) }
func (e *Entry) Warnf(format string, args ...interface{})  { e.Warn(fmt.Sprintf(format, args...)) }
func (e *Entry) Errorf(format string, args ...interface{}) { e.Error(fmt.Sprintf(format, args...)) }

func (e *Entry) emit(level zerolog.Level, msg string) {
	l := Logger()
	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	if e.err != nil {
		ev = ev.Err(e.err)
	}
	if len(e.fields) > 0 {
		ev = ev.Fields(e.fields)
	}
	ev.Msg(msg)
}

func Debug(msg string) { (&Entry{}).Debug(msg) }
func Info(msg string)  { (&Entry{}).Info(msg) }
func Warn(msg string)  { (&Entry{}).Warn(msg) }
func Error(msg string) { (&Entry{}).Error(msg) }
