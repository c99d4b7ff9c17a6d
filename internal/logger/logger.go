package logger

import (
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"github.com/rs/zerolog"
)

var log = zerolog.New(io.Discard)

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Init initializes the logger for the given level name. Unknown names fall
// back to warning.
func Init(level string, isService bool) {
	InitWithWriter(os.Stdout, level, isService)
}

// InitWithWriter is Init with an explicit output, used by tests.
func InitWithWriter(out io.Writer, level string, isService bool) {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.NoColor = true
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	log = zerolog.New(output).With().Timestamp().Logger()

	SetLogLevel(ParseLevel(level))
}

// ParseLevel maps a configured level name to a LogLevel.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "error":
		return ErrorLevel
	default:
		return WarnLevel
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{withCode(log.Error(), err)}
}

func withCode(ev *zerolog.Event, err errors.Error) *zerolog.Event {
	return ev.
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())
}

// componentLogger tags every event with the owning component.
type componentLogger struct {
	component string
}

// With returns a Logger whose events carry component=name.
func With(component string) Logger {
	return &componentLogger{component: component}
}

func (c *componentLogger) Debug() *LogEvent {
	return &LogEvent{log.Debug().Str("component", c.component)}
}

func (c *componentLogger) Info() *LogEvent {
	return &LogEvent{log.Info().Str("component", c.component)}
}

func (c *componentLogger) Warn() *LogEvent {
	return &LogEvent{log.Warn().Str("component", c.component)}
}

func (c *componentLogger) Error() *LogEvent {
	return &LogEvent{log.Error().Str("component", c.component)}
}

func (c *componentLogger) ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{withCode(log.Error().Str("component", c.component), err)}
}
