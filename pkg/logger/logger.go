package logger

import (
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Logger wraps zerolog with application-specific configuration.
type Logger struct {
	zl zerolog.Logger
}

// DefaultLogger is the global logger instance.
var DefaultLogger *Logger

// Config holds logger configuration.
type Config struct {
	// Level sets the minimum log level (debug, info, warn, error)
	Level string
	// Format sets the output format (json, console)
	Format string
	// Output sets the output destination (defaults to stdout)
	Output io.Writer
}

// Init initializes the default logger with the given configuration.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	var zl zerolog.Logger
	if cfg.Format == "console" {
		// Console format with colors for development
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	} else {
		// JSON format for production
		zl = zerolog.New(cfg.Output).With().Timestamp().Logger()
	}

	switch cfg.Level {
	case "debug":
		zl = zl.Level(zerolog.DebugLevel)
	case "info":
		zl = zl.Level(zerolog.InfoLevel)
	case "warn":
		zl = zl.Level(zerolog.WarnLevel)
	case "error":
		zl = zl.Level(zerolog.ErrorLevel)
	default:
		zl = zl.Level(zerolog.InfoLevel)
	}

	DefaultLogger = &Logger{zl: zl}
	zerolog.TimeFieldFormat = time.RFC3339
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// With returns a sub-logger with additional fields.
func (l *Logger) With() zerolog.Context { return l.zl.With() }

// Package-level convenience functions

func ensureDefault() {
	if DefaultLogger == nil {
		Init(Config{Level: "info", Format: "json"})
	}
}

func Debug() *zerolog.Event {
	ensureDefault()
	return DefaultLogger.Debug()
}

func Info() *zerolog.Event {
	ensureDefault()
	return DefaultLogger.Info()
}

func Warn() *zerolog.Event {
	ensureDefault()
	return DefaultLogger.Warn()
}

func Error() *zerolog.Event {
	ensureDefault()
	return DefaultLogger.Error()
}

func Fatal() *zerolog.Event {
	ensureDefault()
	return DefaultLogger.Fatal()
}

// Audit logs a security-sensitive operation at info level with a distinct
// "audit" tag. Used for share/revoke actions, photo deletions, auth events.
func Audit(action string, photographerID string, fields map[string]string) {
	ensureDefault()
	event := DefaultLogger.Info().
		Str("log_type", "audit").
		Str("action", action).
		Str("photographer_id", photographerID)
	for k, v := range fields {
		event = event.Str(k, v)
	}
	event.Msg("audit event")
}

// Middleware returns a Fiber middleware that logs requests.
func Middleware() fiber.Handler {
	ensureDefault()

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		event := DefaultLogger.Info()
		if err != nil {
			event = DefaultLogger.Error().Err(err)
		}

		requestID := ""
		if rid, ok := c.Locals("request_id").(string); ok {
			requestID = rid
		}

		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Int("bytes_sent", len(c.Response().Body())).
			Str("ip", c.IP()).
			Dur("latency", time.Since(start)).
			Str("request_id", requestID).
			Msg("HTTP request")

		return err
	}
}
