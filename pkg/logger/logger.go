package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"github.com/lanrat/wireguard-warp-generator/pkg/errors"
)

// Logger wraps slog.Logger with the few helpers the generator needs
type Logger struct {
	*slog.Logger
	config LoggerConfig
}

// LogLevel represents the logging level
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// OutputFormat represents the log output format
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatText OutputFormat = "text"
)

// LoggerConfig holds configuration for the logger.
// Output defaults to os.Stderr: stdout is reserved for the tunnel configuration.
type LoggerConfig struct {
	Level      LogLevel     `mapstructure:"level" yaml:"level" json:"level"`
	Format     OutputFormat `mapstructure:"format" yaml:"format" json:"format"`
	AddSource  bool         `mapstructure:"add_source" yaml:"add_source" json:"add_source"`
	Component  string       `mapstructure:"component" yaml:"component" json:"component"`
	Version    string       `mapstructure:"version" yaml:"version" json:"version"`
	TimeFormat string       `mapstructure:"time_format" yaml:"time_format" json:"time_format"`
	Output     io.Writer    `mapstructure:"-" yaml:"-" json:"-"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() LoggerConfig {
	return LoggerConfig{
		Level:      LevelInfo,
		Format:     FormatText,
		Component:  "warp-generator",
		Version:    "unknown",
		TimeFormat: time.Kitchen,
		Output:     os.Stderr,
	}
}

// New creates a new logger with the provided configuration
func New(config LoggerConfig) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}
	if config.TimeFormat == "" {
		config.TimeFormat = time.Kitchen
	}

	level := parseLogLevel(config.Level)
	return &Logger{
		Logger: slog.New(createHandler(config, level)),
		config: config,
	}
}

// NewDevelopment creates a debug-level text logger on stderr
func NewDevelopment(component string) *Logger {
	return New(LoggerConfig{
		Level:      LevelDebug,
		Format:     FormatText,
		Component:  component,
		Version:    "dev",
		TimeFormat: time.Kitchen,
	})
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return New(LoggerConfig{Level: LevelError, Format: FormatJSON, Output: io.Discard})
}

type contextKey string

const (
	RunIDKey     contextKey = "run_id"
	OperationKey contextKey = "operation"
)

// With returns a new logger with additional attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		config: l.config,
	}
}

// WithContext extracts logging context and returns a scoped logger
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := extractContextAttrs(ctx)
	if len(attrs) == 0 {
		return l
	}

	return &Logger{
		Logger: l.Logger.With(attrsToAny(attrs)...),
		config: l.config,
	}
}

// ErrorCtx logs an error with context enrichment. Domain errors anywhere in
// the chain contribute their domain, code and metadata.
func (l *Logger) ErrorCtx(ctx context.Context, msg string, err error, args ...any) {
	attrs := []any{slog.String("error", err.Error())}

	if domainErr, ok := errors.AsDomainError(err); ok {
		attrs = append(attrs,
			slog.String("error_domain", domainErr.Domain()),
			slog.String("error_code", domainErr.Code()),
			slog.Bool("retryable", domainErr.Retryable()),
		)
		for k, v := range domainErr.Metadata() {
			attrs = append(attrs, slog.Any(k, v))
		}
	}

	attrs = append(attrs, args...)
	l.WithContext(ctx).Error(msg, attrs...)
}

// HTTPRequest logs an outgoing HTTP round-trip with level chosen by status
func (l *Logger) HTTPRequest(ctx context.Context, method, url string, status int, duration time.Duration, args ...any) {
	level := slog.LevelDebug
	if status >= 500 || status == 0 {
		level = slog.LevelError
	} else if status >= 400 {
		level = slog.LevelWarn
	}

	attrs := []any{
		slog.String("http_method", method),
		slog.String("http_url", url),
		slog.Int("http_status", status),
		slog.Duration("duration", duration),
	}
	attrs = append(attrs, args...)

	l.WithContext(ctx).Log(ctx, level, fmt.Sprintf("%s %s %d", method, url, status), attrs...)
}

func parseLogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func createHandler(config LoggerConfig, level slog.Level) slog.Handler {
	switch config.Format {
	case FormatText:
		return tint.NewHandler(config.Output, &tint.Options{
			Level:      level,
			TimeFormat: config.TimeFormat,
			AddSource:  config.AddSource,
			NoColor:    !isTerminal(config.Output),
		})
	default:
		return slog.NewJSONHandler(config.Output, &slog.HandlerOptions{
			Level:     level,
			AddSource: config.AddSource,
		})
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func extractContextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range []contextKey{RunIDKey, OperationKey} {
		if val, ok := ctx.Value(key).(string); ok && val != "" {
			attrs = append(attrs, slog.String(string(key), val))
		}
	}
	return attrs
}

func attrsToAny(attrs []slog.Attr) []any {
	result := make([]any, len(attrs))
	for i, attr := range attrs {
		result[i] = attr
	}
	return result
}

func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}

func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}
