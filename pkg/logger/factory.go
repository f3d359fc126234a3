package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Format represents logger output format.
type Format string

const (
	// FormatJSON outputs structured logs for production log aggregation.
	FormatJSON Format = "json"
	// FormatText outputs human-readable logs for development.
	FormatText Format = "text"
)

// Config holds logger settings loadable from the environment.
type Config struct {
	Level  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	Format Format     `env:"LOG_FORMAT" envDefault:"json"`
}

type factory struct {
	level  slog.Level
	format Format
	output io.Writer
	attrs  []slog.Attr
}

// Option configures logger creation.
type Option func(*factory)

// WithLevel sets the minimum level.
func WithLevel(l slog.Level) Option {
	return func(f *factory) { f.level = l }
}

// WithFormat sets the output format. Invalid formats panic so that
// misconfiguration stops startup instead of silently logging wrong.
func WithFormat(format Format) Option {
	return func(f *factory) {
		switch format {
		case FormatJSON, FormatText:
			f.format = format
		default:
			panic(fmt.Errorf("invalid log format %q: must be %q or %q", format, FormatJSON, FormatText))
		}
	}
}

// WithOutput sets a custom output destination; nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(f *factory) {
		if w != nil {
			f.output = w
		}
	}
}

// WithAttr adds static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(f *factory) {
		f.attrs = append(f.attrs, attrs...)
	}
}

// New creates a slog.Logger. Defaults: info level, JSON format, stdout.
func New(opts ...Option) *slog.Logger {
	f := &factory{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}

	handlerOpts := &slog.HandlerOptions{Level: f.level}

	var handler slog.Handler
	switch f.format {
	case FormatText:
		handler = slog.NewTextHandler(f.output, handlerOpts)
	default:
		handler = slog.NewJSONHandler(f.output, handlerOpts)
	}

	if len(f.attrs) > 0 {
		handler = handler.WithAttrs(f.attrs)
	}

	return slog.New(handler)
}

// NewFromConfig creates a logger from environment-loaded settings with the
// service name attached to every record.
func NewFromConfig(cfg Config, service string) *slog.Logger {
	opts := []Option{
		WithLevel(cfg.Level),
		WithFormat(cfg.Format),
	}
	if service != "" {
		opts = append(opts, WithAttr(slog.String("service", service)))
	}
	return New(opts...)
}
