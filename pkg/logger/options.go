package logger

import (
	"io"
	"log/slog"
)

// Option configures the logger returned by New. Options apply in order, so
// a later WithWriter overrides an earlier one.
type Option func(*config)

// WithDebug lowers the level to Debug; otherwise the logger stays at Info.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		} else {
			c.level = slog.LevelInfo
		}
	}
}

// WithPretty switches to the colorized charmbracelet handler. Meant for
// interactive CLI sessions, not for service logs.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON emits one JSON object per line, for log shippers.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter sends output to w instead of os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters fans output out to every writer via io.MultiWriter.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource annotates each record with the calling file and line.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
