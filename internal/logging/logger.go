package logging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"prom2cw/internal/config"
)

const (
	ansiReset   = "\x1b[0m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
	ansiGray    = "\x1b[90m"
)

// New builds the process logger from console and file sink settings.
// Params: cfg validated log config.
// Returns: logger, close callback for file sinks, and open error.
func New(cfg config.LogConfig) (*slog.Logger, func(), error) {
	handlers := make([]slog.Handler, 0, 2)
	closers := make([]io.Closer, 0, 1)

	if cfg.Console.Enabled {
		level, err := parseLevel(cfg.Console.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log.console: %w", err)
		}
		var out io.Writer = os.Stderr
		if cfg.Console.Format != "json" && isTerminal(os.Stderr) {
			out = &colorLineWriter{dst: os.Stderr}
		}
		handlers = append(handlers, newHandler(out, cfg.Console.Format, level))
	}

	if cfg.File.Enabled {
		level, err := parseLevel(cfg.File.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log.file: %w", err)
		}
		file, err := os.OpenFile(cfg.File.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %q: %w", cfg.File.Path, err)
		}
		closers = append(closers, file)
		handlers = append(handlers, newHandler(file, cfg.File.Format, level))
	}

	closeFn := func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, nil)), closeFn, nil
	case 1:
		return slog.New(handlers[0]), closeFn, nil
	default:
		return slog.New(&fanoutHandler{handlers: handlers}), closeFn, nil
	}
}

// newHandler creates a slog handler for one sink.
// Params: out destination; format line/json; level minimum record level.
// Returns: slog handler.
func newHandler(out io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

// parseLevel maps config level names to slog levels.
// Params: level lower-case level name.
// Returns: slog level or error for unknown names.
func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported level %q", level)
	}
}

func isTerminal(file *os.File) bool {
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// fanoutHandler forwards records to every enabled child handler.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		next = append(next, handler.WithAttrs(attrs))
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		next = append(next, handler.WithGroup(name))
	}
	return &fanoutHandler{handlers: next}
}

// colorLineWriter colorizes key=value log lines for terminals.
// The whole line takes the level color; quoted values, IPs and numbers get token colors.
type colorLineWriter struct {
	dst io.Writer
}

// Write colorizes one text handler line.
// Params: p one rendered log line, optionally newline-terminated.
// Returns: len(p) on success or destination write error.
func (w *colorLineWriter) Write(p []byte) (int, error) {
	line := p
	newline := false
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
		newline = true
	}

	base := levelColor(line)
	if base == "" {
		if _, err := w.dst.Write(p); err != nil {
			return 0, err
		}
		return len(p), nil
	}

	var out bytes.Buffer
	out.Grow(len(p) + 64)
	out.WriteString(base)
	colorizeTokens(&out, string(line), base)
	out.WriteString(ansiReset)
	if newline {
		out.WriteByte('\n')
	}

	if _, err := w.dst.Write(out.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}

// levelColor picks the line color from the level attribute.
// Params: line rendered key=value line.
// Returns: ANSI color or empty string when no known level is present.
func levelColor(line []byte) string {
	idx := bytes.Index(line, []byte("level="))
	if idx < 0 || (idx > 0 && line[idx-1] != ' ') {
		return ""
	}
	value := line[idx+len("level="):]
	if end := bytes.IndexByte(value, ' '); end >= 0 {
		value = value[:end]
	}

	switch {
	case bytes.HasPrefix(value, []byte("DEBUG")):
		return ansiGray
	case bytes.HasPrefix(value, []byte("INFO")):
		return ansiBlue
	case bytes.HasPrefix(value, []byte("WARN")):
		return ansiMagenta
	case bytes.HasPrefix(value, []byte("ERROR")):
		return ansiRed
	default:
		return ""
	}
}

// colorizeTokens writes line with attribute values colored by token kind.
// Params: out destination buffer; line source text; base color restored after each token.
// Returns: none.
func colorizeTokens(out *bytes.Buffer, line string, base string) {
	for idx := 0; idx < len(line); {
		eq := strings.IndexByte(line[idx:], '=')
		if eq < 0 {
			out.WriteString(line[idx:])
			return
		}
		valueStart := idx + eq + 1
		out.WriteString(line[idx:valueStart])

		valueEnd := scanValue(line, valueStart)
		value := line[valueStart:valueEnd]
		if color := tokenColor(value); color != "" {
			out.WriteString(color)
			out.WriteString(value)
			out.WriteString(ansiReset)
			out.WriteString(base)
		} else {
			out.WriteString(value)
		}
		idx = valueEnd
	}
}

// scanValue returns the end index of the value starting at start.
// Params: line source text; start first value byte.
// Returns: index after the value (quoted values include the closing quote).
func scanValue(line string, start int) int {
	if start < len(line) && line[start] == '"' {
		escaped := false
		for idx := start + 1; idx < len(line); idx++ {
			switch {
			case escaped:
				escaped = false
			case line[idx] == '\\':
				escaped = true
			case line[idx] == '"':
				return idx + 1
			}
		}
		return len(line)
	}

	if end := strings.IndexByte(line[start:], ' '); end >= 0 {
		return start + end
	}
	return len(line)
}

// tokenColor classifies one attribute value.
// Params: value raw attribute value.
// Returns: ANSI color or empty string for plain values.
func tokenColor(value string) string {
	switch {
	case value == "":
		return ""
	case value[0] == '"':
		return ansiGreen
	case net.ParseIP(value) != nil:
		return ansiCyan
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return ansiYellow
	}
	return ""
}
