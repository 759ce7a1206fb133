package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
)

// RunLog is an append-only log file inside a run workspace. It receives the
// structured records for one lifecycle pass plus raw external tool output.
type RunLog struct {
	path    string
	file    *os.File
	writer  *lockedWriter
	handler slog.Handler
}

// OpenRunLog opens (or creates) path for appending.
func OpenRunLog(path, format, level string) (*RunLog, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	writer := &lockedWriter{w: file}
	handler, err := newHandler(writer, format, level, false)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &RunLog{path: path, file: file, writer: writer, handler: handler}, nil
}

// Path returns the log file location.
func (r *RunLog) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// Writer returns a writer for raw tool output. Writes interleave with log
// records at line granularity.
func (r *RunLog) Writer() io.Writer {
	if r == nil {
		return io.Discard
	}
	return r.writer
}

// Attach returns a logger that writes to both base and the run log.
func (r *RunLog) Attach(base *slog.Logger) *slog.Logger {
	if r == nil {
		return base
	}
	return TeeLogger(base, r.handler)
}

// Close flushes and closes the underlying file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// TeeLogger duplicates log output from base into the provided handlers.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	if base != nil {
		handlers = append([]slog.Handler{base.Handler()}, handlers...)
	}
	return slog.New(newTeeHandler(handlers...))
}

type teeHandler []slog.Handler

func newTeeHandler(handlers ...slog.Handler) slog.Handler {
	var live teeHandler
	for _, h := range handlers {
		if h == nil {
			continue
		}
		if _, noop := h.(NoopHandler); noop {
			continue
		}
		live = append(live, h)
	}
	switch len(live) {
	case 0:
		return NoopHandler{}
	case 1:
		return live[0]
	default:
		return live
	}
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = h.WithGroup(name)
	}
	return next
}
