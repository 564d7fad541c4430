package xpath

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

type Tracer interface {
	Enter(string)
	Leave(string)
	Error(string, error)
}

type discardTracer struct{}

func (_ discardTracer) Enter(_ string)          {}
func (_ discardTracer) Leave(_ string)          {}
func (_ discardTracer) Error(_ string, _ error) {}

// stdioTracer logs every function invocation with its nesting depth.
type stdioTracer struct {
	logger *slog.Logger

	mu       sync.Mutex
	depth    int
	errcount int
}

func TraceStdout() Tracer {
	return TraceWriter(os.Stdout, slog.LevelDebug)
}

func TraceStderr() Tracer {
	return TraceWriter(os.Stderr, slog.LevelDebug)
}

func TraceWriter(w io.Writer, level slog.Level) Tracer {
	tracer := stdioTracer{
		logger: stdioLogger(w, level),
	}
	return &tracer
}

func stdioLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := slog.HandlerOptions{
		Level: level,
	}
	return slog.New(slog.NewTextHandler(w, &opts))
}

func (t *stdioTracer) Enter(fn string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.depth++
	t.logger.Debug("invoke function", "function", fn, "depth", t.depth)
}

func (t *stdioTracer) Leave(fn string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logger.Debug("leave function", "function", fn, "depth", t.depth)
	t.depth--
}

func (t *stdioTracer) Error(fn string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errcount++
	args := []any{
		"function",
		fn,
		"depth",
		t.depth,
		"code",
		ErrorCode(err),
		"err",
		err,
	}
	t.logger.Error("function failed", args...)
}

// Errors returns the number of failures reported to the tracer.
func (t *stdioTracer) Errors() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errcount
}
