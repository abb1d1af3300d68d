// Package testlog provides a log handler for unit tests.
package testlog

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

var useColorInTestLog = true

func init() {
	if os.Getenv("DOGGY_TESTLOG_DISABLE_COLOR") == "true" {
		useColorInTestLog = false
	}
}

// Testing interface to log to. Standard Go testing.TB implements this.
type Testing interface {
	Logf(format string, args ...any)
	Helper()
	Name() string
}

// tHandler renders records with a terminal handler into a buffer, then hands every
// rendered line to t.Logf.
type tHandler struct {
	t     Testing
	inner slog.Handler
	mu    *sync.Mutex
	buf   *bytes.Buffer
}

func (h *tHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *tHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	scanner := bufio.NewScanner(h.buf)
	for scanner.Scan() {
		h.t.Logf("%s", scanner.Text())
	}
	h.buf.Reset()
	return nil
}

func (h *tHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &tHandler{t: h.t, inner: h.inner.WithAttrs(attrs), mu: h.mu, buf: h.buf}
}

func (h *tHandler) WithGroup(name string) slog.Handler {
	return &tHandler{t: h.t, inner: h.inner.WithGroup(name), mu: h.mu, buf: h.buf}
}

func newHandler(t Testing, level slog.Level) slog.Handler {
	buf := new(bytes.Buffer)
	return &tHandler{
		t:     t,
		inner: log.NewTerminalHandlerWithLevel(buf, level, useColorInTestLog),
		mu:    new(sync.Mutex),
		buf:   buf,
	}
}

// Logger returns a logger which logs to the unit test log of t.
func Logger(t Testing, level slog.Level) log.Logger {
	return log.NewLogger(newHandler(t, level))
}

// CaptureLogger returns a logger that writes to the unit test log of t and records every
// emitted record in the returned handler.
func CaptureLogger(t Testing, level slog.Level) (log.Logger, *CapturingHandler) {
	ch := &CapturingHandler{handler: newHandler(t, level), Logs: new([]*CapturedRecord)}
	return log.NewLogger(ch), ch
}
