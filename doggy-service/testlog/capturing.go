package testlog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// CapturedAttributes forms a chain of inherited attributes, to traverse on captured log records.
type CapturedAttributes struct {
	Parent     *CapturedAttributes
	Attributes []slog.Attr
}

// Attrs calls f on each Attr in the [CapturedAttributes].
// Iteration stops if f returns false.
func (r *CapturedAttributes) Attrs(f func(slog.Attr) bool) {
	for _, a := range r.Attributes {
		if !f(a) {
			return
		}
	}
	if r.Parent != nil {
		r.Parent.Attrs(f)
	}
}

// CapturedRecord wraps a log record together with the attributes inherited from the logger
// that emitted it.
type CapturedRecord struct {
	Parent *CapturedAttributes
	*slog.Record
}

// Attrs calls f on each Attr in the [CapturedRecord].
// Iteration stops if f returns false.
func (r *CapturedRecord) Attrs(f func(slog.Attr) bool) {
	searching := true
	r.Record.Attrs(func(a slog.Attr) bool {
		searching = f(a)
		return searching
	})
	if !searching {
		return
	}
	if r.Parent != nil {
		r.Parent.Attrs(f)
	}
}

// AttrValue returns the string form of the first attribute named key.
func (r *CapturedRecord) AttrValue(key string) (string, bool) {
	var (
		out   string
		found bool
	)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			out, found = a.Value.String(), true
			return false
		}
		return true
	})
	return out, found
}

// CapturingHandler captures all log records and forwards them to a delegate.
type CapturingHandler struct {
	handler slog.Handler
	mu      sync.Mutex
	Logs    *[]*CapturedRecord // shared among derived CapturingHandlers
	attrs   *CapturedAttributes
	root    *CapturingHandler
}

func (c *CapturingHandler) lock() *sync.Mutex {
	if c.root != nil {
		return &c.root.mu
	}
	return &c.mu
}

func (c *CapturingHandler) rootOrSelf() *CapturingHandler {
	if c.root != nil {
		return c.root
	}
	return c
}

func (c *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	mu := c.lock()
	mu.Lock()
	*c.Logs = append(*c.Logs, &CapturedRecord{Parent: c.attrs, Record: &r})
	mu.Unlock()
	return c.handler.Handle(ctx, r)
}

func (c *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CapturingHandler{
		handler: c.handler.WithAttrs(attrs),
		Logs:    c.Logs,
		attrs:   &CapturedAttributes{Parent: c.attrs, Attributes: attrs},
		root:    c.rootOrSelf(),
	}
}

func (c *CapturingHandler) WithGroup(name string) slog.Handler {
	return &CapturingHandler{
		handler: c.handler.WithGroup(name),
		Logs:    c.Logs,
		root:    c.rootOrSelf(),
	}
}

func (c *CapturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return c.handler.Enabled(ctx, level)
}

func (c *CapturingHandler) Clear() {
	mu := c.lock()
	mu.Lock()
	defer mu.Unlock()
	*c.Logs = (*c.Logs)[:0]
}

type LogFilter func(record *CapturedRecord) bool

func NewLevelFilter(level slog.Level) LogFilter {
	return func(r *CapturedRecord) bool {
		return r.Record.Level == level
	}
}

func NewMessageFilter(message string) LogFilter {
	return func(r *CapturedRecord) bool {
		return r.Record.Message == message
	}
}

func NewMessageContainsFilter(message string) LogFilter {
	return func(r *CapturedRecord) bool {
		return strings.Contains(r.Record.Message, message)
	}
}

func NewAttributesFilter(key, value string) LogFilter {
	return func(r *CapturedRecord) bool {
		v, ok := r.AttrValue(key)
		return ok && v == value
	}
}

// FindLog returns the first captured record matching all filters, or nil.
func (c *CapturingHandler) FindLog(filters ...LogFilter) *CapturedRecord {
	for _, l := range c.FindLogs(filters...) {
		return l
	}
	return nil
}

// FindLogs returns every captured record matching all filters.
func (c *CapturingHandler) FindLogs(filters ...LogFilter) []*CapturedRecord {
	mu := c.lock()
	mu.Lock()
	defer mu.Unlock()
	var out []*CapturedRecord
outer:
	for _, record := range *c.Logs {
		for _, filter := range filters {
			if !filter(record) {
				continue outer
			}
		}
		out = append(out, record)
	}
	return out
}
