package logger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// activityEntry is one captured log record, kept structured so formatting
// happens only when the buffer is read.
type activityEntry struct {
	at      time.Time
	level   slog.Level
	message string
	attrs   []slog.Attr
}

func (e activityEntry) format() string {
	var b strings.Builder
	b.WriteString(e.at.Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(e.level.String())
	b.WriteByte(' ')
	b.WriteString(e.message)
	for _, attr := range e.attrs {
		b.WriteByte(' ')
		b.WriteString(attr.Key)
		b.WriteByte('=')
		b.WriteString(attr.Value.String())
	}
	return b.String()
}

// RingBuffer keeps the most recent log records in memory with a fixed
// capacity, overwriting the oldest entry once full.
type RingBuffer struct {
	mu       sync.RWMutex
	entries  []activityEntry
	capacity int
	next     int
	filled   bool
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &RingBuffer{
		capacity: capacity,
		entries:  make([]activityEntry, capacity),
	}
}

func (b *RingBuffer) append(entry activityEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = entry
	b.next = (b.next + 1) % b.capacity
	if b.next == 0 {
		b.filled = true
	}
}

// GetLast returns up to n of the most recent lines, oldest first. A
// non-positive n returns everything stored.
func (b *RingBuffer) GetLast(n int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	size := b.size()
	if size == 0 {
		return []string{}
	}
	if n <= 0 || n > size {
		n = size
	}

	start := b.next - n
	if !b.filled {
		start = size - n
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (start + i + b.capacity) % b.capacity
		lines = append(lines, b.entries[idx].format())
	}
	return lines
}

// Capacity returns the maximum number of entries the buffer can hold.
func (b *RingBuffer) Capacity() int {
	return b.capacity
}

// Size returns the current number of stored entries.
func (b *RingBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size()
}

func (b *RingBuffer) size() int {
	if b.filled {
		return b.capacity
	}
	return b.next
}

// bufferingHandler tees every record into the ring buffer before passing it
// to the wrapped handler.
type bufferingHandler struct {
	next   slog.Handler
	buffer *RingBuffer
}

func newBufferingHandler(next slog.Handler, buffer *RingBuffer) slog.Handler {
	return &bufferingHandler{next: next, buffer: buffer}
}

func (h *bufferingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *bufferingHandler) Handle(ctx context.Context, record slog.Record) error {
	entry := activityEntry{
		at:      record.Time,
		level:   record.Level,
		message: record.Message,
	}
	if entry.at.IsZero() {
		entry.at = time.Now()
	}
	record.Attrs(func(attr slog.Attr) bool {
		entry.attrs = append(entry.attrs, attr)
		return true
	})
	h.buffer.append(entry)

	return h.next.Handle(ctx, record)
}

func (h *bufferingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &bufferingHandler{next: h.next.WithAttrs(attrs), buffer: h.buffer}
}

func (h *bufferingHandler) WithGroup(name string) slog.Handler {
	return &bufferingHandler{next: h.next.WithGroup(name), buffer: h.buffer}
}
