// Package console holds the controller output shown in the console view.
package console

import (
	"strings"
	"time"
)

// DefaultLimit caps the number of lines kept in memory.
const DefaultLimit = 5000

// Stream identifies where a line came from
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
	System Stream = "system"
)

// Line is one console line
type Line struct {
	At     time.Time
	Stream Stream
	Text   string
}

// Buffer is an append-only line buffer with a cap. It is not safe for
// concurrent use; the dashboard only touches it from its event loop.
type Buffer struct {
	lines   []Line
	limit   int
	version uint64
}

// New creates a buffer keeping at most limit lines
func New(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Buffer{
		lines: make([]Line, 0, 256),
		limit: limit,
	}
}

// Append adds text, one line per newline-separated part.
func (b *Buffer) Append(stream Stream, text string) {
	now := time.Now()
	text = strings.TrimRight(text, "\r\n")
	for _, part := range strings.Split(text, "\n") {
		b.lines = append(b.lines, Line{
			At:     now,
			Stream: stream,
			Text:   strings.TrimRight(part, "\r"),
		})
	}
	if len(b.lines) > b.limit {
		b.lines = b.lines[len(b.lines)-b.limit:]
	}
	b.version++
}

// Clear drops every line.
func (b *Buffer) Clear() {
	b.lines = b.lines[:0]
	b.version++
}

// Len returns the number of lines.
func (b *Buffer) Len() int {
	return len(b.lines)
}

// Lines returns a copy of the buffered lines.
func (b *Buffer) Lines() []Line {
	return append([]Line(nil), b.lines...)
}

// Version changes on every mutation.
func (b *Buffer) Version() uint64 {
	return b.version
}

// Render joins the lines, formatting each with format.
func (b *Buffer) Render(format func(Line) string) string {
	var sb strings.Builder
	for i, line := range b.lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if format != nil {
			sb.WriteString(format(line))
		} else {
			sb.WriteString(line.Text)
		}
	}
	return sb.String()
}
