// Package logtail retains the most recent lines written to it so that a
// failed serving container's last output can be attached to error reports
// without buffering its full log stream.
package logtail

import (
	"strings"
	"sync"
)

// Buffer is an io.Writer that keeps only the newest maxLines complete lines.
// It is safe for concurrent use: the log streamer writes while the caller
// snapshots.
type Buffer struct {
	mu       sync.Mutex
	maxLines int
	lines    []string
	partial  strings.Builder
}

// New creates a Buffer retaining up to maxLines lines. A non-positive
// maxLines retains a single line.
func New(maxLines int) *Buffer {
	if maxLines < 1 {
		maxLines = 1
	}
	return &Buffer{maxLines: maxLines}
}

// Write implements io.Writer. Input is split on newlines; incomplete trailing
// data is held back until its line terminator arrives.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range p {
		if c == '\n' {
			b.appendLine(b.partial.String())
			b.partial.Reset()
			continue
		}
		b.partial.WriteByte(c)
	}
	return len(p), nil
}

// Lines returns a snapshot of the retained lines, oldest first, including any
// unterminated final line.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := make([]string, 0, len(b.lines)+1)
	lines = append(lines, b.lines...)
	if b.partial.Len() > 0 {
		lines = append(lines, b.partial.String())
	}
	if len(lines) > b.maxLines {
		lines = lines[len(lines)-b.maxLines:]
	}
	return lines
}

// String returns the retained lines joined with newlines.
func (b *Buffer) String() string {
	return strings.Join(b.Lines(), "\n")
}

func (b *Buffer) appendLine(line string) {
	b.lines = append(b.lines, line)
	if len(b.lines) > b.maxLines {
		b.lines = b.lines[len(b.lines)-b.maxLines:]
	}
}
