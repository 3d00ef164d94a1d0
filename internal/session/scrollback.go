package session

import (
	"bytes"
	"sync"
)

// Scrollback is a bounded line buffer fed by a byte stream. Complete lines
// go into a ring; the trailing partial line (a shell prompt, say) is kept
// apart so it can be shown before its newline arrives.
type Scrollback struct {
	mu       sync.RWMutex
	lines    []string
	maxLines int
	partial  []byte
}

// NewScrollback keeps at most maxLines complete lines.
func NewScrollback(maxLines int) *Scrollback {
	if maxLines <= 0 {
		maxLines = 2000
	}
	return &Scrollback{maxLines: maxLines}
}

// Write implements io.Writer. Carriage returns before a newline are dropped.
func (s *Scrollback) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.partial = append(s.partial, p...)
	for {
		idx := bytes.IndexByte(s.partial, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimRight(s.partial[:idx], "\r")
		s.appendLocked(string(line))
		s.partial = s.partial[idx+1:]
	}
	return len(p), nil
}

// Append adds a complete line, flushing any pending partial line first.
func (s *Scrollback) Append(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
	s.appendLocked(line)
}

// Flush turns a pending partial line into a complete one.
func (s *Scrollback) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *Scrollback) flushLocked() {
	if len(s.partial) == 0 {
		return
	}
	s.appendLocked(string(bytes.TrimRight(s.partial, "\r")))
	s.partial = s.partial[:0]
}

func (s *Scrollback) appendLocked(line string) {
	if len(s.lines) >= s.maxLines {
		copy(s.lines, s.lines[1:])
		s.lines = s.lines[:len(s.lines)-1]
	}
	s.lines = append(s.lines, line)
}

// Lines returns the last n lines including the partial one; n <= 0 means
// everything.
func (s *Scrollback) Lines(n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.lines
	if len(s.partial) > 0 {
		all = append(all[:len(all):len(all)], string(bytes.TrimRight(s.partial, "\r")))
	}
	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}
	out := make([]string, len(all))
	copy(out, all)
	return out
}

// Len counts complete lines.
func (s *Scrollback) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}
