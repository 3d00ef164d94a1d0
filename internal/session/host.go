// Package session owns the terminal-like surfaces programs run in: one
// persistent bottom session plus floating sessions, either disposable or
// toggled.
package session

import "errors"

// BufferID identifies a job-backed buffer. Zero is never a valid id.
type BufferID int

// WindowID identifies a window showing a buffer. Zero is never a valid id.
type WindowID int

// Placement says where a window is drawn.
type Placement int

const (
	Bottom Placement = iota
	Floating
)

func (p Placement) String() string {
	if p == Floating {
		return "floating"
	}
	return "bottom"
}

var (
	ErrNoBuffer   = errors.New("buffer does not exist")
	ErrBufferBusy = errors.New("buffer already has a job")
	ErrNotRunning = errors.New("no running job is focused")
)

// Host is the terminal collaborator. All methods are called from the loop
// goroutine except onExit, which the host may invoke from any goroutine.
type Host interface {
	NewBuffer() BufferID
	OpenWindow(buf BufferID, p Placement) WindowID
	CloseWindow(win WindowID)
	// DeleteBuffer terminates the buffer's job, if any, and closes every
	// window that shows it.
	DeleteBuffer(buf BufferID)
	BufferValid(buf BufferID) bool
	WindowValid(win WindowID) bool
	BufferOf(win WindowID) (BufferID, bool)
	Focus(win WindowID)
	// Start runs command as the buffer's job. An empty command starts an
	// idle interactive shell. onExit may be nil.
	Start(buf BufferID, command string, onExit func(code int)) error
}

// Handle names a buffer and the window showing it.
type Handle struct {
	Buffer BufferID
	Window WindowID
}
