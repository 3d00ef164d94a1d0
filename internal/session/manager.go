package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/harshul/coderun/internal/loop"
)

// FloatingState is the lifecycle of the persistent floating session.
type FloatingState int

const (
	FloatingClosed FloatingState = iota
	FloatingHidden
	FloatingVisible
)

func (s FloatingState) String() string {
	switch s {
	case FloatingHidden:
		return "hidden"
	case FloatingVisible:
		return "visible"
	default:
		return "closed"
	}
}

// Manager enforces the at-most-one bottom session rule and the floating
// toggle. It is not safe for concurrent use; call it from the loop.
type Manager struct {
	host   Host
	loop   loop.Poster
	logger *zap.Logger
	detach bool

	// bottom is nil in the absent state.
	bottom *Handle

	floatBuf BufferID
	floatWin WindowID
}

// NewManager returns a manager over host. When detach is set, replacing the
// bottom session only closes its window and leaves the old job running.
func NewManager(host Host, poster loop.Poster, logger *zap.Logger, detach bool) *Manager {
	return &Manager{
		host:   host,
		loop:   poster,
		logger: logger.Named("session"),
		detach: detach,
	}
}

// Bottom returns the live bottom session, if any.
func (m *Manager) Bottom() (Handle, bool) {
	if m.bottom == nil || !m.host.WindowValid(m.bottom.Window) {
		return Handle{}, false
	}
	return *m.bottom, true
}

// acquire is the only transition of the bottom state machine. The old
// session is gone before the new one exists.
func (m *Manager) acquire() Handle {
	if old := m.bottom; old != nil {
		m.bottom = nil
		if m.host.WindowValid(old.Window) {
			m.host.CloseWindow(old.Window)
		}
		if !m.detach && m.host.BufferValid(old.Buffer) {
			m.host.DeleteBuffer(old.Buffer)
		}
		m.logger.Debug("released bottom session", zap.Int("buffer", int(old.Buffer)), zap.Bool("detached", m.detach))
	}

	buf := m.host.NewBuffer()
	h := Handle{Buffer: buf, Window: m.host.OpenWindow(buf, Bottom)}
	m.bottom = &h
	return h
}

// RunInBottom replaces the bottom session with a fresh one running command.
// onComplete, when non-nil, is posted to the loop once the job exits.
func (m *Manager) RunInBottom(command string, onComplete func(exitCode int)) (Handle, error) {
	h := m.acquire()
	err := m.host.Start(h.Buffer, command, func(code int) {
		if onComplete == nil {
			return
		}
		m.loop.Post(func() { onComplete(code) })
	})
	if err != nil {
		return h, fmt.Errorf("failed to start %q: %w", command, err)
	}
	m.logger.Debug("bottom session started", zap.Int("buffer", int(h.Buffer)), zap.String("command", command))
	return h, nil
}

// RunFloating opens a disposable floating session. It is never reused and
// the caller closes it with Dismiss.
func (m *Manager) RunFloating(command string) (Handle, error) {
	buf := m.host.NewBuffer()
	h := Handle{Buffer: buf, Window: m.host.OpenWindow(buf, Floating)}
	if err := m.host.Start(buf, command, nil); err != nil {
		return h, fmt.Errorf("failed to start %q: %w", command, err)
	}
	m.host.Focus(h.Window)
	return h, nil
}

// Floating reports the state of the persistent floating session.
func (m *Manager) Floating() FloatingState {
	if m.floatWin != 0 && m.host.WindowValid(m.floatWin) {
		return FloatingVisible
	}
	if m.floatBuf != 0 && m.host.BufferValid(m.floatBuf) {
		return FloatingHidden
	}
	return FloatingClosed
}

// ToggleFloating advances the persistent floating session and returns its
// new state: visible hides, hidden reopens on the same buffer, closed starts
// an idle shell.
func (m *Manager) ToggleFloating() (FloatingState, error) {
	switch m.Floating() {
	case FloatingVisible:
		m.host.CloseWindow(m.floatWin)
		m.floatWin = 0
		return FloatingHidden, nil
	case FloatingHidden:
		m.floatWin = m.host.OpenWindow(m.floatBuf, Floating)
		m.host.Focus(m.floatWin)
		return FloatingVisible, nil
	}

	m.floatBuf = m.host.NewBuffer()
	m.floatWin = m.host.OpenWindow(m.floatBuf, Floating)
	if err := m.host.Start(m.floatBuf, "", nil); err != nil {
		m.host.DeleteBuffer(m.floatBuf)
		m.floatBuf, m.floatWin = 0, 0
		return FloatingClosed, fmt.Errorf("failed to start shell: %w", err)
	}
	m.host.Focus(m.floatWin)
	return FloatingVisible, nil
}

// Dismiss closes win the way the user expects: the toggled floating session
// is hidden, the bottom window is closed, and a disposable floating session
// is destroyed together with its job.
func (m *Manager) Dismiss(win WindowID) {
	switch {
	case win == 0 || !m.host.WindowValid(win):
		return
	case win == m.floatWin:
		m.host.CloseWindow(win)
		m.floatWin = 0
	case m.bottom != nil && win == m.bottom.Window:
		m.host.CloseWindow(win)
	default:
		if buf, ok := m.host.BufferOf(win); ok {
			m.host.DeleteBuffer(buf)
		}
		m.host.CloseWindow(win)
	}
}
