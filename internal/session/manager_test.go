package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/harshul/coderun/internal/loop"
)

type fakeHost struct {
	t        *testing.T
	next     int
	buffers  map[BufferID]bool
	windows  map[WindowID]*window
	focused  WindowID
	commands map[BufferID]string
	exits    map[BufferID]func(int)
	deleted  []BufferID
	startErr error
}

func newFakeHost(t *testing.T) *fakeHost {
	return &fakeHost{
		t:        t,
		buffers:  map[BufferID]bool{},
		windows:  map[WindowID]*window{},
		commands: map[BufferID]string{},
		exits:    map[BufferID]func(int){},
	}
}

func (f *fakeHost) NewBuffer() BufferID {
	f.next++
	buf := BufferID(f.next)
	f.buffers[buf] = true
	return buf
}

func (f *fakeHost) OpenWindow(buf BufferID, p Placement) WindowID {
	if p == Bottom && f.count(Bottom) > 0 {
		f.t.Fatalf("opening a bottom window while another is valid")
	}
	f.next++
	win := WindowID(f.next)
	f.windows[win] = &window{buf: buf, placement: p}
	return win
}

func (f *fakeHost) count(p Placement) int {
	n := 0
	for _, w := range f.windows {
		if w.placement == p {
			n++
		}
	}
	return n
}

func (f *fakeHost) CloseWindow(win WindowID) { delete(f.windows, win) }

func (f *fakeHost) DeleteBuffer(buf BufferID) {
	delete(f.buffers, buf)
	f.deleted = append(f.deleted, buf)
	for win, w := range f.windows {
		if w.buf == buf {
			delete(f.windows, win)
		}
	}
}

func (f *fakeHost) BufferValid(buf BufferID) bool { return f.buffers[buf] }

func (f *fakeHost) WindowValid(win WindowID) bool {
	_, ok := f.windows[win]
	return ok
}

func (f *fakeHost) BufferOf(win WindowID) (BufferID, bool) {
	w, ok := f.windows[win]
	if !ok {
		return 0, false
	}
	return w.buf, true
}

func (f *fakeHost) Focus(win WindowID) { f.focused = win }

func (f *fakeHost) Start(buf BufferID, command string, onExit func(int)) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.commands[buf] = command
	f.exits[buf] = onExit
	return nil
}

func drain(t *testing.T, q *loop.Queue) {
	t.Helper()
	q.Post(q.Stop)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Run(ctx); err != nil {
		t.Fatalf("loop: %v", err)
	}
}

func TestBottomSessionIsUnique(t *testing.T) {
	host := newFakeHost(t)
	m := NewManager(host, loop.New(), zap.NewNop(), false)

	var handles []Handle
	for i := 0; i < 5; i++ {
		h, err := m.RunInBottom("echo run", nil)
		if err != nil {
			t.Fatalf("RunInBottom: %v", err)
		}
		handles = append(handles, h)
		if n := host.count(Bottom); n != 1 {
			t.Fatalf("after call %d: %d bottom windows", i+1, n)
		}
	}

	for _, h := range handles[:4] {
		if host.WindowValid(h.Window) || host.BufferValid(h.Buffer) {
			t.Errorf("stale handle %+v is still valid", h)
		}
	}
	if len(host.deleted) != 4 {
		t.Errorf("expected 4 released buffers, got %v", host.deleted)
	}
	if got, ok := m.Bottom(); !ok || got != handles[4] {
		t.Errorf("Bottom() = %+v, %v", got, ok)
	}
}

func TestBottomSessionDetach(t *testing.T) {
	host := newFakeHost(t)
	m := NewManager(host, loop.New(), zap.NewNop(), true)

	first, _ := m.RunInBottom("sleep 100", nil)
	m.RunInBottom("echo second", nil)

	if host.WindowValid(first.Window) {
		t.Error("old window should be closed")
	}
	if !host.BufferValid(first.Buffer) {
		t.Error("detach keeps the old job's buffer alive")
	}
}

func TestOnCompleteIsPostedOnce(t *testing.T) {
	host := newFakeHost(t)
	q := loop.New()
	m := NewManager(host, q, zap.NewNop(), false)

	var codes []int
	h, err := m.RunInBottom("false", func(code int) { codes = append(codes, code) })
	if err != nil {
		t.Fatalf("RunInBottom: %v", err)
	}

	host.exits[h.Buffer](1)
	if len(codes) != 0 {
		t.Fatal("onComplete ran inside the exit callback")
	}
	drain(t, q)

	if len(codes) != 1 || codes[0] != 1 {
		t.Errorf("codes = %v, want [1]", codes)
	}
}

func TestStartFailureIsReported(t *testing.T) {
	host := newFakeHost(t)
	host.startErr = errors.New("boom")
	m := NewManager(host, loop.New(), zap.NewNop(), false)

	if _, err := m.RunInBottom("x", nil); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := m.ToggleFloating(); err == nil {
		t.Fatal("expected an error")
	}
	if m.Floating() != FloatingClosed {
		t.Errorf("failed toggle must leave the session closed, got %v", m.Floating())
	}
}

func TestToggleFloatingCycle(t *testing.T) {
	host := newFakeHost(t)
	m := NewManager(host, loop.New(), zap.NewNop(), false)

	steps := []FloatingState{FloatingVisible, FloatingHidden, FloatingVisible, FloatingHidden}
	var buffers []BufferID
	for i, want := range steps {
		got, err := m.ToggleFloating()
		if err != nil {
			t.Fatalf("toggle %d: %v", i+1, err)
		}
		if got != want || m.Floating() != want {
			t.Fatalf("toggle %d: state %v, want %v", i+1, got, want)
		}
		if want == FloatingVisible {
			if n := host.count(Floating); n != 1 {
				t.Errorf("toggle %d: %d floating windows", i+1, n)
			}
			if host.focused != m.floatWin {
				t.Errorf("toggle %d: floating window should be focused", i+1)
			}
			buffers = append(buffers, m.floatBuf)
		}
	}

	if buffers[0] != buffers[1] {
		t.Errorf("reopening must reuse buffer %d, got %d", buffers[0], buffers[1])
	}
	if cmd := host.commands[buffers[0]]; cmd != "" {
		t.Errorf("toggled session should start an idle shell, got %q", cmd)
	}
}

func TestToggleFloatingAfterBufferDestroyed(t *testing.T) {
	host := newFakeHost(t)
	m := NewManager(host, loop.New(), zap.NewNop(), false)

	m.ToggleFloating()
	first := m.floatBuf
	host.DeleteBuffer(first)

	if m.Floating() != FloatingClosed {
		t.Fatalf("state = %v, want closed", m.Floating())
	}
	m.ToggleFloating()
	if m.floatBuf == first {
		t.Error("a destroyed buffer must be recreated")
	}
}

func TestRunFloatingIsEphemeral(t *testing.T) {
	host := newFakeHost(t)
	m := NewManager(host, loop.New(), zap.NewNop(), false)

	a, _ := m.RunFloating("htop")
	b, _ := m.RunFloating("htop")
	if a.Buffer == b.Buffer || a.Window == b.Window {
		t.Fatal("disposable sessions must never be reused")
	}
	if host.focused != b.Window {
		t.Error("newest floating window should be focused")
	}

	m.Dismiss(a.Window)
	if host.BufferValid(a.Buffer) {
		t.Error("dismissing a disposable session destroys its buffer")
	}
	if !host.BufferValid(b.Buffer) {
		t.Error("other sessions are untouched")
	}
}

func TestDismissPersistentFloatingHides(t *testing.T) {
	host := newFakeHost(t)
	m := NewManager(host, loop.New(), zap.NewNop(), false)

	m.ToggleFloating()
	m.Dismiss(m.floatWin)

	if m.Floating() != FloatingHidden {
		t.Errorf("state = %v, want hidden", m.Floating())
	}
}
