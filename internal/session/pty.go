package session

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/harshul/coderun/internal/process"
)

// drainGrace bounds how long output is read after the job has exited. A
// grandchild that inherited the terminal can otherwise hold it open forever.
const drainGrace = 250 * time.Millisecond

// Options configures a PTYHost.
type Options struct {
	// Dir is the working directory of every job.
	Dir string
	// Shell runs idle interactive sessions; defaults to $SHELL, then sh.
	Shell string
	// Scrollback is the line capacity of each buffer.
	Scrollback int
	// Mirror, when set, receives the raw output of every buffer that is
	// shown in a window. Headless commands point it at stdout.
	Mirror io.Writer
	Rows   uint16
	Cols   uint16
}

type job struct {
	command string
	lines   *Scrollback
	cmd     *exec.Cmd
	input   io.Writer
	tty     *os.File // nil when running on plain pipes
	running bool
	exited  bool
	code    int
}

type window struct {
	buf       BufferID
	placement Placement
}

// PTYHost runs each buffer's job on a pseudo-terminal, falling back to plain
// pipes where no pty is available.
type PTYHost struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	next    int
	jobs    map[BufferID]*job
	windows map[WindowID]*window
	focused WindowID
}

// NewPTYHost returns an empty host.
func NewPTYHost(opts Options, logger *zap.Logger) *PTYHost {
	if opts.Shell == "" {
		opts.Shell = os.Getenv("SHELL")
	}
	if opts.Shell == "" {
		opts.Shell = "sh"
	}
	if opts.Rows == 0 {
		opts.Rows = 24
	}
	if opts.Cols == 0 {
		opts.Cols = 100
	}
	return &PTYHost{
		opts:    opts,
		logger:  logger.Named("pty"),
		jobs:    map[BufferID]*job{},
		windows: map[WindowID]*window{},
	}
}

func (h *PTYHost) id() int {
	h.next++
	return h.next
}

func (h *PTYHost) NewBuffer() BufferID {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf := BufferID(h.id())
	h.jobs[buf] = &job{lines: NewScrollback(h.opts.Scrollback)}
	return buf
}

func (h *PTYHost) OpenWindow(buf BufferID, p Placement) WindowID {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.jobs[buf]; !ok {
		return 0
	}
	win := WindowID(h.id())
	h.windows[win] = &window{buf: buf, placement: p}
	return win
}

func (h *PTYHost) CloseWindow(win WindowID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeWindowLocked(win)
}

func (h *PTYHost) closeWindowLocked(win WindowID) {
	delete(h.windows, win)
	if h.focused == win {
		h.focused = 0
	}
}

func (h *PTYHost) DeleteBuffer(buf BufferID) {
	h.mu.Lock()
	pid := 0
	if j, ok := h.jobs[buf]; ok && j.running && j.cmd.Process != nil {
		pid = j.cmd.Process.Pid
	}
	delete(h.jobs, buf)
	for win, w := range h.windows {
		if w.buf == buf {
			h.closeWindowLocked(win)
		}
	}
	h.mu.Unlock()

	if pid != 0 {
		h.logger.Debug("terminating job", zap.Int("buffer", int(buf)), zap.Int("pid", pid))
		terminateTree(pid)
	}
}

func (h *PTYHost) BufferValid(buf BufferID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.jobs[buf]
	return ok
}

func (h *PTYHost) WindowValid(win WindowID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.windows[win]
	return ok
}

func (h *PTYHost) BufferOf(win WindowID) (BufferID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[win]
	if !ok {
		return 0, false
	}
	return w.buf, true
}

func (h *PTYHost) Focus(win WindowID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.windows[win]; ok {
		h.focused = win
	}
}

// Focused returns the focused window, zero when none.
func (h *PTYHost) Focused() WindowID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.focused
}

func (h *PTYHost) shellArgs(command string) []string {
	if command == "" {
		return []string{h.opts.Shell}
	}
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C", command}
	}
	return []string{"sh", "-c", command}
}

func (h *PTYHost) newCmd(command string) *exec.Cmd {
	args := h.shellArgs(command)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = h.opts.Dir
	cmd.Env = os.Environ()
	if os.Getenv("TERM") == "" {
		cmd.Env = append(cmd.Env, "TERM=xterm-256color")
	}
	return cmd
}

func (h *PTYHost) Start(buf BufferID, command string, onExit func(code int)) error {
	h.mu.Lock()
	j, ok := h.jobs[buf]
	if ok && j.cmd != nil {
		h.mu.Unlock()
		return ErrBufferBusy
	}
	size := &pty.Winsize{Rows: h.opts.Rows, Cols: h.opts.Cols}
	h.mu.Unlock()
	if !ok {
		return ErrNoBuffer
	}

	out := &jobWriter{host: h, buf: buf, lines: j.lines}
	cmd := h.newCmd(command)
	drained := make(chan struct{})
	tty, err := pty.StartWithSize(cmd, size)
	var input io.Writer = tty
	var closer io.Closer = tty
	if err == nil {
		go func() {
			io.Copy(out, tty)
			close(drained)
		}()
	} else {
		h.logger.Debug("pty unavailable, using pipes", zap.Error(err))
		tty = nil
		cmd = h.newCmd(command)
		stdin, perr := cmd.StdinPipe()
		if perr != nil {
			return fmt.Errorf("stdin pipe: %w", perr)
		}
		cmd.Stdout = out
		cmd.Stderr = out
		if err := cmd.Start(); err != nil {
			return err
		}
		input, closer = stdin, stdin
		close(drained)
	}

	h.mu.Lock()
	j.command = command
	j.cmd = cmd
	j.input = input
	j.tty = tty
	j.running = true
	h.mu.Unlock()

	h.logger.Debug("job started", zap.Int("buffer", int(buf)), zap.Int("pid", cmd.Process.Pid), zap.Bool("pty", tty != nil))

	go func() {
		code := process.ExitCode(cmd.Wait())
		select {
		case <-drained:
		case <-time.After(drainGrace):
		}
		closer.Close()

		h.mu.Lock()
		j.running = false
		j.exited = true
		j.code = code
		h.mu.Unlock()

		j.lines.Append(fmt.Sprintf("[process exited with code %d]", code))
		if onExit != nil {
			onExit(code)
		}
	}()
	return nil
}

// Input writes p to the job of the focused window.
func (h *PTYHost) Input(p []byte) error {
	h.mu.Lock()
	var input io.Writer
	if w, ok := h.windows[h.focused]; ok {
		if j, ok := h.jobs[w.buf]; ok && j.running {
			input = j.input
		}
	}
	h.mu.Unlock()

	if input == nil {
		return ErrNotRunning
	}
	_, err := input.Write(p)
	return err
}

// Resize changes the terminal size of every pty-backed job.
func (h *PTYHost) Resize(rows, cols uint16) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opts.Rows, h.opts.Cols = rows, cols
	for _, j := range h.jobs {
		if j.tty != nil && j.running {
			pty.Setsize(j.tty, &pty.Winsize{Rows: rows, Cols: cols})
		}
	}
}

// Pid returns the process id of the buffer's running job.
func (h *PTYHost) Pid(buf BufferID) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	j, ok := h.jobs[buf]
	if !ok || !j.running || j.cmd.Process == nil {
		return 0, false
	}
	return j.cmd.Process.Pid, true
}

// Close terminates every job and forgets all buffers.
func (h *PTYHost) Close() {
	h.mu.Lock()
	bufs := make([]BufferID, 0, len(h.jobs))
	for buf := range h.jobs {
		bufs = append(bufs, buf)
	}
	h.mu.Unlock()
	for _, buf := range bufs {
		h.DeleteBuffer(buf)
	}
}

func (h *PTYHost) visible(buf BufferID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.windows {
		if w.buf == buf {
			return true
		}
	}
	return false
}

// View is a snapshot of one window for rendering.
type View struct {
	Window    WindowID
	Buffer    BufferID
	Placement Placement
	Title     string
	Lines     []string
	Running   bool
	Exited    bool
	ExitCode  int
	Focused   bool
}

// Views snapshots every open window in creation order, keeping the last
// maxLines lines of each.
func (h *PTYHost) Views(maxLines int) []View {
	h.mu.Lock()
	views := make([]View, 0, len(h.windows))
	for win, w := range h.windows {
		j := h.jobs[w.buf]
		title := j.command
		if title == "" {
			title = h.opts.Shell
		}
		views = append(views, View{
			Window:    win,
			Buffer:    w.buf,
			Placement: w.placement,
			Title:     title,
			Running:   j.running,
			Exited:    j.exited,
			ExitCode:  j.code,
			Focused:   win == h.focused,
		})
	}
	h.mu.Unlock()

	sort.Slice(views, func(a, b int) bool { return views[a].Window < views[b].Window })
	for i := range views {
		if j, ok := h.job(views[i].Buffer); ok {
			views[i].Lines = j.lines.Lines(maxLines)
		}
	}
	return views
}

func (h *PTYHost) job(buf BufferID) (*job, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	j, ok := h.jobs[buf]
	return j, ok
}

// jobWriter feeds a buffer's scrollback and, while it is on screen, the
// mirror.
type jobWriter struct {
	host  *PTYHost
	buf   BufferID
	lines *Scrollback
}

func (w *jobWriter) Write(p []byte) (int, error) {
	w.lines.Write(p)
	if m := w.host.opts.Mirror; m != nil && w.host.visible(w.buf) {
		m.Write(p)
	}
	return len(p), nil
}
