package session

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitExit(t *testing.T, exits <-chan int) int {
	t.Helper()
	select {
	case code := <-exits:
		return code
	case <-time.After(10 * time.Second):
		t.Fatal("job did not exit")
		return 0
	}
}

func TestPTYHostRunsCommand(t *testing.T) {
	mirror := &syncBuffer{}
	host := NewPTYHost(Options{Dir: t.TempDir(), Scrollback: 100, Mirror: mirror}, zap.NewNop())
	defer host.Close()

	buf := host.NewBuffer()
	win := host.OpenWindow(buf, Bottom)
	exits := make(chan int, 1)
	if err := host.Start(buf, "echo hello; exit 3", func(code int) { exits <- code }); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if code := waitExit(t, exits); code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}

	views := host.Views(0)
	if len(views) != 1 || views[0].Window != win {
		t.Fatalf("views = %+v", views)
	}
	v := views[0]
	if !v.Exited || v.Running || v.ExitCode != 3 {
		t.Errorf("view state = %+v", v)
	}
	joined := strings.Join(v.Lines, "\n")
	if !strings.Contains(joined, "hello") {
		t.Errorf("scrollback missing output: %q", joined)
	}
	if last := v.Lines[len(v.Lines)-1]; last != "[process exited with code 3]" {
		t.Errorf("last line = %q", last)
	}
	if !strings.Contains(mirror.String(), "hello") {
		t.Errorf("visible output should be mirrored, got %q", mirror.String())
	}
}

func TestPTYHostDeleteTerminatesJob(t *testing.T) {
	host := NewPTYHost(Options{Dir: t.TempDir()}, zap.NewNop())
	defer host.Close()

	buf := host.NewBuffer()
	win := host.OpenWindow(buf, Bottom)
	exits := make(chan int, 1)
	if err := host.Start(buf, "sleep 30", func(code int) { exits <- code }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, ok := host.Pid(buf); !ok {
		t.Fatal("job should be running")
	}

	host.DeleteBuffer(buf)
	if host.BufferValid(buf) || host.WindowValid(win) {
		t.Error("buffer and its window should be gone")
	}
	if code := waitExit(t, exits); code == 0 {
		t.Error("killed job should not report success")
	}
}

func TestPTYHostStartTwice(t *testing.T) {
	host := NewPTYHost(Options{Dir: t.TempDir()}, zap.NewNop())
	defer host.Close()

	buf := host.NewBuffer()
	if err := host.Start(buf, "true", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := host.Start(buf, "true", nil); err != ErrBufferBusy {
		t.Errorf("second Start = %v, want ErrBufferBusy", err)
	}
	if err := host.Start(BufferID(999), "true", nil); err != ErrNoBuffer {
		t.Errorf("Start on unknown buffer = %v, want ErrNoBuffer", err)
	}
}

func TestPTYHostInputNeedsFocus(t *testing.T) {
	host := NewPTYHost(Options{Dir: t.TempDir()}, zap.NewNop())
	defer host.Close()

	if err := host.Input([]byte("x")); err != ErrNotRunning {
		t.Errorf("Input = %v, want ErrNotRunning", err)
	}
}

func TestPTYHostForwardsInput(t *testing.T) {
	host := NewPTYHost(Options{Dir: t.TempDir()}, zap.NewNop())
	defer host.Close()

	buf := host.NewBuffer()
	win := host.OpenWindow(buf, Floating)
	host.Focus(win)
	exits := make(chan int, 1)
	if err := host.Start(buf, "read line; echo got-$line", func(code int) { exits <- code }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := host.Input([]byte("ping\n")); err != nil {
		t.Fatalf("Input: %v", err)
	}
	waitExit(t, exits)

	joined := strings.Join(host.Views(0)[0].Lines, "\n")
	if !strings.Contains(joined, "got-ping") {
		t.Errorf("scrollback = %q", joined)
	}
}
