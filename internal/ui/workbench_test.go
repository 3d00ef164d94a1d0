package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/harshul/coderun/internal/config"
	"github.com/harshul/coderun/internal/language"
	"github.com/harshul/coderun/internal/loop"
	"github.com/harshul/coderun/internal/orchestrator"
	"github.com/harshul/coderun/internal/session"
)

type workbenchRig struct {
	m     *WorkbenchModel
	posts chan func()
	file  string
}

func newWorkbenchRig(t *testing.T) *workbenchRig {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(file, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := language.NewRegistry([]language.Profile{
		{ID: "echo-lang", Mode: language.ModeInterpreted, Template: "echo $FILE", Extensions: []string{".txt"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	host := session.NewPTYHost(session.Options{Dir: dir}, zap.NewNop())
	m := NewWorkbench(host, orchestrator.Target{File: file}, zap.NewNop())

	posts := make(chan func(), 16)
	q := loop.NewWithDispatch(func(fn func()) { posts <- fn })
	m.engine = orchestrator.New(orchestrator.Options{
		Settings: config.Settings{
			OutputDir:    "build",
			TestDir:      "tests",
			InputSuffix:  ".in",
			OutputSuffix: ".out",
			HistorySize:  10,
			TestTimeout:  time.Second,
		},
		Registry: reg,
		Host:     host,
		Loop:     q,
		Notifier: m,
		Prompter: m,
		Logger:   zap.NewNop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go q.Run(ctx)
	t.Cleanup(func() {
		cancel()
		host.Close()
	})

	m.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
	return &workbenchRig{m: m, posts: posts, file: file}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func (r *workbenchRig) press(msgs ...tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = r.m.Update(msg)
	}
	return cmd
}

// pumpUntil feeds loop callbacks into Update until cond holds.
func (r *workbenchRig) pumpUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for !cond() {
		select {
		case fn := <-r.posts:
			r.m.Update(postMsg(fn))
		case <-deadline:
			t.Fatal("timed out waiting for the workbench")
		}
	}
}

func (r *workbenchRig) lastNotice(t *testing.T) orchestrator.Notice {
	t.Helper()
	if len(r.m.notices) == 0 {
		t.Fatal("no notice")
	}
	return r.m.notices[len(r.m.notices)-1]
}

func TestWorkbenchRun(t *testing.T) {
	r := newWorkbenchRig(t)

	r.press(runes("r"))
	if r.m.busy == "" {
		t.Error("run should mark the workbench busy")
	}
	r.pumpUntil(t, func() bool { return len(r.m.notices) == 1 })

	if n := r.lastNotice(t); n.Level != orchestrator.LevelSuccess {
		t.Fatalf("notice = %+v", n)
	}
	if r.m.busy != "" {
		t.Error("notice should clear busy")
	}

	r.m.Update(frameMsg(time.Now()))
	view := r.m.View()
	if !strings.Contains(view, r.file) {
		t.Errorf("bottom pane should show the program output:\n%s", view)
	}
	if !strings.Contains(view, "echo-lang") {
		t.Errorf("header should name the language:\n%s", view)
	}
}

func TestWorkbenchConfirmModal(t *testing.T) {
	r := newWorkbenchRig(t)

	r.press(runes("c"))
	if len(r.m.prompts) != 1 {
		t.Fatalf("clean should open a confirmation, got %d prompts", len(r.m.prompts))
	}
	if !strings.Contains(r.m.View(), "Delete") {
		t.Error("the modal should show the question")
	}

	// Commands are ignored while a prompt is open.
	r.press(runes("r"))
	if r.m.busy != "" {
		t.Error("keys must go to the prompt")
	}

	r.press(tea.KeyMsg{Type: tea.KeyEnter})
	if len(r.m.prompts) != 0 {
		t.Fatal("prompt should be closed")
	}
	if n := r.lastNotice(t); n.Title != "Clean: cancelled" {
		t.Errorf("notice = %+v", n)
	}
}

func TestWorkbenchInputModal(t *testing.T) {
	r := newWorkbenchRig(t)

	r.press(runes("i"))
	if len(r.m.prompts) != 1 {
		t.Fatal("run with input should ask for a file")
	}
	r.press(runes("missing.txt"), tea.KeyMsg{Type: tea.KeyEnter})

	n := r.lastNotice(t)
	if n.Level != orchestrator.LevelError || !strings.Contains(n.Title, "input file not found") {
		t.Errorf("notice = %+v", n)
	}
}

func TestWorkbenchInputCancelled(t *testing.T) {
	r := newWorkbenchRig(t)
	r.press(runes("i"), tea.KeyMsg{Type: tea.KeyEsc})
	if n := r.lastNotice(t); n.Title != "Run with input: cancelled" {
		t.Errorf("notice = %+v", n)
	}
}

func TestWorkbenchSynchronousOperations(t *testing.T) {
	tests := []struct {
		key   string
		title string
	}{
		{"p", "Profile: unavailable"},
		{"h", "History: no runs yet"},
		{"b", "Build: nothing to compile"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			r := newWorkbenchRig(t)
			r.press(runes(tt.key))
			if n := r.lastNotice(t); n.Title != tt.title {
				t.Errorf("notice = %+v, want %q", n, tt.title)
			}
		})
	}
}

func TestWorkbenchFloatingTerminal(t *testing.T) {
	r := newWorkbenchRig(t)

	r.press(runes("`"))
	if !r.m.interactive {
		t.Error("showing the terminal should focus it")
	}
	if _, ok := r.m.floatingView(); !ok {
		t.Fatal("floating window should be open")
	}

	r.press(tea.KeyMsg{Type: tea.KeyEsc})
	if r.m.interactive {
		t.Error("esc should leave the session")
	}

	r.press(runes("`"))
	if _, ok := r.m.floatingView(); ok {
		t.Error("second toggle should hide the terminal")
	}
	if n := r.lastNotice(t); n.Title != "Floating terminal hidden" {
		t.Errorf("notice = %+v", n)
	}
}

func TestWorkbenchHelpAndQuit(t *testing.T) {
	r := newWorkbenchRig(t)

	r.press(runes("?"))
	if !strings.Contains(r.m.View(), "run with I/O files") {
		t.Error("help should list every operation")
	}

	r.press(runes("q"))
	if !r.m.quitting {
		t.Error("q should quit")
	}
}

func TestKeyBytes(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want string
	}{
		{"runes", runes("ab"), "ab"},
		{"alt rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x"), Alt: true}, "\x1bx"},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, "\r"},
		{"tab", tea.KeyMsg{Type: tea.KeyTab}, "\t"},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}, "\x03"},
		{"backspace", tea.KeyMsg{Type: tea.KeyBackspace}, "\x7f"},
		{"space", tea.KeyMsg{Type: tea.KeySpace}, " "},
		{"up", tea.KeyMsg{Type: tea.KeyUp}, "\x1b[A"},
		{"f1", tea.KeyMsg{Type: tea.KeyF1}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(keyBytes(tt.msg)); got != tt.want {
				t.Errorf("keyBytes = %q, want %q", got, tt.want)
			}
		})
	}
}
