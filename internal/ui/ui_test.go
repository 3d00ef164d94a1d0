package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/harshul/coderun/internal/orchestrator"
)

func TestRenderNotice(t *testing.T) {
	got := RenderNotice(orchestrator.Notice{
		Level:  orchestrator.LevelWarn,
		Title:  "Tests: 1/2 passed",
		Detail: "1: passed\n2: wrong answer\n",
	})
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected title and two detail lines, got %q", got)
	}
	if !strings.Contains(lines[0], "Tests: 1/2 passed") {
		t.Errorf("title line = %q", lines[0])
	}
	if !strings.Contains(lines[2], "  2: wrong answer") {
		t.Errorf("detail should be indented, got %q", lines[2])
	}
}

func TestConsoleNotify(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out}

	c.Notify(orchestrator.Notice{Level: orchestrator.LevelSuccess, Title: "Run: finished in 0.010s"})
	if !strings.Contains(out.String(), "Run: finished in 0.010s") {
		t.Errorf("output = %q", out.String())
	}
}

func TestConsolePrompts(t *testing.T) {
	tests := []struct {
		name    string
		console Console
		want    bool
	}{
		{"no terminal answers no", Console{}, false},
		{"assume yes", Console{AssumeYes: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := tt.console
			c.Out = &out
			got := !tt.want
			c.Confirm("Delete build?", func(yes bool) { got = yes })
			if got != tt.want {
				t.Errorf("Confirm = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConsoleInputsInOrder(t *testing.T) {
	c := &Console{Out: &bytes.Buffer{}, Inputs: []string{"in.txt", "out.txt"}}
	var got []string
	for i := 0; i < 3; i++ {
		c.Input("file", "", func(v string, ok bool) {
			if ok {
				got = append(got, v)
			} else {
				got = append(got, "<cancelled>")
			}
		})
	}
	want := []string{"in.txt", "out.txt", "<cancelled>"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("inputs = %v, want %v", got, want)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResourceStatsForOwnProcess(t *testing.T) {
	stats := GetResourceStats(os.Getpid())
	if stats.Job.Pid != int32(os.Getpid()) {
		t.Fatalf("job pid = %d", stats.Job.Pid)
	}
	if stats.Job.RSS == 0 {
		t.Error("a running test binary has resident memory")
	}

	if idle := GetResourceStats(0); idle.Job.Pid != 0 {
		t.Errorf("no job expected, got %+v", idle.Job)
	}
}
