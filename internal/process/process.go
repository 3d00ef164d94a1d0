// Package process spawns external commands and reports their output line by
// line.
package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Spec describes what to start.
type Spec struct {
	Args  []string
	Dir   string
	Stdin io.Reader
}

// Shell returns a Spec that runs line through the platform shell.
func Shell(line string) Spec {
	if runtime.GOOS == "windows" {
		return Spec{Args: []string{"cmd", "/C", line}}
	}
	return Spec{Args: []string{"sh", "-c", line}}
}

// Handlers receive output lines and the final exit code. They are called
// from background goroutines; OnExit is called exactly once, after both
// output streams are drained.
type Handlers struct {
	OnStdout func(line string)
	OnStderr func(line string)
	OnExit   func(code int, err error)
}

// Handle identifies a spawned process.
type Handle struct {
	cmd  *exec.Cmd
	done chan struct{}
}

// Pid returns the OS process id.
func (h *Handle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Done is closed after OnExit has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Spawn starts the command and returns immediately.
func Spawn(ctx context.Context, spec Spec, h Handlers) (*Handle, error) {
	if len(spec.Args) == 0 {
		return nil, errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, spec.Args[0], spec.Args[1:]...)
	cmd.Dir = spec.Dir
	cmd.Stdin = spec.Stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	handle := &Handle{cmd: cmd, done: make(chan struct{})}

	var wg sync.WaitGroup
	wg.Add(2)
	go capture(&wg, stdout, h.OnStdout)
	go capture(&wg, stderr, h.OnStderr)

	go func() {
		defer close(handle.done)
		// Pipes must be drained before Wait closes them.
		wg.Wait()
		err := cmd.Wait()
		if h.OnExit != nil {
			h.OnExit(ExitCode(err), err)
		}
	}()
	return handle, nil
}

// capture reads r until EOF, handing every line to fn without a length cap.
func capture(wg *sync.WaitGroup, r io.Reader, fn func(string)) {
	defer wg.Done()
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if line != "" && fn != nil {
			line = strings.TrimSuffix(line, "\n")
			fn(strings.TrimSuffix(line, "\r"))
		}
		if err != nil {
			return
		}
	}
}

// Result is the outcome of a synchronous run.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
	TimedOut bool
	Err      error
}

// Run executes the command and waits for it, capturing stdout and stderr in
// full.
func Run(ctx context.Context, spec Spec) Result {
	if len(spec.Args) == 0 {
		return Result{ExitCode: -1, Err: errors.New("empty command")}
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, spec.Args[0], spec.Args[1:]...)
	cmd.Dir = spec.Dir
	cmd.Stdin = spec.Stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Shell children may hold the pipes open after the shell is killed.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: ExitCode(err),
		Duration: time.Since(start),
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		res.Err = err
	}
	return res
}

// ExitCode extracts a process exit status from an exec error. Errors that
// are not exit statuses map to -1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
