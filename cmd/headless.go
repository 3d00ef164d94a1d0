package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/harshul/coderun/internal/loop"
	"github.com/harshul/coderun/internal/orchestrator"
	"github.com/harshul/coderun/internal/session"
	"github.com/harshul/coderun/internal/ui"
)

// forwardRetry is how often stdin forwarding retries while no job is
// focused yet.
const forwardRetry = 20 * time.Millisecond

type headlessOptions struct {
	inputs    []string
	assumeYes bool
	// forward copies our stdin into the running job.
	forward bool
	// persistent keeps the loop alive after the first notice.
	persistent bool
}

// consoleHost gives the bottom session the keyboard as soon as it exists.
type consoleHost struct {
	*session.PTYHost
}

func (h consoleHost) OpenWindow(buf session.BufferID, p session.Placement) session.WindowID {
	win := h.PTYHost.OpenWindow(buf, p)
	if p == session.Bottom && win != 0 {
		h.PTYHost.Focus(win)
	}
	return win
}

func sourceDirOf(file string) string {
	return filepath.Dir(file)
}

// stdinIsTerminal reports whether prompts and raw forwarding are possible.
func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// headless runs one engine operation with plain output. op is invoked on the
// loop and may prompt synchronously; stdin forwarding starts only after it
// returns so prompts and the program never read the terminal at once.
func (a *app) headless(ctx context.Context, t orchestrator.Target, hopts headlessOptions, op func(e *orchestrator.Engine, t orchestrator.Target)) error {
	interactive := stdinIsTerminal()

	hostOpts := session.Options{
		Dir:        sourceDirOf(t.File),
		Scrollback: a.cfg.Settings.Scrollback,
		Mirror:     os.Stdout,
	}
	if cols, rows, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		hostOpts.Rows, hostOpts.Cols = uint16(rows), uint16(cols)
	}
	host := session.NewPTYHost(hostOpts, a.logger)
	defer host.Close()

	q := loop.New()
	var raw *term.State
	restore := func() {
		if raw != nil {
			_ = term.Restore(int(os.Stdin.Fd()), raw)
			raw = nil
		}
	}
	defer restore()

	var failed error
	console := &ui.Console{
		Out:         os.Stdout,
		Interactive: interactive,
		AssumeYes:   hopts.assumeYes,
		Inputs:      hopts.inputs,
		Dir:         sourceDirOf(t.File),
	}
	notifier := orchestrator.NotifierFunc(func(n orchestrator.Notice) {
		restore()
		console.Notify(n)
		if hopts.persistent {
			return
		}
		failed = n.Err
		q.Stop()
	})

	engineOpts := a.engineOptions()
	engineOpts.Context = ctx
	engineOpts.Loop = q
	engineOpts.Host = consoleHost{host}
	engineOpts.Notifier = notifier
	engineOpts.Prompter = console
	engine := orchestrator.New(engineOpts)
	defer func() {
		if err := engine.Close(); err != nil {
			a.logger.Warn("failed to stop watching", zap.Error(err))
		}
	}()

	if opts.profile != "" {
		if err := engine.SelectProfile(t, opts.profile); err != nil {
			return err
		}
	}

	q.Post(func() { op(engine, t) })
	if hopts.forward {
		q.Post(func() {
			if interactive {
				if state, err := term.MakeRaw(int(os.Stdin.Fd())); err == nil {
					raw = state
				}
			}
			go forwardStdin(ctx, host, os.Stdin, a.logger)
		})
	}

	err := q.Run(ctx)
	restore()
	if failed != nil {
		return exitError{code: 1}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// forwardStdin copies r into the focused job, retrying while the job has not
// started yet. End of input becomes ^D.
func forwardStdin(ctx context.Context, host *session.PTYHost, r io.Reader, logger *zap.Logger) {
	buf := make([]byte, 4096)
	send := func(p []byte) bool {
		for {
			err := host.Input(p)
			if err == nil {
				return true
			}
			if !errors.Is(err, session.ErrNotRunning) {
				logger.Debug("stdin forwarding stopped", zap.Error(err))
				return false
			}
			select {
			case <-ctx.Done():
				return false
			case <-time.After(forwardRetry):
			}
		}
	}

	for {
		n, err := r.Read(buf)
		if n > 0 && !send(append([]byte(nil), buf[:n]...)) {
			return
		}
		if err != nil {
			_ = host.Input([]byte{0x04})
			return
		}
	}
}
