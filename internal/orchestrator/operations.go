package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/harshul/coderun/internal/build"
	"github.com/harshul/coderun/internal/command"
	"github.com/harshul/coderun/internal/harness"
	"github.com/harshul/coderun/internal/state"
	"github.com/harshul/coderun/internal/watch"
)

// Run builds t if needed and runs it in the bottom session.
func (e *Engine) Run(t Target) {
	e.buildThen(t, "Run", func(lang, run string) {
		e.execute(t, "Run", lang, run, nil)
	})
}

// BuildOnly compiles t without running it.
func (e *Engine) BuildOnly(t Target) {
	prof, plan, ok := e.prepare(t, "Build")
	if !ok {
		return
	}
	if !plan.Strategy.Spawns() {
		e.notify(Notice{
			Level:  LevelInfo,
			Title:  "Build: nothing to compile",
			Detail: fmt.Sprintf("%s runs directly: %s", prof.ID, plan.Run),
		})
		return
	}
	e.builds.Build(prof.ID, plan, func(o build.Outcome) {
		switch o := o.(type) {
		case build.Failure:
			e.reportBuildFailure("Build", prof.ID, o)
		case build.Success:
			detail := o.Artifact
			if len(o.Warnings) > 0 {
				detail += "\n" + strings.Join(o.Warnings, "\n")
			}
			e.notify(Notice{
				Level:  LevelSuccess,
				Title:  fmt.Sprintf("Build: %s succeeded (%s)", filepath.Base(t.File), e.profiles.Active(prof).Name),
				Detail: detail,
			})
		}
	})
}

// RunLast runs the most recent successful build of t's language without
// rebuilding.
func (e *Engine) RunLast(t Target) {
	e.lastRunnable(t, "Run last", func(lang, run string) {
		e.execute(t, "Run last", lang, run, nil)
	})
}

// RunWithInput asks for an input file, builds t and runs it with stdin
// redirected from that file.
func (e *Engine) RunWithInput(t Target) {
	e.prompter.Input("Input file", "input.txt", func(value string, ok bool) {
		in, ok := e.inputPath(t, "Run with input", value, ok)
		if !ok {
			return
		}
		e.buildThen(t, "Run with input", func(lang, run string) {
			e.execute(t, "Run with input", lang, command.WithStdin(run, in), nil)
		})
	})
}

// RunWithIOFiles asks for an input and an output file and runs the last
// build with both redirected.
func (e *Engine) RunWithIOFiles(t Target) {
	const op = "Run with I/O files"
	e.prompter.Input("Input file", "input.txt", func(value string, ok bool) {
		in, ok := e.inputPath(t, op, value, ok)
		if !ok {
			return
		}
		e.prompter.Input("Output file", "output.txt", func(value string, ok bool) {
			value = strings.TrimSpace(value)
			if !ok || value == "" {
				e.notify(Notice{Level: LevelInfo, Title: op + ": cancelled"})
				return
			}
			out := resolveDir(t.File, value)
			e.lastRunnable(t, op, func(lang, run string) {
				e.execute(t, op, lang, command.WithIO(run, in, out), func(int) string {
					return "output written to " + out
				})
			})
		})
	})
}

// inputPath validates a prompted input file relative to t's directory.
func (e *Engine) inputPath(t Target, op, value string, ok bool) (string, bool) {
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		e.notify(Notice{Level: LevelInfo, Title: op + ": cancelled"})
		return "", false
	}
	path := resolveDir(t.File, value)
	if st, err := os.Stat(path); err != nil || st.IsDir() {
		e.fail(op+": input file not found", fmt.Errorf("%w: %s is not a readable file", ErrEnvironment, path))
		return "", false
	}
	return path, true
}

// RunTests builds t and scores it against every case in the test directory.
// The batch runs off the loop; its report comes back as the notice.
func (e *Engine) RunTests(t Target) {
	const op = "Tests"
	dir := resolveDir(t.File, e.settings.TestDir)
	cases, err := harness.Discover(dir, e.settings.InputSuffix, e.settings.OutputSuffix)
	switch {
	case errors.Is(err, harness.ErrNoTests):
		e.notify(Notice{Level: LevelWarn, Title: op + ": no tests found", Detail: dir, Err: err})
		return
	case err != nil:
		e.fail(op+": no test directory", fmt.Errorf("%w: %v", ErrEnvironment, err))
		return
	}

	e.buildThen(t, op, func(lang, run string) {
		runner := &harness.Runner{
			Dir:     sourceDir(t.File),
			Timeout: e.settings.TestTimeout,
			Logger:  e.logger,
			Metrics: e.metrics,
		}
		e.logger.Info("running tests", zap.String("language", lang), zap.Int("cases", len(cases)))
		go func() {
			rep := runner.Run(e.ctx, run, cases)
			e.loop.Post(func() { e.reportTests(rep) })
		}()
	})
}

func (e *Engine) reportTests(rep harness.Report) {
	n := Notice{
		Level:  LevelSuccess,
		Title:  fmt.Sprintf("Tests: %s passed", rep.Summary()),
		Detail: strings.Join(rep.Messages, "\n"),
	}
	if !rep.AllPassed() {
		n.Level = LevelWarn
		if rep.Failed > 0 {
			n.Level = LevelError
			n.Err = fmt.Errorf("%d of %d tests failed", rep.Failed, rep.Total)
		} else {
			n.Err = fmt.Errorf("%d of %d tests had no expected output", rep.Indeterminate, rep.Total)
		}
	}
	e.notify(n)
}

// RunFloating builds t and runs it in a disposable floating session.
func (e *Engine) RunFloating(t Target) {
	e.buildThen(t, "Run floating", func(lang, run string) {
		h, err := e.sessions.RunFloating(run)
		if err != nil {
			e.fail("Run floating: could not start", fmt.Errorf("%w: %v", ErrEnvironment, err))
			return
		}
		e.logger.Debug("floating run", zap.String("language", lang), zap.Int("window", int(h.Window)))
		e.notify(Notice{Level: LevelInfo, Title: "Run floating: started " + filepath.Base(t.File)})
	})
}

// ToggleFloating shows, hides or creates the persistent floating terminal.
func (e *Engine) ToggleFloating() {
	st, err := e.sessions.ToggleFloating()
	if err != nil {
		e.fail("Floating terminal", fmt.Errorf("%w: %v", ErrEnvironment, err))
		return
	}
	e.notify(Notice{Level: LevelInfo, Title: "Floating terminal " + st.String()})
}

// CycleProfile advances t's language to its next flag profile.
func (e *Engine) CycleProfile(t Target) {
	prof, err := e.lookup(t)
	if err != nil {
		e.fail("Profile: unknown language", err)
		return
	}
	name, ok := e.profiles.Cycle(prof)
	if !ok {
		e.notify(Notice{Level: LevelWarn, Title: "Profile: unavailable", Detail: prof.ID + " has no flag profiles"})
		return
	}
	e.notify(Notice{
		Level:  LevelInfo,
		Title:  fmt.Sprintf("Profile: %s", name),
		Detail: fmt.Sprintf("%s flags: %s", prof.ID, e.profiles.Active(prof).Flags),
	})
}

// ToggleWatch turns watch mode on or off. While on, saving any file of a
// configured language in t's directory runs it.
func (e *Engine) ToggleWatch(t Target) {
	dir := sourceDir(t.File)
	target, _ := filepath.Abs(t.File)
	on, err := e.watch.Toggle(func() (state.Subscription, error) {
		return watch.New(dir, watch.Options{
			Debounce: e.settings.WatchDebounce,
			Match: func(path string) bool {
				_, ok := e.registry.Detect(path)
				return ok
			},
			OnSave: func(path string) {
				saved := Target{File: path}
				if path == target {
					saved.Language = t.Language
				}
				e.Run(saved)
			},
			Loop:   e.loop,
			Logger: e.logger,
		})
	})
	if err != nil {
		e.fail("Watch", fmt.Errorf("%w: %v", ErrEnvironment, err))
		return
	}
	if on {
		e.notify(Notice{Level: LevelInfo, Title: "Watch mode on", Detail: dir})
		return
	}
	e.notify(Notice{Level: LevelInfo, Title: "Watch mode off"})
}

// ShowHistory reports the recorded runs, newest first.
func (e *Engine) ShowHistory() {
	entries := e.history.Entries()
	if len(entries) == 0 {
		e.notify(Notice{Level: LevelInfo, Title: "History: no runs yet"})
		return
	}
	lines := make([]string, 0, len(entries))
	for i, h := range entries {
		lines = append(lines, fmt.Sprintf("%2d. %s  %-16s %-8s %8.3fs  exit %d",
			i+1, h.Timestamp, h.FileName, h.LanguageID, h.ElapsedSeconds, h.ExitCode))
	}
	e.notify(Notice{
		Level:  LevelInfo,
		Title:  fmt.Sprintf("History: %d runs", len(entries)),
		Detail: strings.Join(lines, "\n"),
	})
}

// Clean deletes t's build directory and forgets every cached artifact,
// after confirmation.
func (e *Engine) Clean(t Target) {
	dir := resolveDir(t.File, e.settings.OutputDir)
	if src := sourceDir(t.File); dir == src || strings.HasPrefix(src, dir+string(filepath.Separator)) {
		e.fail("Clean: refusing to delete "+dir, fmt.Errorf("%w: output_dir %q contains the source file", ErrEnvironment, e.settings.OutputDir))
		return
	}
	question := fmt.Sprintf("Delete %s and forget %d cached builds?", dir, e.cache.Len())
	e.prompter.Confirm(question, func(yes bool) {
		if !yes {
			e.notify(Notice{Level: LevelInfo, Title: "Clean: cancelled"})
			return
		}
		if err := os.RemoveAll(dir); err != nil {
			e.fail("Clean: could not delete build directory", fmt.Errorf("%w: %v", ErrEnvironment, err))
			return
		}
		e.cache.Clear()
		e.notify(Notice{Level: LevelSuccess, Title: "Clean: removed " + dir})
	})
}
