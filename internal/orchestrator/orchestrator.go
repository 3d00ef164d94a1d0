// Package orchestrator is the engine behind every coderun command: it
// resolves a language, builds, runs in the bottom session, tests and keeps
// the small amount of state those operations share.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harshul/coderun/internal/build"
	"github.com/harshul/coderun/internal/command"
	"github.com/harshul/coderun/internal/config"
	"github.com/harshul/coderun/internal/language"
	"github.com/harshul/coderun/internal/loop"
	"github.com/harshul/coderun/internal/metrics"
	"github.com/harshul/coderun/internal/session"
	"github.com/harshul/coderun/internal/state"
)

// Target is the file an operation acts on. Language may be empty, in which
// case it is detected from the file extension.
type Target struct {
	File     string
	Language string
}

// Options wires an Engine. Settings, Registry, Host, Loop, Notifier and
// Prompter are required.
type Options struct {
	Context  context.Context
	Settings config.Settings
	Registry *language.Registry
	Host     session.Host
	Loop     loop.Poster
	Notifier Notifier
	Prompter Prompter
	Logger   *zap.Logger
	Metrics  *metrics.Recorder
	// Now is replaced in tests.
	Now func() time.Time
}

// Engine owns all mutable state. Every exported method must be called on
// the loop goroutine.
type Engine struct {
	ctx      context.Context
	settings config.Settings
	registry *language.Registry
	loop     loop.Poster
	notifier Notifier
	prompter Prompter
	logger   *zap.Logger
	metrics  *metrics.Recorder
	now      func() time.Time

	cache    *state.BuildCache
	history  *state.History
	profiles *state.ProfileIndex
	watch    state.Watch

	sessions *session.Manager
	builds   *build.Supervisor
}

// New builds an Engine with empty state.
func New(opts Options) *Engine {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cache := state.NewBuildCache()
	return &Engine{
		ctx:      opts.Context,
		settings: opts.Settings,
		registry: opts.Registry,
		loop:     opts.Loop,
		notifier: opts.Notifier,
		prompter: opts.Prompter,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
		cache:    cache,
		history:  state.NewHistory(opts.Settings.HistorySize),
		profiles: state.NewProfileIndex(),
		sessions: session.NewManager(opts.Host, opts.Loop, opts.Logger, opts.Settings.DetachOnClose),
		builds:   build.NewSupervisor(opts.Context, opts.Loop, cache, opts.Logger, opts.Metrics),
	}
}

// Sessions exposes the session manager to the workbench.
func (e *Engine) Sessions() *session.Manager { return e.sessions }

// History returns the recorded runs, newest first.
func (e *Engine) History() []state.HistoryEntry { return e.history.Entries() }

// Artifact returns the last successful build for lang.
func (e *Engine) Artifact(lang string) (state.Artifact, bool) { return e.cache.Get(lang) }

// Watching reports whether watch mode is on.
func (e *Engine) Watching() bool { return e.watch.Enabled() }

// ActiveProfile returns the language and flag profile t would build with.
func (e *Engine) ActiveProfile(t Target) (string, language.FlagProfile, error) {
	prof, err := e.lookup(t)
	if err != nil {
		return "", language.FlagProfile{}, err
	}
	return prof.ID, e.profiles.Active(prof), nil
}

// SelectProfile cycles t's language until the named flag profile is active.
// It is the non-interactive form of CycleProfile and produces no notice.
func (e *Engine) SelectProfile(t Target, name string) error {
	prof, err := e.lookup(t)
	if err != nil {
		return err
	}
	for range prof.FlagProfiles {
		if e.profiles.Active(prof).Name == name {
			return nil
		}
		e.profiles.Cycle(prof)
	}
	if len(prof.FlagProfiles) == 0 && name == language.DefaultProfileName {
		return nil
	}
	names := make([]string, 0, len(prof.FlagProfiles))
	for _, fp := range prof.FlagProfiles {
		names = append(names, fp.Name)
	}
	return fmt.Errorf("%w: %s has no flag profile %q (have %s)", ErrEnvironment, prof.ID, name, strings.Join(names, ", "))
}

// Close releases the watch subscription.
func (e *Engine) Close() error {
	if e.watch.Enabled() {
		_, err := e.watch.Toggle(nil)
		return err
	}
	return nil
}

func (e *Engine) notify(n Notice) {
	fields := []zap.Field{zap.Stringer("level", n.Level), zap.String("title", n.Title)}
	if n.Err != nil {
		fields = append(fields, zap.Error(n.Err))
		e.logger.Warn("operation failed", fields...)
	} else {
		e.logger.Info("operation finished", fields...)
	}
	e.notifier.Notify(n)
}

func (e *Engine) fail(title string, err error) {
	e.notify(Notice{Level: LevelError, Title: title, Detail: err.Error(), Err: err})
}

func (e *Engine) lookup(t Target) (language.Profile, error) {
	id := t.Language
	if id == "" {
		detected, ok := e.registry.Detect(t.File)
		if !ok {
			return language.Profile{}, fmt.Errorf("%w: no language registered for %s", ErrUnknownLanguage, filepath.Base(t.File))
		}
		id = detected
	}
	return e.registry.Lookup(id)
}

// sourceDir is the absolute directory holding file.
func sourceDir(file string) string {
	abs, err := filepath.Abs(file)
	if err != nil {
		abs = file
	}
	return filepath.Dir(abs)
}

// resolveDir anchors a relative settings path next to the source file.
func resolveDir(file, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(sourceDir(file), dir)
}

// prepare resolves the profile and plan for t, reporting any failure as the
// operation's notice.
func (e *Engine) prepare(t Target, op string) (language.Profile, command.Plan, bool) {
	prof, err := e.lookup(t)
	if err != nil {
		e.fail(op+": unknown language", err)
		return prof, command.Plan{}, false
	}
	flags := e.profiles.Active(prof)
	plan, err := command.Build(prof, t.File, resolveDir(t.File, e.settings.OutputDir), flags.Flags)
	if err != nil {
		e.fail(op+": invalid command", fmt.Errorf("%w: %v", ErrEnvironment, err))
		return prof, command.Plan{}, false
	}
	e.logger.Debug("plan resolved",
		zap.String("op", op),
		zap.String("language", prof.ID),
		zap.Stringer("strategy", plan.Strategy),
		zap.String("profile", flags.Name),
		zap.String("run", plan.Run))
	return prof, plan, true
}

func (e *Engine) reportBuildFailure(op, lang string, f build.Failure) {
	err := fmt.Errorf("%w: %s compiler exited with code %d", ErrBuildFailed, lang, f.ExitCode)
	detail := strings.Join(f.Diagnostics, "\n")
	if detail == "" {
		detail = err.Error()
	}
	e.notify(Notice{
		Level:  LevelError,
		Title:  fmt.Sprintf("%s: build failed (exit code %d)", op, f.ExitCode),
		Detail: detail,
		Err:    err,
	})
}

// buildThen builds t and hands the run command to next on success.
func (e *Engine) buildThen(t Target, op string, next func(lang, run string)) {
	prof, plan, ok := e.prepare(t, op)
	if !ok {
		return
	}
	e.builds.Build(prof.ID, plan, func(o build.Outcome) {
		switch o := o.(type) {
		case build.Failure:
			e.reportBuildFailure(op, prof.ID, o)
		case build.Success:
			next(prof.ID, o.Command)
		}
	})
}

// lastRunnable resolves what "run the last build" means for t. Languages
// without a build step just use their command; compiled ones need a cached
// artifact, and the user is offered a build when there is none.
func (e *Engine) lastRunnable(t Target, op string, next func(lang, run string)) {
	prof, plan, ok := e.prepare(t, op)
	if !ok {
		return
	}
	if !plan.Strategy.Spawns() {
		next(prof.ID, plan.Run)
		return
	}
	if a, ok := e.cache.Get(prof.ID); ok {
		next(prof.ID, a.Command)
		return
	}

	e.prompter.Confirm(fmt.Sprintf("No %s build yet. Build %s first?", prof.ID, filepath.Base(t.File)), func(yes bool) {
		if !yes {
			e.notify(Notice{
				Level: LevelWarn,
				Title: op + ": nothing to run",
				Err:   fmt.Errorf("%w for %s", ErrNoArtifact, prof.ID),
			})
			return
		}
		e.buildThen(t, op, next)
	})
}

// execute runs command in a fresh bottom session and records the run once
// it exits. describe may add to the final notice.
func (e *Engine) execute(t Target, op, lang, run string, describe func(code int) string) {
	runID := uuid.NewString()
	start := e.now()
	logger := e.logger.With(zap.String("run_id", runID), zap.String("language", lang))
	logger.Info("run started", zap.String("command", run))

	_, err := e.sessions.RunInBottom(run, func(code int) {
		elapsed := e.now().Sub(start).Seconds()
		e.history.Push(state.HistoryEntry{
			RunID:          runID,
			FileName:       filepath.Base(t.File),
			LanguageID:     lang,
			ElapsedSeconds: elapsed,
			ExitCode:       code,
			Timestamp:      start.Format("2006-01-02 15:04:05"),
		})
		if e.metrics != nil {
			e.metrics.Run(lang, code == 0, elapsed)
		}
		logger.Info("run finished", zap.Int("exit_code", code), zap.Float64("elapsed_seconds", elapsed))

		detail := ""
		if describe != nil {
			detail = describe(code)
		}
		if code != 0 {
			e.notify(Notice{
				Level:  LevelError,
				Title:  fmt.Sprintf("%s: exited with code %d after %.3fs", op, code, elapsed),
				Detail: detail,
				Err:    fmt.Errorf("%w: exit code %d", ErrRuntime, code),
			})
			return
		}
		e.notify(Notice{
			Level:  LevelSuccess,
			Title:  fmt.Sprintf("%s: finished in %.3fs", op, elapsed),
			Detail: detail,
		})
	})
	if err != nil {
		e.fail(op+": could not start", fmt.Errorf("%w: %v", ErrEnvironment, err))
	}
}
