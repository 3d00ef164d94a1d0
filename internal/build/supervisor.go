// Package build supervises compile processes and reports a structured
// outcome for each build request.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/harshul/coderun/internal/command"
	"github.com/harshul/coderun/internal/loop"
	"github.com/harshul/coderun/internal/metrics"
	"github.com/harshul/coderun/internal/process"
	"github.com/harshul/coderun/internal/state"
)

// Outcome is either Success or Failure.
type Outcome interface {
	outcome()
}

// Success carries what to execute next.
type Success struct {
	// Command is the shell command that runs the program.
	Command string
	// Artifact is empty when nothing was compiled ahead of time.
	Artifact string
	// Warnings holds compiler output from a build that still succeeded.
	Warnings []string
}

// Failure carries the compiler's exit code and everything it printed.
type Failure struct {
	ExitCode    int
	Diagnostics []string
}

func (Success) outcome() {}
func (Failure) outcome() {}

// Error makes a Failure usable as an error value.
func (f Failure) Error() string {
	return fmt.Sprintf("build failed with exit code %d", f.ExitCode)
}

// Supervisor runs builds off the loop and posts their outcomes back to it.
type Supervisor struct {
	ctx     context.Context
	loop    loop.Poster
	cache   *state.BuildCache
	logger  *zap.Logger
	metrics *metrics.Recorder
	group   singleflight.Group
}

// NewSupervisor wires a supervisor. rec may be nil.
func NewSupervisor(ctx context.Context, poster loop.Poster, cache *state.BuildCache, logger *zap.Logger, rec *metrics.Recorder) *Supervisor {
	return &Supervisor{
		ctx:     ctx,
		loop:    poster,
		cache:   cache,
		logger:  logger.Named("build"),
		metrics: rec,
	}
}

// Build resolves plan into an Outcome and hands it to done on the loop. It
// never blocks. Interpreted and direct-run plans succeed without spawning.
// Concurrent requests with the same language, source and compiler argv
// share one compiler process.
func (s *Supervisor) Build(lang string, plan command.Plan, done func(Outcome)) {
	if !plan.Strategy.Spawns() {
		s.logger.Debug("nothing to compile", zap.String("language", lang), zap.Stringer("strategy", plan.Strategy))
		s.loop.Post(func() { done(Success{Command: plan.Run}) })
		return
	}

	key := buildKey(lang, plan)
	go func() {
		v, _, shared := s.group.Do(key, func() (any, error) {
			return s.compile(lang, plan), nil
		})
		out := v.(Outcome)
		if shared {
			s.logger.Debug("joined in-flight build", zap.String("language", lang), zap.String("source", plan.Source))
		}
		s.loop.Post(func() {
			succ, ok := out.(Success)
			if ok {
				s.cache.Put(lang, state.Artifact{Path: succ.Artifact, Command: succ.Command})
			}
			if s.metrics != nil {
				s.metrics.Build(lang, ok)
			}
			done(out)
		})
	}()
}

// buildKey identifies a build request. Two profiles of one source never
// share a key because their flags differ.
func buildKey(lang string, plan command.Plan) string {
	return lang + "\x00" + plan.Source + "\x00" + strings.Join(plan.Compile, "\x00")
}

func (s *Supervisor) compile(lang string, plan command.Plan) Outcome {
	if err := os.MkdirAll(plan.OutputDir, 0o755); err != nil {
		return Failure{ExitCode: -1, Diagnostics: []string{fmt.Sprintf("failed to create %s: %v", plan.OutputDir, err)}}
	}

	var mu sync.Mutex
	var diagnostics []string
	collect := func(line string) {
		mu.Lock()
		diagnostics = append(diagnostics, line)
		mu.Unlock()
	}
	exit := make(chan int, 1)

	start := time.Now()
	s.logger.Info("compiling", zap.String("language", lang), zap.Strings("argv", plan.Compile))
	_, err := process.Spawn(s.ctx, process.Spec{
		Args: plan.Compile,
		Dir:  filepath.Dir(plan.Source),
	}, process.Handlers{
		OnStdout: collect,
		OnStderr: collect,
		OnExit:   func(code int, _ error) { exit <- code },
	})
	if err != nil {
		s.logger.Warn("compiler did not start", zap.String("language", lang), zap.Error(err))
		return Failure{ExitCode: -1, Diagnostics: []string{fmt.Sprintf("failed to start %s: %v", plan.Compile[0], err)}}
	}
	code := <-exit

	mu.Lock()
	defer mu.Unlock()
	s.logger.Info("compile finished",
		zap.String("language", lang),
		zap.Int("exit_code", code),
		zap.Int("diagnostic_lines", len(diagnostics)),
		zap.Duration("duration", time.Since(start)))

	if code != 0 {
		return Failure{ExitCode: code, Diagnostics: diagnostics}
	}
	return Success{Command: plan.Run, Artifact: plan.Artifact, Warnings: diagnostics}
}
