package build

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"al.essio.dev/pkg/shellescape"
	"go.uber.org/zap"

	"github.com/harshul/coderun/internal/command"
	"github.com/harshul/coderun/internal/language"
	"github.com/harshul/coderun/internal/loop"
	"github.com/harshul/coderun/internal/metrics"
	"github.com/harshul/coderun/internal/state"
)

// buildOnce runs one build on a fresh loop and returns its outcome.
func buildOnce(t *testing.T, sup *Supervisor, q *loop.Queue, lang string, plan command.Plan) Outcome {
	t.Helper()
	var got Outcome
	sup.Build(lang, plan, func(o Outcome) {
		got = o
		q.Stop()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := q.Run(ctx); err != nil {
		t.Fatalf("loop: %v", err)
	}
	return got
}

func newSupervisor(cache *state.BuildCache) (*Supervisor, *loop.Queue) {
	q := loop.New()
	return NewSupervisor(context.Background(), q, cache, zap.NewNop(), metrics.New()), q
}

func TestBuildFailureKeepsCache(t *testing.T) {
	dir := t.TempDir()
	cache := state.NewBuildCache()
	sup, q := newSupervisor(cache)

	plan := command.Plan{
		Strategy:  language.CompiledStandard,
		Compile:   []string{"sh", "-c", "echo 'error: x undeclared' >&2; exit 1"},
		OutputDir: filepath.Join(dir, "build"),
		Source:    filepath.Join(dir, "a.c"),
		Artifact:  filepath.Join(dir, "build", "a"),
		Run:       filepath.Join(dir, "build", "a"),
	}

	got := buildOnce(t, sup, q, "c", plan)
	want := Failure{ExitCode: 1, Diagnostics: []string{"error: x undeclared"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("outcome = %#v, want %#v", got, want)
	}
	if _, ok := cache.Get("c"); ok {
		t.Error("failed build must not populate the cache")
	}
}

func TestBuildFailurePreservesPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	cache := state.NewBuildCache()
	cache.Put("c", state.Artifact{Path: "/old/a", Command: "/old/a"})
	sup, q := newSupervisor(cache)

	buildOnce(t, sup, q, "c", command.Plan{
		Strategy:  language.CompiledStandard,
		Compile:   []string{"sh", "-c", "exit 2"},
		OutputDir: dir,
		Source:    filepath.Join(dir, "a.c"),
	})

	if a, _ := cache.Get("c"); a.Path != "/old/a" {
		t.Errorf("cache entry changed to %q", a.Path)
	}
}

func TestBuildSuccessCachesArtifact(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "nested", "build")
	artifact := filepath.Join(outDir, "a")
	cache := state.NewBuildCache()
	sup, q := newSupervisor(cache)

	got := buildOnce(t, sup, q, "c", command.Plan{
		Strategy:  language.CompiledStandard,
		Compile:   []string{"sh", "-c", "echo 'warning: unused'; touch " + shellescape.Quote(artifact)},
		OutputDir: outDir,
		Source:    filepath.Join(dir, "a.c"),
		Artifact:  artifact,
		Run:       artifact,
	})

	succ, ok := got.(Success)
	if !ok {
		t.Fatalf("expected Success, got %#v", got)
	}
	if succ.Command != artifact || succ.Artifact != artifact {
		t.Errorf("unexpected success payload %#v", succ)
	}
	if len(succ.Warnings) != 1 || succ.Warnings[0] != "warning: unused" {
		t.Errorf("warnings = %v", succ.Warnings)
	}
	if _, err := os.Stat(artifact); err != nil {
		t.Errorf("output directory should have been created: %v", err)
	}
	if a, ok := cache.Get("c"); !ok || a.Path != artifact {
		t.Errorf("cache = %+v, %v", a, ok)
	}
}

func TestInterpretedShortCircuits(t *testing.T) {
	cache := state.NewBuildCache()
	sup, q := newSupervisor(cache)

	got := buildOnce(t, sup, q, "echo-lang", command.Plan{
		Strategy: language.Interpreted,
		Run:      "echo /tmp/a.txt",
	})

	if succ, ok := got.(Success); !ok || succ.Command != "echo /tmp/a.txt" {
		t.Errorf("outcome = %#v", got)
	}
	if cache.Len() != 0 {
		t.Error("interpreted runs never touch the build cache")
	}
}

func TestMissingCompilerIsFailure(t *testing.T) {
	dir := t.TempDir()
	sup, q := newSupervisor(state.NewBuildCache())

	got := buildOnce(t, sup, q, "c", command.Plan{
		Strategy:  language.CompiledStandard,
		Compile:   []string{"no-such-compiler-xyz", "a.c"},
		OutputDir: dir,
		Source:    filepath.Join(dir, "a.c"),
	})

	f, ok := got.(Failure)
	if !ok || f.ExitCode != -1 || len(f.Diagnostics) != 1 {
		t.Errorf("outcome = %#v", got)
	}
}

func TestBuildNeverCallsDoneSynchronously(t *testing.T) {
	sup, q := newSupervisor(state.NewBuildCache())
	called := false
	sup.Build("echo-lang", command.Plan{Strategy: language.Interpreted, Run: "true"}, func(Outcome) {
		called = true
		q.Stop()
	})
	if called {
		t.Fatal("done must be posted to the loop, not called inline")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Run(ctx); err != nil {
		t.Fatalf("loop: %v", err)
	}
	if !called {
		t.Error("done never ran on the loop")
	}
}

// buildAll starts every plan at once and returns the outcomes in request
// order.
func buildAll(t *testing.T, sup *Supervisor, q *loop.Queue, lang string, plans ...command.Plan) []Outcome {
	t.Helper()
	got := make([]Outcome, len(plans))
	pending := len(plans)
	for i, plan := range plans {
		sup.Build(lang, plan, func(o Outcome) {
			got[i] = o
			pending--
			if pending == 0 {
				q.Stop()
			}
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := q.Run(ctx); err != nil {
		t.Fatalf("loop: %v", err)
	}
	return got
}

func TestIdenticalBuildsShareOneCompiler(t *testing.T) {
	dir := t.TempDir()
	counter := filepath.Join(dir, "starts")
	sup, q := newSupervisor(state.NewBuildCache())

	plan := command.Plan{
		Strategy:  language.CompiledStandard,
		Compile:   []string{"sh", "-c", "echo started >> " + shellescape.Quote(counter) + "; sleep 0.3; echo built"},
		OutputDir: filepath.Join(dir, "build"),
		Source:    filepath.Join(dir, "a.c"),
	}
	got := buildAll(t, sup, q, "c", plan, plan)

	for i, o := range got {
		if succ, ok := o.(Success); !ok || len(succ.Warnings) != 1 || succ.Warnings[0] != "built" {
			t.Errorf("outcome %d = %#v", i, o)
		}
	}
	data, err := os.ReadFile(counter)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "started"); n != 1 {
		t.Errorf("compiler started %d times, want 1", n)
	}
}

func TestDifferentFlagsBuildSeparately(t *testing.T) {
	dir := t.TempDir()
	sup, q := newSupervisor(state.NewBuildCache())

	base := command.Plan{
		Strategy:  language.CompiledStandard,
		OutputDir: filepath.Join(dir, "build"),
		Source:    filepath.Join(dir, "a.c"),
	}
	debug := base
	debug.Compile = []string{"sh", "-c", "sleep 0.3; echo built-with-g"}
	release := base
	release.Compile = []string{"sh", "-c", "echo built-with-O2"}

	got := buildAll(t, sup, q, "c", debug, release)

	want := []string{"built-with-g", "built-with-O2"}
	for i, o := range got {
		succ, ok := o.(Success)
		if !ok || len(succ.Warnings) != 1 || succ.Warnings[0] != want[i] {
			t.Errorf("outcome %d = %#v, want warning %q", i, o, want[i])
		}
	}
}

func TestBuildKeyIncludesCompilerArgs(t *testing.T) {
	plan := command.Plan{Source: "/src/a.c", Compile: []string{"cc", "-g", "a.c"}}
	other := plan
	other.Compile = []string{"cc", "-O2", "a.c"}

	if buildKey("c", plan) == buildKey("c", other) {
		t.Error("plans with different flags must not share a key")
	}
	if buildKey("c", plan) != buildKey("c", plan) {
		t.Error("identical plans must share a key")
	}
	if buildKey("c", plan) == buildKey("cpp", plan) {
		t.Error("languages must not share a key")
	}
}
