// Package command turns a language profile and a source file into the
// concrete compile and run commands.
package command

import (
	"fmt"
	"path/filepath"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/google/shlex"

	"github.com/harshul/coderun/internal/language"
)

// Plan is the resolved build/run recipe for one source file.
type Plan struct {
	Strategy language.Strategy
	// Compile is the compiler argv; empty when no separate build step exists.
	Compile []string
	// Run is a shell command line that executes the program.
	Run string
	// Artifact is the compiled output path (or directory for two-phase builds).
	Artifact  string
	OutputDir string
	Source    string
}

// Build resolves the plan for source. The output directory is only used by
// strategies that compile ahead of time; creating it is the caller's job.
func Build(p language.Profile, source, outputDir, flags string) (Plan, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to resolve %s: %w", source, err)
	}
	plan := Plan{Strategy: p.Strategy, Source: abs}

	switch p.Strategy {
	case language.Interpreted:
		plan.Run = Substitute(p.Template, abs)
		return plan, nil

	case language.CompiledDirectRun:
		plan.Run = Substitute(p.DirectRun, abs)
		return plan, nil
	}

	flagArgs, err := shlex.Split(flags)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to parse flags %q: %w", flags, err)
	}
	outDir, err := filepath.Abs(outputDir)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to resolve %s: %w", outputDir, err)
	}
	plan.OutputDir = outDir
	base := BaseName(abs)

	switch p.Strategy {
	case language.CompiledStandard:
		artifact := filepath.Join(outDir, base)
		plan.Compile = compileArgs(p, flagArgs, abs, artifact)
		plan.Artifact = artifact
		plan.Run = shellescape.Quote(artifact)

	case language.CompiledTwoPhase:
		plan.Compile = compileArgs(p, flagArgs, abs, outDir)
		plan.Artifact = outDir
		r := strings.NewReplacer(
			language.OutDirPlaceholder, shellescape.Quote(outDir),
			language.BaseNamePlaceholder, base,
		)
		plan.Run = r.Replace(p.PostBuildRun)

	default:
		return Plan{}, fmt.Errorf("unsupported strategy %v for %s", p.Strategy, p.ID)
	}
	return plan, nil
}

func compileArgs(p language.Profile, flags []string, source, output string) []string {
	args := make([]string, 0, len(flags)+4)
	args = append(args, p.Compiler)
	args = append(args, flags...)
	args = append(args, source, p.OutputFlag, output)
	return args
}

// Substitute replaces the file placeholder in template with path, verbatim.
func Substitute(template, path string) string {
	return strings.ReplaceAll(template, language.FilePlaceholder, path)
}

// BaseName returns the file name without directory and extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WithStdin redirects the command's standard input from path.
func WithStdin(run, path string) string {
	return fmt.Sprintf("(%s) < %s", run, shellescape.Quote(path))
}

// WithIO redirects standard input from in and standard output to out.
func WithIO(run, in, out string) string {
	return fmt.Sprintf("(%s) < %s > %s", run, shellescape.Quote(in), shellescape.Quote(out))
}
