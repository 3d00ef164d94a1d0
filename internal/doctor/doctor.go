// Package doctor checks that the toolchains behind the configured languages
// are installed.
package doctor

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/harshul/coderun/internal/language"
	"github.com/harshul/coderun/internal/process"
)

// versionTimeout bounds each `--version` call.
const versionTimeout = 3 * time.Second

// ToolStatus represents the status of one executable a language needs
type ToolStatus struct {
	Language  string
	Tool      string
	Installed bool
	Version   string
	Path      string
}

// Diagnosis contains the full health check results
type Diagnosis struct {
	Tools   []ToolStatus
	Healthy bool
	Issues  []string
}

// Diagnose checks every tool of the given languages, in order.
func Diagnose(ctx context.Context, reg *language.Registry, ids []string) (Diagnosis, error) {
	d := Diagnosis{Healthy: true}
	for _, id := range ids {
		p, err := reg.Lookup(id)
		if err != nil {
			return Diagnosis{}, err
		}
		for _, tool := range Tools(p) {
			st := checkTool(ctx, tool)
			st.Language = id
			d.Tools = append(d.Tools, st)
			if !st.Installed {
				d.Healthy = false
				d.Issues = append(d.Issues, id+": "+tool+" is not installed (install it or override languages."+id+" in the config)")
			}
		}
	}
	return d, nil
}

// Tools lists the executables a profile runs: the compiler for compiled
// languages, then whatever the run command starts.
func Tools(p language.Profile) []string {
	var tools []string
	add := func(tool string) {
		if tool == "" {
			return
		}
		for _, t := range tools {
			if t == tool {
				return
			}
		}
		tools = append(tools, tool)
	}

	switch p.Strategy {
	case language.Interpreted:
		add(runProgram(p.Template))
	case language.CompiledDirectRun:
		add(runProgram(p.DirectRun))
	case language.CompiledStandard:
		add(p.Compiler)
	case language.CompiledTwoPhase:
		add(p.Compiler)
		add(runProgram(p.PostBuildRun))
	}
	return tools
}

// runProgram returns the executable a run line ends up invoking: the
// program of its last `&&` segment that is not a `cd`.
func runProgram(line string) string {
	parts := strings.Split(line, "&&")
	for i := len(parts) - 1; i >= 0; i-- {
		words, err := shlex.Split(parts[i])
		if err != nil || len(words) == 0 || words[0] == "cd" {
			continue
		}
		return words[0]
	}
	return ""
}

// checkTool checks if tool is installed and asks it for its version
func checkTool(ctx context.Context, tool string) ToolStatus {
	status := ToolStatus{Tool: tool}

	path, err := exec.LookPath(tool)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	res := process.Run(ctx, process.Spec{Args: []string{path, "--version"}})
	if res.Err != nil || res.ExitCode != 0 {
		return status
	}
	// Some toolchains (java) print their version to stderr.
	for _, out := range [][]byte{res.Stdout, res.Stderr} {
		if line := firstLine(string(out)); line != "" {
			status.Version = line
			break
		}
	}
	return status
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
