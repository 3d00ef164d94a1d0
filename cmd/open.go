package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harshul/coderun/internal/orchestrator"
	"github.com/harshul/coderun/internal/session"
	"github.com/harshul/coderun/internal/ui"
)

// openCmd is the explicit form of `coderun FILE`
var openCmd = &cobra.Command{
	Use:   "open [FILE]",
	Short: "Open the interactive workbench",
	Long: `The open command shows FILE in the workbench: a terminal session at the
bottom, an optional floating terminal, and one key per operation (press ?
for the list). Without a terminal, or with --no-tui, FILE is run once.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

// signalContext is cancelled on the first interrupt or terminate signal.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// runOpen opens the workbench on FILE, or on a file picked from the current
// directory. Without a terminal it falls back to a single headless run.
func runOpen(cmd *cobra.Command, args []string) error {
	tui := !opts.noTUI && isatty.IsTerminal(os.Stdout.Fd()) && stdinIsTerminal()

	a, err := newApp(tui)
	if err != nil {
		return err
	}
	defer a.close()

	file := ""
	if len(args) == 1 {
		file = args[0]
	} else {
		if !tui {
			return fmt.Errorf("no source file given")
		}
		file, err = a.pickSource()
		if err != nil {
			return err
		}
	}

	t, err := a.target(file)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	if !tui {
		return a.serve(ctx, func(ctx context.Context) error {
			return a.headless(ctx, t, headlessOptions{forward: true}, (*orchestrator.Engine).Run)
		})
	}

	host := session.NewPTYHost(session.Options{
		Dir:        sourceDirOf(t.File),
		Scrollback: a.cfg.Settings.Scrollback,
	}, a.logger)
	return a.serve(ctx, func(ctx context.Context) error {
		return ui.RunWorkbench(ctx, ui.WorkbenchConfig{
			Target:  t,
			Engine:  a.engineOptions(),
			Host:    host,
			Logger:  a.logger,
			Profile: opts.profile,
		})
	})
}

// pickSource asks which file of the current directory to open, among those
// a configured language recognizes.
func (a *app) pickSource() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	entries, err := os.ReadDir(cwd)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", cwd, err)
	}

	var choices []ui.Choice
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		lang, ok := a.cfg.Registry.Detect(e.Name())
		if !ok {
			continue
		}
		choices = append(choices, ui.Choice{Label: e.Name(), Value: filepath.Join(cwd, e.Name()), Detail: lang})
	}
	if len(choices) == 0 {
		return "", fmt.Errorf("no source files in %s (known extensions: %v)", cwd, a.cfg.Registry.Extensions())
	}
	sort.Slice(choices, func(i, j int) bool { return choices[i].Label < choices[j].Label })
	if len(choices) == 1 {
		return choices[0].Value, nil
	}

	choice, ok, err := ui.RunPickPrompt("Which file?", cwd, choices)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no file selected")
	}
	return choice.Value, nil
}
