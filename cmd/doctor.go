package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harshul/coderun/internal/doctor"
	"github.com/harshul/coderun/internal/ui"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor [FILE]",
	Short: "Check that the compilers and interpreters coderun needs are installed",
	Long: `The doctor command looks up every tool the configured languages run and
asks each one for its version. Given FILE (or --lang), only that language
is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDoctor,
}

// languagesCmd represents the languages command
var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the configured languages",
	Args:  cobra.NoArgs,
	RunE:  runLanguages,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(languagesCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ids := a.cfg.Registry.IDs()
	switch {
	case opts.lang != "":
		ids = []string{opts.lang}
	case len(args) == 1:
		id, ok := a.cfg.Registry.Detect(args[0])
		if !ok {
			return fmt.Errorf("no language registered for %s", args[0])
		}
		ids = []string{id}
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	ui.PrintHeader("coderun doctor")
	d, err := doctor.Diagnose(ctx, a.cfg.Registry, ids)
	if err != nil {
		return err
	}

	for _, st := range d.Tools {
		label := st.Language + " / " + st.Tool
		if !st.Installed {
			ui.PrintError(label + ": not found")
			continue
		}
		version := st.Version
		if version == "" {
			version = "version unknown"
		}
		ui.PrintSuccess(label + ": " + version)
		ui.PrintHighlight("path", st.Path)
	}

	fmt.Println()
	if d.Healthy {
		ui.PrintSuccess("All tools are installed")
		return nil
	}
	ui.PrintDivider()
	for _, issue := range d.Issues {
		ui.PrintWarning(issue)
	}
	return exitError{code: 1}
}

func runLanguages(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Source != "" {
		ui.PrintInfo("Overrides from " + a.cfg.Source)
	}
	for _, id := range a.cfg.Registry.IDs() {
		p, err := a.cfg.Registry.Lookup(id)
		if err != nil {
			return err
		}
		profiles := make([]string, 0, len(p.FlagProfiles))
		for _, fp := range p.FlagProfiles {
			profiles = append(profiles, fp.Name)
		}
		line := fmt.Sprintf("%-12s %-20s %s", id, p.Strategy, strings.Join(p.Extensions, " "))
		if len(profiles) > 0 {
			line += "  [" + strings.Join(profiles, ", ") + "]"
		}
		fmt.Println(line)
	}
	return nil
}
