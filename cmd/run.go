package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/harshul/coderun/internal/orchestrator"
)

// operation describes a subcommand that drives one engine operation without
// the workbench.
type operation struct {
	use     string
	short   string
	long    string
	options func(cmd *cobra.Command) headlessOptions
	op      func(e *orchestrator.Engine, t orchestrator.Target)
}

var operations = []operation{
	{
		use:   "run FILE",
		short: "Build FILE if needed and run it",
		long: `The run command compiles FILE when its language needs it (reusing an
identical build already in flight), then runs it in a terminal session.
Your keyboard is forwarded to the program until it exits.`,
		options: func(*cobra.Command) headlessOptions { return headlessOptions{forward: true} },
		op:      (*orchestrator.Engine).Run,
	},
	{
		use:   "last FILE",
		short: "Run the last successful build without rebuilding",
		long: `The last command runs the most recent successful build of FILE's
language. Interpreted languages simply run FILE. If nothing was built yet
you are asked whether to build first (--yes answers for you).`,
		options: func(cmd *cobra.Command) headlessOptions {
			yes, _ := cmd.Flags().GetBool("yes")
			return headlessOptions{forward: true, assumeYes: yes}
		},
		op: (*orchestrator.Engine).RunLast,
	},
	{
		use:   "build FILE",
		short: "Compile FILE without running it",
		long: `The build command compiles FILE with the active flag profile and
reports the artifact, or the compiler diagnostics when it fails.`,
		options: func(*cobra.Command) headlessOptions { return headlessOptions{} },
		op:      (*orchestrator.Engine).BuildOnly,
	},
	{
		use:   "input FILE",
		short: "Run FILE with stdin redirected from a file",
		long: `The input command builds FILE and runs it with standard input read
from the file given by --in (relative to FILE's directory), or asked for
when omitted.`,
		options: func(cmd *cobra.Command) headlessOptions {
			in, _ := cmd.Flags().GetString("in")
			return headlessOptions{inputs: presetInputs(in)}
		},
		op: (*orchestrator.Engine).RunWithInput,
	},
	{
		use:   "io FILE",
		short: "Run the last build with stdin and stdout redirected to files",
		long: `The io command runs the last successful build of FILE with standard
input read from --in and standard output written to --out. Both paths are
relative to FILE's directory.`,
		options: func(cmd *cobra.Command) headlessOptions {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			yes, _ := cmd.Flags().GetBool("yes")
			return headlessOptions{inputs: presetInputs(in, out), assumeYes: yes}
		},
		op: (*orchestrator.Engine).RunWithIOFiles,
	},
	{
		use:   "test FILE",
		short: "Score FILE against its recorded test cases",
		long: `The test command builds FILE and runs every NAME.in file in the test
directory, comparing the output with NAME.out. The command fails when any
case fails.`,
		options: func(*cobra.Command) headlessOptions { return headlessOptions{} },
		op:      (*orchestrator.Engine).RunTests,
	},
	{
		use:   "watch FILE",
		short: "Run files of FILE's directory every time they are saved",
		long: `The watch command watches FILE's directory and runs any saved file of a
configured language. Press Ctrl+C to stop.`,
		options: func(*cobra.Command) headlessOptions { return headlessOptions{persistent: true} },
		op:      (*orchestrator.Engine).ToggleWatch,
	},
	{
		use:   "clean FILE",
		short: "Delete the build directory and forget cached builds",
		long: `The clean command deletes the build directory next to FILE after
confirmation (--yes skips it).`,
		options: func(cmd *cobra.Command) headlessOptions {
			yes, _ := cmd.Flags().GetBool("yes")
			return headlessOptions{assumeYes: yes}
		},
		op: (*orchestrator.Engine).Clean,
	},
}

func init() {
	for _, o := range operations {
		rootCmd.AddCommand(o.command())
	}
}

func (o operation) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   o.use,
		Short: o.short,
		Long:  o.long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			t, err := a.target(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd)
			defer stop()
			hopts := o.options(cmd)
			return a.serve(ctx, func(ctx context.Context) error {
				return a.headless(ctx, t, hopts, o.op)
			})
		},
	}

	switch o.use {
	case "last FILE", "clean FILE":
		cmd.Flags().BoolP("yes", "y", false, "Answer yes to confirmations")
	case "input FILE":
		cmd.Flags().String("in", "", "Input file, relative to FILE's directory")
	case "io FILE":
		cmd.Flags().String("in", "", "Input file, relative to FILE's directory")
		cmd.Flags().String("out", "", "Output file, relative to FILE's directory")
		cmd.Flags().BoolP("yes", "y", false, "Build first when there is no build yet")
	}
	return cmd
}

// presetInputs keeps the leading non-empty answers; the rest are asked for.
func presetInputs(values ...string) []string {
	for i, v := range values {
		if v == "" {
			return values[:i]
		}
	}
	return values
}
