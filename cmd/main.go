package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (can be set at build time)
var (
	version = "0.1.0"
)

// globalOptions are the persistent flags every command shares.
type globalOptions struct {
	configPath  string
	lang        string
	profile     string
	logFile     string
	metricsAddr string
	debug       bool
	noTUI       bool
}

var opts globalOptions

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coderun [FILE]",
	Short: "Build, run and test a single source file",
	Long: `coderun compiles (when needed) and runs one source file inside a managed
terminal session, times it, and checks its output against recorded test cases.

Usage:
  coderun FILE          Open the interactive workbench for FILE
  coderun run FILE      Build and run FILE once
  coderun test FILE     Score FILE against the cases in its test directory`,
	Version:       version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runOpen,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to the override configuration (default: user config dir)")
	flags.StringVarP(&opts.lang, "lang", "l", "", "Language id to use instead of detecting it from the extension")
	flags.StringVarP(&opts.profile, "profile", "p", "", "Flag profile to build with (e.g. Debug, Release)")
	flags.StringVar(&opts.logFile, "log-file", "", "Write logs to this file")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&opts.noTUI, "no-tui", false, "Disable the workbench (use plain output)")
}

// exitError carries an exit status for an operation whose failure has
// already been reported.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
