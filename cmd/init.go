package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harshul/coderun/internal/config"
	"github.com/harshul/coderun/internal/ui"
)

// configCmd groups configuration helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the override configuration",
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter override configuration",
	Long: `The config init command writes a YAML file holding the current settings
and a couple of example language entries. coderun merges it over its
built-in defaults, so keys you delete keep their default values.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configPathCmd prints where the override configuration is read from
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the override configuration path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := opts.configPath
		if path == "" {
			path = config.DefaultPath()
		}
		fmt.Println(path)
	},
}

func init() {
	configInitCmd.Flags().StringP("output", "o", "", "Output file path for the configuration (default: --config or the user config dir)")
	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing configuration file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")

	if outputPath == "" {
		outputPath = opts.configPath
	}
	if outputPath == "" {
		outputPath = config.DefaultPath()
	}
	if outputPath == "" {
		return fmt.Errorf("no user config directory; pass --output")
	}
	if !filepath.IsAbs(outputPath) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		outputPath = filepath.Join(cwd, outputPath)
	}

	// Check if file already exists
	if _, err := os.Stat(outputPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s. Use --force to overwrite", outputPath)
	}

	// Start from the defaults only, never from the file being replaced.
	cfg, err := config.Parse(nil)
	if err != nil {
		return err
	}
	if err := config.WriteStarter(outputPath, cfg.Settings); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Configuration written to %s", outputPath))
	ui.PrintInfo("Run 'coderun languages' to see the effective language table")
	return nil
}
