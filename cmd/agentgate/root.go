package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentgate/internal/config"
)

var (
	// Global flags
	dryRun     bool
	verbose    bool
	output     string
	cfgFile    string
	projectDir string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "agentgate",
	Short: "Agent dispatch policy hook",
	Long: `agentgate checks that every task an AI coding agent hands off goes to the
executor that owns that kind of work.

Hook:
  hook pre-tool-use   Validate a Task dispatch (hook envelope on stdin)

Inspect:
  check        Validate a task against an executor
  classify     Show how a task description scores
  rules        List, show, and validate the rule table

History:
  corrections  Record and review dispatch corrections
  analytics    Find patterns in corrections and warnings

Setup:
  hooks        Install the PreToolUse hook into Claude Code
  config       Show resolved configuration
  version      Show version information`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		syncConfigFlagToEnv()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show what would happen without writing logs or settings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (logs are mirrored to stderr)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format (table, json, yaml); default from config, else table")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: <project>/.agentgate/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project-dir", "", "Project root (default: $CLAUDE_PROJECT_DIR, else the working directory)")
}

// GetDryRun returns the dry-run flag value for use by subcommands.
func GetDryRun() bool {
	return dryRun
}

// GetVerbose returns the verbose flag value for use by subcommands.
func GetVerbose() bool {
	return verbose
}

// GetOutput returns the output format flag for use by subcommands.
func GetOutput() string {
	return output
}

// GetConfigFile returns the config file path for use by subcommands.
func GetConfigFile() string {
	return cfgFile
}

// VerbosePrintf prints to stderr only when verbose mode is enabled. Stdout
// belongs to command output and, for hooks, to the hook protocol.
func VerbosePrintf(format string, args ...interface{}) {
	if GetVerbose() {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

func syncConfigFlagToEnv() {
	path := strings.TrimSpace(GetConfigFile())
	if path == "" {
		return
	}
	_ = os.Setenv("AGENTGATE_CONFIG", path)
}

// flagOverrides returns the config layer contributed by global flags.
// Unset flags are zero and do not override lower layers.
func flagOverrides() *config.Config {
	return &config.Config{
		Output:     GetOutput(),
		Verbose:    GetVerbose(),
		ProjectDir: projectDir,
	}
}
