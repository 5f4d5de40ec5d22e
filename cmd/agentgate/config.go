package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentgate/internal/config"
	"github.com/boshu2/agentgate/internal/formatter"
)

var (
	configShow bool
)

// configEnvVars are the environment variables config reads.
var configEnvVars = []string{
	"AGENTGATE_CONFIG",
	"AGENTGATE_OUTPUT",
	"AGENTGATE_VERBOSE",
	"AGENTGATE_LOG_DIR",
	"AGENTGATE_MODE",
	"HOOK_MODE",
	"AGENTGATE_PROJECT_KIND",
	"AGENTGATE_RULES_FILE",
	"AGENTGATE_ENFORCE_THRESHOLDS",
	"AGENTGATE_READINESS",
	"AGENTGATE_LOG_LEVEL",
	"AGENTGATE_LOG_FORMAT",
	"AGENTGATE_ANALYTICS_LIMIT",
	"CLAUDE_PROJECT_DIR",
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View agentgate configuration.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (AGENTGATE_*)
  3. Project config (<project>/.agentgate/config.yaml)
  4. Home config (~/.agentgate/config.yaml)
  5. Defaults

The project root is --project-dir, else CLAUDE_PROJECT_DIR, else the nearest
parent directory holding .claude/ or .agentgate/, else the working directory.

Environment variables:
  AGENTGATE_CONFIG             - Explicit config file path (replaces the project config)
  AGENTGATE_OUTPUT             - Default output format (table, json, yaml)
  AGENTGATE_VERBOSE            - Mirror logs to stderr (true/1)
  AGENTGATE_LOG_DIR            - Decision log directory (default .claude/hook-logs)
  AGENTGATE_MODE / HOOK_MODE   - Dispatch mode (strict, warning)
  AGENTGATE_PROJECT_KIND       - Pin the project kind (Flutter, React, Vue, Python)
  AGENTGATE_RULES_FILE         - Rule table replacing the built-in one
  AGENTGATE_ENFORCE_THRESHOLDS - Treat rule weight_threshold as a minimum score
  AGENTGATE_READINESS          - Enable the reference-document check
  AGENTGATE_LOG_LEVEL          - debug, info, warn, error
  AGENTGATE_LOG_FORMAT         - json, console
  AGENTGATE_ANALYTICS_LIMIT    - Recent corrections used for pattern analysis

Examples:
  agentgate config --show           # Show resolved configuration
  agentgate config --show -o json   # Output as JSON`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&configShow, "show", false, "Show resolved configuration with sources")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if !configShow {
		// Show help if no flags
		return cmd.Help()
	}

	w := cmd.OutOrStdout()
	resolved := config.Resolve(flagOverrides())

	f, err := formatter.ParseFormat(resolved.Output.Value.(string))
	if err != nil {
		return err
	}
	if f.Structured() {
		return formatter.Encode(w, f, resolved)
	}

	cfg, err := config.Load(flagOverrides())
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "agentgate Configuration")
	fmt.Fprintln(w, "=======================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Config files:")
	if home, err := os.UserHomeDir(); err == nil {
		printConfigFile(cmd, "Home:   ", filepath.Join(home, ".agentgate", "config.yaml"))
	}
	projectConfig := filepath.Join(cfg.ProjectDir, ".agentgate", "config.yaml")
	if override := os.Getenv("AGENTGATE_CONFIG"); override != "" {
		projectConfig = override
	}
	printConfigFile(cmd, "Project:", projectConfig)
	fmt.Fprintf(w, "  Project root: %s\n", cfg.ProjectDir)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Resolved values:")
	tbl := formatter.NewTable(w, "KEY", "VALUE", "SOURCE")
	for _, row := range []struct {
		key string
		val any
		src config.Source
	}{
		{"output", resolved.Output.Value, resolved.Output.Source},
		{"verbose", resolved.Verbose.Value, resolved.Verbose.Source},
		{"log_dir", resolved.LogDir.Value, resolved.LogDir.Source},
		{"dispatch.mode", resolved.DispatchMode.Value, resolved.DispatchMode.Source},
		{"dispatch.project_kind", resolved.ProjectKind.Value, resolved.ProjectKind.Source},
		{"dispatch.rules_file", resolved.RulesFile.Value, resolved.RulesFile.Source},
		{"classifier.enforce_thresholds", resolved.EnforceThresholds.Value, resolved.EnforceThresholds.Source},
		{"readiness.enabled", resolved.Readiness.Value, resolved.Readiness.Source},
		{"logging.level", resolved.LogLevel.Value, resolved.LogLevel.Source},
		{"logging.format", resolved.LogFormat.Value, resolved.LogFormat.Source},
		{"analytics.limit", resolved.AnalyticsLimit.Value, resolved.AnalyticsLimit.Source},
	} {
		tbl.AddRow(row.key, fmt.Sprint(row.val), string(row.src))
	}
	if err := tbl.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables (if set):")
	anySet := false
	for _, env := range configEnvVars {
		if v := os.Getenv(env); v != "" {
			fmt.Fprintf(w, "  %s=%s\n", env, v)
			anySet = true
		}
	}
	if !anySet {
		fmt.Fprintln(w, "  (none set)")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(w, "\n⚠ Invalid configuration: %v\n", err)
	}
	return nil
}

func printConfigFile(cmd *cobra.Command, label, path string) {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "  ✓ %s %s\n", label, path)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "  ✗ %s %s (not found)\n", label, path)
	}
}
