package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentgate/internal/rules"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version, the built-in rule table, and runtime details.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := rules.Default()
		if err != nil {
			return fmt.Errorf("built-in rules: %w", err)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "agentgate version %s\n", version)
		fmt.Fprintf(w, "  Built-in rules: %d task types\n", table.Len())
		fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
		fmt.Fprintf(w, "  Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
