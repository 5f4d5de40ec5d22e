package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/boshu2/agentgate/internal/decisionlog"
)

// isolate points HOME and the project root at fresh temp dirs and clears
// every variable config reads. It returns the project root.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
	}
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	t.Setenv("CLAUDE_PROJECT_DIR", root)
	return root
}

// executeCommand runs rootCmd with args and stdin and captures its output.
func executeCommand(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// resetFlags restores every flag in the tree to its default. Cobra keeps
// parsed values between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// logDir is the default decision log directory under root.
func logDir(root string) string {
	return filepath.Join(root, ".claude", "hook-logs")
}

func readLog(t *testing.T, root, name string) []decisionlog.Record {
	t.Helper()
	records, err := decisionlog.NewStore(filepath.Join(logDir(root), name)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll(%s): %v", name, err)
	}
	return records
}
