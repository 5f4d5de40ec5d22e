package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentgate/embedded"
	"github.com/boshu2/agentgate/internal/storage"
)

// commandPlaceholder stands for the agentgate command in the embedded manifest.
const commandPlaceholder = "${AGENTGATE}"

var (
	hooksForce   bool
	hooksProject bool
	hooksBinary  string
)

// HookEntry represents a single hook command (e.g., {"type": "command", "command": "..."}).
type HookEntry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

// HookGroup represents a hook group with optional matcher and a hooks array.
// Claude Code format: {"matcher": "Task|Agent", "hooks": [{"type": "command", "command": "..."}]}
type HookGroup struct {
	Matcher string      `json:"matcher,omitempty"`
	Hooks   []HookEntry `json:"hooks"`
}

// HooksConfig represents the hooks section agentgate manages.
type HooksConfig struct {
	PreToolUse []HookGroup `json:"PreToolUse,omitempty"`
}

// ManagedEvents returns the hook events agentgate installs, in order.
func ManagedEvents() []string {
	return []string{"PreToolUse"}
}

// GetEventGroups returns the hook groups for a given event name.
func (c *HooksConfig) GetEventGroups(event string) []HookGroup {
	switch event {
	case "PreToolUse":
		return c.PreToolUse
	}
	return nil
}

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Install the PreToolUse hook into Claude Code",
	Long: `The hooks command manages the Claude Code hook that runs the dispatch check
before every Task tool call.

Subcommands:
  init      Print the hooks configuration
  install   Merge the hook into Claude Code settings
  show      Display the installed hook configuration

Example workflow:
  agentgate hooks init                # Inspect the configuration
  agentgate hooks install             # Install to ~/.claude/settings.json
  agentgate hooks install --project   # Install to ./.claude/settings.json`,
}

var hooksInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Print the hooks configuration",
	Long:  `Print the hooks configuration as JSON for manual settings.json editing.`,
	Args:  cobra.NoArgs,
	RunE:  runHooksInit,
}

var hooksInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the hook into Claude Code settings",
	Long: `Install the agentgate hook into Claude Code settings.

This command:
  1. Reads existing settings.json (if any)
  2. Merges the agentgate hook with existing configuration
  3. Creates a backup of the original settings
  4. Writes the updated configuration

Hooks from other tools are preserved. Use --force to replace an existing
agentgate hook, and --dry-run to print the result without writing.`,
	Args: cobra.NoArgs,
	RunE: runHooksInstall,
}

var hooksShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current hook configuration",
	Long:  `Display the PreToolUse hooks configured in Claude Code settings.`,
	Args:  cobra.NoArgs,
	RunE:  runHooksShow,
}

func init() {
	rootCmd.AddCommand(hooksCmd)
	hooksCmd.AddCommand(hooksInitCmd)
	hooksCmd.AddCommand(hooksInstallCmd)
	hooksCmd.AddCommand(hooksShowCmd)

	hooksCmd.PersistentFlags().BoolVar(&hooksProject, "project", false, "Use <project>/.claude/settings.json instead of ~/.claude/settings.json")
	hooksCmd.PersistentFlags().StringVar(&hooksBinary, "binary", "agentgate", "Command the hook runs")
	hooksInstallCmd.Flags().BoolVar(&hooksForce, "force", false, "Replace an existing agentgate hook")
}

// hooksManifest wraps the hooks.json file format which has a top-level "hooks" key.
type hooksManifest struct {
	Hooks *HooksConfig `json:"hooks"`
}

// ReadHooksManifest parses a hooks.json manifest from raw bytes.
func ReadHooksManifest(data []byte) (*HooksConfig, error) {
	var manifest hooksManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse hooks manifest: %w", err)
	}
	if manifest.Hooks == nil {
		return nil, fmt.Errorf("hooks manifest missing 'hooks' key")
	}
	return manifest.Hooks, nil
}

// generateHooksConfig builds the hook configuration from the embedded
// manifest with the placeholder replaced by binary.
func generateHooksConfig(binary string) (*HooksConfig, error) {
	config, err := ReadHooksManifest(embedded.HooksJSON)
	if err != nil {
		return nil, err
	}
	for _, event := range ManagedEvents() {
		groups := config.GetEventGroups(event)
		for i := range groups {
			for j := range groups[i].Hooks {
				groups[i].Hooks[j].Command = strings.ReplaceAll(groups[i].Hooks[j].Command, commandPlaceholder, binary)
			}
		}
	}
	return config, nil
}

// settingsPath returns the Claude Code settings file hooks are written to.
func settingsPath() (string, error) {
	if hooksProject {
		cfg, err := loadConfig()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg.ProjectDir, ".claude", "settings.json"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".claude", "settings.json"), nil
}

func runHooksInit(cmd *cobra.Command, args []string) error {
	hooks, err := generateHooksConfig(hooksBinary)
	if err != nil {
		return err
	}
	wrapper := struct {
		Hooks *HooksConfig `json:"hooks"`
	}{Hooks: hooks}

	data, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hooks: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func loadHooksSettings(settingsPath string) (map[string]any, error) {
	rawSettings := make(map[string]any)
	data, err := os.ReadFile(settingsPath)
	if err == nil {
		if err := json.Unmarshal(data, &rawSettings); err != nil {
			return nil, fmt.Errorf("parse existing settings: %w", err)
		}
		return rawSettings, nil
	}
	if os.IsNotExist(err) {
		return rawSettings, nil
	}
	return nil, fmt.Errorf("read settings: %w", err)
}

func cloneHooksMap(rawSettings map[string]any) map[string]any {
	hooksMap := make(map[string]any)
	if existing, ok := rawSettings["hooks"].(map[string]any); ok {
		for k, v := range existing {
			hooksMap[k] = v
		}
	}
	return hooksMap
}

// mergeHookEvents replaces agentgate groups in hooksMap with newHooks and
// keeps every other group. It returns the number of events written.
func mergeHookEvents(hooksMap map[string]any, newHooks *HooksConfig) int {
	installedEvents := 0
	for _, event := range ManagedEvents() {
		groups := filterUnmanagedHookGroups(hooksMap, event)
		newGroups := newHooks.GetEventGroups(event)
		for _, g := range newGroups {
			groups = append(groups, hookGroupToMap(g))
		}
		if len(newGroups) > 0 {
			hooksMap[event] = groups
			installedEvents++
		}
	}
	return installedEvents
}

func backupHooksSettings(w io.Writer, settingsPath string) error {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil //nolint:nilerr // nothing to back up
	}
	backupPath := fmt.Sprintf("%s.backup.%s", settingsPath, time.Now().Format("20060102-150405"))
	if err := storage.WriteFile(backupPath, data, 0o644); err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	fmt.Fprintf(w, "Backed up existing settings to %s\n", backupPath)
	return nil
}

func writeHooksSettings(settingsPath string, rawSettings map[string]any) error {
	data, err := json.MarshalIndent(rawSettings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := storage.WriteFile(settingsPath, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func runHooksInstall(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	path, err := settingsPath()
	if err != nil {
		return err
	}
	rawSettings, err := loadHooksSettings(path)
	if err != nil {
		return err
	}

	if !hooksForce {
		if existing, ok := rawSettings["hooks"].(map[string]any); ok && hookGroupContainsManaged(existing, "PreToolUse") {
			fmt.Fprintln(w, "agentgate hook already installed. Use --force to overwrite.")
			return nil
		}
	}

	newHooks, err := generateHooksConfig(hooksBinary)
	if err != nil {
		return err
	}
	hooksMap := cloneHooksMap(rawSettings)
	installedEvents := mergeHookEvents(hooksMap, newHooks)
	rawSettings["hooks"] = hooksMap

	if GetDryRun() {
		fmt.Fprintln(w, "[dry-run] Would write to", path)
		data, err := json.MarshalIndent(rawSettings, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal hooks settings: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if err := backupHooksSettings(w, path); err != nil {
		return err
	}
	if err := writeHooksSettings(path, rawSettings); err != nil {
		return err
	}

	fmt.Fprintf(w, "✓ Installed agentgate hook to %s (%d event)\n", path, installedEvents)
	for _, event := range ManagedEvents() {
		for _, g := range newHooks.GetEventGroups(event) {
			for _, h := range g.Hooks {
				fmt.Fprintf(w, "  %s [%s]: %s\n", event, g.Matcher, h.Command)
			}
		}
	}
	return nil
}

// loadHooksMap reads settings.json and extracts the hooks map. It returns
// (nil, nil) with a printed message when hooks are absent or invalid.
func loadHooksMap(w io.Writer, settingsPath string) (map[string]any, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(w, "No Claude settings found at", settingsPath)
			fmt.Fprintln(w, "Run 'agentgate hooks install' to set up hooks.")
			return nil, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	hooksMap, ok := settings["hooks"].(map[string]any)
	if !ok {
		fmt.Fprintln(w, "No hooks configured in", settingsPath)
		fmt.Fprintln(w, "Run 'agentgate hooks install' to set up hooks.")
		return nil, nil
	}
	return hooksMap, nil
}

func runHooksShow(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	path, err := settingsPath()
	if err != nil {
		return err
	}
	hooksMap, err := loadHooksMap(w, path)
	if err != nil || hooksMap == nil {
		return err
	}

	for _, event := range ManagedEvents() {
		groups, _ := hooksMap[event].([]any)
		fmt.Fprintf(w, "%s: %d group(s)\n", event, len(groups))
		for _, g := range groups {
			group, ok := g.(map[string]any)
			if !ok {
				continue
			}
			matcher, _ := group["matcher"].(string)
			for _, cmdStr := range rawGroupCommands(group) {
				fmt.Fprintf(w, "  [%s] %s\n", matcher, cmdStr)
			}
		}
	}

	fmt.Fprintln(w)
	if hookGroupContainsManaged(hooksMap, "PreToolUse") {
		fmt.Fprintln(w, "✓ agentgate hook is installed")
	} else {
		fmt.Fprintln(w, "⚠ agentgate hook not found. Run 'agentgate hooks install' to set up.")
	}
	return nil
}

// rawGroupCommands lists the command strings in a raw hook group.
func rawGroupCommands(group map[string]any) []string {
	hooks, ok := group["hooks"].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, h := range hooks {
		hook, ok := h.(map[string]any)
		if !ok {
			continue
		}
		if cmd, ok := hook["command"].(string); ok {
			out = append(out, cmd)
		}
	}
	return out
}

// rawGroupIsManaged checks whether a raw hook group runs agentgate.
func rawGroupIsManaged(group map[string]any) bool {
	for _, cmd := range rawGroupCommands(group) {
		if isManagedHookCommand(cmd) {
			return true
		}
	}
	return false
}

// hookGroupContainsManaged checks if any hook group in the given event runs agentgate.
func hookGroupContainsManaged(hooksMap map[string]any, event string) bool {
	groups, ok := hooksMap[event].([]any)
	if !ok {
		return false
	}
	for _, g := range groups {
		if group, ok := g.(map[string]any); ok && rawGroupIsManaged(group) {
			return true
		}
	}
	return false
}

// filterUnmanagedHookGroups returns hook groups that don't run agentgate.
func filterUnmanagedHookGroups(hooksMap map[string]any, event string) []map[string]any {
	result := make([]map[string]any, 0)
	groups, ok := hooksMap[event].([]any)
	if !ok {
		return result
	}
	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok {
			continue
		}
		if !rawGroupIsManaged(group) {
			result = append(result, group)
		}
	}
	return result
}

// isManagedHookCommand reports whether cmd runs agentgate's hook, either by
// name or through the binary given with --binary.
func isManagedHookCommand(cmd string) bool {
	if !strings.Contains(cmd, "hook pre-tool-use") {
		return false
	}
	if strings.Contains(filepath.ToSlash(cmd), "agentgate") {
		return true
	}
	bin := strings.TrimSpace(hooksBinary)
	return bin != "" && strings.HasPrefix(strings.TrimSpace(cmd), bin+" hook pre-tool-use")
}

// hookGroupToMap converts a HookGroup to a map for JSON serialization.
func hookGroupToMap(g HookGroup) map[string]any {
	hooks := make([]map[string]any, len(g.Hooks))
	for i, h := range g.Hooks {
		entry := map[string]any{
			"type":    h.Type,
			"command": h.Command,
		}
		if h.Timeout > 0 {
			entry["timeout"] = h.Timeout
		}
		hooks[i] = entry
	}
	result := map[string]any{
		"hooks": hooks,
	}
	if g.Matcher != "" {
		result["matcher"] = g.Matcher
	}
	return result
}
