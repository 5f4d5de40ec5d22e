package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boshu2/agentgate/internal/dispatch"
)

var envKeys = []string{
	"AGENTGATE_CONFIG", "AGENTGATE_OUTPUT", "AGENTGATE_VERBOSE", "AGENTGATE_LOG_DIR",
	"AGENTGATE_MODE", "HOOK_MODE", "AGENTGATE_PROJECT_KIND", "AGENTGATE_RULES_FILE",
	"AGENTGATE_ENFORCE_THRESHOLDS", "AGENTGATE_READINESS", "AGENTGATE_LOG_LEVEL",
	"AGENTGATE_LOG_FORMAT", "AGENTGATE_ANALYTICS_LIMIT", "CLAUDE_PROJECT_DIR",
}

// isolate points HOME and the project root at empty temp dirs and clears
// every variable the package reads. It returns the project root.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	t.Setenv("CLAUDE_PROJECT_DIR", root)
	return root
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

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Output != "table" {
		t.Errorf("Default Output = %q, want %q", cfg.Output, "table")
	}
	if cfg.LogDir != ".claude/hook-logs" {
		t.Errorf("Default LogDir = %q, want %q", cfg.LogDir, ".claude/hook-logs")
	}
	if cfg.Dispatch.Mode != "strict" {
		t.Errorf("Default Dispatch.Mode = %q, want %q", cfg.Dispatch.Mode, "strict")
	}
	if cfg.Classifier.EnforceThresholds {
		t.Error("Default Classifier.EnforceThresholds = true, want false")
	}
	if cfg.Readiness.Enabled {
		t.Error("Default Readiness.Enabled = true, want false")
	}
	if cfg.Analytics.Limit != 100 {
		t.Errorf("Default Analytics.Limit = %d, want %d", cfg.Analytics.Limit, 100)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestMerge(t *testing.T) {
	dst := Default()
	src := &Config{
		Output:   "json",
		Dispatch: DispatchConfig{Mode: "warning"},
		Readiness: ReadinessConfig{
			Enabled: true,
		},
	}

	result := merge(dst, src)

	if result.Output != "json" {
		t.Errorf("merge Output = %q, want %q", result.Output, "json")
	}
	if result.Dispatch.Mode != "warning" {
		t.Errorf("merge Dispatch.Mode = %q, want %q", result.Dispatch.Mode, "warning")
	}
	if !result.Readiness.Enabled {
		t.Error("merge Readiness.Enabled = false, want true")
	}
	// Defaults should be preserved when not overridden
	if result.LogDir != ".claude/hook-logs" {
		t.Errorf("merge preserved LogDir = %q", result.LogDir)
	}
	if result.Analytics.Limit != 100 {
		t.Errorf("merge preserved Analytics.Limit = %d, want 100", result.Analytics.Limit)
	}
}

func TestMerge_BoolsOnlyTurnOn(t *testing.T) {
	dst := Default()
	dst.Verbose = true
	result := merge(dst, &Config{})
	if !result.Verbose {
		t.Error("merge with zero src turned Verbose off")
	}
}

func TestApplyEnv(t *testing.T) {
	isolate(t)
	t.Setenv("AGENTGATE_OUTPUT", "yaml")
	t.Setenv("AGENTGATE_VERBOSE", "1")
	t.Setenv("AGENTGATE_PROJECT_KIND", "react")
	t.Setenv("AGENTGATE_ENFORCE_THRESHOLDS", "true")
	t.Setenv("AGENTGATE_READINESS", "true")
	t.Setenv("AGENTGATE_LOG_LEVEL", "debug")
	t.Setenv("AGENTGATE_ANALYTICS_LIMIT", "25")

	cfg := applyEnv(Default())

	if cfg.Output != "yaml" {
		t.Errorf("applyEnv Output = %q, want %q", cfg.Output, "yaml")
	}
	if !cfg.Verbose {
		t.Error("applyEnv Verbose = false, want true")
	}
	if cfg.Dispatch.ProjectKind != "react" {
		t.Errorf("applyEnv ProjectKind = %q, want %q", cfg.Dispatch.ProjectKind, "react")
	}
	if !cfg.Classifier.EnforceThresholds || !cfg.Readiness.Enabled {
		t.Error("applyEnv did not enable thresholds and readiness")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("applyEnv Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Analytics.Limit != 25 {
		t.Errorf("applyEnv Analytics.Limit = %d, want 25", cfg.Analytics.Limit)
	}
}

func TestApplyEnv_ModeVariables(t *testing.T) {
	tests := []struct {
		name     string
		hookMode string
		mode     string
		want     string
	}{
		{"neither", "", "", "strict"},
		{"legacy HOOK_MODE", "warning", "", "warning"},
		{"AGENTGATE_MODE", "", "warning", "warning"},
		{"AGENTGATE_MODE wins", "warning", "strict", "strict"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv("HOOK_MODE", tt.hookMode)
			t.Setenv("AGENTGATE_MODE", tt.mode)
			cfg := applyEnv(Default())
			if cfg.Dispatch.Mode != tt.want {
				t.Errorf("Dispatch.Mode = %q, want %q", cfg.Dispatch.Mode, tt.want)
			}
		})
	}
}

func TestApplyEnv_BadLimitIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("AGENTGATE_ANALYTICS_LIMIT", "lots")
	if got := applyEnv(Default()).Analytics.Limit; got != 100 {
		t.Errorf("Analytics.Limit = %d, want 100", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"yes", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Setenv("AGENTGATE_TEST_BOOL", tt.value)
		got, _ := getEnvBool("AGENTGATE_TEST_BOOL")
		if got != tt.want {
			t.Errorf("getEnvBool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
output: json
log_dir: /var/log/agentgate
dispatch:
  mode: warning
  project_kind: Vue
  rules_file: rules.yaml
classifier:
  enforce_thresholds: true
readiness:
  enabled: true
logging:
  level: warn
  format: console
analytics:
  limit: 50
`)

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("loadFromPath() error = %v", err)
	}
	if cfg.Output != "json" {
		t.Errorf("Output = %q, want %q", cfg.Output, "json")
	}
	if cfg.LogDir != "/var/log/agentgate" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.Dispatch.Mode != "warning" || cfg.Dispatch.ProjectKind != "Vue" || cfg.Dispatch.RulesFile != "rules.yaml" {
		t.Errorf("Dispatch = %+v", cfg.Dispatch)
	}
	if !cfg.Classifier.EnforceThresholds || !cfg.Readiness.Enabled {
		t.Error("booleans not loaded")
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Analytics.Limit != 50 {
		t.Errorf("Analytics.Limit = %d, want 50", cfg.Analytics.Limit)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	cfg, err := loadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil || cfg != nil {
		t.Errorf("loadFromPath(missing) = %v, %v; want nil, nil", cfg, err)
	}
	cfg, err = loadFromPath("")
	if err != nil || cfg != nil {
		t.Errorf("loadFromPath(\"\") = %v, %v; want nil, nil", cfg, err)
	}
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "dispatch: [unclosed")
	if _, err := loadFromPath(path); err == nil {
		t.Error("loadFromPath(invalid) error = nil, want error")
	}
}

func TestLoad_Precedence(t *testing.T) {
	root := isolate(t)
	home := os.Getenv("HOME")
	writeFile(t, filepath.Join(home, ".agentgate", "config.yaml"), `
output: yaml
logging:
  level: debug
analytics:
  limit: 10
`)
	writeFile(t, filepath.Join(root, ".agentgate", "config.yaml"), `
output: json
dispatch:
  mode: warning
`)
	t.Setenv("AGENTGATE_LOG_LEVEL", "error")

	cfg, err := Load(&Config{Dispatch: DispatchConfig{Mode: "strict"}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ProjectDir != root {
		t.Errorf("ProjectDir = %q, want %q", cfg.ProjectDir, root)
	}
	if cfg.Output != "json" {
		t.Errorf("Output = %q, want project value %q", cfg.Output, "json")
	}
	if cfg.Analytics.Limit != 10 {
		t.Errorf("Analytics.Limit = %d, want home value 10", cfg.Analytics.Limit)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want env value %q", cfg.Logging.Level, "error")
	}
	if cfg.Dispatch.Mode != "strict" {
		t.Errorf("Dispatch.Mode = %q, want flag value %q", cfg.Dispatch.Mode, "strict")
	}
}

func TestLoad_ProjectDirFlag(t *testing.T) {
	isolate(t)
	other := t.TempDir()
	writeFile(t, filepath.Join(other, ".agentgate", "config.yaml"), "output: yaml\n")

	cfg, err := Load(&Config{ProjectDir: other})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ProjectDir != other {
		t.Errorf("ProjectDir = %q, want %q", cfg.ProjectDir, other)
	}
	if cfg.Output != "yaml" {
		t.Errorf("Output = %q, want %q", cfg.Output, "yaml")
	}
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "readiness:\n  enabled: true\n")
	t.Setenv("AGENTGATE_CONFIG", path)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Readiness.Enabled {
		t.Error("Readiness.Enabled = false, want true from AGENTGATE_CONFIG file")
	}
}

func TestLoad_BrokenProjectConfig(t *testing.T) {
	root := isolate(t)
	writeFile(t, filepath.Join(root, ".agentgate", "config.yaml"), "output: [")
	if _, err := Load(nil); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad output", func(c *Config) { c.Output = "xml" }, "output"},
		{"bad mode", func(c *Config) { c.Dispatch.Mode = "lenient" }, "dispatch.mode"},
		{"warn alias", func(c *Config) { c.Dispatch.Mode = "warn" }, ""},
		{"bad kind", func(c *Config) { c.Dispatch.ProjectKind = "Elm" }, "dispatch.project_kind"},
		{"kind any case", func(c *Config) { c.Dispatch.ProjectKind = "python" }, ""},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"negative limit", func(c *Config) { c.Analytics.Limit = -1 }, "analytics.limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestRepair(t *testing.T) {
	cfg := Default()
	cfg.Output = "text"
	cfg.Dispatch.Mode = "off"
	cfg.Dispatch.ProjectKind = "Elm"
	cfg.Logging.Level = "verbose"
	cfg.Logging.Format = "xml"
	cfg.Analytics.Limit = -5
	cfg.Readiness.Enabled = true

	errs := cfg.Repair()
	if len(errs) != 6 {
		t.Fatalf("Repair() reported %d problems, want 6: %v", len(errs), errs)
	}
	for _, err := range errs {
		if !strings.HasSuffix(err.Error(), "using the default") {
			t.Errorf("problem %q does not say what replaced it", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after Repair = %v", err)
	}
	if cfg.Mode() != dispatch.ModeStrict || cfg.Output != "table" || cfg.Analytics.Limit != 100 {
		t.Errorf("repaired config = %+v", cfg)
	}
	if cfg.Dispatch.ProjectKind != "" {
		t.Errorf("ProjectKind = %q, want detection", cfg.Dispatch.ProjectKind)
	}
	if !cfg.Readiness.Enabled {
		t.Error("Repair touched a valid field")
	}
	if errs := cfg.Repair(); len(errs) != 0 {
		t.Errorf("second Repair() = %v, want nothing", errs)
	}
}

func TestLoadLenient_SkipsBrokenLayers(t *testing.T) {
	root := isolate(t)
	writeFile(t, filepath.Join(os.Getenv("HOME"), ".agentgate", "config.yaml"), "analytics:\n  limit: 7\n")
	writeFile(t, filepath.Join(root, ".agentgate", "config.yaml"), "output: [")
	t.Setenv("HOOK_MODE", "off")
	t.Setenv("AGENTGATE_LOG_LEVEL", "warn")

	cfg, problems := LoadLenient(nil)
	if cfg == nil {
		t.Fatal("LoadLenient() returned no config")
	}
	if len(problems) != 2 {
		t.Fatalf("problems = %v, want parse error and mode reset", problems)
	}
	if !strings.Contains(problems[0].Error(), "parse config") {
		t.Errorf("problems[0] = %v", problems[0])
	}
	if !strings.Contains(problems[1].Error(), "dispatch.mode") {
		t.Errorf("problems[1] = %v", problems[1])
	}
	if cfg.Mode() != dispatch.ModeStrict || cfg.Dispatch.Mode != "strict" {
		t.Errorf("Dispatch.Mode = %q, want strict", cfg.Dispatch.Mode)
	}
	if cfg.Analytics.Limit != 7 || cfg.Logging.Level != "warn" {
		t.Errorf("valid layers lost: %+v", cfg)
	}

	if _, err := Load(nil); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
}

func TestLoad_LegacyHookConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     string
		want    string
	}{
		{"warning", `{"agent_dispatch_check": {"mode": "warning"}}`, "", "warning"},
		{"upper case", `{"agent_dispatch_check": {"mode": "WARNING"}}`, "", "WARNING"},
		{"unknown mode ignored", `{"agent_dispatch_check": {"mode": "off"}}`, "", "strict"},
		{"other keys only", `{"other_check": {"mode": "warning"}}`, "", "strict"},
		{"env wins", `{"agent_dispatch_check": {"mode": "warning"}}`, "strict", "strict"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := isolate(t)
			writeFile(t, filepath.Join(root, ".claude", "hook-config.json"), tt.content)
			t.Setenv("HOOK_MODE", tt.env)

			cfg, err := Load(nil)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Dispatch.Mode != tt.want {
				t.Errorf("Dispatch.Mode = %q, want %q", cfg.Dispatch.Mode, tt.want)
			}
		})
	}
}

func TestLoad_LegacyHookConfigBelowProjectConfig(t *testing.T) {
	root := isolate(t)
	writeFile(t, filepath.Join(root, ".claude", "hook-config.json"), `{"agent_dispatch_check": {"mode": "warning"}}`)
	writeFile(t, filepath.Join(root, ".agentgate", "config.yaml"), "dispatch:\n  mode: strict\n")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Dispatch.Mode != "strict" {
		t.Errorf("Dispatch.Mode = %q, want project value", cfg.Dispatch.Mode)
	}

	rc := Resolve(nil)
	if rc.DispatchMode.Source != SourceProject {
		t.Errorf("DispatchMode source = %q, want %q", rc.DispatchMode.Source, SourceProject)
	}
}

func TestResolve_LegacySource(t *testing.T) {
	root := isolate(t)
	writeFile(t, filepath.Join(root, ".claude", "hook-config.json"), `{"agent_dispatch_check": {"mode": "warning"}}`)

	rc := Resolve(nil)
	if rc.DispatchMode.Value != "warning" || rc.DispatchMode.Source != SourceLegacy {
		t.Errorf("DispatchMode = %+v, want warning from %s", rc.DispatchMode, SourceLegacy)
	}
}

func TestLoad_BrokenLegacyHookConfig(t *testing.T) {
	root := isolate(t)
	writeFile(t, filepath.Join(root, ".claude", "hook-config.json"), "{mode")

	if _, err := Load(nil); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
	cfg, problems := LoadLenient(nil)
	if len(problems) != 1 || cfg.Mode() != dispatch.ModeStrict {
		t.Errorf("LoadLenient() = %+v, %v", cfg, problems)
	}
}

func TestMode(t *testing.T) {
	cfg := Default()
	if cfg.Mode() != dispatch.ModeStrict {
		t.Errorf("Mode() = %q, want strict", cfg.Mode())
	}
	cfg.Dispatch.Mode = "warning"
	if cfg.Mode() != dispatch.ModeWarning {
		t.Errorf("Mode() = %q, want warning", cfg.Mode())
	}
	cfg.Dispatch.Mode = "bogus"
	if cfg.Mode() != dispatch.ModeStrict {
		t.Errorf("Mode() for invalid = %q, want strict", cfg.Mode())
	}
}

func TestLogPathAndRulesPath(t *testing.T) {
	cfg := Default()
	cfg.ProjectDir = "/work/app"

	if got, want := cfg.LogPath("x.jsonl"), filepath.Join("/work/app", ".claude/hook-logs", "x.jsonl"); got != want {
		t.Errorf("LogPath = %q, want %q", got, want)
	}
	cfg.LogDir = "/var/log/gate"
	if got := cfg.LogPath("x.jsonl"); got != "/var/log/gate/x.jsonl" {
		t.Errorf("LogPath absolute = %q", got)
	}

	if got := cfg.RulesPath(); got != "" {
		t.Errorf("RulesPath empty = %q", got)
	}
	cfg.Dispatch.RulesFile = "policy/rules.yaml"
	if got := cfg.RulesPath(); got != "/work/app/policy/rules.yaml" {
		t.Errorf("RulesPath relative = %q", got)
	}
	cfg.Dispatch.RulesFile = "/etc/rules.yaml"
	if got := cfg.RulesPath(); got != "/etc/rules.yaml" {
		t.Errorf("RulesPath absolute = %q", got)
	}
}

func TestResolve_Defaults(t *testing.T) {
	isolate(t)
	rc := Resolve(nil)

	if rc.Output.Value != "table" || rc.Output.Source != SourceDefault {
		t.Errorf("Output = %+v, want table from default", rc.Output)
	}
	if rc.Verbose.Value != false || rc.Verbose.Source != SourceDefault {
		t.Errorf("Verbose = %+v", rc.Verbose)
	}
	if rc.AnalyticsLimit.Value != 100 {
		t.Errorf("AnalyticsLimit = %+v", rc.AnalyticsLimit)
	}
}

func TestResolve_Sources(t *testing.T) {
	root := isolate(t)
	writeFile(t, filepath.Join(os.Getenv("HOME"), ".agentgate", "config.yaml"), "log_dir: /home-logs\nverbose: true\n")
	writeFile(t, filepath.Join(root, ".agentgate", "config.yaml"), "output: json\nreadiness:\n  enabled: true\n")
	t.Setenv("HOOK_MODE", "warning")

	rc := Resolve(&Config{Logging: LoggingConfig{Format: "console"}})

	tests := []struct {
		name       string
		got        resolved
		wantValue  interface{}
		wantSource Source
	}{
		{"log_dir", rc.LogDir, "/home-logs", SourceHome},
		{"verbose", rc.Verbose, true, SourceHome},
		{"output", rc.Output, "json", SourceProject},
		{"readiness", rc.Readiness, true, SourceProject},
		{"dispatch_mode", rc.DispatchMode, "warning", SourceEnv},
		{"log_format", rc.LogFormat, "console", SourceFlag},
		{"log_level", rc.LogLevel, "info", SourceDefault},
	}
	for _, tt := range tests {
		if tt.got.Value != tt.wantValue || tt.got.Source != tt.wantSource {
			t.Errorf("%s = %v from %s, want %v from %s", tt.name, tt.got.Value, tt.got.Source, tt.wantValue, tt.wantSource)
		}
	}
}
