package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

type resolvedField struct {
	Value  any    `json:"value"`
	Source string `json:"source"`
}

func TestConfigShow_JSON(t *testing.T) {
	root := isolate(t)
	writeFile(t, filepath.Join(root, ".agentgate", "config.yaml"), "analytics:\n  limit: 25\n")
	t.Setenv("HOOK_MODE", "warning")

	stdout, _, err := executeCommand(t, "", "-o", "json", "config", "--show")
	if err != nil {
		t.Fatalf("config --show: %v", err)
	}
	var got map[string]resolvedField
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}

	tests := []struct {
		key    string
		value  any
		source string
	}{
		{"output", "json", "flag"},
		{"dispatch_mode", "warning", "environment"},
		{"analytics_limit", float64(25), ".agentgate/config.yaml"},
		{"log_level", "info", "default"},
	}
	for _, tt := range tests {
		f, ok := got[tt.key]
		if !ok {
			t.Errorf("missing %s", tt.key)
			continue
		}
		if f.Value != tt.value || f.Source != tt.source {
			t.Errorf("%s = %v (%s), want %v (%s)", tt.key, f.Value, f.Source, tt.value, tt.source)
		}
	}
}

func TestConfigShow_Table(t *testing.T) {
	isolate(t)
	t.Setenv("AGENTGATE_MODE", "bogus")

	stdout, _, err := executeCommand(t, "", "config", "--show")
	if err != nil {
		t.Fatalf("config --show: %v", err)
	}
	for _, want := range []string{
		"agentgate Configuration",
		"(not found)",
		"dispatch.mode",
		"AGENTGATE_MODE=bogus",
		"⚠ Invalid configuration",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config --show missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfig_NoFlagsShowsHelp(t *testing.T) {
	isolate(t)
	stdout, _, err := executeCommand(t, "", "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(stdout, "Configuration priority") {
		t.Errorf("stdout = %q", stdout)
	}
}
