package main

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	isolate(t)
	stdout, _, err := executeCommand(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(stdout, "agentgate version "+version) {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestVersion_RuleCount(t *testing.T) {
	isolate(t)
	stdout, _, err := executeCommand(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(stdout, "Built-in rules: 11 task types") {
		t.Errorf("stdout = %q", stdout)
	}
}
