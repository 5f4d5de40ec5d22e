// Package embedded provides files compiled into the agentgate binary: the
// default dispatch rule table and the Claude Code hook manifest. A
// rules_file in config replaces the rule table at runtime.
package embedded

import _ "embed"

// RulesYAML contains the raw default rule table.
//
//go:embed rules.yaml
var RulesYAML []byte

// HooksJSON is the hook manifest 'agentgate hooks' installs. ${AGENTGATE}
// stands for the agentgate command.
//
//go:embed hooks.json
var HooksJSON []byte
