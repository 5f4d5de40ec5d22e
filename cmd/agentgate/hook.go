package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boshu2/agentgate/internal/decisionlog"
	"github.com/boshu2/agentgate/internal/dispatch"
	"github.com/boshu2/agentgate/internal/formatter"
	"github.com/boshu2/agentgate/internal/readiness"
	"github.com/boshu2/agentgate/internal/types"
)

// checkedTools are the tools whose calls hand a task to another agent.
var checkedTools = map[string]bool{
	"Task":  true,
	"Agent": true,
}

const (
	missingPromptReason     = "Task tool call has no prompt"
	mismatchSystemMessage   = "Agent dispatch mismatch: dispatch the task again to the executor named in the reason."
	readinessSystemMessage  = "Add the missing reference documents to the task and dispatch it again."
	warningContinuesMessage = "the task will run anyway; check the dispatch."
)

// hookInput is the part of the PreToolUse envelope agentgate reads.
type hookInput struct {
	HookEventName string `json:"hook_event_name"`
	ToolName      string `json:"tool_name"`
	ToolInput     struct {
		Prompt       string `json:"prompt"`
		SubagentType string `json:"subagent_type"`
		Description  string `json:"description"`
	} `json:"tool_input"`
}

// hookOutput is written to stdout only to deny a call. Silence allows it.
type hookOutput struct {
	HookSpecificOutput *hookDecision `json:"hookSpecificOutput,omitempty"`
	SystemMessage      string        `json:"systemMessage,omitempty"`
}

type hookDecision struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason"`
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run as a Claude Code hook",
	Long: `Hook entry points. Claude Code runs these with the event envelope on stdin.

Install them with 'agentgate hooks install'.`,
}

var hookPreToolUseCmd = &cobra.Command{
	Use:   "pre-tool-use",
	Short: "Validate a Task dispatch",
	Long: `Read a PreToolUse envelope from stdin and check Task dispatches.

Only Task and Agent tool calls are checked; everything else passes through.

  - A call without a prompt is denied.
  - With readiness.enabled, a task missing its reference documents is denied.
  - A mismatched executor is denied in strict mode. In warning mode the
    mismatch is recorded to the warnings log, printed to stderr, and allowed.
  - An unknown executor or an undetermined task type is allowed with a
    warning on stderr.

Invalid configuration values fall back to their defaults with a note on
stderr, so a bad setting never turns the check off. Malformed input, a rule
table that cannot be loaded, and internal failures never block a dispatch:
the hook logs the problem and exits 0.`,
	Args: cobra.NoArgs,
	RunE: runHookPreToolUse,
}

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.AddCommand(hookPreToolUseCmd)
}

func runHookPreToolUse(cmd *cobra.Command, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		fmt.Fprintf(stderr, "agentgate: read hook input: %v; allowing\n", err)
		return nil
	}
	var in hookInput
	if err := json.Unmarshal(data, &in); err != nil {
		fmt.Fprintf(stderr, "agentgate: invalid hook input: %v; allowing\n", err)
		return nil
	}
	if !checkedTools[in.ToolName] {
		return nil
	}
	if strings.TrimSpace(in.ToolInput.Prompt) == "" {
		return writeDeny(stdout, missingPromptReason, "")
	}

	eng, err := newHookEngine(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "agentgate: %v; allowing\n", err)
		return nil
	}
	defer eng.close()

	return eng.preToolUse(in, stdout, stderr)
}

// preToolUse decides one dispatch. It only returns write errors.
func (e *engine) preToolUse(in hookInput, stdout, stderr io.Writer) error {
	prompt := in.ToolInput.Prompt
	executor := types.Executor(strings.TrimSpace(in.ToolInput.SubagentType))
	log := e.logger.With(zap.String("tool", in.ToolName), zap.String("executor", string(executor)))

	if e.cfg.Readiness.Enabled {
		if rr := readiness.Check(prompt); !rr.Ready() {
			log.Info("dispatch not ready", zap.Any("missing", rr.Missing))
			return writeDeny(stdout, rr.Reason(), readinessSystemMessage)
		}
	}

	res := e.guard.Validate(dispatch.Request{Text: prompt, Executor: executor})
	log.Debug("dispatch checked",
		zap.String("outcome", string(res.Outcome)),
		zap.String("category", string(res.DetectedCategory)))

	switch res.Outcome {
	case dispatch.OutcomeUnknownExecutor:
		fmt.Fprint(stderr, formatter.UnknownExecutorWarning(executor))
		return nil
	case dispatch.OutcomeInsufficientSignal, dispatch.OutcomeInternalError:
		if res.Warning != "" {
			fmt.Fprintf(stderr, "agentgate: %s\n", res.Warning)
		}
		return nil
	}
	if !res.IsError {
		return nil
	}

	ex, _ := formatter.Explain(res, e.validator.Table())
	text := formatter.ExplanationText(ex)
	mode := e.cfg.Mode()

	action := decisionlog.ActionAllowedWithWarning
	if res.Blocks(mode) {
		action = decisionlog.ActionDenied
	}
	e.recordDecision(log, decisionlog.Record{
		Mode:             string(mode),
		Action:           action,
		Category:         res.DetectedCategory,
		DeclaredExecutor: executor,
		CorrectExecutor:  res.CorrectExecutor,
		PromptPreview:    prompt,
	})

	if action == decisionlog.ActionDenied {
		return writeDeny(stdout, text, mismatchSystemMessage)
	}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(stderr, "WARNING: %s\n", line)
	}
	fmt.Fprintf(stderr, "WARNING: %s\n", warningContinuesMessage)
	return nil
}

// recordDecision appends r to the warnings log. Failures are only logged.
func (e *engine) recordDecision(log *zap.Logger, r decisionlog.Record) {
	if GetDryRun() {
		return
	}
	if _, err := e.store(decisionlog.WarningsFile).Append(r); err != nil {
		log.Error("record dispatch decision", zap.Error(err))
	}
}

func writeDeny(w io.Writer, reason, message string) error {
	return formatter.EncodeLine(w, hookOutput{
		HookSpecificOutput: &hookDecision{
			HookEventName:            "PreToolUse",
			PermissionDecision:       "deny",
			PermissionDecisionReason: reason,
		},
		SystemMessage: message,
	})
}
