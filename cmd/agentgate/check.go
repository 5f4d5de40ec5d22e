package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentgate/internal/dispatch"
	"github.com/boshu2/agentgate/internal/formatter"
	"github.com/boshu2/agentgate/internal/types"
)

var (
	checkExecutor    string
	checkProjectKind string
	checkStrict      bool
)

var checkCmd = &cobra.Command{
	Use:   "check [text|-]",
	Short: "Validate a task against an executor",
	Long: `Run the dispatch check for a task description and an executor, the same
way the hook does, and print the decision.

The task text is taken from the arguments, or from stdin when it is "-" or
omitted.

Examples:
  agentgate check -e parsley-flutter-developer "develop Hook scripts"
  agentgate check -e sage-test-architect --strict - < task.txt
  agentgate check -e python-developer --project-kind Python -o json "implement the API"`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkExecutor, "executor", "e", "", "Executor the task is dispatched to")
	checkCmd.Flags().StringVar(&checkProjectKind, "project-kind", "", "Project kind for application work (Flutter, React, Vue, Python)")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Exit non-zero on a mismatch")
}

// checkReport is the structured output of check.
type checkReport struct {
	Result      dispatch.Result        `json:"result" yaml:"result"`
	Explanation *formatter.Explanation `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	text, err := readTaskText(cmd, args)
	if err != nil {
		return err
	}

	req := dispatch.Request{Text: text, Executor: types.Executor(checkExecutor)}
	if checkProjectKind != "" {
		kind, err := types.ParseProjectKind(checkProjectKind)
		if err != nil {
			return err
		}
		req.ProjectKind = kind
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	res := eng.guard.Validate(req)
	report := checkReport{Result: res}
	if ex, ok := formatter.Explain(res, eng.validator.Table()); ok {
		report.Explanation = &ex
	}

	w := cmd.OutOrStdout()
	if f := eng.format(); f.Structured() {
		if err := formatter.Encode(w, f, report); err != nil {
			return err
		}
	} else if err := renderCheck(w, report); err != nil {
		return err
	}

	if checkStrict && res.IsError {
		return fmt.Errorf("dispatch mismatch: %s", res.Message)
	}
	return nil
}

func renderCheck(w io.Writer, r checkReport) error {
	if r.Explanation != nil {
		return formatter.RenderExplanation(w, *r.Explanation)
	}

	res := r.Result
	fmt.Fprintf(w, "Outcome:           %s\n", res.Outcome)
	fmt.Fprintf(w, "Task type:         %s\n", res.DetectedCategory)
	if res.DeclaredExecutor != "" {
		fmt.Fprintf(w, "Declared executor: %s\n", res.DeclaredExecutor)
	}
	if res.CorrectExecutor != "" {
		fmt.Fprintf(w, "Correct executor:  %s\n", res.CorrectExecutor)
	}
	if res.Classification != nil && len(res.Classification.MatchedKeywords) > 0 {
		fmt.Fprintf(w, "Matched:           %v (%s)\n", res.Classification.MatchedKeywords, res.Classification.Source)
	}
	if res.Outcome == dispatch.OutcomeUnknownExecutor {
		fmt.Fprintln(w)
		fmt.Fprint(w, formatter.UnknownExecutorWarning(res.DeclaredExecutor))
	} else if res.Warning != "" {
		fmt.Fprintf(w, "\nWarning: %s\n", res.Warning)
	}
	return nil
}
