package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentgate/embedded"
	"github.com/boshu2/agentgate/internal/formatter"
	"github.com/boshu2/agentgate/internal/rules"
	"github.com/boshu2/agentgate/internal/types"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List, show, and validate the rule table",
	Long: `Inspect the keyword rule table that drives classification.

The built-in table is compiled into the binary. Set dispatch.rules_file in
config to replace it; 'agentgate rules export' prints the built-in table as a
starting point.

Subcommands:
  list      One line per category
  show      Full rule for one category
  validate  Parse and check a rule file
  export    Print the built-in table as YAML`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules by priority",
	Args:  cobra.NoArgs,
	RunE:  runRulesList,
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <category>",
	Short: "Show one category's rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesShow,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a rule file (default: the configured table)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRulesValidate,
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the built-in rule table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := cmd.OutOrStdout().Write(embedded.RulesYAML)
		return err
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesExportCmd)
}

// ruleView is a rule with the executor it resolves to in this project.
type ruleView struct {
	rules.Rule `yaml:",inline"`
	Executor   types.Executor `json:"executor" yaml:"executor"`
}

func viewRules(eng *engine) []ruleView {
	kind := kindSource(eng.cfg).Kind()
	table := eng.validator.Table()
	var out []ruleView
	for _, c := range table.Categories() {
		r, _ := table.Rule(c)
		exec, _ := rules.CorrectExecutor(c, kind)
		out = append(out, ruleView{Rule: r, Executor: exec})
	}
	return out
}

func runRulesList(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	views := viewRules(eng)
	w := cmd.OutOrStdout()
	if f := eng.format(); f.Structured() {
		return formatter.Encode(w, f, views)
	}

	tbl := formatter.NewTable(w, "CATEGORY", "PRIORITY", "THRESHOLD", "KEYWORDS", "EXCLUSIONS", "EXECUTOR")
	for _, v := range views {
		tbl.AddRow(
			string(v.Category),
			strconv.Itoa(v.Priority),
			strconv.Itoa(v.WeightThreshold),
			fmt.Sprintf("%d/%d/%d", len(v.Keywords.High), len(v.Keywords.Medium), len(v.Keywords.Low)),
			strconv.Itoa(len(v.Exclusions)),
			string(v.Executor),
		)
	}
	return tbl.Render()
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	c, err := types.ParseCategory(args[0])
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	var view *ruleView
	for _, v := range viewRules(eng) {
		if v.Category == c {
			view = &v
			break
		}
	}
	if view == nil {
		return fmt.Errorf("no rule for category %q", c)
	}

	w := cmd.OutOrStdout()
	if f := eng.format(); f.Structured() {
		return formatter.Encode(w, f, view)
	}
	renderRule(w, *view)
	return nil
}

func renderRule(w io.Writer, v ruleView) {
	fmt.Fprintf(w, "Category:  %s", v.Category)
	if phase := v.Category.Phase(); phase != "" {
		fmt.Fprintf(w, " (%s)", phase)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Executor:  %s\n", v.Executor)
	fmt.Fprintf(w, "Priority:  %d\n", v.Priority)
	fmt.Fprintf(w, "Threshold: %d\n", v.WeightThreshold)
	fmt.Fprintf(w, "Reason:    %s\n", strings.TrimSpace(v.Reason))
	fmt.Fprintln(w)
	for _, tier := range []struct {
		name   string
		weight int
		words  []string
	}{
		{"high", rules.WeightHigh, v.Keywords.High},
		{"medium", rules.WeightMedium, v.Keywords.Medium},
		{"low", rules.WeightLow, v.Keywords.Low},
		{"exclude", -rules.ExclusionPenalty, v.Exclusions},
	} {
		if len(tier.words) == 0 {
			continue
		}
		fmt.Fprintf(w, "%-8s %+d  %s\n", tier.name, tier.weight, strings.Join(tier.words, ", "))
	}
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	var (
		path  string
		table *rules.Table
		err   error
	)
	if len(args) == 1 {
		path = args[0]
		table, err = rules.Load(path)
	} else {
		cfg, cfgErr := loadConfig()
		if cfgErr != nil {
			return cfgErr
		}
		path = cfg.RulesPath()
		table, err = rules.LoadOrDefault(path)
	}
	if err != nil {
		return fmt.Errorf("validate rules: %w", err)
	}
	if path == "" {
		path = "built-in table"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d rules, every category covered\n", path, table.Len())
	return nil
}
