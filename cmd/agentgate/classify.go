package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentgate/internal/classify"
	"github.com/boshu2/agentgate/internal/formatter"
)

var classifyAll bool

var classifyCmd = &cobra.Command{
	Use:   "classify [text|-]",
	Short: "Show how a task description scores",
	Long: `Classify a task description and print every category's score.

An explicit phase tag near the start of the text decides the category
outright; otherwise the highest positive keyword score wins, with ties broken
by rule priority.

Eligible categories are listed best-first, followed by the other categories
with a keyword hit or exclusion. --all also lists rules without any hit.`,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().BoolVar(&classifyAll, "all", false, "List every category, including those without matches")
}

func runClassify(cmd *cobra.Command, args []string) error {
	text, err := readTaskText(cmd, args)
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	res := eng.classifier.Classify(text)
	if res.Source == classify.SourceExplicitTag {
		// Show the keyword view next to the tag decision.
		res.Scores = eng.classifier.Score(text).Scores
	}

	w := cmd.OutOrStdout()
	if f := eng.format(); f.Structured() {
		return formatter.Encode(w, f, res)
	}
	return renderClassification(w, res, scoreRows(eng.classifier, res, classifyAll))
}

// scoreRows orders the score table: eligible categories best-first, then the
// rest in rule order. Without all, categories with no hit are dropped.
func scoreRows(c *classify.KeywordClassifier, res classify.Result, all bool) []classify.CategoryScore {
	rows := c.Ranked(res)
	for _, s := range res.Scores {
		if s.Eligible {
			continue
		}
		if !all && len(s.Matched) == 0 && len(s.Excluded) == 0 {
			continue
		}
		rows = append(rows, s)
	}
	return rows
}

func renderClassification(w io.Writer, res classify.Result, rows []classify.CategoryScore) error {
	fmt.Fprintf(w, "Category: %s\n", res.Category)
	fmt.Fprintf(w, "Source:   %s\n", res.Source)
	fmt.Fprintf(w, "Score:    %d\n", res.Score)
	if len(res.MatchedKeywords) > 0 {
		fmt.Fprintf(w, "Matched:  %s\n", strings.Join(res.MatchedKeywords, ", "))
	}
	fmt.Fprintln(w)

	tbl := formatter.NewTable(w, "CATEGORY", "SCORE", "POSITIVE", "PENALTY", "ELIGIBLE", "MATCHED", "EXCLUDED")
	tbl.SetMaxWidth(5, 40).SetMaxWidth(6, 30)
	for _, s := range rows {
		tbl.AddRow(
			string(s.Category),
			strconv.Itoa(s.Score),
			strconv.Itoa(s.Positive),
			strconv.Itoa(s.Penalty),
			strconv.FormatBool(s.Eligible),
			strings.Join(s.Matched, ", "),
			strings.Join(s.Excluded, ", "),
		)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No keyword matched.")
		return nil
	}
	return tbl.Render()
}
