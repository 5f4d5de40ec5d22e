package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentgate/internal/analytics"
	"github.com/boshu2/agentgate/internal/decisionlog"
	"github.com/boshu2/agentgate/internal/formatter"
	"github.com/boshu2/agentgate/internal/storage"
)

// ReportFile is where 'analytics report --write' saves the markdown report.
const ReportFile = "agent-dispatch-analysis-report.md"

const (
	// trendDays is how many recent days 'analytics trends' charts.
	trendDays = 10

	// reportPreview is how much of a written report is echoed to stdout.
	reportPreview = 1000
)

var (
	analyticsLimit int
	analyticsWrite bool
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Find patterns in corrections and warnings",
	Long: `Offline analysis of the decision logs: which executors get confused, why
the classifier misdetects, how the error rate moves, and what to change.

Pattern analysis covers the most recent corrections (analytics.limit,
default 100); trends and root causes use the whole history.

Subcommands:
  analyze   Confusion patterns and misdetection rate
  suggest   Prioritized improvement suggestions
  trends    Daily misdetection rate and prediction
  report    Full markdown report`,
}

var analyticsAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show confusion patterns and the misdetection rate",
	Args:  cobra.NoArgs,
	RunE:  runAnalyticsAnalyze,
}

var analyticsSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Generate improvement suggestions",
	Args:  cobra.NoArgs,
	RunE:  runAnalyticsSuggest,
}

var analyticsTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Track the daily misdetection rate",
	Args:  cobra.NoArgs,
	RunE:  runAnalyticsTrends,
}

var analyticsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the full markdown report",
	Long: `Render every analysis as a markdown report.

Without --write the report goes to stdout. With --write it is saved to
<log_dir>/agent-dispatch-analysis-report.md and a preview is printed.`,
	Args: cobra.NoArgs,
	RunE: runAnalyticsReport,
}

func init() {
	rootCmd.AddCommand(analyticsCmd)
	analyticsCmd.AddCommand(analyticsAnalyzeCmd)
	analyticsCmd.AddCommand(analyticsSuggestCmd)
	analyticsCmd.AddCommand(analyticsTrendsCmd)
	analyticsCmd.AddCommand(analyticsReportCmd)

	analyticsCmd.PersistentFlags().IntVar(&analyticsLimit, "limit", 0, "Recent corrections used for pattern analysis (default: analytics.limit)")
	analyticsReportCmd.Flags().BoolVar(&analyticsWrite, "write", false, "Save the report to the log directory")
}

// loadHistory reads the corrections and warnings logs concurrently.
func (e *engine) loadHistory(ctx context.Context) (corrections, warnings []decisionlog.Record, err error) {
	batches, err := decisionlog.ReadFiles(ctx, []string{
		e.cfg.LogPath(decisionlog.CorrectionsFile),
		e.cfg.LogPath(decisionlog.WarningsFile),
	}, decisionlog.WithLogger(e.logger))
	if err != nil {
		return nil, nil, err
	}
	return batches[0], batches[1], nil
}

// buildReport runs every analysis over the current logs.
func (e *engine) buildReport(ctx context.Context) (analytics.Report, error) {
	corrections, warnings, err := e.loadHistory(ctx)
	if err != nil {
		return analytics.Report{}, err
	}
	limit := analyticsLimit
	if limit <= 0 {
		limit = e.cfg.Analytics.Limit
	}
	return analytics.Build(corrections, warnings, limit, time.Now()), nil
}

// withReport loads the engine and report, then hands both to fn.
func withReport(cmd *cobra.Command, fn func(w io.Writer, f formatter.Format, r analytics.Report) error) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	r, err := eng.buildReport(cmd.Context())
	if err != nil {
		return err
	}
	return fn(cmd.OutOrStdout(), eng.format(), r)
}

func runAnalyticsAnalyze(cmd *cobra.Command, args []string) error {
	return withReport(cmd, func(w io.Writer, f formatter.Format, r analytics.Report) error {
		if f.Structured() {
			return formatter.Encode(w, f, struct {
				Patterns analytics.Patterns `json:"patterns" yaml:"patterns"`
				Warnings analytics.Warnings `json:"warnings" yaml:"warnings"`
			}{r.Patterns, r.Warnings})
		}
		return renderPatterns(w, r.Patterns, r.Warnings)
	})
}

func renderPatterns(w io.Writer, p analytics.Patterns, warn analytics.Warnings) error {
	fmt.Fprintf(w, "Corrections analyzed: %d\n", p.Total)
	if p.Total > 0 {
		fmt.Fprintln(w, "\nTask types:")
		tbl := formatter.NewTable(w, "TASK TYPE", "COUNT")
		for _, row := range ranked(p.CategoryDistribution) {
			tbl.AddRow(row.Key, fmt.Sprint(row.Count))
		}
		if err := tbl.Render(); err != nil {
			return err
		}

		if len(p.TopConfusedPairs) > 0 {
			fmt.Fprintln(w, "\nMost confused executors:")
			tbl := formatter.NewTable(w, "DISPATCHED TO", "BELONGED TO", "COUNT")
			for _, pair := range p.TopConfusedPairs {
				tbl.AddRow(string(pair.Wrong), string(pair.Correct), fmt.Sprint(pair.Count))
			}
			if err := tbl.Render(); err != nil {
				return err
			}
		}
	}
	fmt.Fprintf(w, "\nMisdetection rate: %.2f%%\n", p.MisdetectionRate)
	if warn.Total > 0 {
		fmt.Fprintf(w, "Warnings recorded: %d\n", warn.Total)
	}
	return nil
}

func runAnalyticsSuggest(cmd *cobra.Command, args []string) error {
	return withReport(cmd, func(w io.Writer, f formatter.Format, r analytics.Report) error {
		if f.Structured() {
			return formatter.Encode(w, f, r.Suggestions)
		}
		renderSuggestions(w, r.Suggestions)
		return nil
	})
}

func renderSuggestions(w io.Writer, suggestions []analytics.Suggestion) {
	fmt.Fprintf(w, "Suggestions: %d\n", len(suggestions))
	for i, s := range suggestions {
		fmt.Fprintf(w, "\n%d. [%s] %s\n", i+1, strings.ToUpper(string(s.Priority)), s.Area)
		fmt.Fprintf(w, "   Issue:      %s\n", s.Issue)
		fmt.Fprintf(w, "   Suggestion: %s\n", s.Suggestion)
		fmt.Fprintf(w, "   Impact:     %s\n", s.Impact)
	}
}

func runAnalyticsTrends(cmd *cobra.Command, args []string) error {
	return withReport(cmd, func(w io.Writer, f formatter.Format, r analytics.Report) error {
		if f.Structured() {
			return formatter.Encode(w, f, r.Trends)
		}
		renderTrends(w, r.Trends)
		return nil
	})
}

func renderTrends(w io.Writer, t analytics.Trends) {
	fmt.Fprintf(w, "Average misdetection rate: %.2f%%\n", t.AverageErrorRate)
	fmt.Fprintf(w, "Trend:                     %s\n", t.Direction)
	if t.Prediction.Direction == analytics.DirectionInsufficientData {
		fmt.Fprintf(w, "Prediction:                %s\n", t.Prediction.Direction)
	} else {
		fmt.Fprintf(w, "Prediction:                %s, next day about %.2f%% (average change %+.2f)\n",
			t.Prediction.Direction, t.Prediction.NextErrorRate, t.Prediction.AverageChange)
	}
	if len(t.Days) == 0 {
		return
	}

	days := t.Days
	if len(days) > trendDays {
		days = days[len(days)-trendDays:]
	}
	fmt.Fprintf(w, "\nLast %d days:\n", len(days))
	for _, d := range days {
		fmt.Fprintf(w, "  %s: %s %.2f%%\n", d.Date, formatter.Bar(d.ErrorRate), d.ErrorRate)
	}
}

func runAnalyticsReport(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	r, err := eng.buildReport(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if f := eng.format(); f.Structured() {
		return formatter.Encode(w, f, r)
	}

	var buf strings.Builder
	if err := formatter.RenderAnalyticsReport(&buf, r); err != nil {
		return err
	}
	if !analyticsWrite {
		_, err := io.WriteString(w, buf.String())
		return err
	}

	path := eng.cfg.LogPath(ReportFile)
	if GetDryRun() {
		fmt.Fprintf(w, "[dry-run] Would write report to %s\n", path)
		return nil
	}
	if err := writeReport(path, buf.String()); err != nil {
		return err
	}
	fmt.Fprintf(w, "✓ Report written to %s\n\n", path)
	fmt.Fprintln(w, preview(buf.String(), reportPreview))
	return nil
}

func writeReport(path, content string) error {
	if err := storage.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// preview returns the first n characters of s, marking a cut with "...".
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n..."
}
