package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentgate/internal/decisionlog"
	"github.com/boshu2/agentgate/internal/formatter"
	"github.com/boshu2/agentgate/internal/types"
)

var (
	corrCategory    string
	corrDetected    string
	corrWrong       string
	corrCorrect     string
	corrReason      string
	corrPrompt      string
	corrFromMessage string
	corrLimit       int
)

// statsTop is how many executors stats lists per ranking in table output.
const statsTop = 5

var correctionsCmd = &cobra.Command{
	Use:   "corrections",
	Short: "Record and review dispatch corrections",
	Long: `A correction records a dispatch that went to the wrong executor, who it
should have gone to, and what the task really was. Analytics reads these to
find classifier weaknesses.

Corrections are stored in <log_dir>/agent-dispatch-corrections.jsonl.

Subcommands:
  record   Append a correction
  list     Show the most recent corrections
  stats    Count corrections by task type and executor`,
}

var correctionsRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Append a correction",
	Long: `Append a correction to the corrections log.

--from-message reads a mismatch explanation printed by the hook or by
'agentgate check' (a file, or "-" for stdin) and fills in the detected task
type and both executors. Flags override what the message says; pass
--category when the real task type differs from the detected one.

Examples:
  agentgate corrections record --category infra-tooling-dev \
      --wrong parsley-flutter-developer --correct basil-hook-architect
  agentgate check -e parsley-flutter-developer "develop Hook" | \
      agentgate corrections record --from-message - --reason "hook work"`,
	Args: cobra.NoArgs,
	RunE: runCorrectionsRecord,
}

var correctionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the most recent corrections, newest first",
	Args:  cobra.NoArgs,
	RunE:  runCorrectionsList,
}

var correctionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count corrections by task type and executor",
	Args:  cobra.NoArgs,
	RunE:  runCorrectionsStats,
}

func init() {
	rootCmd.AddCommand(correctionsCmd)
	correctionsCmd.AddCommand(correctionsRecordCmd)
	correctionsCmd.AddCommand(correctionsListCmd)
	correctionsCmd.AddCommand(correctionsStatsCmd)

	correctionsRecordCmd.Flags().StringVar(&corrCategory, "category", "", "Confirmed task type")
	correctionsRecordCmd.Flags().StringVar(&corrDetected, "detected", "", "Task type the classifier reported")
	correctionsRecordCmd.Flags().StringVar(&corrWrong, "wrong", "", "Executor the task was dispatched to")
	correctionsRecordCmd.Flags().StringVar(&corrCorrect, "correct", "", "Executor the task belongs to")
	correctionsRecordCmd.Flags().StringVar(&corrReason, "reason", "", "Why the dispatch was wrong")
	correctionsRecordCmd.Flags().StringVar(&corrPrompt, "prompt", "", "Task text (first 200 characters are kept)")
	correctionsRecordCmd.Flags().StringVar(&corrFromMessage, "from-message", "", `Read a mismatch explanation from a file, or "-" for stdin`)

	correctionsListCmd.Flags().IntVar(&corrLimit, "limit", 10, "Maximum corrections to show (0 for all)")
}

// correctionFromFlags assembles a correction record from flags and an
// optional explanation message.
func correctionFromFlags(message string) (decisionlog.Record, error) {
	var (
		category = types.Category(corrCategory)
		detected = types.Category(corrDetected)
		wrong    = types.Executor(corrWrong)
		correct  = types.Executor(corrCorrect)
		reason   = corrReason
	)
	if message != "" {
		ex, ok := formatter.ParseExplanation(message)
		if !ok {
			return decisionlog.Record{}, fmt.Errorf("message does not look like a dispatch mismatch explanation")
		}
		if detected == "" {
			detected = ex.Category
		}
		if category == "" {
			category = ex.Category
		}
		if wrong == "" {
			wrong = ex.DeclaredExecutor
		}
		if correct == "" {
			correct = ex.CorrectExecutor
		}
	}

	for _, c := range []types.Category{category, detected} {
		if c == "" {
			continue
		}
		if _, err := types.ParseCategory(string(c)); err != nil {
			return decisionlog.Record{}, err
		}
	}
	switch {
	case category == "":
		return decisionlog.Record{}, fmt.Errorf("--category is required")
	case wrong == "" || correct == "":
		return decisionlog.Record{}, fmt.Errorf("--wrong and --correct are required")
	case wrong == correct:
		return decisionlog.Record{}, fmt.Errorf("wrong and correct executor are both %q", wrong)
	}

	r := decisionlog.Record{
		Action:           decisionlog.ActionCorrected,
		Category:         category,
		DeclaredExecutor: wrong,
		CorrectExecutor:  correct,
		PromptPreview:    corrPrompt,
	}
	if detected != "" || reason != "" {
		r.Metadata = &decisionlog.Metadata{
			ActualCategory:   category,
			DetectedCategory: detected,
			Reason:           reason,
		}
	}
	return r, nil
}

func readMessage(cmd *cobra.Command, src string) (string, error) {
	if src == "" {
		return "", nil
	}
	var (
		data []byte
		err  error
	)
	if src == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return "", fmt.Errorf("read message: %w", err)
	}
	return string(data), nil
}

func runCorrectionsRecord(cmd *cobra.Command, args []string) error {
	message, err := readMessage(cmd, corrFromMessage)
	if err != nil {
		return err
	}
	record, err := correctionFromFlags(message)
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	w := cmd.OutOrStdout()
	store := eng.store(decisionlog.CorrectionsFile)
	for _, e := range []types.Executor{record.DeclaredExecutor, record.CorrectExecutor} {
		if !e.IsKnown() {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q is not a known executor\n", e)
		}
	}

	if GetDryRun() {
		fmt.Fprintf(w, "[dry-run] Would append to %s:\n", store.Path())
		return formatter.EncodeLine(w, record)
	}
	written, err := store.Append(record)
	if err != nil {
		return err
	}
	VerbosePrintf("appended correction %s to %s\n", written.ID, store.Path())
	fmt.Fprintf(w, "✓ Recorded correction: %s → %s (%s)\n",
		written.DeclaredExecutor, written.CorrectExecutor, written.Category)
	return nil
}

func runCorrectionsList(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	records, err := eng.store(decisionlog.CorrectionsFile).ReadAll()
	if err != nil {
		return err
	}
	recent := newestFirst(records, corrLimit)

	w := cmd.OutOrStdout()
	if f := eng.format(); f.Structured() {
		return formatter.Encode(w, f, recent)
	}
	if len(recent) == 0 {
		fmt.Fprintln(w, "No corrections recorded.")
		return nil
	}
	tbl := formatter.NewTable(w, "TIME", "TASK TYPE", "WRONG", "CORRECT", "TASK")
	tbl.SetMaxWidth(4, 50)
	for _, r := range recent {
		tbl.AddRow(
			r.Timestamp.Format("2006-01-02 15:04"),
			string(r.Category),
			string(r.DeclaredExecutor),
			string(r.CorrectExecutor),
			strings.Join(strings.Fields(r.PromptPreview), " "),
		)
	}
	return tbl.Render()
}

// newestFirst returns the last limit records in reverse order. limit <= 0
// returns all of them.
func newestFirst(records []decisionlog.Record, limit int) []decisionlog.Record {
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	out := make([]decisionlog.Record, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out
}

// correctionStats counts corrections along each dimension.
type correctionStats struct {
	Total             int                    `json:"total" yaml:"total"`
	ByCategory        map[types.Category]int `json:"by_category" yaml:"by_category"`
	ByWrongExecutor   map[types.Executor]int `json:"by_wrong_executor" yaml:"by_wrong_executor"`
	ByCorrectExecutor map[types.Executor]int `json:"by_correct_executor" yaml:"by_correct_executor"`
}

func computeCorrectionStats(records []decisionlog.Record) correctionStats {
	s := correctionStats{
		Total:             len(records),
		ByCategory:        make(map[types.Category]int),
		ByWrongExecutor:   make(map[types.Executor]int),
		ByCorrectExecutor: make(map[types.Executor]int),
	}
	for _, r := range records {
		s.ByCategory[r.Category]++
		s.ByWrongExecutor[r.DeclaredExecutor]++
		s.ByCorrectExecutor[r.CorrectExecutor]++
	}
	return s
}

// countEntry is one row of a ranked count.
type countEntry struct {
	Key   string
	Count int
}

// ranked sorts counts by count descending, then key.
func ranked[K ~string](counts map[K]int) []countEntry {
	out := make([]countEntry, 0, len(counts))
	for k, n := range counts {
		out = append(out, countEntry{Key: string(k), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func runCorrectionsStats(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	records, err := eng.store(decisionlog.CorrectionsFile).ReadAll()
	if err != nil {
		return err
	}
	stats := computeCorrectionStats(records)

	w := cmd.OutOrStdout()
	if f := eng.format(); f.Structured() {
		return formatter.Encode(w, f, stats)
	}

	fmt.Fprintf(w, "Total corrections: %d\n", stats.Total)
	if stats.Total == 0 {
		return nil
	}
	sections := []struct {
		title string
		rows  []countEntry
		limit int
	}{
		{"By task type", ranked(stats.ByCategory), 0},
		{"Most corrected executors", ranked(stats.ByWrongExecutor), statsTop},
		{"Most needed executors", ranked(stats.ByCorrectExecutor), statsTop},
	}
	for _, sec := range sections {
		fmt.Fprintf(w, "\n%s:\n", sec.title)
		tbl := formatter.NewTable(w, "NAME", "COUNT")
		for i, row := range sec.rows {
			if sec.limit > 0 && i == sec.limit {
				break
			}
			tbl.AddRow(row.Key, strconv.Itoa(row.Count))
		}
		if err := tbl.Render(); err != nil {
			return err
		}
	}
	return nil
}
