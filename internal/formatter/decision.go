// Package formatter renders dispatch decisions and analytics for people:
// explanations, tables, and markdown reports.
package formatter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/boshu2/agentgate/internal/classify"
	"github.com/boshu2/agentgate/internal/dispatch"
	"github.com/boshu2/agentgate/internal/rules"
	"github.com/boshu2/agentgate/internal/types"
)

// Explanation is the human-facing account of a dispatch mismatch.
type Explanation struct {
	Category         types.Category  `json:"category" yaml:"category"`
	Phase            string          `json:"phase,omitempty" yaml:"phase,omitempty"`
	DeclaredExecutor types.Executor  `json:"declared_executor" yaml:"declared_executor"`
	CorrectExecutor  types.Executor  `json:"correct_executor" yaml:"correct_executor"`
	Reason           string          `json:"reason" yaml:"reason"`
	Source           classify.Source `json:"source,omitempty" yaml:"source,omitempty"`
	Matched          []string        `json:"matched,omitempty" yaml:"matched,omitempty"`
	Suggestions      []string        `json:"suggestions" yaml:"suggestions"`
}

// Explain builds an Explanation for a mismatch. ok is false for any other
// outcome.
func Explain(res dispatch.Result, table *rules.Table) (Explanation, bool) {
	if res.Outcome != dispatch.OutcomeMismatch {
		return Explanation{}, false
	}

	ex := Explanation{
		Category:         res.DetectedCategory,
		Phase:            res.DetectedCategory.Phase(),
		DeclaredExecutor: res.DeclaredExecutor,
		CorrectExecutor:  res.CorrectExecutor,
		Reason:           rules.GenericReason,
	}
	if table != nil {
		ex.Reason = table.Reason(res.DetectedCategory)
	}
	if res.Classification != nil {
		ex.Source = res.Classification.Source
		ex.Matched = append([]string(nil), res.Classification.MatchedKeywords...)
	}
	ex.Suggestions = suggestions(ex)
	return ex, true
}

func suggestions(ex Explanation) []string {
	out := []string{fmt.Sprintf("Re-dispatch this task to %s.", ex.CorrectExecutor)}

	switch ex.Source {
	case classify.SourceExplicitTag:
		out = append(out, "The task carries an explicit phase tag; remove or correct the tag if the phase is wrong.")
	default:
		if ex.Phase != "" {
			out = append(out, fmt.Sprintf("If this is not %s work, rephrase the task or start it with the right phase tag, for example [Phase 3b].", ex.Phase))
		} else {
			out = append(out, "If the detected type is wrong, rephrase the task or start it with an explicit phase tag such as [Phase 3b].")
		}
	}

	out = append(out, "Decision tree: identify the task type first. Specialist work goes to its specialist; application work goes to the developer for the project's stack.")
	return out
}

// Explanation field labels. ParseExplanation depends on them.
const (
	labelCategory = "Task type:"
	labelDeclared = "Declared executor:"
	labelCorrect  = "Correct executor:"
)

var explanationTmpl = template.Must(template.New("explanation").Funcs(template.FuncMap{
	"quote": func(ss []string) string {
		q := make([]string, len(ss))
		for i, s := range ss {
			q[i] = fmt.Sprintf("%q", s)
		}
		return strings.Join(q, ", ")
	},
}).Parse(`Agent dispatch mismatch

` + labelCategory + `          {{ .Category }}{{ if .Phase }} ({{ .Phase }}){{ end }}
` + labelDeclared + `  {{ .DeclaredExecutor }}
` + labelCorrect + `   {{ .CorrectExecutor }}

Reason: {{ .Reason }}
{{- if .Matched }}

Matched: {{ quote .Matched }}{{ if .Source }} ({{ .Source }}){{ end }}
{{- end }}

Suggestions:
{{- range .Suggestions }}
  - {{ . }}
{{- end }}
`))

// RenderExplanation writes ex as plain text.
func RenderExplanation(w io.Writer, ex Explanation) error {
	if err := explanationTmpl.Execute(w, ex); err != nil {
		return fmt.Errorf("render explanation: %w", err)
	}
	return nil
}

// ExplanationText returns ex rendered as a string.
func ExplanationText(ex Explanation) string {
	var buf bytes.Buffer
	//nolint:errcheck // bytes.Buffer writes do not fail
	RenderExplanation(&buf, ex)
	return buf.String()
}

// ParseExplanation recovers the category and executors from rendered
// explanation text, such as a hook's deny reason pasted into a correction.
func ParseExplanation(text string) (Explanation, bool) {
	var ex Explanation
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, labelCategory):
			v := strings.TrimSpace(strings.TrimPrefix(line, labelCategory))
			if i := strings.Index(v, " ("); i >= 0 {
				v = v[:i]
			}
			ex.Category = types.Category(v)
		case strings.HasPrefix(line, labelDeclared):
			ex.DeclaredExecutor = types.Executor(strings.TrimSpace(strings.TrimPrefix(line, labelDeclared)))
		case strings.HasPrefix(line, labelCorrect):
			ex.CorrectExecutor = types.Executor(strings.TrimSpace(strings.TrimPrefix(line, labelCorrect)))
		case strings.HasPrefix(line, "Reason:"):
			ex.Reason = strings.TrimSpace(strings.TrimPrefix(line, "Reason:"))
		}
	}
	if ex.Category == "" || ex.DeclaredExecutor == "" || ex.CorrectExecutor == "" {
		return Explanation{}, false
	}
	ex.Phase = ex.Category.Phase()
	return ex, true
}

// UnknownExecutorWarning describes an executor outside the known set and
// lists the ones that are known.
func UnknownExecutorWarning(e types.Executor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Unknown executor %q. The dispatch was not checked.\n\nKnown executors:\n", e)
	for _, known := range types.AllExecutors {
		if c, ok := known.PrimaryCategory(); ok {
			fmt.Fprintf(&b, "  - %s (%s)\n", known, c)
		} else {
			fmt.Fprintf(&b, "  - %s (application development)\n", known)
		}
	}
	b.WriteString("\nIf this is a new executor, add it to the executor list and give it a category.\n")
	return b.String()
}
