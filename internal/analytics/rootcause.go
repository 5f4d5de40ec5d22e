package analytics

import (
	"regexp"
	"sort"
	"strings"

	"github.com/boshu2/agentgate/internal/decisionlog"
	"github.com/boshu2/agentgate/internal/types"
)

const (
	// examplesPerCause caps the examples kept for each root cause.
	examplesPerCause = 2

	// examplePreviewLength caps example task text.
	examplePreviewLength = 100
)

// Example is one misdetection illustrating a root cause.
type Example struct {
	Actual        types.Category `json:"actual" yaml:"actual"`
	Detected      types.Category `json:"detected" yaml:"detected"`
	Wrong         types.Executor `json:"wrong" yaml:"wrong"`
	Correct       types.Executor `json:"correct" yaml:"correct"`
	PromptPreview string         `json:"prompt_preview" yaml:"prompt_preview"`
}

// Cause groups misdetections that share a reason.
type Cause struct {
	Reason    string    `json:"reason" yaml:"reason"`
	Frequency int       `json:"frequency" yaml:"frequency"`
	Examples  []Example `json:"examples" yaml:"examples"`
}

// RootCauses summarizes every misdetection.
type RootCauses struct {
	MisdetectionCount int                    `json:"misdetection_count" yaml:"misdetection_count"`
	Causes            []Cause                `json:"causes" yaml:"causes"`
	AffectedActual    map[types.Category]int `json:"affected_actual" yaml:"affected_actual"`
	AffectedDetected  map[types.Category]int `json:"affected_detected" yaml:"affected_detected"`
	AffectedExecutors []types.Executor       `json:"affected_executors" yaml:"affected_executors"`
}

// AnalyzeRootCauses groups misdetections by reason, most frequent first.
func AnalyzeRootCauses(records []decisionlog.Record) RootCauses {
	rc := RootCauses{
		Causes:            []Cause{},
		AffectedActual:    make(map[types.Category]int),
		AffectedDetected:  make(map[types.Category]int),
		AffectedExecutors: []types.Executor{},
	}

	groups := make(map[string]*Cause)
	var order []string
	executors := make(map[types.Executor]bool)
	for _, r := range records {
		if !r.Misdetected() {
			continue
		}
		rc.MisdetectionCount++
		rc.AffectedActual[r.Metadata.ActualCategory]++
		rc.AffectedDetected[r.Metadata.DetectedCategory]++
		executors[r.DeclaredExecutor] = true
		executors[r.CorrectExecutor] = true

		reason := r.Metadata.Reason
		g, ok := groups[reason]
		if !ok {
			g = &Cause{Reason: reason, Examples: []Example{}}
			groups[reason] = g
			order = append(order, reason)
		}
		g.Frequency++
		if len(g.Examples) < examplesPerCause {
			g.Examples = append(g.Examples, Example{
				Actual:        r.Metadata.ActualCategory,
				Detected:      r.Metadata.DetectedCategory,
				Wrong:         r.DeclaredExecutor,
				Correct:       r.CorrectExecutor,
				PromptPreview: truncateRunes(r.PromptPreview, examplePreviewLength),
			})
		}
	}

	for _, reason := range order {
		rc.Causes = append(rc.Causes, *groups[reason])
	}
	// Stable so equal frequencies keep first-seen order.
	sort.SliceStable(rc.Causes, func(i, j int) bool {
		return rc.Causes[i].Frequency > rc.Causes[j].Frequency
	})

	for e := range executors {
		rc.AffectedExecutors = append(rc.AffectedExecutors, e)
	}
	sort.Slice(rc.AffectedExecutors, func(i, j int) bool {
		return rc.AffectedExecutors[i] < rc.AffectedExecutors[j]
	})
	return rc
}

// KeywordConflict counts misdetections whose text contained a keyword.
type KeywordConflict struct {
	Keyword  string    `json:"keyword" yaml:"keyword"`
	Count    int       `json:"count" yaml:"count"`
	Examples []Example `json:"examples" yaml:"examples"`
}

var conflictKeywords = regexp.MustCompile(`(?i)phase [0-9a-z]+|hook|doc|refactor|test`)

// AnalyzeKeywordConflicts finds trigger words shared by misdetected tasks.
// Results are sorted by count, then keyword.
func AnalyzeKeywordConflicts(records []decisionlog.Record) []KeywordConflict {
	byKeyword := make(map[string]*KeywordConflict)
	for _, r := range records {
		if !r.Misdetected() {
			continue
		}
		seen := make(map[string]bool)
		for _, m := range conflictKeywords.FindAllString(r.PromptPreview, -1) {
			kw := strings.ToLower(m)
			if seen[kw] {
				continue
			}
			seen[kw] = true

			kc, ok := byKeyword[kw]
			if !ok {
				kc = &KeywordConflict{Keyword: kw, Examples: []Example{}}
				byKeyword[kw] = kc
			}
			kc.Count++
			if len(kc.Examples) < examplesPerCause {
				kc.Examples = append(kc.Examples, Example{
					Actual:   r.Metadata.ActualCategory,
					Detected: r.Metadata.DetectedCategory,
					Wrong:    r.DeclaredExecutor,
					Correct:  r.CorrectExecutor,
				})
			}
		}
	}

	out := make([]KeywordConflict, 0, len(byKeyword))
	for _, kc := range byKeyword {
		out = append(out, *kc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
