package analytics

import (
	"time"

	"github.com/boshu2/agentgate/internal/decisionlog"
)

// Report bundles every analysis over one snapshot of the decision logs.
type Report struct {
	GeneratedAt      time.Time         `json:"generated_at" yaml:"generated_at"`
	Patterns         Patterns          `json:"patterns" yaml:"patterns"`
	RootCauses       RootCauses        `json:"root_causes" yaml:"root_causes"`
	KeywordConflicts []KeywordConflict `json:"keyword_conflicts" yaml:"keyword_conflicts"`
	Suggestions      []Suggestion      `json:"suggestions" yaml:"suggestions"`
	Trends           Trends            `json:"trends" yaml:"trends"`
	Warnings         Warnings          `json:"warnings" yaml:"warnings"`
}

// Build runs every analysis. Pattern analysis covers the last limit
// corrections; the other analyses use the full history.
func Build(corrections, warnings []decisionlog.Record, limit int, now time.Time) Report {
	p := AnalyzePatterns(corrections, limit)
	rc := AnalyzeRootCauses(corrections)
	return Report{
		GeneratedAt:      now,
		Patterns:         p,
		RootCauses:       rc,
		KeywordConflicts: AnalyzeKeywordConflicts(corrections),
		Suggestions:      Suggest(p, rc),
		Trends:           TrackTrends(corrections),
		Warnings:         AnalyzeWarnings(warnings),
	}
}
