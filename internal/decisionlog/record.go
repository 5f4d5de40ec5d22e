// Package decisionlog stores dispatch decisions and corrections as append-only
// JSONL. The validator never writes here; the CLI records what it allowed
// with a warning and what people corrected, and analytics reads it back.
package decisionlog

import (
	"time"

	"github.com/boshu2/agentgate/internal/types"
)

const (
	// WarningsFile holds mismatches allowed in warning mode.
	WarningsFile = "agent-dispatch-warnings.jsonl"

	// CorrectionsFile holds dispatches that were corrected after the fact.
	CorrectionsFile = "agent-dispatch-corrections.jsonl"

	// PreviewLength is the number of characters of task text kept per record.
	PreviewLength = 200
)

// Action is what happened to the dispatch.
type Action string

const (
	ActionAllowedWithWarning Action = "allowed_with_warning"
	ActionDenied             Action = "denied"
	ActionCorrected          Action = "corrected"
)

// Metadata carries the classifier's view next to the confirmed truth.
type Metadata struct {
	ActualCategory   types.Category `json:"actual_category,omitempty" yaml:"actual_category,omitempty"`
	DetectedCategory types.Category `json:"detected_category,omitempty" yaml:"detected_category,omitempty"`
	Reason           string         `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Record is one line of a decision log.
type Record struct {
	ID               string         `json:"id" yaml:"id"`
	Timestamp        time.Time      `json:"timestamp" yaml:"timestamp"`
	Mode             string         `json:"mode,omitempty" yaml:"mode,omitempty"`
	Action           Action         `json:"action" yaml:"action"`
	Category         types.Category `json:"category" yaml:"category"`
	DeclaredExecutor types.Executor `json:"declared_executor" yaml:"declared_executor"`
	CorrectExecutor  types.Executor `json:"correct_executor" yaml:"correct_executor"`
	PromptPreview    string         `json:"prompt_preview,omitempty" yaml:"prompt_preview,omitempty"`
	Metadata         *Metadata      `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Misdetected reports whether the classifier's category differed from the
// confirmed one. Records without both categories are not counted.
func (r Record) Misdetected() bool {
	if r.Metadata == nil {
		return false
	}
	m := r.Metadata
	return m.ActualCategory != "" && m.DetectedCategory != "" && m.ActualCategory != m.DetectedCategory
}

// Day returns the record's calendar date as YYYY-MM-DD in its own zone.
func (r Record) Day() string {
	return r.Timestamp.Format("2006-01-02")
}

// Preview truncates text to PreviewLength characters.
func Preview(text string) string {
	count := 0
	for i := range text {
		if count == PreviewLength {
			return text[:i]
		}
		count++
	}
	return text
}
