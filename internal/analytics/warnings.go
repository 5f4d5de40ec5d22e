package analytics

import (
	"github.com/boshu2/agentgate/internal/decisionlog"
	"github.com/boshu2/agentgate/internal/types"
)

// recentWarnings is how many of the latest warnings are kept verbatim.
const recentWarnings = 5

// Warnings summarizes dispatches that were allowed with a warning or denied.
type Warnings struct {
	Total              int                        `json:"total" yaml:"total"`
	ByCategory         map[types.Category]int     `json:"by_category" yaml:"by_category"`
	ByDeclaredExecutor map[types.Executor]int     `json:"by_declared_executor" yaml:"by_declared_executor"`
	ByAction           map[decisionlog.Action]int `json:"by_action" yaml:"by_action"`
	Recent             []decisionlog.Record       `json:"recent" yaml:"recent"`
}

// AnalyzeWarnings counts warning log records.
func AnalyzeWarnings(records []decisionlog.Record) Warnings {
	w := Warnings{
		Total:              len(records),
		ByCategory:         make(map[types.Category]int),
		ByDeclaredExecutor: make(map[types.Executor]int),
		ByAction:           make(map[decisionlog.Action]int),
		Recent:             []decisionlog.Record{},
	}
	for _, r := range records {
		w.ByCategory[r.Category]++
		w.ByDeclaredExecutor[r.DeclaredExecutor]++
		w.ByAction[r.Action]++
	}
	w.Recent = append(w.Recent, Recent(records, recentWarnings)...)
	return w
}
