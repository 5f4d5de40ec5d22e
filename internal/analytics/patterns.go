// Package analytics aggregates decision log records into patterns, root
// causes, trends, and improvement suggestions. It works on an in-memory
// snapshot and never writes.
package analytics

import (
	"math"
	"sort"

	"github.com/boshu2/agentgate/internal/decisionlog"
	"github.com/boshu2/agentgate/internal/types"
)

const (
	// DefaultLimit is how many of the most recent records pattern analysis uses.
	DefaultLimit = 100

	// TopPairs is how many confused executor pairs are reported.
	TopPairs = 5

	// TopReasons is how many common error reasons are reported.
	TopReasons = 5
)

// ConfusedPair counts dispatches sent to Wrong that belonged to Correct.
type ConfusedPair struct {
	Wrong   types.Executor `json:"wrong" yaml:"wrong"`
	Correct types.Executor `json:"correct" yaml:"correct"`
	Count   int            `json:"count" yaml:"count"`
}

// ErrorReason groups misdetections with the same categories and reason.
type ErrorReason struct {
	Detected types.Category `json:"detected" yaml:"detected"`
	Actual   types.Category `json:"actual" yaml:"actual"`
	Reason   string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Count    int            `json:"count" yaml:"count"`
}

// Patterns summarizes recent corrections.
type Patterns struct {
	Total int `json:"total" yaml:"total"`

	// CategoryDistribution counts records per category.
	CategoryDistribution map[types.Category]int `json:"category_distribution" yaml:"category_distribution"`

	// ConfusionMatrix counts wrong executor -> correct executor.
	ConfusionMatrix map[types.Executor]map[types.Executor]int `json:"confusion_matrix" yaml:"confusion_matrix"`

	// MisdetectionRate is the percentage of records whose detected category
	// differed from the actual one, rounded to two decimals.
	MisdetectionRate float64 `json:"misdetection_rate" yaml:"misdetection_rate"`

	TopConfusedPairs   []ConfusedPair `json:"top_confused_pairs" yaml:"top_confused_pairs"`
	CommonErrorReasons []ErrorReason  `json:"common_error_reasons" yaml:"common_error_reasons"`
}

// Recent returns the last limit records. limit <= 0 returns all.
func Recent(records []decisionlog.Record, limit int) []decisionlog.Record {
	if limit <= 0 || len(records) <= limit {
		return records
	}
	return records[len(records)-limit:]
}

// AnalyzePatterns summarizes the last limit records.
func AnalyzePatterns(records []decisionlog.Record, limit int) Patterns {
	recent := Recent(records, limit)
	p := Patterns{
		Total:                len(recent),
		CategoryDistribution: make(map[types.Category]int),
		ConfusionMatrix:      make(map[types.Executor]map[types.Executor]int),
		TopConfusedPairs:     []ConfusedPair{},
		CommonErrorReasons:   []ErrorReason{},
	}
	if len(recent) == 0 {
		return p
	}

	misdetections := 0
	reasons := make(map[ErrorReason]int)
	for _, r := range recent {
		p.CategoryDistribution[r.Category]++

		row := p.ConfusionMatrix[r.DeclaredExecutor]
		if row == nil {
			row = make(map[types.Executor]int)
			p.ConfusionMatrix[r.DeclaredExecutor] = row
		}
		row[r.CorrectExecutor]++

		if r.Misdetected() {
			misdetections++
			key := ErrorReason{
				Detected: r.Metadata.DetectedCategory,
				Actual:   r.Metadata.ActualCategory,
				Reason:   r.Metadata.Reason,
			}
			reasons[key]++
		}
	}

	p.MisdetectionRate = round2(float64(misdetections) / float64(len(recent)) * 100)
	p.TopConfusedPairs = topPairs(p.ConfusionMatrix, TopPairs)
	p.CommonErrorReasons = topReasons(reasons, TopReasons)
	return p
}

func topPairs(matrix map[types.Executor]map[types.Executor]int, n int) []ConfusedPair {
	pairs := []ConfusedPair{}
	for wrong, row := range matrix {
		for correct, count := range row {
			pairs = append(pairs, ConfusedPair{Wrong: wrong, Correct: correct, Count: count})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].Wrong != pairs[j].Wrong {
			return pairs[i].Wrong < pairs[j].Wrong
		}
		return pairs[i].Correct < pairs[j].Correct
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

func topReasons(counts map[ErrorReason]int, n int) []ErrorReason {
	out := make([]ErrorReason, 0, len(counts))
	for k, c := range counts {
		k.Count = c
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Detected != out[j].Detected {
			return out[i].Detected < out[j].Detected
		}
		if out[i].Actual != out[j].Actual {
			return out[i].Actual < out[j].Actual
		}
		return out[i].Reason < out[j].Reason
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// round2 rounds to two decimal places.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
