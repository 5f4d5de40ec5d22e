package analytics

import (
	"fmt"
	"sort"

	"github.com/boshu2/agentgate/internal/types"
)

// Priority ranks a suggestion.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Suggestion areas.
const (
	AreaDispatch = "dispatch optimization"
	AreaKeywords = "keyword detection"
	AreaRules    = "rule improvement"
	AreaStrategy = "overall strategy"
)

const (
	suggestedPairs  = 3
	suggestedCauses = 2

	// highMisdetectionRate is the rate, in percent, above which the overall
	// strategy is flagged.
	highMisdetectionRate = 20.0
)

// Suggestion is one recommended change to the rule table or dispatch habits.
type Suggestion struct {
	Area       string   `json:"area" yaml:"area"`
	Priority   Priority `json:"priority" yaml:"priority"`
	Issue      string   `json:"issue" yaml:"issue"`
	Suggestion string   `json:"suggestion" yaml:"suggestion"`
	Impact     string   `json:"impact,omitempty" yaml:"impact,omitempty"`
}

// Suggest derives improvement suggestions from pattern and root cause
// analysis. Results are ordered by priority, then longer issues first.
func Suggest(p Patterns, rc RootCauses) []Suggestion {
	out := []Suggestion{}

	for i, pair := range p.TopConfusedPairs {
		if i == suggestedPairs {
			break
		}
		out = append(out, Suggestion{
			Area:     AreaDispatch,
			Priority: PriorityHigh,
			Issue:    fmt.Sprintf("%s was dispatched %d time(s) for work that belongs to %s", pair.Wrong, pair.Count, pair.Correct),
			Suggestion: fmt.Sprintf("Review the dispatch decision tree for %s tasks and name %s in the task description",
				primaryLabel(pair.Correct), pair.Correct),
			Impact: fmt.Sprintf("removes up to %d misdispatch(es)", pair.Count),
		})
	}

	if c, n, ok := mostDetected(rc.AffectedDetected); ok {
		out = append(out, Suggestion{
			Area:       AreaKeywords,
			Priority:   PriorityHigh,
			Issue:      fmt.Sprintf("%s was detected %d time(s) when the task was something else", c, n),
			Suggestion: fmt.Sprintf("Tighten the %s keywords or add exclusions for the phrases that trigger it", c),
			Impact:     "fewer false positives for this category",
		})
	}

	for i, cause := range rc.Causes {
		if i == suggestedCauses {
			break
		}
		reason := cause.Reason
		if reason == "" {
			reason = "no reason recorded"
		}
		out = append(out, Suggestion{
			Area:       AreaRules,
			Priority:   PriorityMedium,
			Issue:      fmt.Sprintf("%s (%d occurrence(s))", reason, cause.Frequency),
			Suggestion: "Add a keyword or exclusion rule that covers this case",
		})
	}

	if p.MisdetectionRate > highMisdetectionRate {
		out = append(out, Suggestion{
			Area:       AreaStrategy,
			Priority:   PriorityHigh,
			Issue:      fmt.Sprintf("misdetection rate is %.2f%%", p.MisdetectionRate),
			Suggestion: "Prefer explicit [Phase N] tags in task descriptions and review the rule table as a whole",
			Impact:     "raises classification accuracy across every category",
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.rank(), out[j].Priority.rank()
		if ri != rj {
			return ri < rj
		}
		return len(out[i].Issue) > len(out[j].Issue)
	})
	return out
}

func primaryLabel(e types.Executor) string {
	if c, ok := e.PrimaryCategory(); ok {
		return string(c)
	}
	return string(types.CategoryAppDev)
}

// mostDetected returns the category detected most often, ties broken by id.
func mostDetected(counts map[types.Category]int) (types.Category, int, bool) {
	var best types.Category
	n := 0
	for c, count := range counts {
		if count > n || (count == n && c < best) {
			best, n = c, count
		}
	}
	return best, n, n > 0
}
