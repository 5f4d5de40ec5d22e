// Package rules holds the keyword rule table that drives task classification.
//
// # Scoring
//
// Each rule lists positive keywords in three tiers and a set of exclusion
// keywords. A keyword contributes its tier weight once when it appears in the
// task text; each exclusion that appears subtracts ExclusionPenalty:
//   - High: 3
//   - Medium: 2
//   - Low: 1
//
// A Table is immutable once built. Callers receive copies, never the backing
// slices, so a single Table can be shared across goroutines.
package rules

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/boshu2/agentgate/embedded"
	"github.com/boshu2/agentgate/internal/types"
)

// Tier weights and the exclusion penalty.
const (
	WeightHigh       = 3
	WeightMedium     = 2
	WeightLow        = 1
	ExclusionPenalty = 5
)

// GenericReason is used when a category has no reason text.
const GenericReason = "Task type does not match the assigned executor. Check the task description and the dispatch decision tree."

// Keywords groups positive keywords by weight tier.
type Keywords struct {
	High   []string `yaml:"high" json:"high"`
	Medium []string `yaml:"medium" json:"medium"`
	Low    []string `yaml:"low" json:"low"`
}

// Count returns the total number of positive keywords.
func (k Keywords) Count() int {
	return len(k.High) + len(k.Medium) + len(k.Low)
}

func (k Keywords) clone() Keywords {
	return Keywords{
		High:   append([]string(nil), k.High...),
		Medium: append([]string(nil), k.Medium...),
		Low:    append([]string(nil), k.Low...),
	}
}

// Rule is one entry of the rule table.
type Rule struct {
	Category types.Category `yaml:"category" json:"category"`

	// Priority breaks score ties. Lower wins.
	Priority int `yaml:"priority" json:"priority"`

	// WeightThreshold is the minimum score when threshold enforcement is on.
	WeightThreshold int `yaml:"weight_threshold" json:"weight_threshold"`

	// Reason explains why the category's executor owns this work.
	Reason string `yaml:"reason" json:"reason"`

	Keywords   Keywords `yaml:"keywords" json:"keywords"`
	Exclusions []string `yaml:"exclusions" json:"exclusions"`
}

func (r Rule) clone() Rule {
	r.Keywords = r.Keywords.clone()
	r.Exclusions = append([]string(nil), r.Exclusions...)
	return r
}

// Table is an ordered, validated, read-only set of rules.
type Table struct {
	rules []Rule
	index map[types.Category]int
}

// file is the on-disk YAML layout.
type file struct {
	Version int    `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// New validates rules and builds a Table. Order is preserved.
func New(rules []Rule) (*Table, error) {
	if len(rules) == 0 {
		return nil, types.ErrRulesEmpty
	}

	t := &Table{
		rules: make([]Rule, 0, len(rules)),
		index: make(map[types.Category]int, len(rules)),
	}
	for i, r := range rules {
		if err := validateRule(r); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Category, err)
		}
		if _, dup := t.index[r.Category]; dup {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Category, types.ErrDuplicateCategory)
		}
		t.index[r.Category] = len(t.rules)
		t.rules = append(t.rules, r.clone())
	}
	return t, nil
}

func validateRule(r Rule) error {
	if !r.Category.IsKnown() {
		return types.ErrUnknownCategory
	}
	if r.Keywords.Count() == 0 {
		return types.ErrNoKeywords
	}
	for _, group := range [][]string{r.Keywords.High, r.Keywords.Medium, r.Keywords.Low, r.Exclusions} {
		for _, kw := range group {
			if strings.TrimSpace(kw) == "" {
				return types.ErrEmptyKeyword
			}
		}
	}
	return nil
}

// Parse decodes a YAML rule table and requires every known category.
func Parse(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rule table: %w", err)
	}
	t, err := New(f.Rules)
	if err != nil {
		return nil, err
	}
	if err := t.CheckComplete(); err != nil {
		return nil, err
	}
	return t, nil
}

// Load reads and parses a YAML rule table from path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule table: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

var defaultTable = sync.OnceValues(func() (*Table, error) {
	return Parse(embedded.RulesYAML)
})

// Default returns the built-in rule table. It is parsed once per process.
func Default() (*Table, error) {
	return defaultTable()
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// CheckComplete returns an error naming the first known category with no rule.
func (t *Table) CheckComplete() error {
	for _, c := range types.AllCategories {
		if _, ok := t.index[c]; !ok {
			return fmt.Errorf("%s: %w", c, types.ErrMissingCategory)
		}
	}
	return nil
}

// Len returns the number of rules.
func (t *Table) Len() int {
	return len(t.rules)
}

// Rules returns a copy of the rules in table order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		out[i] = r.clone()
	}
	return out
}

// Rule returns a copy of the rule for c.
func (t *Table) Rule(c types.Category) (Rule, bool) {
	i, ok := t.index[c]
	if !ok {
		return Rule{}, false
	}
	return t.rules[i].clone(), true
}

// Priority returns the tie-break priority of c. Categories without a rule
// sort last.
func (t *Table) Priority(c types.Category) int {
	i, ok := t.index[c]
	if !ok {
		return math.MaxInt
	}
	return t.rules[i].Priority
}

// Reason returns the explanation for c, falling back to GenericReason.
func (t *Table) Reason(c types.Category) string {
	if i, ok := t.index[c]; ok {
		if r := strings.TrimSpace(t.rules[i].Reason); r != "" {
			return r
		}
	}
	return GenericReason
}

// Categories returns the table's categories sorted by priority, then id.
func (t *Table) Categories() []types.Category {
	out := make([]types.Category, len(t.rules))
	for i, r := range t.rules {
		out[i] = r.Category
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := t.Priority(out[i]), t.Priority(out[j])
		if pi != pj {
			return pi < pj
		}
		return out[i] < out[j]
	})
	return out
}
