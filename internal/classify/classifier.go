// Package classify infers a task category from free-text task descriptions.
//
// Classification runs in two stages. An explicit phase tag near the start of
// the text decides the category outright. Otherwise every rule in the table
// is scored (tier weights minus exclusion penalties) and the highest positive
// score wins. Ties go to the lower rule priority, then the lower category id.
// When nothing scores above zero the result is types.CategoryUnknown, which
// callers treat as "not enough signal" rather than an error.
package classify

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/boshu2/agentgate/internal/rules"
	"github.com/boshu2/agentgate/internal/types"
)

// Source records which stage produced a Result.
type Source string

const (
	SourceExplicitTag Source = "explicit-tag"
	SourceKeywords    Source = "keywords"
	SourceNone        Source = "none"
)

// Classifier maps task text to a category.
type Classifier interface {
	Classify(text string) Result
}

// Result is the outcome of classifying one task description.
type Result struct {
	Category types.Category `json:"category" yaml:"category"`
	Score    int            `json:"score" yaml:"score"`

	// MatchedKeywords are the winning category's positive matches, or the
	// tag itself for explicit-tag results.
	MatchedKeywords []string `json:"matched_keywords,omitempty" yaml:"matched_keywords,omitempty"`

	Source Source `json:"source" yaml:"source"`

	// Scores holds every category's breakdown in table order. Empty for
	// explicit-tag results.
	Scores []CategoryScore `json:"scores,omitempty" yaml:"scores,omitempty"`
}

// Unknown reports whether no category was detected.
func (r Result) Unknown() bool {
	return r.Category == types.CategoryUnknown
}

// CategoryScore is one category's scoring breakdown.
type CategoryScore struct {
	Category types.Category `json:"category" yaml:"category"`
	Score    int            `json:"score" yaml:"score"`
	Positive int            `json:"positive" yaml:"positive"`
	Penalty  int            `json:"penalty" yaml:"penalty"`
	Matched  []string       `json:"matched,omitempty" yaml:"matched,omitempty"`
	Excluded []string       `json:"excluded,omitempty" yaml:"excluded,omitempty"`

	// Eligible is false when the score was not positive or fell below the
	// rule's threshold under enforcement.
	Eligible bool `json:"eligible" yaml:"eligible"`
}

type term struct {
	text   string // as written in the table
	needle string // lower-cased
	weight int
}

// in reports whether the term occurs in lower. A term ending in a digit must
// not run into another digit, so "Phase 1" does not match "Phase 12".
func (t term) in(lower string) bool {
	if !endsInDigit(t.needle) {
		return strings.Contains(lower, t.needle)
	}
	for from := 0; ; {
		i := strings.Index(lower[from:], t.needle)
		if i < 0 {
			return false
		}
		end := from + i + len(t.needle)
		if end == len(lower) || !isASCIIDigit(lower[end]) {
			return true
		}
		from += i + 1
	}
}

func endsInDigit(s string) bool {
	return s != "" && isASCIIDigit(s[len(s)-1])
}

func isASCIIDigit(b byte) bool {
	return '0' <= b && b <= '9'
}

type compiledRule struct {
	category   types.Category
	priority   int
	threshold  int
	positives  []term
	exclusions []term
}

// KeywordClassifier is the rule-table classifier. It is safe for concurrent
// use.
type KeywordClassifier struct {
	compiled          []compiledRule
	enforceThresholds bool
	logger            *zap.Logger
}

// Option configures a KeywordClassifier.
type Option func(*KeywordClassifier)

// WithLogger sets the logger used for per-keyword debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *KeywordClassifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithThresholds makes each rule's weight_threshold a minimum score.
func WithThresholds(enforce bool) Option {
	return func(c *KeywordClassifier) {
		c.enforceThresholds = enforce
	}
}

// New builds a classifier over table.
func New(table *rules.Table, opts ...Option) *KeywordClassifier {
	c := &KeywordClassifier{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	for _, r := range table.Rules() {
		cr := compiledRule{
			category:  r.Category,
			priority:  r.Priority,
			threshold: r.WeightThreshold,
		}
		cr.positives = appendTerms(cr.positives, r.Keywords.High, rules.WeightHigh)
		cr.positives = appendTerms(cr.positives, r.Keywords.Medium, rules.WeightMedium)
		cr.positives = appendTerms(cr.positives, r.Keywords.Low, rules.WeightLow)
		cr.exclusions = appendTerms(cr.exclusions, r.Exclusions, rules.ExclusionPenalty)
		c.compiled = append(c.compiled, cr)
	}
	return c
}

func appendTerms(dst []term, words []string, weight int) []term {
	for _, w := range words {
		dst = append(dst, term{text: w, needle: fold(w), weight: weight})
	}
	return dst
}

// Classify applies the explicit-tag matcher, then keyword scoring.
func (c *KeywordClassifier) Classify(text string) Result {
	if cat, tag, ok := MatchExplicitTag(text); ok {
		c.logger.Debug("explicit phase tag", zap.String("category", string(cat)), zap.String("tag", tag))
		return Result{
			Category:        cat,
			Score:           ExplicitTagScore,
			MatchedKeywords: []string{tag},
			Source:          SourceExplicitTag,
		}
	}
	return c.Score(text)
}

// Score runs keyword scoring only, ignoring phase tags. Every rule is
// evaluated; there is no early exit.
func (c *KeywordClassifier) Score(text string) Result {
	lower := fold(text)

	scores := make([]CategoryScore, 0, len(c.compiled))
	best := -1
	for i, cr := range c.compiled {
		cs := c.scoreRule(cr, lower)
		scores = append(scores, cs)
		if !cs.Eligible {
			continue
		}
		if best < 0 || c.beats(i, best, cs.Score, scores[best].Score) {
			best = i
		}
	}

	if best < 0 {
		return Result{Category: types.CategoryUnknown, Source: SourceNone, Scores: scores}
	}
	win := scores[best]
	c.logger.Debug("classified by keywords",
		zap.String("category", string(win.Category)),
		zap.Int("score", win.Score),
		zap.Strings("matched", win.Matched))
	return Result{
		Category:        win.Category,
		Score:           win.Score,
		MatchedKeywords: append([]string(nil), win.Matched...),
		Source:          SourceKeywords,
		Scores:          scores,
	}
}

// beats reports whether rule i with score si outranks rule j with score sj.
func (c *KeywordClassifier) beats(i, j, si, sj int) bool {
	if si != sj {
		return si > sj
	}
	pi, pj := c.compiled[i].priority, c.compiled[j].priority
	if pi != pj {
		return pi < pj
	}
	return c.compiled[i].category < c.compiled[j].category
}

func (c *KeywordClassifier) scoreRule(cr compiledRule, lower string) CategoryScore {
	cs := CategoryScore{Category: cr.category}
	for _, t := range cr.exclusions {
		if t.in(lower) {
			cs.Penalty += t.weight
			cs.Excluded = append(cs.Excluded, t.text)
		}
	}
	for _, t := range cr.positives {
		if t.in(lower) {
			cs.Positive += t.weight
			cs.Matched = append(cs.Matched, t.text)
		}
	}
	cs.Score = cs.Positive - cs.Penalty
	cs.Eligible = cs.Score > 0
	if cs.Eligible && c.enforceThresholds && cs.Score < cr.threshold {
		cs.Eligible = false
	}
	return cs
}

// Ranked returns the eligible scores best-first using the same ordering as
// Score. The input is not modified.
func (c *KeywordClassifier) Ranked(r Result) []CategoryScore {
	priority := make(map[types.Category]int, len(c.compiled))
	for _, cr := range c.compiled {
		priority[cr.category] = cr.priority
	}
	out := make([]CategoryScore, 0, len(r.Scores))
	for _, s := range r.Scores {
		if s.Eligible {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if priority[out[i].Category] != priority[out[j].Category] {
			return priority[out[i].Category] < priority[out[j].Category]
		}
		return out[i].Category < out[j].Category
	})
	return out
}
