package classify

import (
	"regexp"

	"golang.org/x/text/unicode/norm"

	"github.com/boshu2/agentgate/internal/types"
)

// TagWindow is how many leading characters are searched for a phase tag.
const TagWindow = 500

// ExplicitTagScore is the score reported for a tag match. It exceeds any
// keyword score the default table can produce.
const ExplicitTagScore = 100

type phaseTag struct {
	pattern  *regexp.Regexp
	category types.Category
}

var phaseTags = []phaseTag{
	{phasePattern("1"), types.CategoryDesign},
	{phasePattern("2"), types.CategoryTestDesign},
	{phasePattern("3a"), types.CategoryStrategy},
	{phasePattern("3b"), types.CategoryImplementation},
	{phasePattern("4"), types.CategoryRefactor},
}

// phasePattern matches "[Phase <id>]" with an optional suffix that does not
// start with a digit, so "[Phase 1]" never matches "[Phase 12]".
func phasePattern(id string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\[Phase ` + id + `(?:[^\]0-9][^\]]*)?\]`)
}

// MatchExplicitTag looks for a bracketed phase tag such as "[Phase 4]" or
// "[Phase 3b - Widgets]" in the first TagWindow characters of text.
// Full-width brackets and digits are accepted. When several tags appear the
// earliest one wins. It returns the tagged category and the matched tag.
func MatchExplicitTag(text string) (types.Category, string, bool) {
	head := norm.NFKC.String(leading(text, TagWindow))
	best := -1
	var cat types.Category
	var match string
	for _, tag := range phaseTags {
		loc := tag.pattern.FindStringIndex(head)
		if loc == nil || (best >= 0 && loc[0] >= best) {
			continue
		}
		best, cat, match = loc[0], tag.category, head[loc[0]:loc[1]]
	}
	return cat, match, best >= 0
}

// leading returns the first n runes of s.
func leading(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
