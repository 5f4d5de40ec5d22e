package classify

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// fold normalizes text for matching: NFKC maps full-width and compatibility
// forms to their plain equivalents, then full Unicode case folding applies.
// A Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}
