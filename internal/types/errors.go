package types

import "errors"

// Sentinel errors for rule table validation. Using sentinels
// allows callers to match with errors.Is for reliable error handling.
var (
	// ErrRulesEmpty is returned when a rule table has no entries.
	ErrRulesEmpty = errors.New("rule table must not be empty")

	// ErrUnknownCategory is returned when a rule names a category outside AllCategories.
	ErrUnknownCategory = errors.New("rule names an unknown category")

	// ErrDuplicateCategory is returned when two rules share a category.
	ErrDuplicateCategory = errors.New("category appears in more than one rule")

	// ErrMissingCategory is returned when a known category has no rule.
	ErrMissingCategory = errors.New("category has no rule")

	// ErrNoKeywords is returned when a rule has no positive keywords.
	ErrNoKeywords = errors.New("rule must have at least one positive keyword")

	// ErrEmptyKeyword is returned when a keyword or exclusion is blank.
	ErrEmptyKeyword = errors.New("keywords must not be blank")
)
