// Package readiness checks that a task description carries the references an
// executor needs before work starts: a UseCase id, a flow Event, the
// architecture layer, and the classes it depends on.
//
// Infrastructure, documentation, Phase 4 refactor and Phase 3b test tasks
// are exempt from some or all of the checks.
package readiness

import (
	"fmt"
	"regexp"
	"strings"
)

// Requirement is one reference a task description must contain.
type Requirement string

const (
	RequireUseCase      Requirement = "UseCase reference (UC-XX)"
	RequireFlowEvent    Requirement = "flow Event reference"
	RequireArchitecture Requirement = "architecture layer reference"
	RequireDependencies Requirement = "dependency classes"
)

// Suggestion returns the advice shown when r is missing.
func (r Requirement) Suggestion() string {
	switch r {
	case RequireUseCase:
		return "Cite the related UseCase ids from docs/app-use-cases.md."
	case RequireFlowEvent:
		return "Name the flow Events this task handles, as in the event-driven design document."
	case RequireArchitecture:
		return "State which layer the task belongs to (Domain, Application, Presentation, or Infrastructure)."
	case RequireDependencies:
		return "List the Repository, Service, Entity, or ValueObject classes the task depends on."
	}
	return ""
}

// Exemption is a kind of task that skips some checks.
type Exemption string

const (
	ExemptInfrastructure Exemption = "infrastructure"
	ExemptDocumentation  Exemption = "documentation"
	ExemptRefactor       Exemption = "refactor"
	ExemptTestImpl       Exemption = "test-implementation"
)

var (
	infrastructurePatterns = compile(
		`hook system`, `hook development`, `infrastructure`, `methodology`,
		`documentation update`, `architecture improvement`,
	)
	documentationPatterns = compile(
		`\.md\b`, `documentation`, `design document`, `review document`,
		`methodology (design|validation)`, `phase \d+ - (test validation|feature design|refactor)`,
		`readme`, `changelog`,
	)
	refactorPatterns     = compile(`phase 4`, `refactor evaluation`, `cinnamon-refactor-owl`)
	testImplPatterns     = compile(`phase 3b.*test`, `implement tests`, `write test code`, `test/unit/`)
	architecturePatterns = compile(`clean architecture`, `(domain|application|presentation|infrastructure) layer`)
	dependencyPatterns   = compile(`repository`, `service`, `entity`, `valueobject`, `usecase`)
	useCasePattern       = regexp.MustCompile(`UC-\d{2}`)
	flowEventPattern     = regexp.MustCompile(`(?i)event \d+`)
)

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Result is the outcome of a readiness check.
type Result struct {
	Missing    []Requirement `json:"missing" yaml:"missing"`
	Exemptions []Exemption   `json:"exemptions,omitempty" yaml:"exemptions,omitempty"`
}

// Ready reports whether nothing is missing.
func (r Result) Ready() bool {
	return len(r.Missing) == 0
}

// Reason renders the missing references and what to add.
func (r Result) Reason() string {
	if r.Ready() {
		return ""
	}
	names := make([]string, len(r.Missing))
	for i, m := range r.Missing {
		names[i] = string(m)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Task dispatch is not ready; missing: %s\n\nAdd:\n", strings.Join(names, ", "))
	for _, m := range r.Missing {
		fmt.Fprintf(&b, "- %s\n", m.Suggestion())
	}
	return strings.TrimRight(b.String(), "\n")
}

// Check inspects a task description.
func Check(text string) Result {
	var res Result
	infra := anyMatch(infrastructurePatterns, text)
	docs := anyMatch(documentationPatterns, text)
	refactor := anyMatch(refactorPatterns, text)
	testImpl := anyMatch(testImplPatterns, text)

	for _, e := range []struct {
		on   bool
		kind Exemption
	}{
		{infra, ExemptInfrastructure},
		{docs, ExemptDocumentation},
		{refactor, ExemptRefactor},
		{testImpl, ExemptTestImpl},
	} {
		if e.on {
			res.Exemptions = append(res.Exemptions, e.kind)
		}
	}

	// Infrastructure work still names its architecture layer.
	exempt := docs || refactor || testImpl
	if !exempt && !infra {
		if !useCasePattern.MatchString(text) {
			res.Missing = append(res.Missing, RequireUseCase)
		}
		if !flowEventPattern.MatchString(text) {
			res.Missing = append(res.Missing, RequireFlowEvent)
		}
	}
	if !exempt && !anyMatch(architecturePatterns, text) {
		res.Missing = append(res.Missing, RequireArchitecture)
	}
	if !exempt && !infra && !anyMatch(dependencyPatterns, text) {
		res.Missing = append(res.Missing, RequireDependencies)
	}
	return res
}
