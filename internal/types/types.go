// Package types defines the closed vocabularies shared by the dispatch gate:
// task categories, executors, and project kinds.
package types

import (
	"fmt"
	"strings"
)

// Category is a task category inferred from a task description.
type Category string

const (
	// CategoryDesign is feature design and requirement specification (Phase 1).
	CategoryDesign Category = "design-phase"

	// CategoryTestDesign is test case design and test planning (Phase 2).
	CategoryTestDesign Category = "test-design-phase"

	// CategoryStrategy is language-agnostic implementation strategy (Phase 3a).
	CategoryStrategy Category = "strategy-phase"

	// CategoryImplementation is concrete implementation of tests and code (Phase 3b).
	CategoryImplementation Category = "implementation-phase"

	// CategoryRefactor is refactor evaluation and execution (Phase 4).
	CategoryRefactor Category = "refactor-phase"

	// CategoryInfraTooling is hook and tooling development.
	CategoryInfraTooling Category = "infra-tooling-dev"

	// CategoryDocIntegration is documentation and methodology integration.
	CategoryDocIntegration Category = "doc-integration"

	// CategoryFormatting is code formatting and lint fixes.
	CategoryFormatting Category = "formatting"

	// CategoryAppDev is general application development. Its correct executor
	// depends on the project kind.
	CategoryAppDev Category = "generic-app-dev"

	// CategoryKnowledgeGraph is knowledge graph and decision record building.
	CategoryKnowledgeGraph Category = "knowledge-graph-build"

	// CategoryProjectManagement is planning, tracking, and status reporting.
	CategoryProjectManagement Category = "project-management"

	// CategoryUnknown means no category scored above zero.
	CategoryUnknown Category = "unknown"
)

// AllCategories lists every concrete category in table order.
// CategoryUnknown is not included.
var AllCategories = []Category{
	CategoryDesign,
	CategoryTestDesign,
	CategoryStrategy,
	CategoryImplementation,
	CategoryRefactor,
	CategoryInfraTooling,
	CategoryDocIntegration,
	CategoryFormatting,
	CategoryAppDev,
	CategoryKnowledgeGraph,
	CategoryProjectManagement,
}

// ParseCategory converts s into a Category. CategoryUnknown is accepted.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if c == CategoryUnknown || c.IsKnown() {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// IsKnown reports whether c is one of AllCategories.
func (c Category) IsKnown() bool {
	switch c {
	case CategoryDesign, CategoryTestDesign, CategoryStrategy,
		CategoryImplementation, CategoryRefactor, CategoryInfraTooling,
		CategoryDocIntegration, CategoryFormatting, CategoryAppDev,
		CategoryKnowledgeGraph, CategoryProjectManagement:
		return true
	case CategoryUnknown:
		return false
	}
	return false
}

// Phase returns the workflow phase label for phase categories, or "".
func (c Category) Phase() string {
	switch c {
	case CategoryDesign:
		return "Phase 1"
	case CategoryTestDesign:
		return "Phase 2"
	case CategoryStrategy:
		return "Phase 3a"
	case CategoryImplementation:
		return "Phase 3b"
	case CategoryRefactor:
		return "Phase 4"
	case CategoryInfraTooling, CategoryDocIntegration, CategoryFormatting,
		CategoryAppDev, CategoryKnowledgeGraph, CategoryProjectManagement,
		CategoryUnknown:
		return ""
	}
	return ""
}

// Executor identifies an agent that a task can be dispatched to.
type Executor string

const (
	ExecutorHookArchitect           Executor = "basil-hook-architect"
	ExecutorDocumentationIntegrator Executor = "thyme-documentation-integrator"
	ExecutorFormatSpecialist        Executor = "mint-format-specialist"
	ExecutorInterfaceDesigner       Executor = "lavender-interface-designer"
	ExecutorTestArchitect           Executor = "sage-test-architect"
	ExecutorTestImplementer         Executor = "pepper-test-implementer"
	ExecutorFlutterDeveloper        Executor = "parsley-flutter-developer"
	ExecutorRefactorOwl             Executor = "cinnamon-refactor-owl"
	ExecutorMemoryNetworkBuilder    Executor = "memory-network-builder"
	ExecutorProjectManager          Executor = "rosemary-project-manager"
	ExecutorReactDeveloper          Executor = "react-developer"
	ExecutorVueDeveloper            Executor = "vue-developer"
	ExecutorPythonDeveloper         Executor = "python-developer"
)

// AllExecutors lists every known executor.
var AllExecutors = []Executor{
	ExecutorHookArchitect,
	ExecutorDocumentationIntegrator,
	ExecutorFormatSpecialist,
	ExecutorInterfaceDesigner,
	ExecutorTestArchitect,
	ExecutorTestImplementer,
	ExecutorFlutterDeveloper,
	ExecutorRefactorOwl,
	ExecutorMemoryNetworkBuilder,
	ExecutorProjectManager,
	ExecutorReactDeveloper,
	ExecutorVueDeveloper,
	ExecutorPythonDeveloper,
}

// IsKnown reports whether e is one of AllExecutors.
func (e Executor) IsKnown() bool {
	_, known := e.primaryCategory()
	return known
}

// PrimaryCategory returns the single category e is the specialist for.
// Application developers have no primary category and return false.
func (e Executor) PrimaryCategory() (Category, bool) {
	c, known := e.primaryCategory()
	if !known || c == "" {
		return "", false
	}
	return c, true
}

// primaryCategory maps every executor exhaustively. known is false only for
// identifiers outside the closed set.
func (e Executor) primaryCategory() (c Category, known bool) {
	switch e {
	case ExecutorHookArchitect:
		return CategoryInfraTooling, true
	case ExecutorDocumentationIntegrator:
		return CategoryDocIntegration, true
	case ExecutorFormatSpecialist:
		return CategoryFormatting, true
	case ExecutorInterfaceDesigner:
		return CategoryDesign, true
	case ExecutorTestArchitect:
		return CategoryTestDesign, true
	case ExecutorTestImplementer:
		return CategoryStrategy, true
	case ExecutorRefactorOwl:
		return CategoryRefactor, true
	case ExecutorMemoryNetworkBuilder:
		return CategoryKnowledgeGraph, true
	case ExecutorProjectManager:
		return CategoryProjectManagement, true
	case ExecutorFlutterDeveloper, ExecutorReactDeveloper,
		ExecutorVueDeveloper, ExecutorPythonDeveloper:
		return "", true
	}
	return "", false
}

// ProjectKind is the application stack of the project being worked on.
type ProjectKind string

const (
	ProjectFlutter ProjectKind = "Flutter"
	ProjectReact   ProjectKind = "React"
	ProjectVue     ProjectKind = "Vue"
	ProjectPython  ProjectKind = "Python"
)

// DefaultProjectKind is used when detection finds no marker files.
const DefaultProjectKind = ProjectFlutter

// ParseProjectKind converts s (case-insensitive) into a ProjectKind.
func ParseProjectKind(s string) (ProjectKind, error) {
	for _, k := range []ProjectKind{ProjectFlutter, ProjectReact, ProjectVue, ProjectPython} {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown project kind %q (use Flutter, React, Vue, or Python)", s)
}

// AppDeveloper returns the executor that handles generic application work
// for the project kind.
func (k ProjectKind) AppDeveloper() Executor {
	switch k {
	case ProjectFlutter:
		return ExecutorFlutterDeveloper
	case ProjectReact:
		return ExecutorReactDeveloper
	case ProjectVue:
		return ExecutorVueDeveloper
	case ProjectPython:
		return ExecutorPythonDeveloper
	}
	return DefaultProjectKind.AppDeveloper()
}
