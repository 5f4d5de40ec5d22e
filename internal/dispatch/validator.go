// Package dispatch checks that a task is dispatched to the executor that owns
// its category.
//
// Validation is a short, linear decision chain:
//  1. No executor declared: nothing to check.
//  2. Executor outside the known set: allow with a warning.
//  3. Explicit phase tag in the task text: the tag decides the category.
//  4. Executor is a specialist: trust its identity and stop.
//  5. Keyword classification; an unknown category is allowed.
//  6. Compare the declared executor with the category's correct executor.
//
// Only step 6 can produce a blocking result.
package dispatch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/boshu2/agentgate/internal/classify"
	"github.com/boshu2/agentgate/internal/project"
	"github.com/boshu2/agentgate/internal/rules"
	"github.com/boshu2/agentgate/internal/types"
)

// Outcome names the step that decided a Result.
type Outcome string

const (
	OutcomeNoExecutor         Outcome = "no-executor"
	OutcomeUnknownExecutor    Outcome = "unknown-executor"
	OutcomeIdentityMatch      Outcome = "identity-match"
	OutcomeInsufficientSignal Outcome = "insufficient-signal"
	OutcomeMatch              Outcome = "match"
	OutcomeMismatch           Outcome = "mismatch"
	OutcomeInternalError      Outcome = "internal-error"
)

// Request is one dispatch to validate.
type Request struct {
	Text     string         `json:"text"`
	Executor types.Executor `json:"executor"`

	// ProjectKind overrides project detection when set.
	ProjectKind types.ProjectKind `json:"project_kind,omitempty"`
}

// Result is the validator's decision.
type Result struct {
	IsError          bool           `json:"is_error" yaml:"is_error"`
	Outcome          Outcome        `json:"outcome" yaml:"outcome"`
	DetectedCategory types.Category `json:"detected_category" yaml:"detected_category"`
	DeclaredExecutor types.Executor `json:"declared_executor" yaml:"declared_executor"`
	CorrectExecutor  types.Executor `json:"correct_executor,omitempty" yaml:"correct_executor,omitempty"`
	Message          string         `json:"message,omitempty" yaml:"message,omitempty"`
	Warning          string         `json:"warning,omitempty" yaml:"warning,omitempty"`

	// Classification is set when the classifier ran.
	Classification *classify.Result `json:"classification,omitempty" yaml:"classification,omitempty"`
}

// Blocks reports whether r should stop the dispatch under mode.
func (r Result) Blocks(mode Mode) bool {
	return r.IsError && mode == ModeStrict
}

// KindSource supplies the project kind for generic application work.
type KindSource interface {
	Kind() types.ProjectKind
}

// Checker validates dispatch requests. *Validator and *Guard implement it.
type Checker interface {
	Validate(req Request) Result
}

// Validator runs the dispatch decision chain. It holds no mutable state.
type Validator struct {
	table      *rules.Table
	classifier classify.Classifier
	kinds      KindSource
	logger     *zap.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithClassifier replaces the keyword classifier built from the table.
func WithClassifier(c classify.Classifier) Option {
	return func(v *Validator) {
		v.classifier = c
	}
}

// WithProjectKinds sets where the project kind comes from when a request
// has no hint. Defaults to types.DefaultProjectKind.
func WithProjectKinds(k KindSource) Option {
	return func(v *Validator) {
		v.kinds = k
	}
}

// WithLogger sets the validator's logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// New returns a Validator over table.
func New(table *rules.Table, opts ...Option) *Validator {
	v := &Validator{
		table:  table,
		kinds:  project.Fixed(types.DefaultProjectKind),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.classifier == nil {
		v.classifier = classify.New(table, classify.WithLogger(v.logger))
	}
	return v
}

// Table returns the rule table the validator was built with.
func (v *Validator) Table() *rules.Table {
	return v.table
}

// Validate runs the decision chain for req.
func (v *Validator) Validate(req Request) Result {
	res := Result{
		DetectedCategory: types.CategoryUnknown,
		DeclaredExecutor: req.Executor,
	}

	if req.Executor == "" {
		res.Outcome = OutcomeNoExecutor
		return res
	}

	if !req.Executor.IsKnown() {
		res.Outcome = OutcomeUnknownExecutor
		res.Warning = fmt.Sprintf("unknown executor %q; dispatch was not checked", req.Executor)
		v.logger.Warn("unknown executor", zap.String("executor", string(req.Executor)))
		return res
	}

	var cr classify.Result
	if cat, tag, ok := classify.MatchExplicitTag(req.Text); ok {
		cr = classify.Result{
			Category:        cat,
			Score:           classify.ExplicitTagScore,
			MatchedKeywords: []string{tag},
			Source:          classify.SourceExplicitTag,
		}
	} else if primary, ok := req.Executor.PrimaryCategory(); ok {
		res.Outcome = OutcomeIdentityMatch
		res.DetectedCategory = primary
		res.CorrectExecutor = req.Executor
		return res
	} else {
		cr = v.classifier.Classify(req.Text)
	}
	res.Classification = &cr
	res.DetectedCategory = cr.Category

	if cr.Unknown() {
		res.Outcome = OutcomeInsufficientSignal
		res.Warning = "task category could not be determined; dispatch was not checked"
		v.logger.Debug("insufficient signal", zap.String("executor", string(req.Executor)))
		return res
	}

	correct, ok := rules.CorrectExecutor(cr.Category, v.kind(req))
	if !ok {
		res.Outcome = OutcomeInsufficientSignal
		return res
	}
	res.CorrectExecutor = correct

	if correct == req.Executor {
		res.Outcome = OutcomeMatch
		return res
	}

	res.IsError = true
	res.Outcome = OutcomeMismatch
	res.Message = fmt.Sprintf("%s work belongs to %s, not %s", cr.Category, correct, req.Executor)
	v.logger.Info("dispatch mismatch",
		zap.String("category", string(cr.Category)),
		zap.String("declared", string(req.Executor)),
		zap.String("correct", string(correct)),
		zap.String("source", string(cr.Source)))
	return res
}

// Check validates text against executor using the configured project kind.
func (v *Validator) Check(text string, executor types.Executor) Result {
	return v.Validate(Request{Text: text, Executor: executor})
}

func (v *Validator) kind(req Request) types.ProjectKind {
	if req.ProjectKind != "" {
		return req.ProjectKind
	}
	if v.kinds == nil {
		return types.DefaultProjectKind
	}
	return v.kinds.Kind()
}
