package dispatch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/boshu2/agentgate/internal/types"
)

// Guard wraps a Checker so that an internal failure never blocks a dispatch.
// A panic anywhere below Validate is logged and reported as
// OutcomeInternalError with IsError false.
type Guard struct {
	checker Checker
	logger  *zap.Logger
}

// NewGuard wraps checker. A nil logger discards output.
func NewGuard(checker Checker, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{checker: checker, logger: logger}
}

// Validate runs the wrapped checker and converts panics into an allow.
func (g *Guard) Validate(req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("dispatch validation failed; allowing",
				zap.Any("panic", r),
				zap.String("executor", string(req.Executor)),
				zap.Stack("stack"))
			res = Result{
				Outcome:          OutcomeInternalError,
				DetectedCategory: types.CategoryUnknown,
				DeclaredExecutor: req.Executor,
				Warning:          fmt.Sprintf("dispatch check failed internally: %v", r),
			}
		}
	}()
	return g.checker.Validate(req)
}

// Check is Validate for a bare text and executor.
func (g *Guard) Check(text string, executor types.Executor) Result {
	return g.Validate(Request{Text: text, Executor: executor})
}
