package rules

import "github.com/boshu2/agentgate/internal/types"

// CorrectExecutor returns the policy-correct executor for c. Generic
// application work resolves through kind. ok is false for CategoryUnknown.
func CorrectExecutor(c types.Category, kind types.ProjectKind) (types.Executor, bool) {
	switch c {
	case types.CategoryDesign:
		return types.ExecutorInterfaceDesigner, true
	case types.CategoryTestDesign:
		return types.ExecutorTestArchitect, true
	case types.CategoryStrategy:
		return types.ExecutorTestImplementer, true
	case types.CategoryImplementation:
		return types.ExecutorFlutterDeveloper, true
	case types.CategoryRefactor:
		return types.ExecutorRefactorOwl, true
	case types.CategoryInfraTooling:
		return types.ExecutorHookArchitect, true
	case types.CategoryDocIntegration:
		return types.ExecutorDocumentationIntegrator, true
	case types.CategoryFormatting:
		return types.ExecutorFormatSpecialist, true
	case types.CategoryAppDev:
		return kind.AppDeveloper(), true
	case types.CategoryKnowledgeGraph:
		return types.ExecutorMemoryNetworkBuilder, true
	case types.CategoryProjectManagement:
		return types.ExecutorProjectManager, true
	case types.CategoryUnknown:
		return "", false
	}
	return "", false
}
