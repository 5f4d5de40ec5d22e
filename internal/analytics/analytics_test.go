package analytics

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boshu2/agentgate/internal/decisionlog"
	"github.com/boshu2/agentgate/internal/types"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 10, 0, 0, 0, time.UTC)
}

func correction(ts time.Time, wrong, correct types.Executor, actual, detected types.Category, reason, preview string) decisionlog.Record {
	return decisionlog.Record{
		Timestamp:        ts,
		Action:           decisionlog.ActionCorrected,
		Category:         actual,
		DeclaredExecutor: wrong,
		CorrectExecutor:  correct,
		PromptPreview:    preview,
		Metadata: &decisionlog.Metadata{
			ActualCategory:   actual,
			DetectedCategory: detected,
			Reason:           reason,
		},
	}
}

// fixture has three misdetections and one record without classifier metadata.
func fixture() []decisionlog.Record {
	return []decisionlog.Record{
		correction(day(1), types.ExecutorHookArchitect, types.ExecutorDocumentationIntegrator,
			types.CategoryDocIntegration, types.CategoryInfraTooling, "hook keyword", "Update Hook docs for Phase 4"),
		correction(day(1), types.ExecutorHookArchitect, types.ExecutorDocumentationIntegrator,
			types.CategoryDocIntegration, types.CategoryInfraTooling, "hook keyword", "Document the hook contract"),
		correction(day(2), types.ExecutorTestImplementer, types.ExecutorFlutterDeveloper,
			types.CategoryImplementation, types.CategoryStrategy, "pseudocode", "Write a test for Phase 3b"),
		{
			Timestamp:        day(2),
			Action:           decisionlog.ActionCorrected,
			Category:         types.CategoryImplementation,
			DeclaredExecutor: types.ExecutorFlutterDeveloper,
			CorrectExecutor:  types.ExecutorFlutterDeveloper,
		},
	}
}

func TestAnalyzePatterns(t *testing.T) {
	p := AnalyzePatterns(fixture(), DefaultLimit)

	assert.Equal(t, 4, p.Total)
	assert.Equal(t, 75.0, p.MisdetectionRate)

	wantDist := map[types.Category]int{
		types.CategoryDocIntegration: 2,
		types.CategoryImplementation: 2,
	}
	if diff := cmp.Diff(wantDist, p.CategoryDistribution); diff != "" {
		t.Errorf("CategoryDistribution mismatch (-want +got):\n%s", diff)
	}

	wantMatrix := map[types.Executor]map[types.Executor]int{
		types.ExecutorHookArchitect:    {types.ExecutorDocumentationIntegrator: 2},
		types.ExecutorTestImplementer:  {types.ExecutorFlutterDeveloper: 1},
		types.ExecutorFlutterDeveloper: {types.ExecutorFlutterDeveloper: 1},
	}
	if diff := cmp.Diff(wantMatrix, p.ConfusionMatrix); diff != "" {
		t.Errorf("ConfusionMatrix mismatch (-want +got):\n%s", diff)
	}

	wantPairs := []ConfusedPair{
		{Wrong: types.ExecutorHookArchitect, Correct: types.ExecutorDocumentationIntegrator, Count: 2},
		{Wrong: types.ExecutorFlutterDeveloper, Correct: types.ExecutorFlutterDeveloper, Count: 1},
		{Wrong: types.ExecutorTestImplementer, Correct: types.ExecutorFlutterDeveloper, Count: 1},
	}
	if diff := cmp.Diff(wantPairs, p.TopConfusedPairs); diff != "" {
		t.Errorf("TopConfusedPairs mismatch (-want +got):\n%s", diff)
	}

	wantReasons := []ErrorReason{
		{Detected: types.CategoryInfraTooling, Actual: types.CategoryDocIntegration, Reason: "hook keyword", Count: 2},
		{Detected: types.CategoryStrategy, Actual: types.CategoryImplementation, Reason: "pseudocode", Count: 1},
	}
	if diff := cmp.Diff(wantReasons, p.CommonErrorReasons); diff != "" {
		t.Errorf("CommonErrorReasons mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzePatterns_Limit(t *testing.T) {
	p := AnalyzePatterns(fixture(), 2)
	assert.Equal(t, 2, p.Total)
	assert.Equal(t, 50.0, p.MisdetectionRate)
	assert.Len(t, p.TopConfusedPairs, 2)
}

func TestAnalyzePatterns_Rounding(t *testing.T) {
	p := AnalyzePatterns(fixture()[1:], 0)
	// two of three
	assert.Equal(t, 66.67, p.MisdetectionRate)
}

func TestAnalyzePatterns_Empty(t *testing.T) {
	p := AnalyzePatterns(nil, DefaultLimit)
	assert.Zero(t, p.Total)
	assert.Zero(t, p.MisdetectionRate)
	assert.NotNil(t, p.TopConfusedPairs)
	assert.Empty(t, p.TopConfusedPairs)
	assert.Empty(t, p.CommonErrorReasons)
}

func TestAnalyzePatterns_TopPairsCapped(t *testing.T) {
	var records []decisionlog.Record
	for i, e := range types.AllExecutors[:7] {
		for n := 0; n <= i; n++ {
			records = append(records, correction(day(1), e, types.ExecutorProjectManager,
				types.CategoryProjectManagement, types.CategoryDesign, "", ""))
		}
	}
	p := AnalyzePatterns(records, 0)
	require.Len(t, p.TopConfusedPairs, TopPairs)
	assert.Equal(t, types.AllExecutors[6], p.TopConfusedPairs[0].Wrong)
	assert.Equal(t, 7, p.TopConfusedPairs[0].Count)
	assert.Equal(t, 3, p.TopConfusedPairs[4].Count)
}

func TestRecent(t *testing.T) {
	records := fixture()
	assert.Len(t, Recent(records, 0), 4)
	assert.Len(t, Recent(records, 10), 4)
	got := Recent(records, 1)
	require.Len(t, got, 1)
	assert.Equal(t, types.ExecutorFlutterDeveloper, got[0].DeclaredExecutor)
}

func TestAnalyzeRootCauses(t *testing.T) {
	rc := AnalyzeRootCauses(fixture())

	assert.Equal(t, 3, rc.MisdetectionCount)
	require.Len(t, rc.Causes, 2)
	assert.Equal(t, "hook keyword", rc.Causes[0].Reason)
	assert.Equal(t, 2, rc.Causes[0].Frequency)
	assert.Len(t, rc.Causes[0].Examples, 2)
	assert.Equal(t, "pseudocode", rc.Causes[1].Reason)

	wantActual := map[types.Category]int{types.CategoryDocIntegration: 2, types.CategoryImplementation: 1}
	if diff := cmp.Diff(wantActual, rc.AffectedActual); diff != "" {
		t.Errorf("AffectedActual mismatch (-want +got):\n%s", diff)
	}
	wantDetected := map[types.Category]int{types.CategoryInfraTooling: 2, types.CategoryStrategy: 1}
	if diff := cmp.Diff(wantDetected, rc.AffectedDetected); diff != "" {
		t.Errorf("AffectedDetected mismatch (-want +got):\n%s", diff)
	}

	wantExecutors := []types.Executor{
		types.ExecutorHookArchitect,
		types.ExecutorFlutterDeveloper,
		types.ExecutorTestImplementer,
		types.ExecutorDocumentationIntegrator,
	}
	if diff := cmp.Diff(wantExecutors, rc.AffectedExecutors); diff != "" {
		t.Errorf("AffectedExecutors mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeRootCauses_ExamplesCappedAndTruncated(t *testing.T) {
	long := ""
	for len(long) < 300 {
		long += "refactor "
	}
	var records []decisionlog.Record
	for i := 0; i < 4; i++ {
		records = append(records, correction(day(1), types.ExecutorRefactorOwl, types.ExecutorFlutterDeveloper,
			types.CategoryImplementation, types.CategoryRefactor, "refactor wording", long))
	}
	rc := AnalyzeRootCauses(records)
	require.Len(t, rc.Causes, 1)
	assert.Equal(t, 4, rc.Causes[0].Frequency)
	require.Len(t, rc.Causes[0].Examples, 2)
	assert.Len(t, rc.Causes[0].Examples[0].PromptPreview, examplePreviewLength)
}

func TestAnalyzeRootCauses_TiesKeepFirstSeen(t *testing.T) {
	records := []decisionlog.Record{
		correction(day(1), types.ExecutorRefactorOwl, types.ExecutorFlutterDeveloper,
			types.CategoryImplementation, types.CategoryRefactor, "zeta", ""),
		correction(day(1), types.ExecutorRefactorOwl, types.ExecutorFlutterDeveloper,
			types.CategoryImplementation, types.CategoryRefactor, "alpha", ""),
	}
	rc := AnalyzeRootCauses(records)
	require.Len(t, rc.Causes, 2)
	assert.Equal(t, "zeta", rc.Causes[0].Reason)
	assert.Equal(t, "alpha", rc.Causes[1].Reason)
}

func TestAnalyzeRootCauses_NoMisdetections(t *testing.T) {
	rc := AnalyzeRootCauses(fixture()[3:])
	assert.Zero(t, rc.MisdetectionCount)
	assert.Empty(t, rc.Causes)
	assert.Empty(t, rc.AffectedExecutors)
}

func TestAnalyzeKeywordConflicts(t *testing.T) {
	got := AnalyzeKeywordConflicts(fixture())

	type kc struct {
		Keyword string
		Count   int
	}
	var summary []kc
	for _, c := range got {
		summary = append(summary, kc{c.Keyword, c.Count})
	}
	want := []kc{
		{"doc", 2},
		{"hook", 2},
		{"phase 3b", 1},
		{"phase 4", 1},
		{"test", 1},
	}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Errorf("conflicts mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, got[0].Examples, 2)
}

func TestAnalyzeKeywordConflicts_CountsOncePerRecord(t *testing.T) {
	records := []decisionlog.Record{
		correction(day(1), types.ExecutorTestArchitect, types.ExecutorFlutterDeveloper,
			types.CategoryImplementation, types.CategoryTestDesign, "", "test test TEST"),
	}
	got := AnalyzeKeywordConflicts(records)
	require.Len(t, got, 1)
	assert.Equal(t, "test", got[0].Keyword)
	assert.Equal(t, 1, got[0].Count)
}

func TestAnalyzeKeywordConflicts_IgnoresCorrectDetections(t *testing.T) {
	got := AnalyzeKeywordConflicts(fixture()[3:])
	assert.Empty(t, got)
}

func TestAnalyzeWarnings(t *testing.T) {
	var records []decisionlog.Record
	for i := 1; i <= 7; i++ {
		records = append(records, decisionlog.Record{
			Timestamp:        day(i),
			Action:           decisionlog.ActionAllowedWithWarning,
			Category:         types.CategoryFormatting,
			DeclaredExecutor: types.ExecutorFlutterDeveloper,
			CorrectExecutor:  types.ExecutorFormatSpecialist,
		})
	}
	records[0].Action = decisionlog.ActionDenied

	w := AnalyzeWarnings(records)
	assert.Equal(t, 7, w.Total)
	assert.Equal(t, 7, w.ByCategory[types.CategoryFormatting])
	assert.Equal(t, 7, w.ByDeclaredExecutor[types.ExecutorFlutterDeveloper])
	assert.Equal(t, 6, w.ByAction[decisionlog.ActionAllowedWithWarning])
	assert.Equal(t, 1, w.ByAction[decisionlog.ActionDenied])
	require.Len(t, w.Recent, recentWarnings)
	assert.Equal(t, day(7), w.Recent[4].Timestamp)
}

func TestSuggest(t *testing.T) {
	records := fixture()
	p := AnalyzePatterns(records, DefaultLimit)
	rc := AnalyzeRootCauses(records)

	got := Suggest(p, rc)
	// three confused pairs, one keyword, two root causes, one strategy
	require.Len(t, got, 7)

	var areas []string
	for _, s := range got {
		areas = append(areas, s.Area)
	}
	assert.ElementsMatch(t, []string{
		AreaDispatch, AreaDispatch, AreaDispatch, AreaKeywords, AreaStrategy, AreaRules, AreaRules,
	}, areas)

	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		require.LessOrEqual(t, prev.Priority.rank(), cur.Priority.rank(), "suggestion %d out of priority order", i)
		if prev.Priority == cur.Priority {
			assert.GreaterOrEqual(t, len(prev.Issue), len(cur.Issue), "suggestion %d out of issue order", i)
		}
	}
	assert.Equal(t, PriorityMedium, got[len(got)-1].Priority)
}

func TestSuggest_KeywordSuggestionNamesMostDetected(t *testing.T) {
	rc := AnalyzeRootCauses(fixture())
	got := Suggest(Patterns{}, rc)
	var kw []Suggestion
	for _, s := range got {
		if s.Area == AreaKeywords {
			kw = append(kw, s)
		}
	}
	require.Len(t, kw, 1)
	assert.Contains(t, kw[0].Issue, string(types.CategoryInfraTooling))
}

func TestSuggest_LowRateHasNoStrategy(t *testing.T) {
	got := Suggest(Patterns{MisdetectionRate: 20}, RootCauses{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityHigh.rank(), PriorityMedium.rank())
	assert.Less(t, PriorityMedium.rank(), PriorityLow.rank())
	assert.Less(t, PriorityLow.rank(), Priority("other").rank())
}

func TestBuild(t *testing.T) {
	now := day(20)
	r := Build(fixture(), fixture()[:1], DefaultLimit, now)
	assert.Equal(t, now, r.GeneratedAt)
	assert.Equal(t, 4, r.Patterns.Total)
	assert.Equal(t, 3, r.RootCauses.MisdetectionCount)
	assert.NotEmpty(t, r.KeywordConflicts)
	assert.NotEmpty(t, r.Suggestions)
	assert.Len(t, r.Trends.Days, 2)
	assert.Equal(t, 1, r.Warnings.Total)
}
