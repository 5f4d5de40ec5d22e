package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/boshu2/agentgate/internal/analytics"
)

// reportCauses is how many root causes the report details.
const reportCauses = 3

// barWidth is the number of cells in a trend bar. Each cell is 5 percent.
const barWidth = 20

// Bar draws an error rate between 0 and 100 as a fixed-width bar.
func Bar(rate float64) string {
	filled := min(max(int(rate/5), 0), barWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// reportData is what the report template sees.
type reportData struct {
	analytics.Report
	TopCauses []analytics.Cause
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct":   func(f float64) string { return fmt.Sprintf("%.2f%%", f) },
	"upper": strings.ToUpper,
	"date":  func(r analytics.Report) string { return r.GeneratedAt.Format("2006-01-02 15:04:05") },
	"inc":   func(i int) int { return i + 1 },
}).Parse(reportTemplate))

// RenderAnalyticsReport writes r as a markdown document.
func RenderAnalyticsReport(w io.Writer, r analytics.Report) error {
	data := reportData{Report: r, TopCauses: r.RootCauses.Causes}
	if len(data.TopCauses) > reportCauses {
		data.TopCauses = data.TopCauses[:reportCauses]
	}
	if err := reportTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render analytics report: %w", err)
	}
	return nil
}

const reportTemplate = `# Agent Dispatch Analysis Report

**Generated:** {{ date .Report }}

## Overview

- **Corrections analyzed:** {{ .Patterns.Total }}
- **Misdetection rate:** {{ pct .Patterns.MisdetectionRate }}
- **Misdetections (all time):** {{ .RootCauses.MisdetectionCount }}
- **Warnings logged:** {{ .Warnings.Total }}

{{- if .Patterns.CategoryDistribution }}

### Task types

| Task type | Count |
|-----------|-------|
{{- range $c, $n := .Patterns.CategoryDistribution }}
| {{ $c }} | {{ $n }} |
{{- end }}
{{- end }}

## Most Confused Executors

{{- if .Patterns.TopConfusedPairs }}

| Dispatched to | Should have been | Count |
|---------------|------------------|-------|
{{- range .Patterns.TopConfusedPairs }}
| {{ .Wrong }} | {{ .Correct }} | {{ .Count }} |
{{- end }}
{{- else }}

No corrections recorded.
{{- end }}

## Root Causes

{{- range $i, $c := .TopCauses }}

### {{ inc $i }}. {{ if $c.Reason }}{{ $c.Reason }}{{ else }}(no reason recorded){{ end }}

Occurrences: {{ $c.Frequency }}
{{- range $c.Examples }}

- {{ .Detected }} detected, actually {{ .Actual }} ({{ .Wrong }} → {{ .Correct }})
{{- if .PromptPreview }}
  > {{ .PromptPreview }}
{{- end }}
{{- end }}
{{- else }}

No misdetections recorded.
{{- end }}

{{- if .KeywordConflicts }}

## Keyword Conflicts

| Keyword | Misdetections |
|---------|---------------|
{{- range .KeywordConflicts }}
| {{ .Keyword }} | {{ .Count }} |
{{- end }}
{{- end }}

## Suggestions

{{- range .Suggestions }}

### [{{ upper (print .Priority) }}] {{ .Area }}

- **Issue:** {{ .Issue }}
- **Suggestion:** {{ .Suggestion }}
{{- if .Impact }}
- **Impact:** {{ .Impact }}
{{- end }}
{{- else }}

Nothing to suggest.
{{- end }}

## Daily Trend

{{- if .Trends.Days }}

| Date | Total | Misdetections | Error rate |
|------|-------|---------------|------------|
{{- range .Trends.Days }}
| {{ .Date }} | {{ .Total }} | {{ .Misdetections }} | {{ pct .ErrorRate }} |
{{- end }}
{{- else }}

No dated records.
{{- end }}

## Trend Analysis

- **Average error rate:** {{ pct .Trends.AverageErrorRate }}
- **Direction:** {{ .Trends.Direction }}
- **Prediction:** {{ .Trends.Prediction.Direction }}
{{- if ne (print .Trends.Prediction.Direction) "insufficient-data" }}
- **Next error rate:** {{ pct .Trends.Prediction.NextErrorRate }} (average change {{ printf "%+.2f" .Trends.Prediction.AverageChange }} points/day)
{{- end }}
`
