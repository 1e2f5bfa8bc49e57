package docs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-cognition/devin-workshop/internal/dataset"
	"github.com/joao-cognition/devin-workshop/internal/logs"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestVerifyPassesGeneratedArtifacts(t *testing.T) {
	dir := t.TempDir()

	for name, sql := range dataset.QueryFiles() {
		writeFile(t, dir, name, sql)
	}

	day := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
	analysis, err := logs.Analyze(context.Background(), logs.Generate(11, day))
	require.NoError(t, err)
	_, err = logs.WriteReports(dir, analysis, day)
	require.NoError(t, err)

	problems, err := Verify(dir)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestVerifyFlagsUnknownColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.sql", "SELECT customers.shoe_size FROM customers\n")

	problems, err := Verify(dir)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, KindSQLColumn, problems[0].Kind)
	assert.Equal(t, "bad.sql", problems[0].File)
	assert.Equal(t, 1, problems[0].Line)
	assert.Contains(t, problems[0].Detail, "shoe_size")
}

func TestVerifyFlagsBareUnknownIdentifier(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.sql", "SELECT favourite_colour FROM customers\n")

	problems, err := Verify(dir)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, KindSQLColumn, problems[0].Kind)
	assert.Contains(t, problems[0].Detail, "favourite_colour")
}

func TestVerifyIgnoresForeignSQL(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.sql", "SELECT whatever FROM some_other_system\n")

	problems, err := Verify(dir)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestVerifyFlagsBrokenMarkdownReference(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.md", "See [details](missing_report.md) for more.\n")

	problems, err := Verify(dir)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, KindBrokenLink, problems[0].Kind)
	assert.Contains(t, problems[0].Detail, "missing_report.md")
}

func TestVerifyResolvesBareMentions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "present.md", "body\n")
	writeFile(t, dir, "notes.md", "See present.md for more.\nAlso absent.md here.\n")

	problems, err := Verify(dir)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, 2, problems[0].Line)
	assert.Contains(t, problems[0].Detail, "absent.md")
}

func TestVerifyIgnoresExternalLinks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.md", "[docs](https://example.com/guide) and [mail](mailto:ops@example.com)\n")

	problems, err := Verify(dir)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestVerifyFlagsSummaryTotalMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "error_analysis.md", `# Error Analysis Report

## Overview

| Metric | Value |
|---|---|
| Total log entries | 100 |
| Errors | 6 (6.00%) |
| Warnings | 2 (2.00%) |

## Errors by Category

| Category | Count |
|---|---|
| application | 2 |
| database | 1 |
| network | 2 |
| system | 1 |
`)
	writeFile(t, dir, "analysis_summary.md", `# Analysis Summary

## Key Figures

| Metric | Value | Detail |
|---|---|---|
| Total log entries | 100 | [Error Analysis Report](error_analysis.md) |
| Errors | 9 (9.00%) | [Error Analysis Report](error_analysis.md) |
| Warnings | 2 (2.00%) | [Error Analysis Report](error_analysis.md) |
`)

	problems, err := Verify(dir)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, KindTotalMismatch, problems[0].Kind)
	assert.Equal(t, "analysis_summary.md", problems[0].File)
	assert.Contains(t, problems[0].Detail, "summary reports Errors = 9")
}

func TestVerifyFlagsCategorySumDrift(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "error_analysis.md", `# Error Analysis Report

## Overview

| Metric | Value |
|---|---|
| Total log entries | 100 |
| Errors | 6 (6.00%) |
| Warnings | 2 (2.00%) |

## Errors by Category

| Category | Count |
|---|---|
| application | 2 |
| database | 1 |
| network | 2 |
| system | 3 |
`)
	writeFile(t, dir, "analysis_summary.md", `# Analysis Summary

| Metric | Value | Detail |
|---|---|---|
| Total log entries | 100 | [Error Analysis Report](error_analysis.md) |
| Errors | 6 (6.00%) | [Error Analysis Report](error_analysis.md) |
`)

	problems, err := Verify(dir)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, KindTotalMismatch, problems[0].Kind)
	assert.Equal(t, "error_analysis.md", problems[0].File)
	assert.Contains(t, problems[0].Detail, "categories sum to 8")
}

func TestProblemString(t *testing.T) {
	p := Problem{File: "a.md", Line: 3, Kind: KindBrokenLink, Detail: "x"}
	assert.Equal(t, "a.md:3: broken-link: x", p.String())
}
