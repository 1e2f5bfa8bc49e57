// Package docs checks the generated workshop documents for internal
// consistency: SQL files may only reference real schema columns, markdown
// cross references must resolve, and the summary report's totals must
// agree with the detail reports.
package docs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/joao-cognition/devin-workshop/internal/dataset"
)

// Problem kinds reported by Verify.
const (
	KindSQLColumn     = "sql-column"
	KindBrokenLink    = "broken-link"
	KindTotalMismatch = "total-mismatch"
)

// Problem is one consistency violation found in a document.
type Problem struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", p.File, p.Line, p.Kind, p.Detail)
}

// Verify walks dir and returns every consistency problem found. An empty
// result means all documents pass.
func Verify(dir string) ([]Problem, error) {
	var problems []Problem

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".sql":
			found, readErr := checkSQLFile(path, rel)
			if readErr != nil {
				return readErr
			}
			problems = append(problems, found...)
		case ".md":
			found, readErr := checkMarkdownLinks(path, rel)
			if readErr != nil {
				return readErr
			}
			problems = append(problems, found...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	found, err := checkSummaryTotals(dir)
	if err != nil {
		return nil, err
	}
	problems = append(problems, found...)

	sort.Slice(problems, func(i, j int) bool {
		if problems[i].File != problems[j].File {
			return problems[i].File < problems[j].File
		}
		return problems[i].Line < problems[j].Line
	})
	return problems, nil
}

// ── SQL column references ──

var (
	sqlString     = regexp.MustCompile(`'[^']*'`)
	sqlComment    = regexp.MustCompile(`--[^\n]*`)
	sqlQualified  = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)\b`)
	sqlIdentifier = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)
	sqlAlias      = regexp.MustCompile(`(?i)\bAS\s+([A-Za-z_][A-Za-z0-9_]*)`)
	sqlTableRef   = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "by": true,
	"order": true, "having": true, "as": true, "and": true, "or": true,
	"not": true, "null": true, "is": true, "in": true, "on": true,
	"join": true, "inner": true, "left": true, "right": true, "outer": true,
	"case": true, "when": true, "then": true, "else": true, "end": true,
	"desc": true, "asc": true, "distinct": true, "limit": true, "offset": true,
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"round": true, "coalesce": true, "strftime": true, "cast": true,
	"between": true, "like": true, "union": true, "all": true, "exists": true,
	"integer": true, "real": true, "text": true,
}

// checkSQLFile verifies every column reference in one SQL file against
// the dataset schema. Qualified table.column references are checked
// directly; bare identifiers must belong to one of the tables the
// statement selects from, or be an alias declared in the statement.
func checkSQLFile(path, rel string) ([]Problem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	schema := schemaByTable()

	var problems []Problem
	for i, line := range strings.Split(string(raw), "\n") {
		clean := sqlComment.ReplaceAllString(sqlString.ReplaceAllString(line, "''"), "")
		for _, m := range sqlQualified.FindAllStringSubmatch(clean, -1) {
			table, column := m[1], m[2]
			columns, known := schema[strings.ToLower(table)]
			if !known {
				continue
			}
			if !columns[strings.ToLower(column)] {
				problems = append(problems, Problem{
					File:   rel,
					Line:   i + 1,
					Kind:   KindSQLColumn,
					Detail: fmt.Sprintf("column %q does not exist in table %q", column, table),
				})
			}
		}
	}

	clean := sqlComment.ReplaceAllString(sqlString.ReplaceAllString(string(raw), "''"), "")
	allowed := map[string]bool{}
	for _, m := range sqlAlias.FindAllStringSubmatch(clean, -1) {
		allowed[strings.ToLower(m[1])] = true
	}
	var statementTables []string
	for _, m := range sqlTableRef.FindAllStringSubmatch(clean, -1) {
		statementTables = append(statementTables, strings.ToLower(m[1]))
	}
	for _, table := range statementTables {
		for column := range schema[table] {
			allowed[column] = true
		}
		allowed[table] = true
	}

	// Bare identifier check only applies when the statement reads from
	// known tables; DDL and foreign SQL pass through untouched.
	if !anyKnownTable(statementTables, schema) {
		return problems, nil
	}
	for i, line := range strings.Split(string(raw), "\n") {
		cleanLine := sqlComment.ReplaceAllString(sqlString.ReplaceAllString(line, "''"), "")
		cleanLine = sqlQualified.ReplaceAllString(cleanLine, "")
		for _, ident := range sqlIdentifier.FindAllString(cleanLine, -1) {
			lower := strings.ToLower(ident)
			if sqlKeywords[lower] || allowed[lower] {
				continue
			}
			if _, isTable := schema[lower]; isTable {
				continue
			}
			problems = append(problems, Problem{
				File:   rel,
				Line:   i + 1,
				Kind:   KindSQLColumn,
				Detail: fmt.Sprintf("identifier %q is not a column of the referenced tables", ident),
			})
		}
	}
	return problems, nil
}

func anyKnownTable(tables []string, schema map[string]map[string]bool) bool {
	for _, t := range tables {
		if _, ok := schema[t]; ok {
			return true
		}
	}
	return false
}

func schemaByTable() map[string]map[string]bool {
	out := map[string]map[string]bool{}
	for _, table := range dataset.Schema() {
		columns := map[string]bool{}
		for _, c := range table.Columns {
			columns[strings.ToLower(c.Name)] = true
		}
		out[strings.ToLower(table.Name)] = columns
	}
	return out
}

// ── Markdown cross references ──

var (
	mdLink    = regexp.MustCompile(`\[[^\]]*\]\(([^)#\s]+)[^)]*\)`)
	mdMention = regexp.MustCompile(`\b([A-Za-z0-9_\-]+\.md)\b`)
)

// checkMarkdownLinks verifies that every intra-repo link and bare .md
// mention resolves to a file on disk. External URLs are ignored.
func checkMarkdownLinks(path, rel string) ([]Problem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	base := filepath.Dir(path)

	var problems []Problem
	seen := map[string]bool{}
	for i, line := range strings.Split(string(raw), "\n") {
		targets := map[string]bool{}
		for _, m := range mdLink.FindAllStringSubmatch(line, -1) {
			targets[m[1]] = true
		}
		for _, m := range mdMention.FindAllStringSubmatch(line, -1) {
			targets[m[1]] = true
		}
		for target := range targets {
			if strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:") {
				continue
			}
			key := fmt.Sprintf("%d:%s", i, target)
			if seen[key] {
				continue
			}
			seen[key] = true
			if _, statErr := os.Stat(filepath.Join(base, target)); statErr != nil {
				problems = append(problems, Problem{
					File:   rel,
					Line:   i + 1,
					Kind:   KindBrokenLink,
					Detail: fmt.Sprintf("reference %q does not resolve to a file", target),
				})
			}
		}
	}
	return problems, nil
}

// ── Summary totals ──

// checkSummaryTotals re-derives the summary report's headline figures
// from the three detail reports and flags any disagreement. Absent
// reports are not an error; the check applies only when the full set
// exists.
func checkSummaryTotals(dir string) ([]Problem, error) {
	summaryPath := ""
	var problems []Problem
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == "analysis_summary.md" {
			summaryPath = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	if summaryPath == "" {
		return nil, nil
	}

	base := filepath.Dir(summaryPath)
	relSummary, relErr := filepath.Rel(dir, summaryPath)
	if relErr != nil {
		relSummary = summaryPath
	}

	summary, err := readLines(summaryPath)
	if err != nil {
		return nil, err
	}

	check := func(detailFile, detailLabel, summaryLabel string, detailValue func([]string) (int, bool)) error {
		detail, readErr := readLines(filepath.Join(base, detailFile))
		if readErr != nil {
			if os.IsNotExist(readErr) {
				return nil
			}
			return readErr
		}
		want, ok := detailValue(detail)
		if !ok {
			return nil
		}
		got, line, ok := tableInt(summary, summaryLabel)
		if !ok {
			return nil
		}
		if got != want {
			problems = append(problems, Problem{
				File: relSummary,
				Line: line,
				Kind: KindTotalMismatch,
				Detail: fmt.Sprintf("summary reports %s = %d but %s (%s) says %d",
					summaryLabel, got, detailFile, detailLabel, want),
			})
		}
		return nil
	}

	labelValue := func(label string) func([]string) (int, bool) {
		return func(lines []string) (int, bool) {
			v, _, ok := tableInt(lines, label)
			return v, ok
		}
	}

	checks := []struct {
		detailFile   string
		detailLabel  string
		summaryLabel string
		value        func([]string) (int, bool)
	}{
		{"error_analysis.md", "Total log entries", "Total log entries", labelValue("Total log entries")},
		{"error_analysis.md", "Errors", "Errors", labelValue("Errors")},
		{"error_analysis.md", "Warnings", "Warnings", labelValue("Warnings")},
		{"security_analysis.md", "Failed login attempts", "Failed logins", labelValue("Failed login attempts")},
		{"performance_analysis.md", "Slow requests", "Slow requests", prefixedValue("Slow requests")},
		{"performance_analysis.md", "Slow queries", "Slow queries", prefixedValue("Slow queries")},
	}
	for _, c := range checks {
		if checkErr := check(c.detailFile, c.detailLabel, c.summaryLabel, c.value); checkErr != nil {
			return nil, checkErr
		}
	}

	// The error report must itself be internally consistent: the category
	// counts sum to the error total.
	if detail, readErr := readLines(filepath.Join(base, "error_analysis.md")); readErr == nil {
		relDetail, _ := filepath.Rel(dir, filepath.Join(base, "error_analysis.md"))
		total, _, hasTotal := tableInt(detail, "Errors")
		sum, line, hasCategories := categorySum(detail)
		if hasTotal && hasCategories && total != sum {
			problems = append(problems, Problem{
				File: relDetail,
				Line: line,
				Kind: KindTotalMismatch,
				Detail: fmt.Sprintf("error categories sum to %d but the report counts %d errors",
					sum, total),
			})
		}
	}
	return problems, nil
}

func readLines(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(raw), "\n"), nil
}

// tableInt finds a markdown table row "| label | N ... |" and returns the
// first integer of the value cell.
func tableInt(lines []string, label string) (int, int, bool) {
	prefix := "| " + label + " |"
	for i, line := range lines {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		rest := strings.TrimPrefix(line, prefix)
		if v, ok := leadingInt(rest); ok {
			return v, i + 1, true
		}
	}
	return 0, 0, false
}

// prefixedValue matches prose lines of the form "Slow requests (over
// 1000ms): 7" in the performance report.
func prefixedValue(label string) func([]string) (int, bool) {
	return func(lines []string) (int, bool) {
		for _, line := range lines {
			if !strings.HasPrefix(line, label) {
				continue
			}
			if idx := strings.LastIndex(line, ":"); idx >= 0 {
				if v, ok := leadingInt(line[idx+1:]); ok {
					return v, true
				}
			}
		}
		return 0, false
	}
}

// categorySum adds up the counts in the "Errors by Category" table and
// returns the sum with the line number of the table header.
func categorySum(lines []string) (int, int, bool) {
	inTable := false
	sum := 0
	headerLine := 0
	found := false
	for i, line := range lines {
		if strings.HasPrefix(line, "## Errors by Category") {
			inTable = true
			headerLine = i + 1
			continue
		}
		if !inTable {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			break
		}
		if !strings.HasPrefix(line, "| ") || strings.HasPrefix(line, "| Category") || strings.HasPrefix(line, "|--") || strings.HasPrefix(line, "|-") {
			continue
		}
		cells := strings.Split(line, "|")
		if len(cells) < 3 {
			continue
		}
		if v, ok := leadingInt(cells[2]); ok {
			sum += v
			found = true
		}
	}
	return sum, headerLine, found
}

// leadingInt parses the first run of digits in s.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}
