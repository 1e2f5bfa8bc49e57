// CLI integration tests for the workshop material generators.
package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDatasetGenerateVerifyQuery(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRunTombstone("init")

	queriesDir := filepath.Join(env.TempDir, "queries")
	result := env.MustRunTombstone("dataset", "generate",
		"--seed", "7", "--customers", "40", "--transactions", "200", "--complaints", "120",
		"--queries-out", queriesDir)
	if !strings.Contains(result.Stdout, "40 customers") {
		t.Errorf("unexpected generate output: %q", result.Stdout)
	}

	entries, err := os.ReadDir(queriesDir)
	if err != nil {
		t.Fatalf("read queries dir: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("expected 4 query files, got %d", len(entries))
	}

	verify := env.MustRunTombstone("--json", "dataset", "verify")
	counts := ParseJSON[struct {
		TableCounts map[string]int `json:"table_counts"`
	}](t, verify.Stdout)
	if counts.TableCounts["customers"] != 40 {
		t.Errorf("expected 40 customers, got %d", counts.TableCounts["customers"])
	}
	if counts.TableCounts["complaints"] != 120 {
		t.Errorf("expected 120 complaints, got %d", counts.TableCounts["complaints"])
	}

	query := env.MustRunTombstone("dataset", "query", "segment-demographics")
	if !strings.Contains(query.Stdout, "customer_segment") {
		t.Errorf("unexpected query output: %q", query.Stdout)
	}

	bad := env.RunTombstone("dataset", "query", "nonsense")
	if bad.ExitCode != 2 {
		t.Errorf("expected exit code 2 for unknown query, got %d", bad.ExitCode)
	}
}

func TestLogsGenerateAnalyzeDocsVerify(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRunTombstone("init")

	logFile := filepath.Join(env.TempDir, "demo_logs.jsonl")
	reportsDir := filepath.Join(env.TempDir, "reports")
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	gen := env.MustRunTombstone("logs", "generate", "--seed", "7", "--day", "2026-03-14", "--out", logFile)
	if !strings.Contains(gen.Stdout, "log entries") {
		t.Errorf("unexpected generate output: %q", gen.Stdout)
	}

	analyze := env.MustRunTombstone("logs", "analyze", "--in", logFile, "--out", reportsDir)
	if !strings.Contains(analyze.Stdout, "health score") {
		t.Errorf("unexpected analyze output: %q", analyze.Stdout)
	}

	for _, name := range []string{
		"error_analysis.md", "security_analysis.md",
		"performance_analysis.md", "analysis_summary.md",
	} {
		if _, err := os.Stat(filepath.Join(reportsDir, name)); err != nil {
			t.Errorf("missing report %s: %v", name, err)
		}
	}

	// The generated reports pass their own consistency checks.
	env.MustRunTombstone("docs", "verify", reportsDir)

	// A report edited out of agreement with the details fails verification.
	summaryPath := filepath.Join(reportsDir, "analysis_summary.md")
	data, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatal(err)
	}
	broken := strings.Replace(string(data), "[Error Analysis Report](error_analysis.md)",
		"[Error Analysis Report](missing_report.md)", 1)
	if err := os.WriteFile(summaryPath, []byte(broken), 0o644); err != nil {
		t.Fatal(err)
	}

	result := env.RunTombstone("docs", "verify", reportsDir)
	if result.ExitCode == 0 {
		t.Error("expected docs verify to fail on broken link")
	}
	if !strings.Contains(result.Stdout, "broken-link") {
		t.Errorf("expected broken-link problem in output, got %q", result.Stdout)
	}
}
