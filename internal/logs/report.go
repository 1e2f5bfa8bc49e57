package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Report filenames written by WriteReports.
const (
	ErrorReportFile       = "error_analysis.md"
	SecurityReportFile    = "security_analysis.md"
	PerformanceReportFile = "performance_analysis.md"
	SummaryReportFile     = "analysis_summary.md"
)

// HealthGrade maps a 0..100 score to a letter grade.
func HealthGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// WriteReports renders all four markdown reports under dir and returns the
// paths written. The summary report restates the headline figures of the
// detail reports, so the totals always agree.
func WriteReports(dir string, a *Analysis, generatedAt time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	reports := map[string]string{
		ErrorReportFile:       ErrorReport(a, generatedAt),
		SecurityReportFile:    SecurityReport(a, generatedAt),
		PerformanceReportFile: PerformanceReport(a, generatedAt),
		SummaryReportFile:     SummaryReport(a, generatedAt),
	}

	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(reports[name]), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ErrorReport renders the error analysis as markdown.
func ErrorReport(a *Analysis, generatedAt time.Time) string {
	e := a.Errors
	var b strings.Builder

	fmt.Fprintf(&b, "# Error Analysis Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	fmt.Fprintf(&b, "## Overview\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total log entries | %d |\n", e.TotalLogs)
	fmt.Fprintf(&b, "| Errors | %d (%.2f%%) |\n", e.ErrorCount, e.ErrorRatePct)
	fmt.Fprintf(&b, "| Warnings | %d (%.2f%%) |\n\n", e.WarningCount, e.WarningRatePct)

	fmt.Fprintf(&b, "## Errors by Category\n\n")
	fmt.Fprintf(&b, "| Category | Count |\n|---|---|\n")
	for _, category := range []string{"application", "database", "network", "system"} {
		fmt.Fprintf(&b, "| %s | %d |\n", category, e.Categories[category])
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Errors by Service\n\n")
	writeCountTable(&b, "Service", e.ErrorsByService)

	fmt.Fprintf(&b, "## Errors by Code\n\n")
	writeCountTable(&b, "Error Code", e.ErrorsByCode)

	fmt.Fprintf(&b, "## Warnings by Service\n\n")
	writeCountTable(&b, "Service", e.WarningsByService)

	if len(e.TopErrors) > 0 {
		fmt.Fprintf(&b, "## Sample Errors\n\n")
		fmt.Fprintf(&b, "| Timestamp | Service | Code | Message |\n|---|---|---|---|\n")
		for _, d := range e.TopErrors {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", d.Timestamp, d.Service, d.ErrorCode, d.Message)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "See also: [Security Analysis Report](%s), [Performance Analysis Report](%s), [Analysis Summary](%s)\n",
		SecurityReportFile, PerformanceReportFile, SummaryReportFile)
	return b.String()
}

// SecurityReport renders the security analysis as markdown.
func SecurityReport(a *Analysis, generatedAt time.Time) string {
	s := a.Security
	var b strings.Builder

	fmt.Fprintf(&b, "# Security Analysis Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	fmt.Fprintf(&b, "## Overview\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Failed login attempts | %d |\n", s.FailedLoginCount)
	fmt.Fprintf(&b, "| Suspicious activity events | %d |\n", s.SuspiciousCount)
	fmt.Fprintf(&b, "| Blocked IP events | %d |\n", s.BlockedIPCount)
	fmt.Fprintf(&b, "| Rate limit violations | %d |\n", s.RateLimitViolations)
	fmt.Fprintf(&b, "| Account lockouts | %d |\n\n", s.AccountLockouts)

	fmt.Fprintf(&b, "## Potential Brute Force Sources\n\n")
	if len(s.BruteForceIPs) == 0 {
		fmt.Fprintf(&b, "No IP reached the failed login threshold.\n\n")
	} else {
		for _, ip := range s.BruteForceIPs {
			fmt.Fprintf(&b, "- `%s`\n", ip)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## External IPs Observed\n\n")
	if len(s.ExternalIPs) == 0 {
		fmt.Fprintf(&b, "All traffic came from private address space.\n\n")
	} else {
		for _, ip := range s.ExternalIPs {
			fmt.Fprintf(&b, "- `%s`\n", ip)
		}
		b.WriteString("\n")
	}

	if len(s.FailedLogins) > 0 {
		fmt.Fprintf(&b, "## Failed Login Detail\n\n")
		fmt.Fprintf(&b, "| Timestamp | User | Client IP | Reason |\n|---|---|---|---|\n")
		for _, f := range s.FailedLogins {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", f.Timestamp, f.UserID, f.ClientIP, f.Reason)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "See also: [Error Analysis Report](%s), [Performance Analysis Report](%s), [Analysis Summary](%s)\n",
		ErrorReportFile, PerformanceReportFile, SummaryReportFile)
	return b.String()
}

// PerformanceReport renders the performance and capacity analyses as
// markdown.
func PerformanceReport(a *Analysis, generatedAt time.Time) string {
	p := a.Performance
	c := a.Capacity
	var b strings.Builder

	fmt.Fprintf(&b, "# Performance Analysis Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	fmt.Fprintf(&b, "## Response Times\n\n")
	writeStatsTable(&b, "Response time (ms)", p.ResponseTimeStats)
	fmt.Fprintf(&b, "Slow requests (over %dms): %d\n\n", slowRequestThresholdMS, p.SlowRequestCount)

	fmt.Fprintf(&b, "## Database Query Times\n\n")
	writeStatsTable(&b, "Query time (ms)", p.QueryTimeStats)
	fmt.Fprintf(&b, "Slow queries (over %dms): %d\n\n", slowQueryThresholdMS, p.SlowQueryCount)

	fmt.Fprintf(&b, "## Resource Usage\n\n")
	writeStatsTable(&b, "CPU (%)", p.CPUStats)
	writeStatsTable(&b, "Memory (%)", p.MemoryStats)
	writeStatsTable(&b, "Disk I/O (%)", p.DiskStats)

	fmt.Fprintf(&b, "## Memory Trend\n\n")
	fmt.Fprintf(&b, "First quarter average: %.2f%%, last quarter average: %.2f%% (growth %.2f%%).\n",
		p.Memory.FirstQuarterAvg, p.Memory.LastQuarterAvg, p.Memory.GrowthPct)
	if p.Memory.PotentialLeak {
		fmt.Fprintf(&b, "**Potential memory leak detected.**\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Slowest Endpoints\n\n")
	fmt.Fprintf(&b, "| Endpoint | Avg (ms) | P95 (ms) | Max (ms) | Requests |\n|---|---|---|---|---|\n")
	for _, ep := range p.SlowestEndpoints {
		fmt.Fprintf(&b, "| `%s` | %.2f | %.2f | %.2f | %d |\n",
			ep.Endpoint, ep.Stats.Avg, ep.Stats.P95, ep.Stats.Max, ep.Stats.Count)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Capacity\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Peak hour | %02d:00 |\n", c.PeakHour)
	fmt.Fprintf(&b, "| Peak requests per hour | %d |\n", c.PeakRequestsPerHour)
	fmt.Fprintf(&b, "| Average requests per hour | %.2f |\n", c.AvgRequestsPerHour)
	fmt.Fprintf(&b, "| Peak to average ratio | %.2f |\n", c.PeakToAvgRatio)
	fmt.Fprintf(&b, "| CPU headroom | %.2f%% |\n", c.CPUHeadroomPct)
	fmt.Fprintf(&b, "| Memory headroom | %.2f%% |\n", c.MemoryHeadroomPct)
	fmt.Fprintf(&b, "| Current peak RPS | %.2f |\n", c.CurrentPeakRPS)
	fmt.Fprintf(&b, "| Estimated max RPS | %.2f |\n\n", c.EstimatedMaxRPS)

	fmt.Fprintf(&b, "### Scaling Recommendations\n\n")
	for _, rec := range c.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "### Suggested Alert Thresholds\n\n")
	fmt.Fprintf(&b, "| Signal | Warning | Critical | Baseline (P95) |\n|---|---|---|---|\n")
	fmt.Fprintf(&b, "| Response time (ms) | %.2f | %.2f | %.2f |\n",
		c.ResponseTimeAlert.Warning, c.ResponseTimeAlert.Critical, c.ResponseTimeAlert.Baseline)
	fmt.Fprintf(&b, "| CPU (%%) | %.2f | %.2f | %.2f |\n",
		c.CPUAlert.Warning, c.CPUAlert.Critical, c.CPUAlert.Baseline)
	fmt.Fprintf(&b, "| Memory (%%) | %.2f | %.2f | %.2f |\n",
		c.MemoryAlert.Warning, c.MemoryAlert.Critical, c.MemoryAlert.Baseline)
	fmt.Fprintf(&b, "| Query time (ms) | %.2f | %.2f | %.2f |\n\n",
		c.QueryTimeAlert.Warning, c.QueryTimeAlert.Critical, c.QueryTimeAlert.Baseline)

	fmt.Fprintf(&b, "See also: [Error Analysis Report](%s), [Security Analysis Report](%s), [Analysis Summary](%s)\n",
		ErrorReportFile, SecurityReportFile, SummaryReportFile)
	return b.String()
}

// SummaryReport renders the cross-report summary. Every figure repeated
// here is taken from the same Analysis the detail reports render, so the
// documents cannot disagree.
func SummaryReport(a *Analysis, generatedAt time.Time) string {
	score := a.HealthScore()
	var b strings.Builder

	fmt.Fprintf(&b, "# Analysis Summary\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	fmt.Fprintf(&b, "## System Health\n\n")
	fmt.Fprintf(&b, "Overall health score: **%.1f / 100 (grade %s)**\n\n", score, HealthGrade(score))

	fmt.Fprintf(&b, "## Key Figures\n\n")
	fmt.Fprintf(&b, "| Metric | Value | Detail |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| Total log entries | %d | [Error Analysis Report](%s) |\n", a.Errors.TotalLogs, ErrorReportFile)
	fmt.Fprintf(&b, "| Errors | %d (%.2f%%) | [Error Analysis Report](%s) |\n", a.Errors.ErrorCount, a.Errors.ErrorRatePct, ErrorReportFile)
	fmt.Fprintf(&b, "| Warnings | %d (%.2f%%) | [Error Analysis Report](%s) |\n", a.Errors.WarningCount, a.Errors.WarningRatePct, ErrorReportFile)
	fmt.Fprintf(&b, "| Failed logins | %d | [Security Analysis Report](%s) |\n", a.Security.FailedLoginCount, SecurityReportFile)
	fmt.Fprintf(&b, "| Brute force sources | %d | [Security Analysis Report](%s) |\n", len(a.Security.BruteForceIPs), SecurityReportFile)
	fmt.Fprintf(&b, "| Slow requests | %d | [Performance Analysis Report](%s) |\n", a.Performance.SlowRequestCount, PerformanceReportFile)
	fmt.Fprintf(&b, "| Slow queries | %d | [Performance Analysis Report](%s) |\n", a.Performance.SlowQueryCount, PerformanceReportFile)
	fmt.Fprintf(&b, "| P95 response time | %.2f ms | [Performance Analysis Report](%s) |\n\n", a.Performance.ResponseTimeStats.P95, PerformanceReportFile)

	fmt.Fprintf(&b, "## Service Availability\n\n")
	fmt.Fprintf(&b, "| Service | Availability | Status |\n|---|---|---|\n")
	for _, s := range a.Health.Services {
		fmt.Fprintf(&b, "| %s | %.2f%% | %s |\n", s.Service, s.AvailabilityPct, s.Status)
	}
	fmt.Fprintf(&b, "\nAverage availability: %.2f%%\n\n", a.Health.AvgAvailability)

	fmt.Fprintf(&b, "## Recommendations\n\n")
	for _, rec := range a.Capacity.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Reports: [Error Analysis Report](%s), [Security Analysis Report](%s), [Performance Analysis Report](%s)\n",
		ErrorReportFile, SecurityReportFile, PerformanceReportFile)
	return b.String()
}

func writeCountTable(b *strings.Builder, label string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Fprintf(b, "| %s | Count |\n|---|---|\n", label)
	for _, k := range keys {
		fmt.Fprintf(b, "| %s | %d |\n", k, counts[k])
	}
	b.WriteString("\n")
}

func writeStatsTable(b *strings.Builder, label string, s Stats) {
	fmt.Fprintf(b, "| %s | Value |\n|---|---|\n", label)
	fmt.Fprintf(b, "| Samples | %d |\n", s.Count)
	fmt.Fprintf(b, "| Min | %.2f |\n", s.Min)
	fmt.Fprintf(b, "| Avg | %.2f |\n", s.Avg)
	fmt.Fprintf(b, "| Median | %.2f |\n", s.Median)
	fmt.Fprintf(b, "| P95 | %.2f |\n", s.P95)
	fmt.Fprintf(b, "| P99 | %.2f |\n", s.P99)
	fmt.Fprintf(b, "| Max | %.2f |\n\n", s.Max)
}
