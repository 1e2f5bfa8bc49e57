package logs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

func TestGenerateIsDeterministic(t *testing.T) {
	first := Generate(21, testDay)
	second := Generate(21, testDay)
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
}

func TestGenerateInjectsSecurityIncident(t *testing.T) {
	entries := Generate(21, testDay)

	failed := 0
	for _, e := range entries {
		if e.ClientIP == attackerIP && strings.Contains(strings.ToLower(e.Message), "failed login") {
			failed++
		}
	}
	assert.Equal(t, 6, failed)
}

func TestAnalyzeErrorsCategorizesByService(t *testing.T) {
	entries := []Entry{
		{Level: "ERROR", Service: "database-service", ErrorCode: "DB_DEADLOCK"},
		{Level: "ERROR", Service: "api-gateway"},
		{Level: "ERROR", Service: "payment-service"},
		{Level: "ERROR", Service: "scheduler"},
		{Level: "WARN", Service: "api-gateway"},
		{Level: "INFO", Service: "api-gateway"},
	}

	a := AnalyzeErrors(entries)
	assert.Equal(t, 6, a.TotalLogs)
	assert.Equal(t, 4, a.ErrorCount)
	assert.Equal(t, 1, a.WarningCount)
	assert.Equal(t, 1, a.Categories["database"])
	assert.Equal(t, 1, a.Categories["network"])
	assert.Equal(t, 1, a.Categories["application"])
	assert.Equal(t, 1, a.Categories["system"])
	assert.Equal(t, 1, a.ErrorsByCode["DB_DEADLOCK"])
	assert.InDelta(t, 66.67, a.ErrorRatePct, 0.01)
}

func TestAnalyzeSecurityFlagsBruteForce(t *testing.T) {
	entries := []Entry{
		{Message: "Failed login attempt for user account", ClientIP: "203.0.113.9"},
		{Message: "Failed login attempt for user account", ClientIP: "203.0.113.9"},
		{Message: "Failed login attempt for user account", ClientIP: "203.0.113.9"},
		{Message: "Failed login attempt for user account", ClientIP: "192.168.1.4"},
		{Message: "Account locked after repeated failures", ActivityType: "credential_stuffing"},
		{Message: "Rate limit exceeded for client"},
	}

	a := AnalyzeSecurity(entries)
	assert.Equal(t, 4, a.FailedLoginCount)
	assert.Equal(t, []string{"203.0.113.9"}, a.BruteForceIPs)
	assert.Equal(t, []string{"203.0.113.9"}, a.ExternalIPs)
	assert.Equal(t, 1, a.SuspiciousCount)
	assert.Equal(t, 1, a.AccountLockouts)
	assert.Equal(t, 1, a.RateLimitViolations)
}

func TestIsExternalIP(t *testing.T) {
	assert.False(t, isExternalIP(""))
	assert.False(t, isExternalIP("127.0.0.1"))
	assert.False(t, isExternalIP("192.168.1.20"))
	assert.False(t, isExternalIP("10.4.0.9"))
	assert.False(t, isExternalIP("172.16.0.1"))
	assert.False(t, isExternalIP("172.31.255.255"))
	assert.True(t, isExternalIP("172.32.0.1"))
	assert.True(t, isExternalIP("203.0.113.42"))
	assert.True(t, isExternalIP("8.8.8.8"))
}

func TestAnalyzePerformanceThresholds(t *testing.T) {
	entries := []Entry{
		{Endpoint: "/api/v1/reports", ResponseTimeMS: floatPtr(1500)},
		{Endpoint: "/api/v1/reports", ResponseTimeMS: floatPtr(1200)},
		{Endpoint: "/api/v1/health", ResponseTimeMS: floatPtr(10)},
		{QueryTimeMS: floatPtr(250)},
		{QueryTimeMS: floatPtr(40)},
	}

	a := AnalyzePerformance(entries)
	assert.Equal(t, 2, a.SlowRequestCount)
	assert.Equal(t, 1, a.SlowQueryCount)
	require.NotEmpty(t, a.SlowestEndpoints)
	assert.Equal(t, "/api/v1/reports", a.SlowestEndpoints[0].Endpoint)
	require.Len(t, a.SlowEndpoints, 1)
	assert.Equal(t, "/api/v1/reports", a.SlowEndpoints[0].Endpoint)
}

func TestMemoryTrendDetectsGrowth(t *testing.T) {
	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 50
	}
	assert.False(t, memoryTrend(flat).PotentialLeak)

	climbing := make([]float64, 40)
	for i := range climbing {
		climbing[i] = 40 + float64(i)
	}
	trend := memoryTrend(climbing)
	assert.True(t, trend.PotentialLeak)
	assert.Greater(t, trend.GrowthPct, 10.0)
}

func TestAnalyzeCapacityDerivesThresholds(t *testing.T) {
	perf := PerformanceAnalysis{
		ResponseTimeStats: Stats{P95: 200},
		QueryTimeStats:    Stats{P95: 50},
		CPUStats:          Stats{P95: 70},
		MemoryStats:       Stats{P95: 60},
	}
	entries := []Entry{
		{Timestamp: testDay.Add(9 * time.Hour), ResponseTimeMS: floatPtr(10)},
		{Timestamp: testDay.Add(9 * time.Hour), ResponseTimeMS: floatPtr(10)},
		{Timestamp: testDay.Add(3 * time.Hour), ResponseTimeMS: floatPtr(10)},
	}

	c := AnalyzeCapacity(entries, perf)
	assert.Equal(t, 9, c.PeakHour)
	assert.Equal(t, 2, c.PeakRequestsPerHour)
	assert.InDelta(t, 1.5, c.AvgRequestsPerHour, 0.001)
	assert.InDelta(t, 30, c.CPUHeadroomPct, 0.001)
	assert.InDelta(t, 40, c.MemoryHeadroomPct, 0.001)
	assert.InDelta(t, 300, c.ResponseTimeAlert.Warning, 0.001)
	assert.InDelta(t, 500, c.ResponseTimeAlert.Critical, 0.001)
	assert.InDelta(t, 85, c.CPUAlert.Warning, 0.001)
	assert.InDelta(t, 95, c.CPUAlert.Critical, 0.001)
	assert.InDelta(t, 70, c.MemoryAlert.Warning, 0.001)
	assert.InDelta(t, 75, c.MemoryAlert.Critical, 0.001)
	assert.InDelta(t, 150, c.QueryTimeAlert.Warning, 0.001)
	assert.InDelta(t, 500, c.QueryTimeAlert.Critical, 0.001)
	assert.NotEmpty(t, c.Recommendations)
}

func TestAnalyzeHealthGradesServices(t *testing.T) {
	var entries []Entry
	for i := 0; i < 100; i++ {
		entries = append(entries, Entry{Level: "INFO", Service: "steady"})
		level := "INFO"
		if i < 10 {
			level = "ERROR"
		}
		entries = append(entries, Entry{Level: level, Service: "flaky"})
	}

	a := AnalyzeHealth(entries)
	require.Len(t, a.Services, 2)
	byName := map[string]ServiceHealth{}
	for _, s := range a.Services {
		byName[s.Service] = s
	}
	assert.Equal(t, "healthy", byName["steady"].Status)
	assert.Equal(t, "unhealthy", byName["flaky"].Status)
	assert.InDelta(t, 90, byName["flaky"].AvailabilityPct, 0.001)
	assert.InDelta(t, 95, a.AvgAvailability, 0.001)
}

func TestAnalyzeGeneratedDay(t *testing.T) {
	entries := Generate(21, testDay)

	a, err := Analyze(context.Background(), entries)
	require.NoError(t, err)

	assert.Contains(t, a.Security.BruteForceIPs, attackerIP)
	assert.Contains(t, a.Security.ExternalIPs, attackerIP)
	assert.True(t, a.Performance.Memory.PotentialLeak,
		"memory climbs through the day, the trend check must notice")
	assert.Greater(t, a.Performance.SlowQueryCount, 0)
	assert.Greater(t, a.Errors.ErrorCount, 0)
	assert.NotEmpty(t, a.Health.Services)

	score := a.HealthScore()
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
	assert.Contains(t, []string{"A", "B", "C", "D", "F"}, HealthGrade(score))
}

func TestWriteReportsCrossLinked(t *testing.T) {
	entries := Generate(21, testDay)
	a, err := Analyze(context.Background(), entries)
	require.NoError(t, err)

	dir := t.TempDir()
	paths, err := WriteReports(dir, a, time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, paths, 4)

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return string(data)
	}

	errorReport := read(ErrorReportFile)
	summary := read(SummaryReportFile)

	// The summary restates the error report's totals verbatim.
	totalLine := fmt.Sprintf("| Total log entries | %d |", a.Errors.TotalLogs)
	assert.Contains(t, errorReport, totalLine)
	assert.Contains(t, summary, fmt.Sprintf("| Total log entries | %d |", a.Errors.TotalLogs))
	assert.Contains(t, summary, "[Error Analysis Report](error_analysis.md)")
	assert.Contains(t, summary, "[Security Analysis Report](security_analysis.md)")
	assert.Contains(t, summary, "[Performance Analysis Report](performance_analysis.md)")
	assert.Contains(t, read(SecurityReportFile), attackerIP)
	assert.Contains(t, read(PerformanceReportFile), "Suggested Alert Thresholds")
}

func TestHealthGrade(t *testing.T) {
	assert.Equal(t, "A", HealthGrade(95))
	assert.Equal(t, "B", HealthGrade(85))
	assert.Equal(t, "C", HealthGrade(72))
	assert.Equal(t, "D", HealthGrade(60))
	assert.Equal(t, "F", HealthGrade(12))
}

func TestJSONLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs.jsonl")

	entries := Generate(3, testDay)[:50]
	require.NoError(t, WriteJSONL(path, entries))

	// Append garbage; the reader skips lines it cannot parse.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := ReadJSONL(path)
	require.NoError(t, err)
	require.Len(t, got, 50)
	assert.Equal(t, entries[0].Service, got[0].Service)
	assert.Equal(t, entries[0].Timestamp.Unix(), got[0].Timestamp.Unix())
}
