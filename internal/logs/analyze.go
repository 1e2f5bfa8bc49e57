package logs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Thresholds used across the analyses.
const (
	slowRequestThresholdMS = 1000
	slowQueryThresholdMS   = 100
	slowEndpointP95MS      = 500
	bruteForceAttempts     = 3
	leakGrowthPct          = 10
)

// Analysis bundles the results of every analysis over one log stream.
type Analysis struct {
	Errors      ErrorAnalysis      `json:"errors"`
	Security    SecurityAnalysis   `json:"security"`
	Performance PerformanceAnalysis `json:"performance"`
	Capacity    CapacityAnalysis   `json:"capacity"`
	Health      HealthAnalysis     `json:"health"`
}

// Analyze runs all five analyses concurrently and returns the combined
// result. Each analysis reads the shared entries slice without mutating it.
func Analyze(ctx context.Context, entries []Entry) (*Analysis, error) {
	result := &Analysis{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error { result.Errors = AnalyzeErrors(entries); return nil })
	g.Go(func() error { result.Security = AnalyzeSecurity(entries); return nil })
	g.Go(func() error { result.Performance = AnalyzePerformance(entries); return nil })
	g.Go(func() error { result.Health = AnalyzeHealth(entries); return nil })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Capacity planning builds on the performance numbers.
	result.Capacity = AnalyzeCapacity(entries, result.Performance)
	return result, nil
}

// ── Error analysis ──

// ErrorDetail is one error occurrence kept for the report.
type ErrorDetail struct {
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// ErrorAnalysis summarizes error and warning patterns.
type ErrorAnalysis struct {
	TotalLogs         int            `json:"total_logs"`
	ErrorCount        int            `json:"error_count"`
	WarningCount      int            `json:"warning_count"`
	ErrorRatePct      float64        `json:"error_rate_percent"`
	WarningRatePct    float64        `json:"warning_rate_percent"`
	ErrorsByService   map[string]int `json:"errors_by_service"`
	ErrorsByCode      map[string]int `json:"errors_by_code"`
	WarningsByService map[string]int `json:"warnings_by_service"`
	Categories        map[string]int `json:"error_categories"`
	TopErrors         []ErrorDetail  `json:"top_errors"`
}

// AnalyzeErrors counts and categorizes errors and warnings. Categories
// follow the owning service: database, network (gateway), application
// (payment and notification), and system for everything else.
func AnalyzeErrors(entries []Entry) ErrorAnalysis {
	a := ErrorAnalysis{
		TotalLogs:         len(entries),
		ErrorsByService:   map[string]int{},
		ErrorsByCode:      map[string]int{},
		WarningsByService: map[string]int{},
		Categories:        map[string]int{"application": 0, "system": 0, "network": 0, "database": 0},
	}

	for _, e := range entries {
		switch e.Level {
		case "ERROR":
			a.ErrorCount++
			a.ErrorsByService[serviceOrUnknown(e)]++
			if e.ErrorCode != "" {
				a.ErrorsByCode[e.ErrorCode]++
			}
			a.Categories[errorCategory(e)]++
			if len(a.TopErrors) < 20 {
				a.TopErrors = append(a.TopErrors, ErrorDetail{
					Timestamp: e.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
					Service:   e.Service,
					Message:   e.Message,
					ErrorCode: e.ErrorCode,
				})
			}
		case "WARN":
			a.WarningCount++
			a.WarningsByService[serviceOrUnknown(e)]++
		}
	}

	if a.TotalLogs > 0 {
		a.ErrorRatePct = round2(float64(a.ErrorCount) / float64(a.TotalLogs) * 100)
		a.WarningRatePct = round2(float64(a.WarningCount) / float64(a.TotalLogs) * 100)
	}
	return a
}

func serviceOrUnknown(e Entry) string {
	if e.Service == "" {
		return "unknown"
	}
	return e.Service
}

func errorCategory(e Entry) string {
	service := strings.ToLower(e.Service)
	switch {
	case strings.Contains(service, "database") || strings.HasPrefix(e.ErrorCode, "DB_"):
		return "database"
	case strings.Contains(service, "api") || strings.Contains(service, "gateway"):
		return "network"
	case strings.Contains(service, "payment") || strings.Contains(service, "notification"):
		return "application"
	default:
		return "system"
	}
}

// ── Security analysis ──

// FailedLogin is one failed authentication attempt kept for the report.
type FailedLogin struct {
	Timestamp    string `json:"timestamp"`
	UserID       string `json:"user_id"`
	ClientIP     string `json:"client_ip"`
	Reason       string `json:"reason"`
	AttemptCount int    `json:"attempt_count"`
}

// SecurityAnalysis summarizes authentication failures and abuse signals.
type SecurityAnalysis struct {
	FailedLoginCount    int           `json:"failed_login_count"`
	SuspiciousCount     int           `json:"suspicious_activity_count"`
	BlockedIPCount      int           `json:"blocked_ip_count"`
	RateLimitViolations int           `json:"rate_limit_violations"`
	AccountLockouts     int           `json:"account_lockouts"`
	BruteForceIPs       []string      `json:"potential_brute_force_ips"`
	ExternalIPs         []string      `json:"external_ips_detected"`
	FailedLogins        []FailedLogin `json:"failed_login_details"`
}

// AnalyzeSecurity scans for failed logins, suspicious activity, blocked
// addresses, rate limiting, and lockouts. An IP with three or more failed
// logins is flagged as a potential brute force source.
func AnalyzeSecurity(entries []Entry) SecurityAnalysis {
	a := SecurityAnalysis{}
	attemptsByIP := map[string]int{}
	externals := map[string]bool{}

	for _, e := range entries {
		message := strings.ToLower(e.Message)

		if strings.Contains(message, "failed login") {
			a.FailedLoginCount++
			ip := e.ClientIP
			if ip == "" {
				ip = "unknown"
			}
			attemptsByIP[ip]++
			a.FailedLogins = append(a.FailedLogins, FailedLogin{
				Timestamp:    e.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
				UserID:       e.UserID,
				ClientIP:     e.ClientIP,
				Reason:       e.Reason,
				AttemptCount: e.AttemptCount,
			})
		}
		if strings.Contains(message, "suspicious") || e.ActivityType == "credential_stuffing" {
			a.SuspiciousCount++
		}
		if strings.Contains(message, "ip blocked") || e.Service == "firewall" {
			a.BlockedIPCount++
		}
		if strings.Contains(message, "rate limit") {
			a.RateLimitViolations++
		}
		if strings.Contains(message, "locked") && strings.Contains(message, "account") {
			a.AccountLockouts++
		}
		if isExternalIP(e.ClientIP) {
			externals[e.ClientIP] = true
		}
	}

	for ip, attempts := range attemptsByIP {
		if attempts >= bruteForceAttempts {
			a.BruteForceIPs = append(a.BruteForceIPs, ip)
		}
	}
	sort.Strings(a.BruteForceIPs)

	for ip := range externals {
		a.ExternalIPs = append(a.ExternalIPs, ip)
	}
	sort.Strings(a.ExternalIPs)
	return a
}

// isExternalIP reports whether ip falls outside the private ranges and
// loopback.
func isExternalIP(ip string) bool {
	if ip == "" || ip == "127.0.0.1" || ip == "localhost" {
		return false
	}
	if strings.HasPrefix(ip, "192.168.") || strings.HasPrefix(ip, "10.") {
		return false
	}
	if strings.HasPrefix(ip, "172.") {
		parts := strings.SplitN(ip, ".", 3)
		if len(parts) >= 2 {
			if second := parts[1]; second >= "16" && second <= "31" && len(second) == 2 {
				return false
			}
		}
	}
	return true
}

// ── Performance analysis ──

// EndpointStats carries response time statistics for one endpoint.
type EndpointStats struct {
	Endpoint string `json:"endpoint"`
	Stats    Stats  `json:"stats"`
}

// MemoryTrend compares memory usage across the capture window.
type MemoryTrend struct {
	FirstQuarterAvg float64 `json:"first_quarter_avg"`
	LastQuarterAvg  float64 `json:"last_quarter_avg"`
	GrowthPct       float64 `json:"growth_pct"`
	PotentialLeak   bool    `json:"potential_leak"`
}

// PerformanceAnalysis summarizes latency and resource behavior.
type PerformanceAnalysis struct {
	ResponseTimeStats Stats           `json:"response_time_stats"`
	QueryTimeStats    Stats           `json:"query_time_stats"`
	SlowRequestCount  int             `json:"slow_request_count"`
	SlowQueryCount    int             `json:"slow_query_count"`
	CPUStats          Stats           `json:"cpu_stats"`
	MemoryStats       Stats           `json:"memory_stats"`
	DiskStats         Stats           `json:"disk_stats"`
	SlowestEndpoints  []EndpointStats `json:"slowest_endpoints"`
	SlowEndpoints     []EndpointStats `json:"slow_endpoints"`
	Memory            MemoryTrend     `json:"memory_trend"`
}

// AnalyzePerformance computes latency statistics, flags slow requests over
// 1000ms and queries over 100ms, and checks the memory samples for a
// sustained upward trend.
func AnalyzePerformance(entries []Entry) PerformanceAnalysis {
	a := PerformanceAnalysis{}

	var responseTimes, queryTimes, cpu, memory, disk []float64
	byEndpoint := map[string][]float64{}

	for _, e := range entries {
		if e.ResponseTimeMS != nil {
			responseTimes = append(responseTimes, *e.ResponseTimeMS)
			if *e.ResponseTimeMS > slowRequestThresholdMS {
				a.SlowRequestCount++
			}
			if e.Endpoint != "" {
				byEndpoint[e.Endpoint] = append(byEndpoint[e.Endpoint], *e.ResponseTimeMS)
			}
		}
		if e.QueryTimeMS != nil {
			queryTimes = append(queryTimes, *e.QueryTimeMS)
			if *e.QueryTimeMS > slowQueryThresholdMS {
				a.SlowQueryCount++
			}
		}
		if e.Service == "metrics-collector" {
			if e.CPUUsagePercent != nil {
				cpu = append(cpu, *e.CPUUsagePercent)
			}
			if e.MemoryUsagePercent != nil {
				memory = append(memory, *e.MemoryUsagePercent)
			}
			if e.DiskIOPercent != nil {
				disk = append(disk, *e.DiskIOPercent)
			}
		}
	}

	a.ResponseTimeStats = computeStats(responseTimes)
	a.QueryTimeStats = computeStats(queryTimes)
	a.CPUStats = computeStats(cpu)
	a.MemoryStats = computeStats(memory)
	a.DiskStats = computeStats(disk)

	for endpoint, times := range byEndpoint {
		stats := computeStats(times)
		a.SlowestEndpoints = append(a.SlowestEndpoints, EndpointStats{Endpoint: endpoint, Stats: stats})
		if stats.P95 > slowEndpointP95MS {
			a.SlowEndpoints = append(a.SlowEndpoints, EndpointStats{Endpoint: endpoint, Stats: stats})
		}
	}
	sort.Slice(a.SlowestEndpoints, func(i, j int) bool {
		return a.SlowestEndpoints[i].Stats.Avg > a.SlowestEndpoints[j].Stats.Avg
	})
	if len(a.SlowestEndpoints) > 5 {
		a.SlowestEndpoints = a.SlowestEndpoints[:5]
	}
	sort.Slice(a.SlowEndpoints, func(i, j int) bool {
		return a.SlowEndpoints[i].Stats.P95 > a.SlowEndpoints[j].Stats.P95
	})

	a.Memory = memoryTrend(memory)
	return a
}

// memoryTrend flags a potential leak when the average of the last quarter
// of samples exceeds the first quarter by more than 10 percent.
func memoryTrend(samples []float64) MemoryTrend {
	if len(samples) < 8 {
		return MemoryTrend{}
	}
	quarter := len(samples) / 4
	first := avg(samples[:quarter])
	last := avg(samples[len(samples)-quarter:])

	trend := MemoryTrend{
		FirstQuarterAvg: round2(first),
		LastQuarterAvg:  round2(last),
	}
	if first > 0 {
		trend.GrowthPct = round2((last - first) / first * 100)
		trend.PotentialLeak = trend.GrowthPct > leakGrowthPct
	}
	return trend
}

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// ── Capacity analysis ──

// AlertThreshold pairs recommended warning and critical levels with the
// observed baseline they derive from.
type AlertThreshold struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
	Baseline float64 `json:"baseline"`
}

// CapacityAnalysis summarizes load headroom and derived alerting levels.
type CapacityAnalysis struct {
	PeakHour            int      `json:"peak_hour"`
	PeakRequestsPerHour int      `json:"peak_requests_per_hour"`
	AvgRequestsPerHour  float64  `json:"avg_requests_per_hour"`
	PeakToAvgRatio      float64  `json:"peak_to_avg_ratio"`
	CPUHeadroomPct      float64  `json:"cpu_headroom_pct"`
	MemoryHeadroomPct   float64  `json:"memory_headroom_pct"`
	CurrentPeakRPS      float64  `json:"current_peak_rps"`
	EstimatedMaxRPS     float64  `json:"estimated_max_rps"`
	Recommendations     []string `json:"scaling_recommendations"`

	ResponseTimeAlert AlertThreshold `json:"response_time_alert_ms"`
	CPUAlert          AlertThreshold `json:"cpu_alert_pct"`
	MemoryAlert       AlertThreshold `json:"memory_alert_pct"`
	QueryTimeAlert    AlertThreshold `json:"query_time_alert_ms"`
}

// AnalyzeCapacity derives peak load, resource headroom, and alerting
// thresholds from the observed baselines.
func AnalyzeCapacity(entries []Entry, perf PerformanceAnalysis) CapacityAnalysis {
	a := CapacityAnalysis{}

	requestsByHour := map[int]int{}
	for _, e := range entries {
		if e.ResponseTimeMS != nil {
			requestsByHour[e.Timestamp.Hour()]++
		}
	}

	total := 0
	for hour, count := range requestsByHour {
		total += count
		if count > a.PeakRequestsPerHour {
			a.PeakRequestsPerHour = count
			a.PeakHour = hour
		}
	}
	if len(requestsByHour) > 0 {
		a.AvgRequestsPerHour = round2(float64(total) / float64(len(requestsByHour)))
	}
	if a.AvgRequestsPerHour > 0 {
		a.PeakToAvgRatio = round2(float64(a.PeakRequestsPerHour) / a.AvgRequestsPerHour)
	}

	a.CPUHeadroomPct = round2(100 - perf.CPUStats.P95)
	a.MemoryHeadroomPct = round2(100 - perf.MemoryStats.P95)
	a.CurrentPeakRPS = round2(float64(a.PeakRequestsPerHour) / 3600)
	a.EstimatedMaxRPS = round2(a.CurrentPeakRPS * (1 + a.CPUHeadroomPct/100))

	switch {
	case a.CPUHeadroomPct < 20:
		a.Recommendations = append(a.Recommendations,
			"CPU headroom below 20 percent: scale out before the next traffic peak")
	case a.CPUHeadroomPct < 40:
		a.Recommendations = append(a.Recommendations,
			"CPU headroom below 40 percent: plan additional capacity this quarter")
	}
	if a.MemoryHeadroomPct < 15 {
		a.Recommendations = append(a.Recommendations,
			"memory headroom below 15 percent: add memory or reduce per-instance footprint")
	} else if a.MemoryHeadroomPct < 30 {
		a.Recommendations = append(a.Recommendations,
			"memory headroom below 30 percent: monitor growth closely")
	}
	if perf.Memory.PotentialLeak {
		a.Recommendations = append(a.Recommendations,
			fmt.Sprintf("memory usage grew %.1f percent over the capture window: investigate for a leak", perf.Memory.GrowthPct))
	}
	if len(a.Recommendations) == 0 {
		a.Recommendations = append(a.Recommendations,
			"capacity is healthy: no scaling action required")
	}

	a.ResponseTimeAlert = thresholdFrom(perf.ResponseTimeStats.P95, 1.5, 2.5)
	a.CPUAlert = AlertThreshold{
		Warning:  capAt(perf.CPUStats.P95+15, 85),
		Critical: capAt(perf.CPUStats.P95+25, 95),
		Baseline: perf.CPUStats.P95,
	}
	a.MemoryAlert = AlertThreshold{
		Warning:  capAt(perf.MemoryStats.P95+10, 85),
		Critical: capAt(perf.MemoryStats.P95+15, 95),
		Baseline: perf.MemoryStats.P95,
	}
	a.QueryTimeAlert = thresholdFrom(perf.QueryTimeStats.P95, 3, 10)
	return a
}

func thresholdFrom(baseline, warnFactor, critFactor float64) AlertThreshold {
	return AlertThreshold{
		Warning:  round2(baseline * warnFactor),
		Critical: round2(baseline * critFactor),
		Baseline: baseline,
	}
}

func capAt(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return round2(v)
}

// ── Service health ──

// ServiceHealth is one service's availability summary.
type ServiceHealth struct {
	Service         string  `json:"service"`
	TotalLogs       int     `json:"total_logs"`
	ErrorCount      int     `json:"error_count"`
	ErrorRatePct    float64 `json:"error_rate_pct"`
	AvailabilityPct float64 `json:"availability_pct"`
	Status          string  `json:"status"`
}

// HealthAnalysis summarizes per-service health derived from error rates.
type HealthAnalysis struct {
	Services       []ServiceHealth `json:"services"`
	AvgAvailability float64        `json:"avg_availability_pct"`
}

// AnalyzeHealth grades each service by error rate: healthy under 2
// percent, degraded under 5, unhealthy beyond.
func AnalyzeHealth(entries []Entry) HealthAnalysis {
	totals := map[string]int{}
	errors := map[string]int{}
	for _, e := range entries {
		if e.Service == "" {
			continue
		}
		totals[e.Service]++
		if e.Level == "ERROR" {
			errors[e.Service]++
		}
	}

	a := HealthAnalysis{}
	sum := 0.0
	for service, total := range totals {
		rate := float64(errors[service]) / float64(total) * 100
		health := ServiceHealth{
			Service:         service,
			TotalLogs:       total,
			ErrorCount:      errors[service],
			ErrorRatePct:    round2(rate),
			AvailabilityPct: round2(100 - rate),
		}
		switch {
		case rate < 2:
			health.Status = "healthy"
		case rate < 5:
			health.Status = "degraded"
		default:
			health.Status = "unhealthy"
		}
		a.Services = append(a.Services, health)
		sum += health.AvailabilityPct
	}
	sort.Slice(a.Services, func(i, j int) bool {
		return a.Services[i].Service < a.Services[j].Service
	})
	if len(a.Services) > 0 {
		a.AvgAvailability = round2(sum / float64(len(a.Services)))
	}
	return a
}

// HealthScore folds the component results into a 0..100 score: response
// time, resource headroom, query latency, and availability each contribute
// one factor.
func (a *Analysis) HealthScore() float64 {
	responseHealth := 100 - float64(len(a.Performance.SlowEndpoints))*10
	if responseHealth < 0 {
		responseHealth = 0
	}

	resourceHealth := a.Capacity.CPUHeadroomPct + a.Capacity.MemoryHeadroomPct
	if resourceHealth > 100 {
		resourceHealth = 100
	}

	dbHealth := 100.0
	if a.Performance.QueryTimeStats.Count > 0 {
		slowPct := float64(a.Performance.SlowQueryCount) / float64(a.Performance.QueryTimeStats.Count) * 100
		dbHealth -= slowPct * 10
		if dbHealth < 0 {
			dbHealth = 0
		}
	}

	serviceHealth := a.Health.AvgAvailability
	if len(a.Health.Services) == 0 {
		serviceHealth = 100
	}

	return round2((responseHealth + resourceHealth + dbHealth + serviceHealth) / 4)
}
