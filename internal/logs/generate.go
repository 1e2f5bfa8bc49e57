package logs

import (
	"fmt"
	"math/rand"
	"time"
)

// endpointProfile carries the latency envelope of one API route.
type endpointProfile struct {
	path    string
	method  string
	baseMS  int
	worstMS int
}

var endpointProfiles = []endpointProfile{
	{"/api/v1/users", "GET", 50, 150},
	{"/api/v1/users/{id}", "GET", 30, 100},
	{"/api/v1/orders", "GET", 100, 300},
	{"/api/v1/orders", "POST", 150, 400},
	{"/api/v1/products", "GET", 40, 120},
	{"/api/v1/products/search", "GET", 200, 500},
	{"/api/v1/auth/login", "POST", 80, 200},
	{"/api/v1/auth/refresh", "POST", 20, 60},
	{"/api/v1/payments", "POST", 300, 800},
	{"/api/v1/reports/generate", "POST", 500, 2000},
	{"/api/v1/health", "GET", 5, 20},
	{"/api/v1/metrics", "GET", 10, 30},
}

var dbTables = []string{"users", "orders", "products", "payments", "sessions", "audit_logs"}

var serviceNames = []string{
	"user-service", "order-service", "payment-service",
	"notification-service", "auth-service", "api-gateway",
}

var errorKinds = [][2]string{
	{"CONN_TIMEOUT", "Connection to upstream service timed out"},
	{"VALIDATION_FAILED", "Invalid request payload"},
	{"RATE_LIMIT", "Rate limit exceeded for client"},
	{"DB_DEADLOCK", "Deadlock detected in transaction"},
	{"CACHE_MISS", "Cache miss for frequently accessed key"},
}

// attackerIP sits outside every private range so the security analysis
// classifies it as external.
const attackerIP = "203.0.113.42"

// trafficMultiplier scales request volume by hour of day: quiet overnight,
// peaking through business hours.
func trafficMultiplier(hour int) float64 {
	switch {
	case hour >= 2 && hour < 6:
		return 0.2
	case hour >= 6 && hour < 9:
		return 0.6
	case hour >= 9 && hour < 12:
		return 1.0
	case hour >= 12 && hour < 14:
		return 0.8
	case hour >= 14 && hour < 18:
		return 1.0
	case hour >= 18 && hour < 22:
		return 0.5
	default:
		return 0.3
	}
}

// Generate produces a deterministic 24-hour log stream starting at day's
// midnight: HTTP traffic following the hourly pattern, database queries
// with occasional slow outliers, resource metrics with a slow memory climb,
// background errors, and one brute-force incident from an external IP.
func Generate(seed int64, day time.Time) []Entry {
	r := rand.New(rand.NewSource(seed))
	base := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	var entries []Entry
	for minute := 0; minute < 1440; minute++ {
		ts := base.Add(time.Duration(minute) * time.Minute)
		mult := trafficMultiplier(minute / 60)

		entries = append(entries, httpEntries(r, ts, mult)...)
		entries = append(entries, databaseEntries(r, ts, mult)...)

		if minute%5 == 0 {
			entries = append(entries, metricsEntry(r, ts, minute, mult))
		}
		if r.Float64() < 0.01 {
			kind := errorKinds[r.Intn(len(errorKinds))]
			entries = append(entries, Entry{
				Timestamp: ts,
				Level:     "ERROR",
				Service:   serviceNames[r.Intn(len(serviceNames))],
				Message:   kind[1],
				ErrorCode: kind[0],
			})
		}
		if r.Float64() < 0.02 {
			entries = append(entries, Entry{
				Timestamp: ts,
				Level:     "WARN",
				Service:   serviceNames[r.Intn(len(serviceNames))],
				Message:   "Response time above soft threshold",
			})
		}
	}

	entries = append(entries, bruteForceIncident(base)...)
	return entries
}

func httpEntries(r *rand.Rand, ts time.Time, mult float64) []Entry {
	count := int(float64(5+r.Intn(16)) * mult)
	out := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		ep := endpointProfiles[r.Intn(len(endpointProfiles))]

		var responseMS float64
		if r.Float64() < 0.02 {
			responseMS = float64(ep.worstMS + r.Intn(ep.worstMS*2+1))
		} else {
			responseMS = float64(ep.baseMS + r.Intn(ep.worstMS-ep.baseMS+1))
		}

		status := 200
		switch v := r.Float64(); {
		case v >= 0.98:
			status = []int{500, 502, 503}[r.Intn(3)]
		case v >= 0.95:
			status = []int{400, 401, 403, 404}[r.Intn(4)]
		}

		level := "INFO"
		if status >= 500 {
			level = "ERROR"
		}
		out = append(out, Entry{
			Timestamp:      ts,
			Level:          level,
			Service:        "api-gateway",
			Message:        fmt.Sprintf("%s %s completed with %d", ep.method, ep.path, status),
			Endpoint:       ep.path,
			Method:         ep.method,
			StatusCode:     status,
			ResponseTimeMS: floatPtr(responseMS),
			ClientIP:       fmt.Sprintf("192.168.1.%d", 1+r.Intn(49)),
			Host:           fmt.Sprintf("api-server-%d", 1+r.Intn(3)),
		})
	}
	return out
}

func databaseEntries(r *rand.Rand, ts time.Time, mult float64) []Entry {
	count := int(float64(3+r.Intn(8)) * mult)
	out := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		op := []string{"SELECT", "INSERT", "UPDATE", "DELETE"}[r.Intn(4)]

		var baseMS int
		switch op {
		case "SELECT":
			baseMS = 5 + r.Intn(46)
		case "INSERT":
			baseMS = 10 + r.Intn(21)
		case "UPDATE":
			baseMS = 15 + r.Intn(46)
		default:
			baseMS = 10 + r.Intn(31)
		}

		queryMS := float64(baseMS)
		if r.Float64() < 0.03 {
			queryMS = float64(baseMS * (5 + r.Intn(16)))
		}
		out = append(out, Entry{
			Timestamp:    ts,
			Level:        "INFO",
			Service:      "database-service",
			Message:      fmt.Sprintf("%s on %s", op, dbTables[r.Intn(len(dbTables))]),
			Table:        dbTables[r.Intn(len(dbTables))],
			Operation:    op,
			QueryTimeMS:  floatPtr(queryMS),
			RowsAffected: 1 + r.Intn(1000),
			Host:         "db-primary-1",
		})
	}
	return out
}

// metricsEntry emits one resource sample. Memory carries a slow linear
// climb over the day on top of the traffic-driven load, so the trend
// analysis has a leak to find.
func metricsEntry(r *rand.Rand, ts time.Time, minute int, mult float64) Entry {
	cpu := 20 + mult*30 + (r.Float64()*15 - 5)
	memory := 45 + mult*10 + float64(minute)/1440*15 + (r.Float64()*4 - 2)
	disk := (10 + r.Float64()*40) * mult
	pool := 50*mult + float64(r.Intn(21))

	return Entry{
		Timestamp:          ts,
		Level:              "INFO",
		Service:            "metrics-collector",
		Message:            "resource sample",
		CPUUsagePercent:    floatPtr(round2(cpu)),
		MemoryUsagePercent: floatPtr(round2(memory)),
		DiskIOPercent:      floatPtr(round2(disk)),
		PoolUtilizationPct: floatPtr(round2(pool)),
		Host:               fmt.Sprintf("api-server-%d", 1+r.Intn(3)),
	}
}

// bruteForceIncident injects a short failed-login cluster from an external
// address, ending with a lockout and a firewall block.
func bruteForceIncident(base time.Time) []Entry {
	start := base.Add(3*time.Hour + 17*time.Minute)
	var out []Entry
	for i := 0; i < 6; i++ {
		out = append(out, Entry{
			Timestamp:    start.Add(time.Duration(i*20) * time.Second),
			Level:        "WARN",
			Service:      "auth-service",
			Message:      "Failed login attempt for user account",
			UserID:       "jsmith",
			ClientIP:     attackerIP,
			Reason:       "invalid_password",
			AttemptCount: i + 1,
		})
	}
	out = append(out,
		Entry{
			Timestamp:    start.Add(2*time.Minute + 30*time.Second),
			Level:        "WARN",
			Service:      "auth-service",
			Message:      "Account locked after repeated failures",
			UserID:       "jsmith",
			ClientIP:     attackerIP,
			ActivityType: "credential_stuffing",
		},
		Entry{
			Timestamp: start.Add(3 * time.Minute),
			Level:     "ERROR",
			Service:   "firewall",
			Message:   "IP blocked for suspicious login activity",
			BlockedIP: attackerIP,
			Blocked:   true,
		},
		Entry{
			Timestamp: start.Add(3*time.Minute + 10*time.Second),
			Level:     "WARN",
			Service:   "api-gateway",
			Message:   "Rate limit exceeded for client",
			ClientIP:  attackerIP,
		},
	)
	return out
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
