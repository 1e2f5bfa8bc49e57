// Package logs generates and analyzes application log streams: error
// patterns, security incidents, performance anomalies, capacity planning,
// and per-service health, with markdown report rendering.
package logs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is one structured log record. Only the fields relevant to the
// record's kind are set; the rest stay at their zero value and are omitted
// from the JSONL encoding.
type Entry struct {
	Timestamp time.Time `json:"@timestamp"`
	Level     string    `json:"level,omitempty"`
	Service   string    `json:"service,omitempty"`
	Message   string    `json:"message,omitempty"`
	Host      string    `json:"host,omitempty"`

	ErrorCode string `json:"error_code,omitempty"`

	Endpoint       string   `json:"endpoint,omitempty"`
	Method         string   `json:"method,omitempty"`
	StatusCode     int      `json:"status_code,omitempty"`
	ResponseTimeMS *float64 `json:"response_time_ms,omitempty"`
	ClientIP       string   `json:"client_ip,omitempty"`

	Table        string   `json:"table,omitempty"`
	Operation    string   `json:"operation,omitempty"`
	QueryTimeMS  *float64 `json:"query_time_ms,omitempty"`
	RowsAffected int      `json:"rows_affected,omitempty"`

	UserID       string `json:"user_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
	AttemptCount int    `json:"attempt_count,omitempty"`
	ActivityType string `json:"activity_type,omitempty"`
	Blocked      bool   `json:"blocked,omitempty"`
	BlockedIP    string `json:"blocked_ip,omitempty"`

	CPUUsagePercent    *float64 `json:"cpu_usage_percent,omitempty"`
	MemoryUsagePercent *float64 `json:"memory_usage_percent,omitempty"`
	DiskIOPercent      *float64 `json:"disk_io_percent,omitempty"`
	PoolUtilizationPct *float64 `json:"pool_utilization_pct,omitempty"`
}

// ReadJSONL loads log entries from a JSON-lines file. Malformed lines are
// skipped so a partially corrupted capture still yields its good records.
func ReadJSONL(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading log file: %w", err)
	}
	return entries, nil
}

// WriteJSONL writes entries as JSON lines using the temp-file, fsync,
// rename pattern so readers never observe a partial file.
func WriteJSONL(path string, entries []Entry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".logs-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("encoding entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing entries: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming log file: %w", err)
	}
	return nil
}

func floatPtr(v float64) *float64 { return &v }
