package types

import "time"

// Reconciliation check types.
const (
	CheckConfirmedDead = "confirmed_dead"
	CheckFalsePositive = "false_positive"
	CheckSinkDrift     = "sink_drift"
)

// Finding is one reconciliation result: a tombstone confirmed safe to
// delete, a tombstone that turned out to be live code, or a row that
// disagrees between the local registry and the external sink.
type Finding struct {
	CheckType   string `json:"check_type"`
	TombstoneID string `json:"tombstone_id"`
	Site        string `json:"site"`
	Detail      string `json:"detail"`
}

// ReconciliationReport summarizes one reconciliation pass over a project's
// tombstones. Counts are derived from Findings and must agree with them.
type ReconciliationReport struct {
	CorrelationID  string    `json:"correlation_id"`
	ProjectName    string    `json:"project_name"`
	GeneratedAt    time.Time `json:"generated_at"`
	WindowDays     int       `json:"window_days"`
	TotalActive    int       `json:"total_active"`
	ConfirmedDead  int       `json:"confirmed_dead"`
	FalsePositives int       `json:"false_positives"`
	SinkDrift      int       `json:"sink_drift"`
	Findings       []Finding `json:"findings"`
}

// CountByCheck returns how many findings carry the given check type.
func (r *ReconciliationReport) CountByCheck(checkType string) int {
	n := 0
	for _, f := range r.Findings {
		if f.CheckType == checkType {
			n++
		}
	}
	return n
}
