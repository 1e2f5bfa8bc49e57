package types

import "time"

// Event records one execution of code marked by a tombstone. Events are
// append-only; a tombstone with any event inside the observation window is
// alive regardless of what static analysis claims.
//
// Events carry the full call site because they may arrive before the
// tombstone itself syncs to the registry.
type Event struct {
	EventID      string            `json:"event_id"`
	TombstoneID  string            `json:"tombstone_id"`
	ProjectName  string            `json:"project_name"`
	FunctionName string            `json:"function_name"`
	FilePath     string            `json:"file_path"`
	LineNumber   int               `json:"line_number"`
	TriggeredAt  time.Time         `json:"triggered_at"`
	Context      map[string]string `json:"context,omitempty"`
}
