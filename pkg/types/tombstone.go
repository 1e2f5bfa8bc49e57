package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Tombstone statuses. A tombstone starts active and ends removed or dismissed.
const (
	StatusActive    = "active"
	StatusRemoved   = "removed"
	StatusDismissed = "dismissed"
)

// validStatuses is the set of recognized tombstone status values.
var validStatuses = map[string]bool{
	StatusActive:    true,
	StatusRemoved:   true,
	StatusDismissed: true,
}

// validStatusTransitions maps a current status to the statuses it may move to.
// Setting the current status again is always allowed.
var validStatusTransitions = map[string]map[string]bool{
	StatusActive:    {StatusRemoved: true, StatusDismissed: true},
	StatusRemoved:   {},
	StatusDismissed: {},
}

// Tombstone marks a function suspected of being dead code. It stays active
// until the code is deleted (removed) or the suspicion is withdrawn
// (dismissed). Any event recorded against it means the code ran.
type Tombstone struct {
	TombstoneID  string    `json:"tombstone_id"`
	ProjectName  string    `json:"project_name"`
	FunctionName string    `json:"function_name"`
	FilePath     string    `json:"file_path"`
	LineNumber   int       `json:"line_number"`
	Reason       string    `json:"reason,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
	Status       string    `json:"status"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DeriveTombstoneID returns the deterministic identifier for a call site:
// the first 16 hex characters of sha256("project:file:function:line").
// The same site always derives the same ID, so re-registration is an upsert.
func DeriveTombstoneID(project, file, function string, line int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s:%d", project, file, function, line)))
	return hex.EncodeToString(sum[:])[:16]
}

// NewTombstone builds an active tombstone for the given call site with its
// ID derived from the site coordinates. Timestamps are set to now in UTC.
func NewTombstone(project, file, function string, line int, reason string) *Tombstone {
	now := time.Now().UTC()
	return &Tombstone{
		TombstoneID:  DeriveTombstoneID(project, file, function, line),
		ProjectName:  project,
		FunctionName: function,
		FilePath:     file,
		LineNumber:   line,
		Reason:       reason,
		RegisteredAt: now,
		Status:       StatusActive,
		UpdatedAt:    now,
	}
}

// SetStatus moves the tombstone to the given status.
// Returns ErrInvalidState if the status is not recognized and
// ErrInvalidTransition if the move is not allowed from the current status.
// Idempotent: setting the current status succeeds without error.
func (t *Tombstone) SetStatus(status string) error {
	if !validStatuses[status] {
		return ErrInvalidState
	}
	if status == t.Status {
		return nil
	}
	allowed, ok := validStatusTransitions[t.Status]
	if !ok || !allowed[status] {
		return ErrInvalidTransition
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkRemoved records that the marked code has been deleted.
// Removed is terminal; no further transitions are possible.
func (t *Tombstone) MarkRemoved() error {
	return t.SetStatus(StatusRemoved)
}

// Dismiss withdraws the dead-code suspicion, keeping the reason for the
// record. Dismissed is terminal; a later analysis pass that flags the same
// site again registers under the same derived ID without changing status.
func (t *Tombstone) Dismiss(reason string) error {
	if err := t.SetStatus(StatusDismissed); err != nil {
		return err
	}
	if reason != "" {
		t.Reason = reason
	}
	return nil
}

// Site returns the call site as "file:line (function)" for display.
func (t *Tombstone) Site() string {
	return fmt.Sprintf("%s:%d (%s)", t.FilePath, t.LineNumber, t.FunctionName)
}
