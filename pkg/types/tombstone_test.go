package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTombstoneID(t *testing.T) {
	id := DeriveTombstoneID("billing", "internal/ledger/post.go", "settleBatch", 142)

	assert.Len(t, id, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", id)

	// Same site always derives the same ID.
	again := DeriveTombstoneID("billing", "internal/ledger/post.go", "settleBatch", 142)
	assert.Equal(t, id, again)
}

func TestDeriveTombstoneIDDistinctSites(t *testing.T) {
	base := DeriveTombstoneID("billing", "post.go", "settleBatch", 142)

	tests := []struct {
		name     string
		project  string
		file     string
		function string
		line     int
	}{
		{"different project", "payments", "post.go", "settleBatch", 142},
		{"different file", "billing", "refund.go", "settleBatch", 142},
		{"different function", "billing", "post.go", "settleOne", 142},
		{"different line", "billing", "post.go", "settleBatch", 143},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveTombstoneID(tt.project, tt.file, tt.function, tt.line)
			assert.NotEqual(t, base, got)
		})
	}
}

func TestNewTombstone(t *testing.T) {
	ts := NewTombstone("billing", "internal/ledger/post.go", "settleBatch", 142, "unused since v2 migration")

	assert.Equal(t, DeriveTombstoneID("billing", "internal/ledger/post.go", "settleBatch", 142), ts.TombstoneID)
	assert.Equal(t, "billing", ts.ProjectName)
	assert.Equal(t, "internal/ledger/post.go", ts.FilePath)
	assert.Equal(t, "settleBatch", ts.FunctionName)
	assert.Equal(t, 142, ts.LineNumber)
	assert.Equal(t, "unused since v2 migration", ts.Reason)
	assert.Equal(t, StatusActive, ts.Status)
	assert.False(t, ts.RegisteredAt.IsZero())
	assert.Equal(t, ts.RegisteredAt, ts.UpdatedAt)
}

func TestTombstoneSetStatus(t *testing.T) {
	tests := []struct {
		name       string
		initial    string
		target     string
		wantErr    error
		wantStatus string
	}{
		{
			name:       "active to removed",
			initial:    StatusActive,
			target:     StatusRemoved,
			wantStatus: StatusRemoved,
		},
		{
			name:       "active to dismissed",
			initial:    StatusActive,
			target:     StatusDismissed,
			wantStatus: StatusDismissed,
		},
		{
			name:    "dismissed cannot reactivate",
			initial: StatusDismissed,
			target:  StatusActive,
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "removed is terminal",
			initial: StatusRemoved,
			target:  StatusActive,
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "removed cannot be dismissed",
			initial: StatusRemoved,
			target:  StatusDismissed,
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "dismissed cannot be removed",
			initial: StatusDismissed,
			target:  StatusRemoved,
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "invalid status rejected",
			initial: StatusActive,
			target:  "buried",
			wantErr: ErrInvalidState,
		},
		{
			name:    "empty status rejected",
			initial: StatusActive,
			target:  "",
			wantErr: ErrInvalidState,
		},
		{
			name:       "idempotent set same status",
			initial:    StatusRemoved,
			target:     StatusRemoved,
			wantStatus: StatusRemoved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := &Tombstone{
				TombstoneID: "test-id",
				Status:      tt.initial,
				UpdatedAt:   time.Now().Add(-time.Hour),
			}
			before := ts.UpdatedAt

			err := ts.SetStatus(tt.target)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.initial, ts.Status, "status should not change on error")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantStatus, ts.Status)
				assert.True(t, ts.UpdatedAt.After(before) || ts.UpdatedAt.Equal(before),
					"UpdatedAt should be refreshed")
			}
		})
	}
}

func TestTombstoneMarkRemoved(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		wantErr error
	}{
		{
			name:    "from active succeeds",
			initial: StatusActive,
		},
		{
			name:    "from removed is idempotent",
			initial: StatusRemoved,
		},
		{
			name:    "from dismissed fails",
			initial: StatusDismissed,
			wantErr: ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := &Tombstone{
				TombstoneID: "removed-test",
				Status:      tt.initial,
				UpdatedAt:   time.Now().Add(-time.Hour),
			}

			err := ts.MarkRemoved()

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.initial, ts.Status, "status should not change on error")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, StatusRemoved, ts.Status)
			}
		})
	}
}

func TestTombstoneDismiss(t *testing.T) {
	tests := []struct {
		name       string
		initial    string
		reason     string
		wantErr    error
		wantReason string
	}{
		{
			name:       "from active with reason",
			initial:    StatusActive,
			reason:     "called from reflection",
			wantReason: "called from reflection",
		},
		{
			name:       "empty reason keeps existing",
			initial:    StatusActive,
			reason:     "",
			wantReason: "original reason",
		},
		{
			name:    "from removed fails",
			initial: StatusRemoved,
			reason:  "too late",
			wantErr: ErrInvalidTransition,
		},
		{
			name:       "from dismissed is idempotent",
			initial:    StatusDismissed,
			reason:     "still dismissed",
			wantReason: "still dismissed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := &Tombstone{
				TombstoneID: "dismiss-test",
				Reason:      "original reason",
				Status:      tt.initial,
				UpdatedAt:   time.Now().Add(-time.Hour),
			}

			err := ts.Dismiss(tt.reason)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.initial, ts.Status, "status should not change on error")
				assert.Equal(t, "original reason", ts.Reason, "reason should not change on error")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, StatusDismissed, ts.Status)
				assert.Equal(t, tt.wantReason, ts.Reason)
			}
		})
	}
}

func TestTombstoneStatusTimestamps(t *testing.T) {
	ts := NewTombstone("billing", "post.go", "settleBatch", 142, "")
	registered := ts.RegisteredAt
	ts.UpdatedAt = ts.UpdatedAt.Add(-time.Hour)
	before := ts.UpdatedAt

	err := ts.MarkRemoved()
	assert.NoError(t, err)
	assert.Equal(t, registered, ts.RegisteredAt, "RegisteredAt must not change")
	assert.True(t, ts.UpdatedAt.After(before), "UpdatedAt should advance")
}

func TestTombstoneSite(t *testing.T) {
	ts := &Tombstone{
		FunctionName: "settleBatch",
		FilePath:     "internal/ledger/post.go",
		LineNumber:   142,
	}

	assert.Equal(t, "internal/ledger/post.go:142 (settleBatch)", ts.Site())
}
