package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconciliationReportCountByCheck(t *testing.T) {
	report := &ReconciliationReport{
		Findings: []Finding{
			{CheckType: CheckConfirmedDead, TombstoneID: "a1"},
			{CheckType: CheckConfirmedDead, TombstoneID: "b2"},
			{CheckType: CheckFalsePositive, TombstoneID: "c3"},
			{CheckType: CheckSinkDrift, TombstoneID: "d4"},
		},
	}

	assert.Equal(t, 2, report.CountByCheck(CheckConfirmedDead))
	assert.Equal(t, 1, report.CountByCheck(CheckFalsePositive))
	assert.Equal(t, 1, report.CountByCheck(CheckSinkDrift))
	assert.Equal(t, 0, report.CountByCheck("unknown"))
}

func TestReconciliationReportCountByCheckEmpty(t *testing.T) {
	report := &ReconciliationReport{}

	assert.Equal(t, 0, report.CountByCheck(CheckConfirmedDead))
}
