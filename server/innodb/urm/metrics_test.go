package urm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportUtilizationPercentage(t *testing.T) {
	m := NewManager(4, 4)
	r := m.Register(1, 1)
	require.NotNil(t, r)

	report := m.Report()
	assert.Equal(t, 1, report.Utilization)
	assert.Equal(t, 4, report.Capacity)
	assert.Equal(t, "25", report.UtilizationPct.String())
}

func TestReportZeroCapacity(t *testing.T) {
	m := NewManager(0, 0)
	report := m.Report()
	assert.True(t, report.UtilizationPct.IsZero())
}
