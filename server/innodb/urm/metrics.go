package urm

import (
	"github.com/shopspring/decimal"
	"github.com/zhukovaskychina/xmysql-server/logger"
)

// Report is a point-in-time usage snapshot, suitable for logging on a timer
// or exposing through a status endpoint.
type Report struct {
	Capacity       int
	SoftSizeLimit  int
	Utilization    int
	UtilizationPct decimal.Decimal
	OldestFXID     FXID
}

// Report snapshots the manager's current load. UtilizationPct is computed
// with shopspring/decimal rather than float64 so that a logged "73.42%"
// never drifts from the integer counts it was derived from.
func (m *Manager) Report() Report {
	m.lock.Lock()
	utilization := m.utilization
	capacity := m.capacity
	soft := m.softLimit
	m.lock.Unlock()

	pct := decimal.Zero
	if capacity > 0 {
		pct = decimal.NewFromInt(int64(utilization)).
			Div(decimal.NewFromInt(int64(capacity))).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	return Report{
		Capacity:       capacity,
		SoftSizeLimit:  soft,
		Utilization:    utilization,
		UtilizationPct: pct,
		OldestFXID:     m.OldestFXID(),
	}
}

// LogReport writes a one-line summary of Report at info level, in the
// %s-heavy style logger.Infof calls use throughout this repository.
func (m *Manager) LogReport() {
	r := m.Report()
	logger.Infof("urm: utilization=%d/%d (%s%%) soft_limit=%d oldest_fxid=%d",
		r.Utilization, r.Capacity, r.UtilizationPct.String(), r.SoftSizeLimit, r.OldestFXID)
}
