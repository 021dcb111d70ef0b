package urm

import "time"

const (
	firstRetryDelay    = 10 * time.Second
	subsequentRetryDelay = 30 * time.Second
)

// now is a var, not a call to time.Now, so tests can freeze the clock.
var now = time.Now

// Reschedule moves an UNLISTED req (whose foreground or background undo
// attempt just failed) to LISTED-(b), to be retried after a short backoff.
// The two-tier delay — 10s on first failure, 30s on every failure after
// that — is deliberately simple; anything fancier is out of scope.
func (m *Manager) Reschedule(req *Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if req.retryTime.Equal(neverBegin) {
		req.retryTime = now().Add(firstRetryDelay)
	} else {
		req.retryTime = now().Add(subsequentRetryDelay)
	}
	m.idx.insertListedB(req)
}

// Unregister returns req (UNLISTED or LISTED) to FREE: the transaction
// committed, or its undo was applied successfully. It never fails.
func (m *Manager) Unregister(req *Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.idx.removeListed(req)

	if m.oldestValid && req.d.FXID == m.oldestFXID {
		m.oldestValid = false
	}

	m.requests.release(req)
	m.utilization--
}

// SuspendPreparedUndoRequest finds the LISTED-(a) request for fxid —
// registered, finalized and admitted for background undo before a crash —
// and pulls it back to UNLISTED so the prepared-transaction recovery
// manager can decide whether the transaction commits or aborts before any
// worker touches its undo. Called once per prepared transaction, after all
// Restore calls and before the first GetNextUndoRequest.
//
// fxid not being LISTED-(a) is a caller bug (the recovery driver mismatched
// its prepared-transaction list against what was actually restored), so it
// is reported the same way every other impossible condition is: a fatal
// invariant violation rather than a typed error.
func (m *Manager) SuspendPreparedUndoRequest(fxid FXID) *Request {
	m.lock.Lock()
	defer m.lock.Unlock()

	for i := range m.requests.slots {
		r := &m.requests.slots[i]
		if !r.free() && r.listedA() && r.d.FXID == fxid {
			m.idx.removeListed(r)
			return r
		}
	}
	invariantViolation("SuspendPreparedUndoRequest: fxid %d not found as LISTED-(a)", fxid)
	return nil
}
