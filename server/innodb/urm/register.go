package urm

// Register allocates a FREE slot for fxid/dbid and returns it UNLISTED, or
// returns nil if the arena is already at capacity (spec §7 class 1: a full
// arena is an ordinary, expected condition — the caller falls back to
// performing undo inline rather than being handed an error to wrap).
//
// Duplicate fxid registration is a caller bug (invariant I4) and is not
// checked here: the original's RegisterUndoRequest doesn't check it either,
// trusting that a transaction never begins twice.
func (m *Manager) Register(fxid FXID, dbid DBID) *Request {
	m.lock.Lock()
	defer m.lock.Unlock()

	r := m.requests.alloc()
	if r == nil {
		return nil
	}
	r.d.FXID = fxid
	r.d.DBID = dbid
	r.d.Size = 0
	r.d.StartLogged = InvalidUndoPtr
	r.d.EndLogged = InvalidUndoPtr
	r.d.StartUnlog = InvalidUndoPtr
	r.d.EndUnlog = InvalidUndoPtr
	r.retryTime = neverBegin

	m.utilization++
	if m.oldestValid && (m.oldestFXID == InvalidFXID || fxid < m.oldestFXID) {
		m.oldestFXID = fxid
	}
	return r
}

// Finalize records the undo size and log pointers discovered while a
// transaction aborts, taking req from UNLISTED to ready-for-scheduling. It
// never fails: req is caller-owned while UNLISTED, so there is nothing here
// that can be in an inconsistent state. This mirrors FinalizeUndoRequest's
// signature in the original, which likewise returns nothing.
//
// Finalize does not take the manager lock: req is not yet reachable from any
// index, so nothing else can observe it concurrently.
func (req *Request) Finalize(size uint64, startLogged, endLogged, startUnlogged, endUnlogged UndoPtr) {
	req.d.Size = size
	req.d.StartLogged = startLogged
	req.d.EndLogged = endLogged
	req.d.StartUnlog = startUnlogged
	req.d.EndUnlog = endUnlogged
}
