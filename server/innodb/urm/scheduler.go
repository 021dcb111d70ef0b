package urm

// NextUndoRequest is the data copied out of a Request as it leaves LISTED
// state via GetNextUndoRequest, together with the now-UNLISTED Request
// itself. The caller owns that handle and must pass it to Unregister (undo
// succeeded) or Reschedule (undo failed); dropping it leaks the slot.
type NextUndoRequest struct {
	Request *Request

	DBID DBID
	FXID FXID

	StartLogged   UndoPtr
	EndLogged     UndoPtr
	StartUnlogged UndoPtr
	EndUnlogged   UndoPtr
}

func snapshot(r *Request) *NextUndoRequest {
	startLogged, endLogged, startUnlogged, endUnlogged := r.Locations()
	return &NextUndoRequest{
		Request:       r,
		DBID:          r.d.DBID,
		FXID:          r.d.FXID,
		StartLogged:   startLogged,
		EndLogged:     endLogged,
		StartUnlogged: startUnlogged,
		EndUnlogged:   endUnlogged,
	}
}

// eligible reports whether node n may be handed out right now, given the
// optional database filter. It also reports whether rejection was caused
// specifically by a database mismatch, which is what licenses the
// cross-index fallback scan in GetNextUndoRequest.
func (m *Manager) eligible(s source, n *indexNode, dbidFilter DBID) (ok, dbMismatch bool) {
	r := m.idx.requestFor(n)
	if s == sourceRetryTime && r.retryTime.After(now()) {
		return false, false
	}
	if dbidFilter != InvalidDBID && r.d.DBID != dbidFilter {
		return false, true
	}
	return true, false
}

// remove pulls the request owning n out of whichever index(es) hold it,
// making it UNLISTED, and returns it.
func (m *Manager) remove(n *indexNode) *Request {
	r := m.idx.requestFor(n)
	m.idx.removeListed(r)
	return r
}

// GetNextUndoRequest picks the highest-priority eligible request and
// returns it as UNLISTED, or reports none available. exhaustiveDBSearch
// asks the scheduler to search harder for a same-database match — the
// positive framing of the original's minimum_runtime_reached==false case —
// at the cost of walking every listed request once.
//
// See spec.md §4.3 for the rationale behind rotating across three
// independent priority orderings instead of scoring a single one.
func (m *Manager) GetNextUndoRequest(dbidFilter DBID, exhaustiveDBSearch bool) (*NextUndoRequest, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	sawDBMismatch := false

	for attempt := 0; attempt < 3; attempt++ {
		src := m.cursor
		m.cursor = m.cursor.next()

		n := m.idx.leftmost(src)
		if n == nil {
			continue
		}
		ok, mismatch := m.eligible(src, n, dbidFilter)
		if mismatch {
			sawDBMismatch = true
		}
		if ok {
			req := m.remove(n)
			return snapshot(req), true
		}
	}

	if dbidFilter != InvalidDBID && sawDBMismatch && exhaustiveDBSearch {
		if n := m.crossIndexScanForDB(dbidFilter); n != nil {
			req := m.remove(n)
			return snapshot(req), true
		}
	}

	return nil, false
}

// crossIndexScanForDB single-steps the three priority indexes in
// round-robin fashion, one node at a time, and returns the first node
// whose request matches dbidFilter. This reproduces the original
// FindUndoRequestForDatabase's interleaved walk without repeatedly
// comparing the three indexes' leftmost nodes against each other: google/
// btree exposes no resumable cursor, so each index is snapshotted in
// ascending order up front and then consumed in lockstep.
func (m *Manager) crossIndexScanForDB(dbidFilter DBID) *indexNode {
	lists := [3][]*indexNode{
		m.idx.ascendSnapshot(sourceFXID),
		m.idx.ascendSnapshot(sourceSize),
		m.idx.ascendSnapshot(sourceRetryTime),
	}
	positions := [3]int{0, 0, 0}

	for {
		progressed := false
		for s := 0; s < 3; s++ {
			list := lists[s]
			pos := positions[s]
			if pos >= len(list) {
				continue
			}
			progressed = true
			n := list[pos]
			positions[s] = pos + 1

			r := m.idx.requestFor(n)
			if source(s) == sourceRetryTime && r.retryTime.After(now()) {
				continue
			}
			if r.d.DBID == dbidFilter {
				return n
			}
		}
		if !progressed {
			return nil
		}
	}
}
