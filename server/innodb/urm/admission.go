package urm

// PerformUndoInBackground decides whether req's undo work should be handed
// off to a background worker (LISTED-(a)) or performed synchronously by the
// caller. It never fails: an index insertion here can only panic via
// invariantViolation, which signals a caller bug (the index-node arena is
// sized for the worst case of every request being LISTED-(a)).
func (m *Manager) PerformUndoInBackground(req *Request, force bool) (background bool) {
	startLogged, _, startUnlogged, _ := req.Locations()
	if !startLogged.Valid() && !startUnlogged.Valid() {
		// The transaction failed before writing any undo; there is nothing
		// to replay. Free the slot rather than queue empty work.
		m.Unregister(req)
		return true
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	background = force || m.utilization <= m.softLimit
	if background {
		m.idx.insertListedA(req)
	}
	return background
}
