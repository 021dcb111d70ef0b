package urm

// OldestFXID returns the smallest fxid among all non-FREE requests, or
// InvalidFXID if the manager holds none. The result is cached: Register
// extends the cached minimum cheaply, and Unregister invalidates the cache
// only when it evicts the slot currently believed to hold the minimum,
// deferring the O(capacity) rescan until it is actually needed.
func (m *Manager) OldestFXID() FXID {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.oldestValid {
		return m.oldestFXID
	}

	oldest := InvalidFXID
	for i := range m.requests.slots {
		r := &m.requests.slots[i]
		if r.free() {
			continue
		}
		if oldest == InvalidFXID || r.d.FXID < oldest {
			oldest = r.d.FXID
		}
	}
	m.oldestFXID = oldest
	m.oldestValid = true
	return oldest
}
