package urm

import (
	"encoding/binary"
	"fmt"
)

// Serialize emits every LISTED request (both LISTED-(a) and LISTED-(b)) as
// a dense array of packed RequestData records, little-endian on every
// platform (not the host's native byte order). No
// header or version tag is written; the format is an implementation detail
// of whatever checkpoint framing wraps it (see checkpoint.go).
func (m *Manager) Serialize() []byte {
	m.lock.Lock()
	defer m.lock.Unlock()

	fxidNodes := m.idx.ascendSnapshot(sourceFXID)
	retryNodes := m.idx.ascendSnapshot(sourceRetryTime)

	buf := make([]byte, 0, (len(fxidNodes)+len(retryNodes))*requestDataSize)
	for _, n := range fxidNodes {
		buf = appendRequestData(buf, &m.idx.requestFor(n).d)
	}
	for _, n := range retryNodes {
		buf = appendRequestData(buf, &m.idx.requestFor(n).d)
	}
	return buf
}

func appendRequestData(buf []byte, d *RequestData) []byte {
	var rec [requestDataSize]byte
	binary.LittleEndian.PutUint64(rec[0:8], uint64(d.FXID))
	binary.LittleEndian.PutUint32(rec[8:12], uint32(d.DBID))
	binary.LittleEndian.PutUint64(rec[12:20], d.Size)
	binary.LittleEndian.PutUint64(rec[20:28], uint64(d.StartLogged))
	binary.LittleEndian.PutUint64(rec[28:36], uint64(d.EndLogged))
	binary.LittleEndian.PutUint64(rec[36:44], uint64(d.StartUnlog))
	binary.LittleEndian.PutUint64(rec[44:52], uint64(d.EndUnlog))
	return append(buf, rec[:]...)
}

func readRequestData(rec []byte) RequestData {
	return RequestData{
		FXID:        FXID(binary.LittleEndian.Uint64(rec[0:8])),
		DBID:        DBID(binary.LittleEndian.Uint32(rec[8:12])),
		Size:        binary.LittleEndian.Uint64(rec[12:20]),
		StartLogged: UndoPtr(binary.LittleEndian.Uint64(rec[20:28])),
		EndLogged:   UndoPtr(binary.LittleEndian.Uint64(rec[28:36])),
		StartUnlog:  UndoPtr(binary.LittleEndian.Uint64(rec[36:44])),
		EndUnlog:    UndoPtr(binary.LittleEndian.Uint64(rec[44:52])),
	}
}

// Restore populates a freshly constructed, empty Manager from a blob
// produced by Serialize (optionally unwrapped from a checkpoint by
// ReadCheckpoint first). Every restored record reenters the pipeline as a
// fresh LISTED-(a) request with retry_time reset to never-begin: retry
// state is intentionally not durable, since resurrecting a stale
// retry_time risks busy-looping or starving a request after restart.
func (m *Manager) Restore(data []byte) error {
	if len(data)%requestDataSize != 0 {
		return &RestoreError{
			Reason: "corrupt length",
			Detail: fmt.Sprintf("blob length %d is not a multiple of record size %d", len(data), requestDataSize),
		}
	}
	count := len(data) / requestDataSize

	m.lock.Lock()
	defer m.lock.Unlock()

	if count > m.capacity {
		return &RestoreError{
			Reason: "over capacity",
			Detail: fmt.Sprintf("blob holds %d records, capacity is %d", count, m.capacity),
		}
	}

	for i := 0; i < count; i++ {
		rec := data[i*requestDataSize : (i+1)*requestDataSize]
		d := readRequestData(rec)

		r := m.requests.alloc()
		if r == nil {
			invariantViolation("Restore: arena exhausted after capacity check passed (count=%d capacity=%d)", count, m.capacity)
		}
		r.d = d
		r.retryTime = neverBegin
		m.idx.insertListedA(r)
		m.utilization++
	}

	m.oldestValid = false
	return nil
}
