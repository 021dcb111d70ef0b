package urm

import (
	"sync"
	"unsafe"

	"github.com/zhukovaskychina/xmysql-server/logger"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/latch"
)

// DefaultCapacity is used when a caller loads a Config without specifying
// one.
const DefaultCapacity = 4096

// Manager is the undo request manager described in spec.md. One lock
// (injected via WithLock, defaulting to an internal latch.Latch) guards
// every field below except the contents of UNLISTED requests, which are
// logically owned by whichever caller last made them UNLISTED.
type Manager struct {
	lock sync.Locker

	capacity    int
	softLimit   int
	utilization int

	cursor source

	requests *requestArena
	nodes    *nodeArena
	idx      *indexes

	oldestFXID  FXID
	oldestValid bool
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithLock injects a caller-supplied lock, for when the URM should share
// synchronization with another component (e.g. one latch per
// TransactionManager instance) instead of owning a private one.
func WithLock(l sync.Locker) Option {
	return func(m *Manager) { m.lock = l }
}

// NewManager lays out the request arena, the index-node arena and the
// three priority indexes, and sets the round-robin cursor to FXID and the
// oldest-fxid cache to valid+invalid — the Go-native equivalent of spec
// §6's InitializeUndoRequestManager, which instead laid these structures
// out inside a caller-supplied memory region.
func NewManager(capacity, softLimit int, opts ...Option) *Manager {
	m := &Manager{
		capacity:    capacity,
		softLimit:   softLimit,
		cursor:      sourceFXID,
		oldestFXID:  InvalidFXID,
		oldestValid: true,
	}
	m.requests = newRequestArena(capacity)
	m.nodes = newNodeArena(capacity)
	m.idx = newIndexes(m.requests, m.nodes)
	for _, opt := range opts {
		opt(m)
	}
	if m.lock == nil {
		m.lock = latch.NewLatch()
	}
	logger.Infof("urm: manager initialized (capacity=%d soft_size_limit=%d)", capacity, softLimit)
	return m
}

// Capacity returns the hard upper bound on concurrent non-FREE requests.
func (m *Manager) Capacity() int { return m.capacity }

// SoftSizeLimit returns the utilization threshold above which
// PerformUndoInBackground refuses non-forced admission.
func (m *Manager) SoftSizeLimit() int { return m.softLimit }

// Utilization returns the current count of non-FREE slots.
func (m *Manager) Utilization() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.utilization
}

// Footprint breaks down the approximate resident footprint of a Manager
// sized for a given capacity, per the formula in spec.md §6. Go's
// garbage-collected heap makes a literal caller-supplied memory region
// pointless, so this is an estimate for capacity planning rather than the
// layout of a raw byte buffer the way the original
// InitializeUndoRequestManager did. It is computed only when EstimateSize is
// called: NewManager does not log it and Report does not include it.
type Footprint struct {
	HeaderBytes         int
	RequestArenaBytes   int
	IndexNodeArenaBytes int
	TotalBytes          int
}

// EstimateSize computes the Footprint for a manager of the given capacity,
// without constructing one.
func EstimateSize(capacity int) Footprint {
	var hdr Manager
	var req Request
	var node indexNode

	f := Footprint{
		HeaderBytes:         int(unsafe.Sizeof(hdr)),
		RequestArenaBytes:   capacity * int(unsafe.Sizeof(req)),
		IndexNodeArenaBytes: 2 * capacity * int(unsafe.Sizeof(node)),
	}
	f.TotalBytes = f.HeaderBytes + f.RequestArenaBytes + f.IndexNodeArenaBytes
	return f
}
