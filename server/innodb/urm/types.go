// Package urm implements the undo request manager: the fixed-capacity
// scheduler that tracks transactions which may need background undo
// processing and decides, under contention and memory pressure, which
// transaction's undo should run next.
//
// It sits between the transaction lifecycle (begin/commit/abort/prepare,
// see server/innodb/manager.TransactionManager) and the undo workers that
// consume undo records generated by aborted transactions. It does not read
// or write undo records itself.
package urm

import "time"

// FXID is a full (epoch-extended) transaction id. InvalidFXID marks a FREE
// request slot.
type FXID uint64

// InvalidFXID is the sentinel meaning "no transaction" / FREE.
const InvalidFXID FXID = 0

// DBID identifies the database a transaction belongs to.
type DBID uint32

// InvalidDBID means "no database filter" when passed to GetNextUndoRequest.
const InvalidDBID DBID = 0

// UndoPtr is an opaque position in the undo log. It is compared only for
// equality and validity by this package; the undo log writer owns its
// meaning.
type UndoPtr uint64

// InvalidUndoPtr is the sentinel for "no undo written". It is the all-ones
// value rather than zero so that a freshly zeroed Request is never mistaken
// for one holding a valid pointer at offset zero.
const InvalidUndoPtr UndoPtr = ^UndoPtr(0)

// Valid reports whether p is a real undo-log position.
func (p UndoPtr) Valid() bool { return p != InvalidUndoPtr }

// neverBegin is the sentinel retry_time meaning "this request has never
// failed undo before". The zero time.Time value serves this role, matching
// Go's usual "zero value is the sentinel" idiom.
var neverBegin time.Time

// RequestData is the pure-value, persistable subset of a Request. It is
// what Serialize/Restore exchange with the outside world; retry_time and
// the free-list link are intentionally excluded, per spec.
type RequestData struct {
	FXID        FXID
	DBID        DBID
	Size        uint64
	StartLogged UndoPtr
	EndLogged   UndoPtr
	StartUnlog  UndoPtr
	EndUnlog    UndoPtr
}

// requestDataSize is the fixed on-the-wire width of one RequestData record:
// 8 (fxid) + 4 (dbid) + 8 (size) + 4*8 (undo pointers).
const requestDataSize = 8 + 4 + 8 + 4*8

// Request is one in-memory slot tracking a transaction that may need undo.
// See the package doc and spec.md for the FREE/UNLISTED/LISTED lifecycle.
//
// While UNLISTED, a Request is logically owned by whichever caller last
// transitioned it there; the Manager will not read or write it. Callers
// must never lose their handle to an UNLISTED Request: doing so leaks the
// slot permanently.
type Request struct {
	d RequestData

	retryTime time.Time // neverBegin sentinel means "has not yet failed"

	// freeLink is the next free slot's index, meaningful only while FREE.
	freeLink int32

	// fxidNode/sizeNode/retryNode are index-node arena slot handles, -1
	// when unused. A LISTED-(a) request has fxidNode and sizeNode both set
	// and retryNode == -1; a LISTED-(b) request has only retryNode set; an
	// UNLISTED or FREE request has all three == -1. This tag is carried
	// explicitly instead of inferred from retry_time/size (see DESIGN.md).
	fxidNode  int32
	sizeNode  int32
	retryNode int32

	// slot is this Request's own index into Manager.requests, cached so
	// index comparator closures can recover it without a reverse map.
	slot int32
}

// FXID returns the transaction id this request tracks.
func (r *Request) FXID() FXID { return r.d.FXID }

// DBID returns the database this request's transaction belongs to.
func (r *Request) DBID() DBID { return r.d.DBID }

// Size returns the total undo size recorded by Finalize, or zero before
// finalization.
func (r *Request) Size() uint64 { return r.d.Size }

// Locations returns the four undo-log pointers recorded by Finalize.
func (r *Request) Locations() (startLogged, endLogged, startUnlogged, endUnlogged UndoPtr) {
	return r.d.StartLogged, r.d.EndLogged, r.d.StartUnlog, r.d.EndUnlog
}

func (r *Request) free() bool { return r.d.FXID == InvalidFXID }

func (r *Request) listed() bool {
	return r.fxidNode != -1 || r.retryNode != -1
}

// listedA reports whether the request is LISTED-(a): by-fxid + by-size.
func (r *Request) listedA() bool { return r.fxidNode != -1 }

// listedB reports whether the request is LISTED-(b): by-retry-time.
func (r *Request) listedB() bool { return r.retryNode != -1 }

// indexNode is a handle placed into exactly one priority index. It owns no
// data of its own beyond which request slot it points to; ordering is
// computed by dereferencing back into the manager's request arena.
type indexNode struct {
	slot int32 // owning Request's arena slot

	// free is the next free index-node slot, meaningful only while unused.
	free int32
}
