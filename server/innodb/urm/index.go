package urm

import "github.com/google/btree"

// source names one of the three priority indexes that GetNextUndoRequest
// rotates across. See spec.md §4.3.
type source int

const (
	sourceFXID source = iota
	sourceSize
	sourceRetryTime
)

func (s source) next() source {
	switch s {
	case sourceFXID:
		return sourceSize
	case sourceSize:
		return sourceRetryTime
	default:
		return sourceFXID
	}
}

// btreeDegree is an arbitrary, unremarkable B-Tree branching factor; the
// indexes here are small (bounded by capacity) so its exact value has no
// measurable effect.
const btreeDegree = 32

// indexes holds the three ordered containers described in spec.md §3/§4.8,
// each a google/btree generic tree over *indexNode handles drawn from a
// shared nodeArena. Ordering is computed by dereferencing back into the
// owning Manager's request arena, so the trees carry no Request data of
// their own.
type indexes struct {
	byFxid  *btree.BTreeG[*indexNode]
	bySize  *btree.BTreeG[*indexNode]
	byRetry *btree.BTreeG[*indexNode]

	requests *requestArena
	nodes    *nodeArena
}

func newIndexes(requests *requestArena, nodes *nodeArena) *indexes {
	ix := &indexes{requests: requests, nodes: nodes}

	req := func(n *indexNode) *Request { return &requests.slots[n.slot] }

	// by-fxid: ascending, fxids are unique so there is no tiebreak.
	ix.byFxid = btree.NewG(btreeDegree, func(a, b *indexNode) bool {
		return req(a).d.FXID < req(b).d.FXID
	})

	// by-size: descending, tiebreak by fxid ascending.
	ix.bySize = btree.NewG(btreeDegree, func(a, b *indexNode) bool {
		ra, rb := req(a), req(b)
		if ra.d.Size != rb.d.Size {
			return ra.d.Size > rb.d.Size
		}
		return ra.d.FXID < rb.d.FXID
	})

	// by-retry-time: ascending, tiebreak by fxid ascending.
	ix.byRetry = btree.NewG(btreeDegree, func(a, b *indexNode) bool {
		ra, rb := req(a), req(b)
		if !ra.retryTime.Equal(rb.retryTime) {
			return ra.retryTime.Before(rb.retryTime)
		}
		return ra.d.FXID < rb.d.FXID
	})

	return ix
}

// insertOne allocates one index-node handle for r and inserts it into t,
// asserting the hard "no combine" rule from spec §4.8: a duplicate key here
// means a duplicate fxid slipped past invariant I4, which is a bug.
func (ix *indexes) insertOne(t *btree.BTreeG[*indexNode], r *Request) int32 {
	idx := ix.nodes.alloc(r.slot)
	node := &ix.nodes.nodes[idx]
	if _, had := t.ReplaceOrInsert(node); had {
		invariantViolation("duplicate key inserted into priority index for fxid %d", r.d.FXID)
	}
	return idx
}

// insertListedA adds r to by-fxid and by-size, making it LISTED-(a).
func (ix *indexes) insertListedA(r *Request) {
	r.fxidNode = ix.insertOne(ix.byFxid, r)
	r.sizeNode = ix.insertOne(ix.bySize, r)
}

// insertListedB adds r to by-retry-time, making it LISTED-(b).
func (ix *indexes) insertListedB(r *Request) {
	r.retryNode = ix.insertOne(ix.byRetry, r)
}

func (ix *indexes) removeOne(t *btree.BTreeG[*indexNode], nodeIdx int32) {
	node := &ix.nodes.nodes[nodeIdx]
	if _, had := t.Delete(node); !had {
		invariantViolation("index node for slot %d missing from its own tree", node.slot)
	}
	ix.nodes.release(nodeIdx)
}

// removeListed removes r from whichever index(es) currently hold it,
// making it UNLISTED. It is a no-op if r is not currently listed. This is
// also how Unregister discriminates LISTED-(a)/(b): the explicit handles
// make the discriminator exact instead of inferred (see DESIGN.md).
func (ix *indexes) removeListed(r *Request) {
	if r.fxidNode != -1 {
		ix.removeOne(ix.byFxid, r.fxidNode)
		r.fxidNode = -1
	}
	if r.sizeNode != -1 {
		ix.removeOne(ix.bySize, r.sizeNode)
		r.sizeNode = -1
	}
	if r.retryNode != -1 {
		ix.removeOne(ix.byRetry, r.retryNode)
		r.retryNode = -1
	}
}

func (ix *indexes) treeFor(s source) *btree.BTreeG[*indexNode] {
	switch s {
	case sourceFXID:
		return ix.byFxid
	case sourceSize:
		return ix.bySize
	default:
		return ix.byRetry
	}
}

// leftmost returns the highest-priority node currently in the given index,
// or nil if it is empty.
func (ix *indexes) leftmost(s source) *indexNode {
	n, ok := ix.treeFor(s).Min()
	if !ok {
		return nil
	}
	return n
}

func (ix *indexes) requestFor(n *indexNode) *Request {
	return &ix.requests.slots[n.slot]
}

// ascendSnapshot returns every node currently in the given index, in
// ascending (highest-priority-first) order. Used by Serialize and by the
// cross-index database scan, both of which need a stable, order-preserving
// walk rather than repeated Min() calls.
func (ix *indexes) ascendSnapshot(s source) []*indexNode {
	t := ix.treeFor(s)
	out := make([]*indexNode, 0, t.Len())
	t.Ascend(func(n *indexNode) bool {
		out = append(out, n)
		return true
	})
	return out
}
