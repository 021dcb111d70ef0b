package urm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreRejectsCorruptLength(t *testing.T) {
	m := NewManager(4, 4)
	err := m.Restore(make([]byte, requestDataSize+1))
	require.Error(t, err)

	var restoreErr *RestoreError
	require.ErrorAs(t, err, &restoreErr)
	assert.Equal(t, "corrupt length", restoreErr.Reason)
}

func TestRestoreRejectsOverCapacity(t *testing.T) {
	m := NewManager(2, 2)
	err := m.Restore(make([]byte, 3*requestDataSize))
	require.Error(t, err)

	var restoreErr *RestoreError
	require.ErrorAs(t, err, &restoreErr)
	assert.Equal(t, "over capacity", restoreErr.Reason)
	assert.Equal(t, 0, m.Utilization())
}

func TestRestoreResetsRetryTimeToNeverBegin(t *testing.T) {
	src := NewManager(4, 4)
	r := src.Register(1, 1)
	r.Finalize(10, 1, 2, InvalidUndoPtr, InvalidUndoPtr)
	require.True(t, src.PerformUndoInBackground(r, true))

	next, ok := src.GetNextUndoRequest(InvalidDBID, true)
	require.True(t, ok)
	handle := src.requestBySlotForTest(next.FXID)
	src.Reschedule(handle)

	blob := src.Serialize()

	dst := NewManager(4, 4)
	require.NoError(t, dst.Restore(blob))
	restored := dst.requestBySlotForTest(1)
	require.NotNil(t, restored)
	assert.True(t, restored.retryTime.Equal(neverBegin))
	assert.True(t, restored.listedA())
}
