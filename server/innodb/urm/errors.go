package urm

import (
	"errors"
	"fmt"

	"github.com/zhukovaskychina/xmysql-server/logger"
)

// Sentinel errors for the recoverable cases described in spec.md §7.
var (
	// ErrRequestNotFound names a request lookup that missed. No function in
	// this package returns it: ReadCheckpoint reports a missing file as the
	// wrapped os.ReadFile error, and SuspendPreparedUndoRequest panics.
	ErrRequestNotFound = errors.New("urm: request not found")
)

// RestoreError reports why Restore or ReadCheckpoint rejected a blob. Both
// sub-cases described in spec.md §7.3 are fatal for the restore attempt but
// recoverable for the process: the manager is left empty and the caller
// (the recovery driver) can surface operator guidance.
type RestoreError struct {
	Reason string // "corrupt length", "over capacity", "checksum mismatch", "bad magic"
	Detail string
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("urm: restore failed (%s): %s", e.Reason, e.Detail)
}

// invariantViolation reports an impossible-by-construction condition (spec
// §7 class 4): duplicate fxid insertion, index-node arena exhaustion, a
// suspend target that doesn't exist. These can only happen if a caller
// broke an invariant upstream of this package, so the only safe response is
// to stop the process loudly rather than silently corrupt durable state.
// The message is logged via logger.Errorf before panicking so it survives
// in the engine's error log.
func invariantViolation(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Errorf("urm: invariant violation: %s", msg)
	panic("urm: invariant violation: " + msg)
}
