package urm

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/OneOfOne/xxhash"
	"github.com/golang/snappy"
	"github.com/zhukovaskychina/xmysql-server/logger"
)

// checkpointMagic identifies this package's checkpoint framing and doubles
// as a format version: a future incompatible layout bumps this value and
// ReadCheckpoint rejects anything else with a clean RestoreError instead of
// misinterpreting the bytes.
const checkpointMagic uint64 = 0x55524d0000000001 // "URM" + format 1

// checkpoint layout: magic(8) | xxhash64 of the compressed payload(8) |
// uncompressed length(4) | snappy-compressed RequestData blob.
const checkpointHeaderSize = 8 + 8 + 4

// WriteCheckpoint snapshots m and writes it to path, framed with a magic
// header and an xxhash64 checksum over the compressed payload so
// ReadCheckpoint can distinguish truncation/bit-rot from a version
// mismatch before ever touching Restore. The uncompressed blob is
// snappy-compressed, since undo request records compress well (repeated
// all-ones invalid undo pointers and small dbid/size fields).
func WriteCheckpoint(path string, m *Manager) error {
	raw := m.Serialize()
	compressed := snappy.Encode(nil, raw)

	h := xxhash.New64()
	h.Write(compressed)
	checksum := h.Sum64()

	out := make([]byte, checkpointHeaderSize+len(compressed))
	binary.LittleEndian.PutUint64(out[0:8], checkpointMagic)
	binary.LittleEndian.PutUint64(out[8:16], checksum)
	binary.LittleEndian.PutUint32(out[16:20], uint32(len(raw)))
	copy(out[checkpointHeaderSize:], compressed)

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("urm: write checkpoint %s: %w", path, err)
	}
	logger.Infof("urm: wrote checkpoint %s (%d requests, %d bytes)", path, len(raw)/requestDataSize, len(out))
	return nil
}

// ReadCheckpoint reads and validates a file written by WriteCheckpoint,
// returning the decompressed RequestData blob ready for Manager.Restore.
// It does not itself populate a Manager: callers construct one with
// NewManager first (capacity must already be decided), then call Restore
// with this blob.
func ReadCheckpoint(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("urm: read checkpoint %s: %w", path, err)
	}
	if len(raw) < checkpointHeaderSize {
		return nil, &RestoreError{Reason: "corrupt length", Detail: fmt.Sprintf("checkpoint file %s is only %d bytes", path, len(raw))}
	}

	magic := binary.LittleEndian.Uint64(raw[0:8])
	if magic != checkpointMagic {
		return nil, &RestoreError{Reason: "bad magic", Detail: fmt.Sprintf("checkpoint file %s has magic %#x, expected %#x", path, magic, checkpointMagic)}
	}
	wantChecksum := binary.LittleEndian.Uint64(raw[8:16])
	uncompressedLen := binary.LittleEndian.Uint32(raw[16:20])
	compressed := raw[checkpointHeaderSize:]

	h := xxhash.New64()
	h.Write(compressed)
	if got := h.Sum64(); got != wantChecksum {
		return nil, &RestoreError{Reason: "checksum mismatch", Detail: fmt.Sprintf("checkpoint file %s: got %#x, want %#x", path, got, wantChecksum)}
	}

	blob, err := snappy.Decode(make([]byte, 0, uncompressedLen), compressed)
	if err != nil {
		return nil, &RestoreError{Reason: "corrupt length", Detail: fmt.Sprintf("checkpoint file %s: snappy decode: %v", path, err)}
	}
	if uint32(len(blob)) != uncompressedLen {
		return nil, &RestoreError{Reason: "corrupt length", Detail: fmt.Sprintf("checkpoint file %s: decompressed %d bytes, header promised %d", path, len(blob), uncompressedLen)}
	}
	return blob, nil
}
