package leakybucket

import (
	"encoding/binary"
	"fmt"
	"math"

	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
)

// Record layout, version 1, big endian:
//
//	offset 0  uint8   version
//	offset 1  uint64  excess, milli-requests
//	offset 9  uint64  last update, Unix milliseconds
const (
	RecordVersion = 1
	RecordSize    = 17
)

// maxExcess keeps excess*1000 within int64.
const maxExcess = math.MaxInt64 / 1000

// Record is the per-key state of a leaky bucket.
type Record struct {
	// Excess is the backlog in milli-requests; 1000 is one full request.
	Excess uint64

	// Last is the time of the last committed update in Unix milliseconds.
	Last uint64
}

// MarshalBinary encodes r in the fixed RecordSize layout.
func (r Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	buf[0] = RecordVersion
	binary.BigEndian.PutUint64(buf[1:9], r.Excess)
	binary.BigEndian.PutUint64(buf[9:17], r.Last)
	return buf, nil
}

// UnmarshalBinary decodes a record. Anything other than a version 1 record
// with values the limiter could have written fails with errors.ErrStoreAbused.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) != RecordSize {
		return fmt.Errorf("%w: record is %d bytes, want %d", gferrors.ErrStoreAbused, len(data), RecordSize)
	}
	if data[0] != RecordVersion {
		return fmt.Errorf("%w: record version %d, want %d", gferrors.ErrStoreAbused, data[0], RecordVersion)
	}

	excess := binary.BigEndian.Uint64(data[1:9])
	last := binary.BigEndian.Uint64(data[9:17])
	if excess > maxExcess || last > math.MaxInt64 {
		return fmt.Errorf("%w: record fields out of range", gferrors.ErrStoreAbused)
	}

	r.Excess = excess
	r.Last = last
	return nil
}
