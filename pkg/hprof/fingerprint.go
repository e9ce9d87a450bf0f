package hprof

import (
	"encoding/binary"

	"github.com/hprofgraph/hprofviz/internal/apperrors"
)

// Fingerprint is a cheap consistency token binding an on-disk index to the
// exact hprof file it was built from: the header timestamp and the total
// top-level record count. Index open re-derives this from the hprof being
// opened and requires byte-exact equality against what was persisted at
// build time.
type Fingerprint struct {
	HeaderTimestampMillis uint64
	TotalRecordCount      uint64
}

// FingerprintSize is the encoded width of a Fingerprint: two 8-byte
// big-endian fields.
const FingerprintSize = 16

// Encode serializes the fingerprint as big-endian, matching the byte order
// used throughout the rest of the on-disk data tables.
func (f Fingerprint) Encode() []byte {
	buf := make([]byte, FingerprintSize)
	binary.BigEndian.PutUint64(buf[0:8], f.HeaderTimestampMillis)
	binary.BigEndian.PutUint64(buf[8:16], f.TotalRecordCount)
	return buf
}

// DecodeFingerprint parses a fingerprint previously produced by Encode.
func DecodeFingerprint(buf []byte) (Fingerprint, error) {
	if len(buf) != FingerprintSize {
		return Fingerprint{}, apperrors.IndexInconsistency("fingerprint record has unexpected length")
	}
	return Fingerprint{
		HeaderTimestampMillis: binary.BigEndian.Uint64(buf[0:8]),
		TotalRecordCount:      binary.BigEndian.Uint64(buf[8:16]),
	}, nil
}
