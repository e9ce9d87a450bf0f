// Package index turns the unordered (object-id -> class-id) and
// (object-id -> primitive-array-type) pairs produced by a parallel pass
// over an hprof into a random-access on-disk key-value store: write sorted
// chunks, merge-sort them down to one file per table, then bulk-load the
// merged, already-sorted keys into an embedded store. Sorted bulk-load is
// what makes a billion-entry index tractable - inserting in random key
// order into most KV stores is orders of magnitude slower.
package index

import "encoding/binary"

// ObjClassPair is one (object id -> class object id) mapping: written for
// every Instance and ObjectArray sub-record, keyed by the object's own id.
type ObjClassPair struct {
	ObjID   uint64
	ClassID uint64
}

// objClassPairSize is the encoded width of an ObjClassPair: two 8-byte
// little-endian fields. Chunk datums are little-endian throughout, distinct
// from the embedded store's own big-endian data tables.
const objClassPairSize = 16

func (p ObjClassPair) key() uint64 { return p.ObjID }

func (p ObjClassPair) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], p.ObjID)
	binary.LittleEndian.PutUint64(buf[8:16], p.ClassID)
}

func decodeObjClassPair(buf []byte) ObjClassPair {
	return ObjClassPair{
		ObjID:   binary.LittleEndian.Uint64(buf[0:8]),
		ClassID: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

// ObjPrimTypePair is one (object id -> primitive array element type code)
// mapping: written for every PrimitiveArray sub-record.
type ObjPrimTypePair struct {
	ObjID    uint64
	TypeCode uint8
}

// objPrimTypePairSize is the encoded width of an ObjPrimTypePair: an
// 8-byte little-endian id plus a single type-code byte.
const objPrimTypePairSize = 9

func (p ObjPrimTypePair) key() uint64 { return p.ObjID }

func (p ObjPrimTypePair) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], p.ObjID)
	buf[8] = p.TypeCode
}

func decodeObjPrimTypePair(buf []byte) ObjPrimTypePair {
	return ObjPrimTypePair{
		ObjID:    binary.LittleEndian.Uint64(buf[0:8]),
		TypeCode: buf[8],
	}
}
