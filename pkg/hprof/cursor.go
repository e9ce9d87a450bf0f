package hprof

import (
	"encoding/binary"
	"math"

	"github.com/hprofgraph/hprofviz/internal/apperrors"
)

// cursor is a read-only view over a borrowed byte slice. Every decode
// method advances pos and returns a sub-slice of buf, never a copy, which is
// what makes the parser zero-copy: the only allocations in this file are the
// structured errors on the (rare, fatal) failure path.
type cursor struct {
	buf []byte
	pos int
	// base is the absolute offset of buf[0] in the original input, used only
	// to make error offsets meaningful when a cursor is constructed over a
	// sub-slice (e.g. a sub-record body).
	base int64
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func newCursorAt(buf []byte, base int64) *cursor {
	return &cursor{buf: buf, base: base}
}

func (c *cursor) offset() int64 {
	return c.base + int64(c.pos)
}

func (c *cursor) remaining() []byte {
	return c.buf[c.pos:]
}

func (c *cursor) len() int {
	return len(c.buf) - c.pos
}

func (c *cursor) malformed(msg string) error {
	return apperrors.Malformed(msg).WithOffset(c.offset())
}

// take returns the next n bytes as a borrowed sub-slice and advances pos.
func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || c.len() < n {
		return nil, c.malformed("unexpected end of input")
	}
	out := c.buf[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *cursor) readByte() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) readU8() (uint8, error) {
	b, err := c.readByte()
	return uint8(b), err
}

func (c *cursor) readI8() (int8, error) {
	b, err := c.readByte()
	return int8(b), err
}

func (c *cursor) readU16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *cursor) readI16() (int16, error) {
	v, err := c.readU16()
	return int16(v), err
}

func (c *cursor) readU32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) readI32() (int32, error) {
	v, err := c.readU32()
	return int32(v), err
}

func (c *cursor) readU64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (c *cursor) readI64() (int64, error) {
	v, err := c.readU64()
	return int64(v), err
}

func (c *cursor) readF32() (float32, error) {
	v, err := c.readU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (c *cursor) readF64() (float64, error) {
	v, err := c.readU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (c *cursor) readBool() (bool, error) {
	b, err := c.readU8()
	return b != 0, err
}

// readID decodes an Id according to idSize: a u32 widened to 64 bits, or a
// native u64.
func (c *cursor) readID(idSize IdSize) (Id, error) {
	switch idSize {
	case IDSize4:
		v, err := c.readU32()
		return Id(v), err
	case IDSize8:
		v, err := c.readU64()
		return Id(v), err
	default:
		return 0, c.malformed("invalid id size")
	}
}

// readOptionalID decodes an Id, then folds id-zero to "none": the format's
// convention for "this reference is null", which must never leak through as
// a literal id of 0.
func (c *cursor) readOptionalID(idSize IdSize) (OptionalID, error) {
	id, err := c.readID(idSize)
	if err != nil {
		return OptionalID{}, err
	}
	if id == 0 {
		return OptionalID{}, nil
	}
	return OptionalID{Value: id, Present: true}, nil
}

// readOptionalSerial decodes a u32 serial, folding the format's sentinel
// 0xFFFFFFFF to "none" (used for JNI local ref / Java stack frame indices).
func (c *cursor) readOptionalSerial() (OptionalSerial, error) {
	v, err := c.readU32()
	if err != nil {
		return OptionalSerial{}, err
	}
	if v == noFrameIndex {
		return OptionalSerial{}, nil
	}
	return OptionalSerial{Value: v, Present: true}, nil
}

// OptionalID distinguishes "no id" from "id 0"; the zero value is "absent".
type OptionalID struct {
	Value   Id
	Present bool
}

// Get returns the id and whether it was present.
func (o OptionalID) Get() (Id, bool) { return o.Value, o.Present }

// OptionalSerial distinguishes "no serial" from "serial 0".
type OptionalSerial struct {
	Value   uint32
	Present bool
}

// Get returns the serial and whether it was present.
func (o OptionalSerial) Get() (uint32, bool) { return o.Value, o.Present }
