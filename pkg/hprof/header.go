package hprof

import (
	"bytes"

	"github.com/hprofgraph/hprofviz/internal/apperrors"
)

// Header is the fixed preamble of an hprof file: a NUL-terminated label,
// the file-wide IdSize, and a millisecond timestamp.
type Header struct {
	Label           string
	IDSize          IdSize
	TimestampMillis uint64
}

// ParseHeader reads the header from the start of buf and returns it along
// with the remainder of buf (the record stream).
func ParseHeader(buf []byte) (Header, []byte, error) {
	nul := bytes.IndexByte(buf, 0)
	if nul < 0 {
		return Header{}, nil, apperrors.Malformed("hprof header missing NUL-terminated label").WithOffset(0)
	}
	label := string(buf[:nul])

	cur := newCursorAt(buf[nul+1:], int64(nul+1))

	idSizeNum, err := cur.readU32()
	if err != nil {
		return Header{}, nil, err
	}
	var idSize IdSize
	switch idSizeNum {
	case 4:
		idSize = IDSize4
	case 8:
		idSize = IDSize8
	default:
		return Header{}, nil, cur.malformed("unexpected id size")
	}

	hi, err := cur.readU32()
	if err != nil {
		return Header{}, nil, err
	}
	lo, err := cur.readU32()
	if err != nil {
		return Header{}, nil, err
	}
	timestamp := (uint64(hi) << 32) | uint64(lo)

	return Header{
		Label:           label,
		IDSize:          idSize,
		TimestampMillis: timestamp,
	}, cur.remaining(), nil
}
