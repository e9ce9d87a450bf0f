package hprof

// IdSize is the file-wide byte width of every hprof identifier, declared in
// the header. It is either 4 or 8; nothing else is valid.
type IdSize uint8

const (
	IDSize4 IdSize = 4
	IDSize8 IdSize = 8
)

// Bytes returns the encoded width of an Id under this IdSize.
func (s IdSize) Bytes() int {
	return int(s)
}

// Id is an opaque hprof identifier, normalized to 64 bits regardless of the
// file's declared IdSize. Zero is reserved to mean "no id"; callers that
// need to distinguish "no id" from "id 0" use OptionalID, never a raw Id.
type Id uint64

// Serial is the format's alternate 32-bit identifier for entities named by a
// running counter (stack traces, classes-by-frame, threads) rather than by
// address. Ids and Serials are never interchangeable.
type Serial uint32

// noFrameIndex is the sentinel the format uses to mean "no frame index".
const noFrameIndex = ^uint32(0)
