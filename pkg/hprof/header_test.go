package hprof

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildHeader(t *testing.T, label string, idSize uint32, timestampMillis uint64) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(label)
	buf.WriteByte(0)
	require.NoError(t, binary.Write(&buf, binary.BigEndian, idSize))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(timestampMillis>>32)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(timestampMillis)))
	return buf.Bytes()
}

func TestParseHeader(t *testing.T) {
	raw := buildHeader(t, "JAVA PROFILE 1.0.2", 8, 0x0102030405)
	raw = append(raw, []byte{0xAA, 0xBB}...)

	header, rest, err := ParseHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, "JAVA PROFILE 1.0.2", header.Label)
	assert.Equal(t, IDSize8, header.IDSize)
	assert.Equal(t, uint64(0x0102030405), header.TimestampMillis)
	assert.Equal(t, []byte{0xAA, 0xBB}, rest)
}

func TestParseHeader_IdSize4(t *testing.T) {
	raw := buildHeader(t, "JAVA PROFILE 1.0.1", 4, 42)
	header, _, err := ParseHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, IDSize4, header.IDSize)
}

func TestParseHeader_RejectsUnexpectedIdSize(t *testing.T) {
	raw := buildHeader(t, "JAVA PROFILE 1.0.2", 6, 1)
	_, _, err := ParseHeader(raw)
	require.Error(t, err)
}

func TestParseHeader_RejectsMissingNulLabel(t *testing.T) {
	_, _, err := ParseHeader([]byte{'a', 'b', 'c'})
	require.Error(t, err)
}
