package bytefile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildRaw(t *testing.T, pool []byte, globals int32, symbols [][2]int32, code []byte) []byte {
	t.Helper()
	var buf []byte
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(pool)))
	binary.LittleEndian.PutUint32(header[4:8], uint32(globals))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(symbols)))
	buf = append(buf, header...)
	buf = append(buf, pool...)
	for _, s := range symbols {
		var pair [8]byte
		binary.LittleEndian.PutUint32(pair[0:4], uint32(s[0]))
		binary.LittleEndian.PutUint32(pair[4:8], uint32(s[1]))
		buf = append(buf, pair[:]...)
	}
	buf = append(buf, code...)
	return buf
}

func TestDecodeValidFile(t *testing.T) {
	pool := append([]byte("main"), 0)
	raw := buildRaw(t, pool, 2, [][2]int32{{0, 0}}, []byte{0xf0})

	bf, err := Decode("test.bc", raw)
	require.NoError(t, err)
	require.Equal(t, int32(2), bf.GlobalsCount)
	require.Len(t, bf.PublicSymbols, 1)

	ep, err := bf.EntryPoint()
	require.NoError(t, err)
	require.Equal(t, 0, ep)

	name, err := bf.String(0)
	require.NoError(t, err)
	require.Equal(t, "main", name)
}

func TestDecodeRejectsOversizedFile(t *testing.T) {
	_, err := Decode("huge.bc", make([]byte, maxFileSize))
	require.Error(t, err)
}

func TestDecodeAcceptsFileOneByteUnderLimit(t *testing.T) {
	// One-byte string pool (a lone NUL) and one public symbol (0, 0), so
	// the entry point check passes; the rest of the file is code.
	data := make([]byte, maxFileSize-1)
	binary.LittleEndian.PutUint32(data[0:4], 1)
	binary.LittleEndian.PutUint32(data[4:8], 0)
	binary.LittleEndian.PutUint32(data[8:12], 1)
	data[12] = 0
	binary.LittleEndian.PutUint32(data[13:17], 0)
	binary.LittleEndian.PutUint32(data[17:21], 0)
	data[21] = 0xf0
	_, err := Decode("almost-huge.bc", data)
	require.NoError(t, err)
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := Decode("short.bc", []byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecodeRejectsStringPoolOverrun(t *testing.T) {
	raw := buildRaw(t, nil, 0, nil, nil)
	binary.LittleEndian.PutUint32(raw[0:4], 9999)
	_, err := Decode("bad.bc", raw)
	require.Error(t, err)
}

func TestDecodeRejectsSymbolNameOutsidePool(t *testing.T) {
	raw := buildRaw(t, []byte{0}, 0, [][2]int32{{500, 0}}, []byte{0xf0})
	_, err := Decode("bad.bc", raw)
	require.Error(t, err)
}

func TestDecodeRejectsMissingEntryPoint(t *testing.T) {
	raw := buildRaw(t, nil, 0, nil, []byte{0xf0})
	_, err := Decode("no-symbols.bc", raw)
	require.Error(t, err)
}

func TestDecodeRejectsNegativeGlobalsCount(t *testing.T) {
	raw := buildRaw(t, nil, -1, [][2]int32{{0, 0}}, []byte{0xf0})
	_, err := Decode("bad-globals.bc", raw)
	require.Error(t, err)
}

func TestStringLookupRequiresNulTerminator(t *testing.T) {
	raw := buildRaw(t, []byte("abc"), 0, [][2]int32{{0, 0}}, []byte{0xf0})
	bf, err := Decode("unterminated.bc", raw)
	require.NoError(t, err)
	_, err = bf.String(0)
	require.Error(t, err)
}
