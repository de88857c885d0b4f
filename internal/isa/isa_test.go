package isa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeConst(t *testing.T) {
	code := []byte{0x10, 7, 0, 0, 0}
	in, err := Decode(code, 0)
	require.NoError(t, err)
	require.Equal(t, OpConst, in.Op)
	require.Equal(t, int32(7), in.A)
	require.Equal(t, 5, in.Width)
}

func TestDecodeBinop(t *testing.T) {
	in, err := Decode([]byte{0x01}, 0)
	require.NoError(t, err)
	require.Equal(t, OpBinop, in.Op)
	require.Equal(t, BinopAdd, in.Binop)
	require.Equal(t, "+", in.Binop.String())
}

func TestDecodeRejectsUnknownOpcode(t *testing.T) {
	_, err := Decode([]byte{0x9f}, 0)
	require.Error(t, err)
}

func TestDecodeRejectsTruncatedImmediate(t *testing.T) {
	_, err := Decode([]byte{0x10, 1, 2}, 0)
	require.Error(t, err)
}

func TestDecodeLdRel(t *testing.T) {
	code := []byte{0x21, 3, 0, 0, 0} // LD Local 3
	in, err := Decode(code, 0)
	require.NoError(t, err)
	require.Equal(t, OpLd, in.Op)
	require.Equal(t, RelLocal, in.Rel)
	require.Equal(t, int32(3), in.Index)
}

func TestDecodeClosureWithCaptures(t *testing.T) {
	code := []byte{
		0x54,
		10, 0, 0, 0, // target
		2, 0, 0, 0, // n captures
		byte(RelLocal), 1, 0, 0, 0,
		byte(RelArg), 0, 0, 0, 0,
	}
	in, err := Decode(code, 0)
	require.NoError(t, err)
	require.Equal(t, OpClosure, in.Op)
	require.Len(t, in.Captures, 2)
	require.Equal(t, RelLocal, in.Captures[0].Rel)
	require.Equal(t, int32(1), in.Captures[0].Index)
	require.Equal(t, RelArg, in.Captures[1].Rel)
}

func TestDecodeStop(t *testing.T) {
	in, err := Decode([]byte{0xf0}, 0)
	require.NoError(t, err)
	require.Equal(t, OpStop, in.Op)
}

func TestDecodeOffsetOutOfBounds(t *testing.T) {
	_, err := Decode([]byte{0x10, 0, 0, 0, 0}, 99)
	require.Error(t, err)
}

func TestPatternNameOrder(t *testing.T) {
	require.Equal(t, "string", PatternName(0))
	require.Equal(t, "sexp-tag", PatternName(7))
	require.Equal(t, "?", PatternName(8))
}
