package verify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lama/internal/asmtest"
	"lama/internal/bytefile"
	"lama/internal/isa"
)

func TestVerifySimpleProgram(t *testing.T) {
	b := asmtest.New()
	b.Label("main").Begin(0, 0).Const(7).Lwrite().Drop().End()
	bf := b.Build()

	res, err := Verify(bf)
	require.NoError(t, err)
	require.Equal(t, int32(0), res.Depths[0])
}

func TestVerifyRejectsInvalidJumpOffset(t *testing.T) {
	// A 100-byte image whose only instruction is a BEGIN followed by a
	// JMP to an offset outside the code section (spec.md §8 scenario 5).
	code := make([]byte, 100)
	code[0] = 0x52 // BEGIN
	writeI32(code[1:5], 0)
	writeI32(code[5:9], 0)
	code[9] = 0x15 // JMP
	writeI32(code[10:14], 9999)

	bf := &bytefile.Bytefile{
		PublicSymbols: []bytefile.Symbol{{NameOffset: 0, CodeOffset: 0}},
		Code:          code,
	}
	_, err := Verify(bf)
	require.Error(t, err)
}

func writeI32(b []byte, v int32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func TestVerifyBothCjmpBranchesAgreeOnDepth(t *testing.T) {
	b := asmtest.New()
	b.Label("main").
		Begin(0, 0).
		Const(1).
		CjmpZ("else").
		Const(1).
		Jmp("join").
		Label("else").
		Const(2).
		Label("join").
		Lwrite().
		Drop().
		End()
	bf := b.Build()

	// Verify succeeding at all proves both the "else" and "join" paths
	// were reached with the same depth at LWRITE's offset — a conflict
	// would have surfaced as ConflictingStackDepth.
	_, err := Verify(bf)
	require.NoError(t, err)
}

func TestVerifyPatchesBeginEntryDepth(t *testing.T) {
	b := asmtest.New()
	b.Label("main").
		Begin(0, 0).
		Const(1). // the one argument callee expects
		Call("callee", 1).
		Drop().
		End().
		Label("callee").
		Begin(1, 0).
		Const(0).
		End()
	bf := b.Build()

	res, err := Verify(bf)
	require.NoError(t, err)

	calleeOffset := findOffsetOfLabel(bf, "callee")
	in, err := isa.Decode(res.Code, calleeOffset)
	require.NoError(t, err)
	require.Equal(t, isa.OpBegin, in.Op)
	require.Equal(t, int32(1), ArgsCount(in.A))
	require.Equal(t, int32(2), EntryDepth(in.A)) // n+1 = 1 arg + 1 return slot
}

func findOffsetOfLabel(bf *bytefile.Bytefile, name string) int {
	// callee is the second BEGIN in the code; since asmtest only records
	// "main" as a public symbol, recompute by scanning for the second
	// BEGIN opcode byte.
	count := 0
	for i := 0; i < len(bf.Code); i++ {
		if bf.Code[i] == 0x52 || bf.Code[i] == 0x53 {
			count++
			if count == 2 {
				return i
			}
		}
	}
	return -1
}

func TestVerifyRejectsEmptyCode(t *testing.T) {
	bf := &bytefile.Bytefile{
		PublicSymbols: []bytefile.Symbol{{NameOffset: 0, CodeOffset: 0}},
		Code:          nil,
	}
	_, err := Verify(bf)
	require.Error(t, err)
}

func TestVerifyAcceptsBeginZeroZeroStop(t *testing.T) {
	b := asmtest.New()
	b.Label("main").Begin(0, 0).Stop()
	bf := b.Build()
	_, err := Verify(bf)
	require.NoError(t, err)
}
