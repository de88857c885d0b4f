package interp

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lama/internal/asmtest"
	"lama/internal/heap"
	"lama/internal/isa"
	"lama/internal/verify"
)

func runVerifiedProgram(t *testing.T, b *asmtest.Builder, in string) (string, error) {
	t.Helper()
	bf := b.Build()
	verified, err := verify.Verify(bf)
	require.NoError(t, err)

	var out bytes.Buffer
	rt := heap.NewRuntimeWith(bufio.NewReader(strings.NewReader(in)), bufio.NewWriter(&out))

	m, err := New(bf, verified, rt, 4096)
	require.NoError(t, err)
	runErr := m.Run()
	require.NoError(t, rt.Flush())
	return out.String(), runErr
}

func TestHelloWorldPrint(t *testing.T) {
	b := asmtest.New()
	b.Label("main").Begin(0, 0).Const(7).Lwrite().Drop().End()
	out, err := runVerifiedProgram(t, b, "")
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestArithmeticWithLocal(t *testing.T) {
	b := asmtest.New()
	b.Label("main").
		Begin(0, 1).
		Const(3).
		St(byte(isa.RelLocal), 0).
		Ld(byte(isa.RelLocal), 0).
		Const(4).
		Binop(byte(isa.BinopAdd)).
		Lwrite().
		Drop().
		End()
	out, err := runVerifiedProgram(t, b, "")
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestDivisionByZero(t *testing.T) {
	b := asmtest.New()
	b.Label("main").Begin(0, 0).Const(10).Const(0).Binop(byte(isa.BinopDiv)).End()
	_, err := runVerifiedProgram(t, b, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "DivisionByZero")
}

func TestArrayElem(t *testing.T) {
	b := asmtest.New()
	b.Label("main").
		Begin(0, 0).
		Const(2).
		Array(1).
		Const(0).
		Elem().
		Lwrite().
		Drop().
		End()
	out, err := runVerifiedProgram(t, b, "")
	require.NoError(t, err)
	require.Equal(t, "2\n", out)
}

func TestArrayRejectsNegativeLength(t *testing.T) {
	b := asmtest.New()
	b.Label("main").Begin(0, 0).Array(-1).End()
	_, err := runVerifiedProgram(t, b, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidLengthForArray")
}

func TestBothCjmpBranchesProduceExpectedOutput(t *testing.T) {
	for _, tc := range []struct {
		cond int32
		want string
	}{
		{0, "2\n"},
		{1, "1\n"},
	} {
		b := asmtest.New()
		b.Label("main").
			Begin(0, 0).
			Const(tc.cond).
			CjmpZ("else").
			Const(1).
			Jmp("join").
			Label("else").
			Const(2).
			Label("join").
			Lwrite().
			Drop().
			End()
		out, err := runVerifiedProgram(t, b, "")
		require.NoError(t, err)
		require.Equal(t, tc.want, out)
	}
}

func TestLreadThenWrite(t *testing.T) {
	b := asmtest.New()
	b.Label("main").Begin(0, 0).Lread().Lwrite().Drop().End()
	out, err := runVerifiedProgram(t, b, "41\n")
	require.NoError(t, err)
	require.Equal(t, "41\n", out)
}

func TestStringIndexOutOfBounds(t *testing.T) {
	b := asmtest.New()
	b.Label("main").
		Begin(0, 0).
		StringOp("hi").
		Const(10).
		Elem().
		End()
	_, err := runVerifiedProgram(t, b, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "StringIndexOutOfBounds")
}

func TestCallAndReturn(t *testing.T) {
	b := asmtest.New()
	b.Label("main").
		Begin(0, 0).
		Const(5).
		Call("addOne", 1).
		Lwrite().
		Drop().
		End().
		Label("addOne").
		Begin(1, 0).
		Ld(byte(isa.RelArg), 0).
		Const(1).
		Binop(byte(isa.BinopAdd)).
		End()
	out, err := runVerifiedProgram(t, b, "")
	require.NoError(t, err)
	require.Equal(t, "6\n", out)
}

func TestBeginRejectsArgsCountMismatchWithCallSite(t *testing.T) {
	b := asmtest.New()
	b.Label("main").
		Begin(0, 0).
		Const(5).
		Call("addOne", 1).
		Drop().
		End().
		Label("addOne").
		Begin(2, 0). // every call site passes 1 argument, not 2
		Const(0).
		End()
	_, err := runVerifiedProgram(t, b, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ConflictingStackDepth")
}

func TestClosureCall(t *testing.T) {
	b := asmtest.New()
	b.Label("main").
		Begin(0, 1).
		Const(100).
		St(byte(isa.RelLocal), 0).
		Drop(). // discard the value ST leaves on the stack
		Const(1).
		Closure("fn", []asmtest.Capture{{Rel: byte(isa.RelLocal), Index: 0}}).
		CallC(1).
		Lwrite().
		Drop().
		End().
		Label("fn").
		CBegin(1, 0).
		Ld(byte(isa.RelCapture), 0).
		Ld(byte(isa.RelArg), 0).
		Binop(byte(isa.BinopAdd)).
		End()
	out, err := runVerifiedProgram(t, b, "")
	require.NoError(t, err)
	require.Equal(t, "101\n", out)
}

func TestFailTerminatesWithDiagnostic(t *testing.T) {
	b := asmtest.New()
	b.Label("main").Begin(0, 0).Const(9).Fail(3, 1)
	_, err := runVerifiedProgram(t, b, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "3:1")
}
