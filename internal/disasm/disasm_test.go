package disasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lama/internal/asmtest"
	"lama/internal/verify"
)

func TestDumpOnlyCoversReachableCode(t *testing.T) {
	b := asmtest.New()
	b.Label("main").Begin(0, 0).Const(7).Lwrite().Drop().End().Stop() // STOP after END is unreachable
	bf := b.Build()
	verified, err := verify.Verify(bf)
	require.NoError(t, err)

	out, err := Dump(bf, verified)
	require.NoError(t, err)
	require.Contains(t, out, "BEGIN")
	require.Contains(t, out, "CONST")
	require.Contains(t, out, "LWRITE")
	require.NotContains(t, out, "STOP")
}

func TestFrequencyCountsEachMnemonicOnce(t *testing.T) {
	b := asmtest.New()
	b.Label("main").Begin(0, 0).Const(1).Const(2).Binop(1).Lwrite().Drop().End()
	bf := b.Build()
	verified, err := verify.Verify(bf)
	require.NoError(t, err)

	counts, err := Frequency(verified)
	require.NoError(t, err)
	require.Equal(t, 2, counts["CONST"])
	require.Equal(t, 1, counts["BINOP"])
}

func TestFrequencyTableSortsByDescendingCount(t *testing.T) {
	table := FrequencyTable(map[string]int{"A": 1, "B": 3, "C": 3})
	idxB := indexOf(table, "B")
	idxC := indexOf(table, "C")
	idxA := indexOf(table, "A")
	require.GreaterOrEqual(t, idxB, 0)
	require.Less(t, idxB, idxA)
	require.Less(t, idxC, idxA)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
