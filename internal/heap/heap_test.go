package heap

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lama/internal/object"
)

func TestPatternPredicatesPartitionValues(t *testing.T) {
	u := object.NewUnboxed(3)
	s := Bstring([]byte("hi"))

	require.True(t, Bunboxed_patt(u))
	require.False(t, Bboxed_patt(u))
	require.True(t, Bboxed_patt(s))
	require.False(t, Bunboxed_patt(s))

	require.True(t, Bstring_patt(s))
	require.False(t, Barray_patt(s))
}

func TestBsexpAndTagHash(t *testing.T) {
	nilv := Bsexp(LtagHash(TagNil), nil)
	cons := Bsexp(LtagHash(TagCons), []object.Object{object.NewUnboxed(1), nilv})

	require.True(t, Bsexp_tag_patt(cons))
	require.Equal(t, "cons", DeHash(cons.AsPtr().Tag))
	require.Equal(t, "nil", DeHash(nilv.AsPtr().Tag))
}

func TestLstringRendersConsList(t *testing.T) {
	nilv := Bsexp(LtagHash(TagNil), nil)
	list := Bsexp(LtagHash(TagCons), []object.Object{
		object.NewUnboxed(1),
		Bsexp(LtagHash(TagCons), []object.Object{object.NewUnboxed(2), nilv}),
	})

	rendered, err := Lstring(list)
	require.NoError(t, err)
	require.Equal(t, "{1, 2}", string(rendered.AsPtr().Str))
}

func TestLlength(t *testing.T) {
	arr := Barray([]object.Object{object.NewUnboxed(1), object.NewUnboxed(2), object.NewUnboxed(3)})
	n, err := Llength(arr)
	require.NoError(t, err)
	require.Equal(t, int32(3), n.Unbox())
}

func TestLreadLwriteRoundTrip(t *testing.T) {
	var out bytes.Buffer
	rt := NewRuntimeWith(bufio.NewReader(strings.NewReader("42\n")), bufio.NewWriter(&out))

	v, err := rt.Lread()
	require.NoError(t, err)
	require.Equal(t, int32(42), v.Unbox())

	_, err = rt.Lwrite(object.NewUnboxed(7))
	require.NoError(t, err)
	require.NoError(t, rt.Flush())
	require.Equal(t, "7\n", out.String())
}

func TestLwriteRejectsBoxedValue(t *testing.T) {
	rt := NewRuntimeWith(bufio.NewReader(strings.NewReader("")), bufio.NewWriter(&bytes.Buffer{}))
	_, err := rt.Lwrite(Bstring([]byte("x")))
	require.Error(t, err)
}
