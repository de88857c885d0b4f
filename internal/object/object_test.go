package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnboxedBoxedMutualExclusion(t *testing.T) {
	u := NewUnboxed(41)
	require.True(t, u.IsUnboxed())
	require.False(t, u.IsBoxed())
	require.Equal(t, int32(41), u.Unbox())

	h := &Header{Type: KindString, Str: []byte("hi")}
	bo := NewBoxed(h)
	require.True(t, bo.IsBoxed())
	require.False(t, bo.IsUnboxed())

	e := NewEmpty()
	require.True(t, e.IsEmpty())
	require.False(t, e.IsBoxed())
	require.False(t, e.IsUnboxed())
}

func TestLamaType(t *testing.T) {
	h := &Header{Type: KindArray}
	v := NewBoxed(h)
	k, ok := v.LamaType()
	require.True(t, ok)
	require.Equal(t, KindArray, k)

	_, ok = NewUnboxed(1).LamaType()
	require.False(t, ok)
}

func TestTryFromRawPointer(t *testing.T) {
	_, err := TryFromRawPointer(nil)
	require.Error(t, err)

	h := &Header{Type: KindSexp}
	v, err := TryFromRawPointer(h)
	require.NoError(t, err)
	require.True(t, v.IsBoxed())
	require.Same(t, h, v.AsPtr())
}

func TestAsPtrPanicsOnNonBoxed(t *testing.T) {
	require.Panics(t, func() {
		NewUnboxed(0).AsPtr()
	})
}

func TestRawRoundTrip(t *testing.T) {
	v := NewUnboxed(5)
	require.Equal(t, uint64(11), v.Raw()) // (5<<1)|1
}
