// Package object implements the tagged-value representation the
// interpreter's operand stack is built from (component C1 of the design).
//
// The reference design represents a tagged value as a single machine word:
// unboxed integers carry their low bit set, boxed pointers are word-aligned
// with the low bit clear. A Go program cannot safely keep that encoding on
// a slice the garbage collector scans as pointers — the collector would
// either crash on the fake "pointer" bit pattern of an unboxed integer or
// leak real pointers disguised as integers. Object therefore models the
// same three-way tag (Unboxed / Boxed / Empty) as a small tagged struct;
// Boxed carries a genuine *Header that Go's own collector tracks precisely.
// The externally observable semantics — is_boxed/is_unboxed mutual
// exclusion, lama type read from a heap object's header — are unchanged.
package object

import "lama/internal/verrors"

// Kind is the Lama runtime type of a heap-resident (Boxed) value.
type Kind byte

const (
	KindString Kind = iota
	KindArray
	KindSexp
	KindClosure
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindSexp:
		return "sexp"
	case KindClosure:
		return "closure"
	default:
		return "?"
	}
}

// Header is the heap object every Boxed value points to. Which fields are
// meaningful depends on Type: Str for KindString, Elems for KindArray and
// KindSexp (plus Tag for KindSexp), Code and Elems (as captures) for
// KindClosure.
type Header struct {
	Type   Kind
	Str    []byte
	Elems  []Object
	Tag    int32 // sexp tag hash
	Code   int32 // closure entry point (code-section offset)
}

type tag byte

const (
	tagEmpty tag = iota
	tagUnboxed
	tagBoxed
)

// Object is a single tagged value, as it sits on the operand stack or in a
// frame slot.
type Object struct {
	t   tag
	n   int32
	ptr *Header
}

// Empty is the sentinel used in scratch frame-header positions (a
// non-closure call's closure slot, the outermost frame's return-ip slot).
var Empty = Object{t: tagEmpty}

func NewUnboxed(i int32) Object { return Object{t: tagUnboxed, n: i} }

// NewBoxed wraps a heap header. h must not be nil; use TryFromRawPointer if
// the pointer's validity is not already established.
func NewBoxed(h *Header) Object { return Object{t: tagBoxed, ptr: h} }

func NewEmpty() Object { return Empty }

func (o Object) IsBoxed() bool   { return o.t == tagBoxed }
func (o Object) IsUnboxed() bool { return o.t == tagUnboxed }
func (o Object) IsEmpty() bool   { return o.t == tagEmpty }

// Unbox returns the signed integer payload. Callers must check IsUnboxed
// first; Unbox does not itself fail.
func (o Object) Unbox() int32 { return o.n }

// Raw mirrors the C runtime's raw-word view for diagnostics: the unboxed
// integer shifted/tagged the way spec's wire format describes it, or 0 for
// boxed/empty values (boxed pointers have no portable raw-word printing in
// a Go rendition since they are not real addresses).
func (o Object) Raw() uint64 {
	if o.t == tagUnboxed {
		return uint64(o.n)<<1 | 1
	}
	return 0
}

// AsPtr returns the underlying heap header. Panics if o is not Boxed;
// callers must check IsBoxed first, matching the C macro contract this
// mirrors.
func (o Object) AsPtr() *Header {
	if o.t != tagBoxed {
		panic("object: AsPtr called on a non-boxed value")
	}
	return o.ptr
}

// LamaType reads the header word of a boxed value's Lama type.
func (o Object) LamaType() (Kind, bool) {
	if o.t != tagBoxed || o.ptr == nil {
		return 0, false
	}
	return o.ptr.Type, true
}

// TryFromRawPointer validates a candidate heap pointer before boxing it.
// In the real C runtime this checks word alignment and non-null; in this
// Go rendition every non-nil *Header is, by construction, valid and
// aligned, so the only failure mode that survives is a nil pointer.
func TryFromRawPointer(h *Header) (Object, error) {
	if h == nil {
		return Object{}, verrors.InvalidObjectPointer()
	}
	return NewBoxed(h), nil
}
