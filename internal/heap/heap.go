// Package heap is the foreign runtime facade (component C7): the handful
// of allocation, pattern-predicate, and I/O primitives the reference
// interpreter calls out to a C support library for. There is no cgo here;
// Go's own garbage collector takes the place of the foreign collector; see
// SPEC_FULL.md §4.7 for why that substitution is safe and observable only
// in ways the spec already allows.
package heap

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"lama/internal/object"
	"lama/internal/verrors"
)

// Runtime owns the console I/O streams used by Lread/Lwrite. Tests inject
// their own reader/writer instead of touching stdin/stdout.
type Runtime struct {
	in  *bufio.Reader
	out *bufio.Writer
}

// NewRuntime wires a Runtime to the process's real console streams.
func NewRuntime() *Runtime {
	return &Runtime{in: bufio.NewReader(os.Stdin), out: bufio.NewWriter(os.Stdout)}
}

// NewRuntimeWith wires a Runtime to arbitrary streams, for tests.
func NewRuntimeWith(in *bufio.Reader, out *bufio.Writer) *Runtime {
	return &Runtime{in: in, out: out}
}

// Flush drains any buffered console output; the CLI driver calls this once
// after the dispatch loop exits, win or lose.
func (r *Runtime) Flush() error { return r.out.Flush() }

// Bstring boxes a copy of raw bytes as a Lama string.
func Bstring(raw []byte) object.Object {
	buf := make([]byte, len(raw))
	copy(buf, raw)
	return object.NewBoxed(&object.Header{Type: object.KindString, Str: buf})
}

// Barray boxes n values as a Lama array.
func Barray(elems []object.Object) object.Object {
	return object.NewBoxed(&object.Header{Type: object.KindArray, Elems: elems})
}

// Bsexp boxes n values plus a tag hash as a Lama S-expression.
func Bsexp(tagHash int32, elems []object.Object) object.Object {
	return object.NewBoxed(&object.Header{Type: object.KindSexp, Tag: tagHash, Elems: elems})
}

// Bclosure boxes an entry point plus its captured values as a Lama closure.
// CALLC reads the jump target from Code; the captures are stored in Elems,
// indexed from 0.
func Bclosure(entry int32, captures []object.Object) object.Object {
	return object.NewBoxed(&object.Header{Type: object.KindClosure, Code: entry, Elems: captures})
}

// Bstring_patt reports whether v is a boxed string.
func Bstring_patt(v object.Object) bool {
	k, ok := v.LamaType()
	return ok && k == object.KindString
}

// Barray_patt reports whether v is a boxed array.
func Barray_patt(v object.Object) bool {
	k, ok := v.LamaType()
	return ok && k == object.KindArray
}

// Bclosure_tag_patt reports whether v is a boxed closure.
func Bclosure_tag_patt(v object.Object) bool {
	k, ok := v.LamaType()
	return ok && k == object.KindClosure
}

// Bboxed_patt reports whether v is any boxed value.
func Bboxed_patt(v object.Object) bool { return v.IsBoxed() }

// Bunboxed_patt reports whether v is an unboxed integer.
func Bunboxed_patt(v object.Object) bool { return v.IsUnboxed() }

// Barray_tag_patt reports whether v is a boxed array (distinct predicate
// name from Barray_patt per the foreign runtime's own duplication: the
// array-tag pattern and the array type-test share an implementation).
func Barray_tag_patt(v object.Object) bool { return Barray_patt(v) }

// Bstring_tag_patt mirrors Bstring_patt for the same reason.
func Bstring_tag_patt(v object.Object) bool { return Bstring_patt(v) }

// Bsexp_tag_patt reports whether v is a boxed S-expression.
func Bsexp_tag_patt(v object.Object) bool {
	k, ok := v.LamaType()
	return ok && k == object.KindSexp
}

// Well-known sexp tags the compiler's list sugar relies on.
const (
	TagCons = "cons"
	TagNil  = "nil"
)

// LtagHash computes the sexp tag hash the compiler embeds for a
// constructor name, using the runtime's own polynomial hash (base 31,
// the scheme the reference C runtime and most of its ports use for
// interned symbol hashing).
func LtagHash(name string) int32 {
	var h int32
	for i := 0; i < len(name); i++ {
		h = h*31 + int32(name[i])
	}
	return h
}

var wellKnownHashes = map[int32]string{
	LtagHash(TagCons): TagCons,
	LtagHash(TagNil):  TagNil,
}

// de_hash renders a tag hash back to its source name when it is one of the
// well-known constructors the standard library's list sugar uses, and to a
// numeric placeholder otherwise: the hash is one-way, so arbitrary
// programmer-chosen constructor names cannot be recovered from it alone.
func de_hash(tagHash int32) string {
	if name, ok := wellKnownHashes[tagHash]; ok {
		return name
	}
	return fmt.Sprintf("tag<%d>", tagHash)
}

// DeHash exports de_hash.
func DeHash(tagHash int32) string { return de_hash(tagHash) }

// Lread reads one line from the console and parses it as a decimal
// integer, mirroring the standard library's "read" builtin.
func (r *Runtime) Lread() (object.Object, error) {
	line, err := r.in.ReadString('\n')
	if err != nil && line == "" {
		return object.Object{}, verrors.NotEnoughArguments(1, 0)
	}
	line = strings.TrimSpace(line)
	var n int32
	if _, err := fmt.Sscanf(line, "%d", &n); err != nil {
		return object.Object{}, verrors.TypeMismatch("read")
	}
	return object.NewUnboxed(n), nil
}

// Lwrite prints v's unboxed value followed by a newline and returns 0, the
// standard library's "write" convention.
func (r *Runtime) Lwrite(v object.Object) (object.Object, error) {
	if !v.IsUnboxed() {
		return object.Object{}, verrors.TypeMismatch("write")
	}
	fmt.Fprintf(r.out, "%d\n", v.Unbox())
	return object.NewUnboxed(0), nil
}

// Llength returns a boxed value's element/byte count as an unboxed int.
func Llength(v object.Object) (object.Object, error) {
	k, ok := v.LamaType()
	if !ok {
		return object.Object{}, verrors.TypeMismatch("length")
	}
	switch k {
	case object.KindString:
		return object.NewUnboxed(int32(len(v.AsPtr().Str))), nil
	case object.KindArray, object.KindSexp:
		return object.NewUnboxed(int32(len(v.AsPtr().Elems))), nil
	case object.KindClosure:
		return object.NewUnboxed(int32(len(v.AsPtr().Elems))), nil
	default:
		return object.Object{}, verrors.TypeMismatch("length")
	}
}

// Lstring renders any value as a printable Lama string, following the cons
// list sugar the standard library's GenericShow uses: a two-element sexp
// tagged "cons" prints as a brace-delimited, comma-separated list such as
// "{1, 2}", and "nil" prints as "{}".
func Lstring(v object.Object) (object.Object, error) {
	return Bstring([]byte(renderValue(v))), nil
}

func renderValue(v object.Object) string {
	if v.IsUnboxed() {
		return fmt.Sprintf("%d", v.Unbox())
	}
	if v.IsEmpty() {
		return ""
	}
	h := v.AsPtr()
	switch h.Type {
	case object.KindString:
		return string(h.Str)
	case object.KindArray:
		parts := make([]string, len(h.Elems))
		for i, e := range h.Elems {
			parts[i] = renderValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case object.KindClosure:
		return fmt.Sprintf("<closure 0x%x>", h.Code)
	case object.KindSexp:
		name := de_hash(h.Tag)
		if name == TagCons && len(h.Elems) == 2 {
			return renderConsList(v)
		}
		if name == TagNil && len(h.Elems) == 0 {
			return "{}"
		}
		parts := make([]string, len(h.Elems))
		for i, e := range h.Elems {
			parts[i] = renderValue(e)
		}
		if len(parts) == 0 {
			return name
		}
		return name + " (" + strings.Join(parts, ", ") + ")"
	default:
		return "?"
	}
}

func renderConsList(v object.Object) string {
	var parts []string
	cur := v
	for {
		if !cur.IsBoxed() {
			break
		}
		h := cur.AsPtr()
		if h.Type != object.KindSexp {
			break
		}
		name := de_hash(h.Tag)
		if name == TagNil && len(h.Elems) == 0 {
			break
		}
		if name != TagCons || len(h.Elems) != 2 {
			parts = append(parts, renderValue(cur))
			break
		}
		parts = append(parts, renderValue(h.Elems[0]))
		cur = h.Elems[1]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
