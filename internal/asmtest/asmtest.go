// Package asmtest builds bytefile.Bytefile values programmatically for use
// in tests across the verify, interp, and disasm packages — a small
// in-memory assembler standing in for the real Lama compiler's output.
package asmtest

import (
	"encoding/binary"

	"lama/internal/bytefile"
)

type fixup struct {
	at    int // byte offset of the int32 operand to patch
	label string
}

// Builder assembles one code section, tracking labels and forward
// references so tests can write control flow without hand-computing
// offsets.
type Builder struct {
	code    []byte
	labels  map[string]int32
	fixups  []fixup
	strings []byte
	strOff  map[string]int32
	globals int32
}

func New() *Builder {
	return &Builder{
		labels: make(map[string]int32),
		strOff: make(map[string]int32),
	}
}

func (b *Builder) Globals(n int32) *Builder { b.globals = n; return b }

// Label marks the current code offset under name, resolvable by later Jmp*
// calls regardless of emission order.
func (b *Builder) Label(name string) *Builder {
	b.labels[name] = int32(len(b.code))
	return b
}

func (b *Builder) Offset() int32 { return int32(len(b.code)) }

func (b *Builder) emit(byte_ byte) *Builder {
	b.code = append(b.code, byte_)
	return b
}

func (b *Builder) emitI32(v int32) *Builder {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	b.code = append(b.code, buf[:]...)
	return b
}

func (b *Builder) emitI32Label(name string) *Builder {
	b.fixups = append(b.fixups, fixup{at: len(b.code), label: name})
	return b.emitI32(0)
}

// Str interns a string in the pool (if not already present) and returns its
// byte offset.
func (b *Builder) Str(s string) int32 {
	if off, ok := b.strOff[s]; ok {
		return off
	}
	off := int32(len(b.strings))
	b.strings = append(b.strings, []byte(s)...)
	b.strings = append(b.strings, 0)
	b.strOff[s] = off
	return off
}

// --- group 0: BINOP ---

func (b *Builder) Binop(variant byte) *Builder { return b.emit(0x00 | variant) }

// --- group 1: misc ---

func (b *Builder) Const(i int32) *Builder   { return b.emit(0x10).emitI32(i) }
func (b *Builder) StringOp(s string) *Builder {
	return b.emit(0x11).emitI32(b.Str(s))
}
func (b *Builder) Sexp(tag string, n int32) *Builder {
	return b.emit(0x12).emitI32(b.Str(tag)).emitI32(n)
}
func (b *Builder) Sti() *Builder  { return b.emit(0x13) }
func (b *Builder) Sta() *Builder  { return b.emit(0x14) }
func (b *Builder) Jmp(label string) *Builder {
	return b.emit(0x15).emitI32Label(label)
}
func (b *Builder) End() *Builder  { return b.emit(0x16) }
func (b *Builder) Ret() *Builder  { return b.emit(0x17) }
func (b *Builder) Drop() *Builder { return b.emit(0x18) }
func (b *Builder) Dup() *Builder  { return b.emit(0x19) }
func (b *Builder) Swap() *Builder { return b.emit(0x1a) }
func (b *Builder) Elem() *Builder { return b.emit(0x1b) }

// --- groups 2-4: LD/LDA/ST ---

func (b *Builder) Ld(rel byte, index int32) *Builder  { return b.emit(0x20 | rel).emitI32(index) }
func (b *Builder) Lda(rel byte, index int32) *Builder { return b.emit(0x30 | rel).emitI32(index) }
func (b *Builder) St(rel byte, index int32) *Builder  { return b.emit(0x40 | rel).emitI32(index) }

// --- group 5: control ---

func (b *Builder) CjmpZ(label string) *Builder  { return b.emit(0x50).emitI32Label(label) }
func (b *Builder) CjmpNz(label string) *Builder { return b.emit(0x51).emitI32Label(label) }
func (b *Builder) Begin(args, locals int32) *Builder {
	return b.emit(0x52).emitI32(args).emitI32(locals)
}
func (b *Builder) CBegin(args, locals int32) *Builder {
	return b.emit(0x53).emitI32(args).emitI32(locals)
}

type Capture struct {
	Rel   byte
	Index int32
}

func (b *Builder) Closure(label string, captures []Capture) *Builder {
	b.emit(0x54)
	b.emitI32Label(label)
	b.emitI32(int32(len(captures)))
	for _, c := range captures {
		b.emit(c.Rel).emitI32(c.Index)
	}
	return b
}
func (b *Builder) CallC(n int32) *Builder { return b.emit(0x55).emitI32(n) }
func (b *Builder) Call(label string, n int32) *Builder {
	b.emit(0x56)
	b.emitI32Label(label)
	return b.emitI32(n)
}
func (b *Builder) Tag(name string, n int32) *Builder {
	return b.emit(0x57).emitI32(b.Str(name)).emitI32(n)
}
func (b *Builder) Array(n int32) *Builder { return b.emit(0x58).emitI32(n) }
func (b *Builder) Fail(line, col int32) *Builder {
	return b.emit(0x59).emitI32(line).emitI32(col)
}
func (b *Builder) Line(n int32) *Builder { return b.emit(0x5a).emitI32(n) }

// --- group 6: PATT ---

func (b *Builder) Patt(variant byte) *Builder { return b.emit(0x60 | variant) }

// --- group 7: builtins ---

func (b *Builder) Lread() *Builder    { return b.emit(0x70) }
func (b *Builder) Lwrite() *Builder   { return b.emit(0x71) }
func (b *Builder) Llength() *Builder  { return b.emit(0x72) }
func (b *Builder) Lstring() *Builder  { return b.emit(0x73) }
func (b *Builder) Barray(n int32) *Builder { return b.emit(0x74).emitI32(n) }

// --- group 15: STOP ---

func (b *Builder) Stop() *Builder { return b.emit(0xf0) }

// Build resolves every label fixup and returns a Bytefile whose entry point
// is the code offset of "main" (or, if no such label was set, offset 0).
func (b *Builder) Build() *bytefile.Bytefile {
	for _, fx := range b.fixups {
		target, ok := b.labels[fx.label]
		if !ok {
			panic("asmtest: undefined label " + fx.label)
		}
		binary.LittleEndian.PutUint32(b.code[fx.at:fx.at+4], uint32(target))
	}

	entry := int32(0)
	if off, ok := b.labels["main"]; ok {
		entry = off
	}
	nameOff := b.Str("main")

	return &bytefile.Bytefile{
		StringPool:    append([]byte(nil), b.strings...),
		GlobalsCount:  b.globals,
		PublicSymbols: []bytefile.Symbol{{NameOffset: nameOff, CodeOffset: entry}},
		Code:          append([]byte(nil), b.code...),
	}
}
