// Package isa decodes a single bytecode instruction from the code section
// (component C3): one opcode byte, split into a high-nibble group and
// low-nibble variant, followed by zero or more fixed-width immediates.
package isa

import (
	"encoding/binary"

	"lama/internal/verrors"
)

// Group is the opcode byte's high nibble.
type Group byte

const (
	GroupBinop    Group = 0x0
	GroupMisc     Group = 0x1
	GroupLD       Group = 0x2
	GroupLDA      Group = 0x3
	GroupST       Group = 0x4
	GroupControl  Group = 0x5
	GroupPatt     Group = 0x6
	GroupBuiltin  Group = 0x7
	GroupStop     Group = 0xF
)

// Op names every distinct operation the interpreter and verifier dispatch
// on, after folding group+variant into one value.
type Op int

const (
	OpBinop Op = iota // Binop field selects +,-,*,/,...

	OpConst
	OpString
	OpSexp
	OpSti
	OpSta
	OpJmp
	OpEnd
	OpRet
	OpDrop
	OpDup
	OpSwap
	OpElem

	OpLd
	OpLda
	OpSt

	OpCjmpZ
	OpCjmpNz
	OpBegin
	OpCBegin
	OpClosure
	OpCallC
	OpCall
	OpTag
	OpArray
	OpFail
	OpLine

	OpPatt

	OpLread
	OpLwrite
	OpLlength
	OpLstring
	OpBarray

	OpStop
)

// Rel distinguishes which address space LD/LDA/ST resolve against.
type Rel byte

const (
	RelGlobal Rel = iota
	RelLocal
	RelArg
	RelCapture
)

func (r Rel) String() string {
	switch r {
	case RelGlobal:
		return "G"
	case RelLocal:
		return "L"
	case RelArg:
		return "A"
	case RelCapture:
		return "C"
	default:
		return "?"
	}
}

// BinopKind enumerates the thirteen binary operators packed into group 0's
// low nibble, 1-indexed to match spec.md's variant numbering.
type BinopKind byte

const (
	BinopAdd BinopKind = iota + 1
	BinopSub
	BinopMul
	BinopDiv
	BinopMod
	BinopLt
	BinopLe
	BinopGt
	BinopGe
	BinopEq
	BinopNe
	BinopAnd
	BinopOr
)

// Capture is one (rel, index) pair captured by a CLOSURE instruction.
type Capture struct {
	Rel   Rel
	Index int32
}

// Instr is a fully decoded instruction: the operation plus whichever
// immediates it carries. Width is the number of bytes consumed including
// the opcode byte itself, so callers can advance their cursor.
type Instr struct {
	Op       Op
	Offset   int // code-section offset this instruction starts at
	Width    int
	Binop    BinopKind
	Rel      Rel
	Index    int32
	A, B     int32 // generic two-immediate slot (string offset/n, args/locals, offset/nargs, line/col, ...)
	Captures []Capture
}

func i32(code []byte, at int) (int32, error) {
	if at+4 > len(code) {
		return 0, verrors.MalformedBytefileTruncated()
	}
	return int32(binary.LittleEndian.Uint32(code[at : at+4])), nil
}

func u8(code []byte, at int) (byte, error) {
	if at+1 > len(code) {
		return 0, verrors.MalformedBytefileTruncated()
	}
	return code[at], nil
}

// Decode reads one instruction starting at offset. It never looks beyond
// the declared code section; truncated immediates surface as a decode
// error rather than a panic.
func Decode(code []byte, offset int) (Instr, error) {
	if offset < 0 || offset >= len(code) {
		return Instr{}, verrors.InvalidJumpOffset(offset)
	}
	b := code[offset]
	group := Group(b >> 4)
	variant := b & 0x0f
	cursor := offset + 1

	in := Instr{Offset: offset}

	readI32 := func() (int32, error) {
		v, err := i32(code, cursor)
		if err != nil {
			return 0, err
		}
		cursor += 4
		return v, nil
	}
	readByte := func() (byte, error) {
		v, err := u8(code, cursor)
		if err != nil {
			return 0, err
		}
		cursor++
		return v, nil
	}

	switch group {
	case GroupBinop:
		if variant < 1 || variant > 13 {
			return Instr{}, verrors.UnknownOpcode(b, offset)
		}
		in.Op = OpBinop
		in.Binop = BinopKind(variant)

	case GroupMisc:
		switch variant {
		case 0:
			in.Op = OpConst
			v, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A = v
		case 1:
			in.Op = OpString
			v, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A = v
		case 2:
			in.Op = OpSexp
			s, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			n, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A, in.B = s, n
		case 3:
			in.Op = OpSti
		case 4:
			in.Op = OpSta
		case 5:
			in.Op = OpJmp
			v, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A = v
		case 6:
			in.Op = OpEnd
		case 7:
			in.Op = OpRet
		case 8:
			in.Op = OpDrop
		case 9:
			in.Op = OpDup
		case 10:
			in.Op = OpSwap
		case 11:
			in.Op = OpElem
		default:
			return Instr{}, verrors.UnknownOpcode(b, offset)
		}

	case GroupLD, GroupLDA, GroupST:
		if variant > 3 {
			return Instr{}, verrors.UnknownOpcode(b, offset)
		}
		switch group {
		case GroupLD:
			in.Op = OpLd
		case GroupLDA:
			in.Op = OpLda
		case GroupST:
			in.Op = OpSt
		}
		in.Rel = Rel(variant)
		v, err := readI32()
		if err != nil {
			return Instr{}, err
		}
		in.Index = v

	case GroupControl:
		switch variant {
		case 0:
			in.Op = OpCjmpZ
			v, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A = v
		case 1:
			in.Op = OpCjmpNz
			v, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A = v
		case 2, 3:
			if variant == 2 {
				in.Op = OpBegin
			} else {
				in.Op = OpCBegin
			}
			args, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			locals, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A, in.B = args, locals
		case 4:
			in.Op = OpClosure
			target, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			n, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A, in.B = target, n
			caps := make([]Capture, 0, n)
			for i := int32(0); i < n; i++ {
				relB, err := readByte()
				if err != nil {
					return Instr{}, err
				}
				idx, err := readI32()
				if err != nil {
					return Instr{}, err
				}
				caps = append(caps, Capture{Rel: Rel(relB), Index: idx})
			}
			in.Captures = caps
		case 5:
			in.Op = OpCallC
			v, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A = v
		case 6:
			in.Op = OpCall
			target, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			n, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A, in.B = target, n
		case 7:
			in.Op = OpTag
			s, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			n, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A, in.B = s, n
		case 8:
			in.Op = OpArray
			v, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A = v
		case 9:
			in.Op = OpFail
			line, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			col, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A, in.B = line, col
		case 10:
			in.Op = OpLine
			v, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A = v
		default:
			return Instr{}, verrors.UnknownOpcode(b, offset)
		}

	case GroupPatt:
		if variant > 7 {
			return Instr{}, verrors.UnknownOpcode(b, offset)
		}
		in.Op = OpPatt
		in.A = int32(variant)

	case GroupBuiltin:
		switch variant {
		case 0:
			in.Op = OpLread
		case 1:
			in.Op = OpLwrite
		case 2:
			in.Op = OpLlength
		case 3:
			in.Op = OpLstring
		case 4:
			in.Op = OpBarray
			v, err := readI32()
			if err != nil {
				return Instr{}, err
			}
			in.A = v
		default:
			return Instr{}, verrors.UnknownOpcode(b, offset)
		}

	case GroupStop:
		if variant != 0 {
			return Instr{}, verrors.UnknownOpcode(b, offset)
		}
		in.Op = OpStop

	default:
		return Instr{}, verrors.UnknownOpcode(b, offset)
	}

	in.Width = cursor - offset
	return in, nil
}

// PatternName renders group-6 variants in the order §6 lists the foreign
// runtime's eight pattern predicates, for disassembly and diagnostics.
func PatternName(variant int32) string {
	names := []string{
		"string", "array", "closure", "boxed", "unboxed", "array-tag", "string-tag", "sexp-tag",
	}
	if variant < 0 || int(variant) >= len(names) {
		return "?"
	}
	return names[variant]
}

func (k BinopKind) String() string {
	names := map[BinopKind]string{
		BinopAdd: "+", BinopSub: "-", BinopMul: "*", BinopDiv: "/", BinopMod: "%",
		BinopLt: "<", BinopLe: "<=", BinopGt: ">", BinopGe: ">=",
		BinopEq: "==", BinopNe: "!=", BinopAnd: "&&", BinopOr: "!!",
	}
	if s, ok := names[k]; ok {
		return s
	}
	return "?"
}
