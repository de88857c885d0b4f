// Package verify implements the static verifier (component C5): a
// reachability and abstract-stack-depth traversal over the code section
// that rejects malformed programs before they run, and patches BEGIN /
// CBEGIN immediates to carry their entry depth.
//
// stack_depth[o] is counted per function, not as the absolute operand-stack
// length: the entry point starts at 0, a function reached by CALL starts at
// n_args+1 (its arguments plus the return-ip slot), and a function reached
// by CLOSURE starts at its declared args+2 (plus the closure). The frame
// header that BEGIN/CBEGIN builds is not counted.
package verify

import (
	"encoding/binary"

	"lama/internal/bytefile"
	"lama/internal/isa"
	"lama/internal/verrors"
)

// unreached marks an offset the traversal never visited.
const unreached = -1

// Result is the output of a successful verification pass.
type Result struct {
	// Depths[o] is the abstract operand-stack depth at offset o, or
	// unreached (-1) if the traversal never visited o.
	Depths []int32
	// Code is bf.Code with every reachable BEGIN/CBEGIN's first
	// immediate patched to carry its entry depth in the upper 16 bits.
	Code []byte
}

type pending struct {
	offset int
	depth  int32
}

// Verify runs the traversal described in spec.md §4.5 starting from the
// bytefile's entry point.
func Verify(bf *bytefile.Bytefile) (*Result, error) {
	entry, err := bf.EntryPoint()
	if err != nil {
		return nil, err
	}
	if len(bf.Code) == 0 {
		return nil, verrors.MalformedBytefile("empty code section")
	}

	depths := make([]int32, len(bf.Code))
	for i := range depths {
		depths[i] = unreached
	}

	code := make([]byte, len(bf.Code))
	copy(code, bf.Code)

	queue := []pending{{offset: entry, depth: 0}}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		if p.offset < 0 || p.offset >= len(code) {
			return nil, verrors.InvalidOffset("jump", p.offset)
		}
		if p.depth < 0 {
			return nil, verrors.NegativeStackDepth(p.offset)
		}

		if depths[p.offset] != unreached {
			if depths[p.offset] != p.depth {
				return nil, verrors.ConflictingStackDepth(p.offset, int(depths[p.offset]), int(p.depth))
			}
			continue
		}
		depths[p.offset] = p.depth

		instr, err := isa.Decode(code, p.offset)
		if err != nil {
			return nil, err
		}
		next := p.offset + instr.Width

		switch instr.Op {
		case isa.OpEnd, isa.OpRet, isa.OpStop, isa.OpFail:
			// No successors.

		case isa.OpJmp:
			if int(instr.A) < 0 || int(instr.A) >= len(code) {
				return nil, verrors.InvalidOffset("jmp", int(instr.A))
			}
			queue = append(queue, pending{offset: int(instr.A), depth: p.depth})

		case isa.OpCjmpZ, isa.OpCjmpNz:
			if int(instr.A) < 0 || int(instr.A) >= len(code) {
				return nil, verrors.InvalidOffset("cjmp", int(instr.A))
			}
			d := p.depth - 1
			queue = append(queue, pending{offset: int(instr.A), depth: d})
			queue = append(queue, pending{offset: next, depth: d})

		case isa.OpCall:
			target, n := int(instr.A), int(instr.B)
			if target < 0 || target >= len(code) {
				return nil, verrors.InvalidOffset("call", target)
			}
			queue = append(queue, pending{offset: target, depth: int32(n + 1)})
			queue = append(queue, pending{offset: next, depth: p.depth - int32(n) + 1})

		case isa.OpCallC:
			n := int(instr.A)
			queue = append(queue, pending{offset: next, depth: p.depth - int32(n)})

		case isa.OpClosure:
			target := int(instr.A)
			if target < 0 || target >= len(code) {
				return nil, verrors.InvalidOffset("closure", target)
			}
			body, err := isa.Decode(code, target)
			if err != nil {
				return nil, err
			}
			if body.Op != isa.OpCBegin {
				return nil, verrors.InvalidOffset("closure", target)
			}
			// The body is only ever entered through CALLC, which inserts
			// a return-ip below the closure and its args_count arguments
			// (one more slot than a plain CALL's return-ip/args, to account
			// for the closure object CBegin also pops).
			queue = append(queue, pending{offset: target, depth: body.A + 2})
			queue = append(queue, pending{offset: next, depth: p.depth + 1})

		case isa.OpBegin, isa.OpCBegin:
			// Entry depth was just recorded above; the frame header the
			// interpreter builds underneath this point does not change
			// the abstract depth the verifier tracks, so the body
			// continues at the same depth.
			queue = append(queue, pending{offset: next, depth: p.depth})

		default:
			delta, err := stackEffect(instr)
			if err != nil {
				return nil, err
			}
			queue = append(queue, pending{offset: next, depth: p.depth + delta})
		}

		if instr.Op == isa.OpString || instr.Op == isa.OpSexp || instr.Op == isa.OpTag {
			if err := checkStringOffset(bf, instr); err != nil {
				return nil, err
			}
		}
	}

	patchBegins(code, depths)

	return &Result{Depths: depths, Code: code}, nil
}

func checkStringOffset(bf *bytefile.Bytefile, instr isa.Instr) error {
	off := instr.A
	if off < 0 || int(off) >= len(bf.StringPool) {
		return verrors.InvalidOffset("string", int(off))
	}
	return nil
}

// stackEffect returns the net operand-stack delta for every instruction
// whose effect is a flat push/pop count (spec.md §4.5's table); control
// flow instructions with bespoke successor formulas are handled directly
// by the traversal above and never reach here.
func stackEffect(in isa.Instr) (int32, error) {
	switch in.Op {
	case isa.OpConst, isa.OpString, isa.OpLd, isa.OpLda, isa.OpDup, isa.OpLread:
		return 1, nil
	case isa.OpDrop, isa.OpBinop, isa.OpElem, isa.OpCjmpZ, isa.OpCjmpNz:
		return -1, nil
	case isa.OpSta, isa.OpSti:
		return -2, nil
	case isa.OpSwap, isa.OpSt, isa.OpTag, isa.OpPatt, isa.OpLine,
		isa.OpLwrite, isa.OpLlength, isa.OpLstring:
		return 0, nil
	case isa.OpSexp:
		return -in.B + 1, nil
	case isa.OpArray, isa.OpBarray:
		return -in.A + 1, nil
	default:
		return 0, verrors.UnknownOpcode(0, in.Offset)
	}
}

// patchBegins embeds each reachable BEGIN/CBEGIN's entry depth into the
// upper 16 bits of its first immediate (the args count), little-endian,
// leaving the low 16 bits (the args count itself) untouched.
func patchBegins(code []byte, depths []int32) {
	for offset, d := range depths {
		if d == unreached {
			continue
		}
		instr, err := isa.Decode(code, offset)
		if err != nil {
			continue
		}
		if instr.Op != isa.OpBegin && instr.Op != isa.OpCBegin {
			continue
		}
		immOff := offset + 1 // first immediate (args count) follows the opcode byte
		raw := binary.LittleEndian.Uint32(code[immOff : immOff+4])
		raw = (raw & 0x0000ffff) | (uint32(uint16(d)) << 16)
		binary.LittleEndian.PutUint32(code[immOff:immOff+4], raw)
	}
}

// EntryDepth extracts a patched BEGIN/CBEGIN's embedded entry depth from
// its first immediate.
func EntryDepth(argsImmediate int32) int32 {
	return int32(int16(uint32(argsImmediate) >> 16))
}

// ArgsCount extracts the unpatched low 16 bits (the real args count) from
// a possibly-patched BEGIN/CBEGIN first immediate.
func ArgsCount(argsImmediate int32) int32 {
	return int32(int16(uint32(argsImmediate) & 0xffff))
}
