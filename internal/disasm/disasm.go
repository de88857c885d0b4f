// Package disasm renders decoded instructions as text, backing the CLI's
// --dump-bytefile and -f flags (component left external per spec.md §1,
// built here against the same isa/bytefile/verify types the interpreter
// uses).
package disasm

import (
	"fmt"
	"sort"
	"strings"

	"lama/internal/bytefile"
	"lama/internal/isa"
	"lama/internal/verify"
)

// opName renders an isa.Op the way a disassembly listing would name it.
func opName(op isa.Op) string {
	names := map[isa.Op]string{
		isa.OpBinop: "BINOP", isa.OpConst: "CONST", isa.OpString: "STRING",
		isa.OpSexp: "SEXP", isa.OpSti: "STI", isa.OpSta: "STA", isa.OpJmp: "JMP",
		isa.OpEnd: "END", isa.OpRet: "RET", isa.OpDrop: "DROP", isa.OpDup: "DUP",
		isa.OpSwap: "SWAP", isa.OpElem: "ELEM", isa.OpLd: "LD", isa.OpLda: "LDA",
		isa.OpSt: "ST", isa.OpCjmpZ: "CJMPz", isa.OpCjmpNz: "CJMPnz",
		isa.OpBegin: "BEGIN", isa.OpCBegin: "CBEGIN", isa.OpClosure: "CLOSURE",
		isa.OpCallC: "CALLC", isa.OpCall: "CALL", isa.OpTag: "TAG", isa.OpArray: "ARRAY",
		isa.OpFail: "FAIL", isa.OpLine: "LINE", isa.OpPatt: "PATT", isa.OpLread: "LREAD",
		isa.OpLwrite: "LWRITE", isa.OpLlength: "LLENGTH", isa.OpLstring: "LSTRING",
		isa.OpBarray: "BARRAY", isa.OpStop: "STOP",
	}
	if n, ok := names[op]; ok {
		return n
	}
	return "?"
}

// Line renders one decoded instruction the way a disassembly listing
// would: offset, mnemonic, and its immediates.
func Line(in isa.Instr) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%5d:\t%s", in.Offset, opName(in.Op))
	switch in.Op {
	case isa.OpBinop:
		fmt.Fprintf(&b, "\t%s", in.Binop)
	case isa.OpConst, isa.OpString, isa.OpJmp, isa.OpCjmpZ, isa.OpCjmpNz, isa.OpCallC, isa.OpArray, isa.OpBarray, isa.OpLine:
		fmt.Fprintf(&b, "\t%d", in.A)
	case isa.OpSexp, isa.OpTag:
		fmt.Fprintf(&b, "\t%d %d", in.A, in.B)
	case isa.OpLd, isa.OpLda, isa.OpSt:
		fmt.Fprintf(&b, "\t%s(%d)", in.Rel, in.Index)
	case isa.OpBegin, isa.OpCBegin, isa.OpCall:
		fmt.Fprintf(&b, "\t%d %d", in.A, in.B)
	case isa.OpClosure:
		fmt.Fprintf(&b, "\t%d %d", in.A, in.B)
		for _, c := range in.Captures {
			fmt.Fprintf(&b, " %s(%d)", c.Rel, c.Index)
		}
	case isa.OpFail:
		fmt.Fprintf(&b, "\t%d:%d", in.A, in.B)
	case isa.OpPatt:
		fmt.Fprintf(&b, "\t%s", isa.PatternName(in.A))
	}
	return b.String()
}

// Dump disassembles every reachable offset in the verifier's result, in
// ascending offset order, one instruction per line.
func Dump(bf *bytefile.Bytefile, verified *verify.Result) (string, error) {
	var lines []string
	for offset, depth := range verified.Depths {
		if depth < 0 {
			continue
		}
		in, err := isa.Decode(verified.Code, offset)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("%s\t; depth=%d", Line(in), depth))
	}
	return strings.Join(lines, "\n"), nil
}

// Frequency tallies how often each opcode mnemonic appears among reachable
// offsets only — unreachable bytes are never decoded, matching the
// verifier's own traversal scope.
func Frequency(verified *verify.Result) (map[string]int, error) {
	counts := make(map[string]int)
	offset := 0
	for offset < len(verified.Code) {
		if verified.Depths[offset] < 0 {
			offset++
			continue
		}
		in, err := isa.Decode(verified.Code, offset)
		if err != nil {
			return nil, err
		}
		counts[opName(in.Op)]++
		offset += in.Width
	}
	return counts, nil
}

// FrequencyTable renders Frequency's counts sorted by descending count,
// mnemonic as tiebreaker.
func FrequencyTable(counts map[string]int) string {
	type row struct {
		name string
		n    int
	}
	rows := make([]row, 0, len(counts))
	for name, n := range counts {
		rows = append(rows, row{name, n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].n != rows[j].n {
			return rows[i].n > rows[j].n
		}
		return rows[i].name < rows[j].name
	})
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%-10s %d\n", r.name, r.n)
	}
	return b.String()
}
