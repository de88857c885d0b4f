// Package bytefile decodes the fixed on-disk layout produced by the Lama
// compiler into an in-memory Bytefile (component C2).
package bytefile

import (
	"encoding/binary"

	"lama/internal/verrors"
)

// maxFileSize is the decoder's hard ceiling: files of exactly 1 GiB or
// larger are rejected, 1 GiB - 1 is accepted.
const maxFileSize = 1 << 30

const headerSize = 4 + 4 + 4 // string_pool_size, globals_count, public_symbols_count

// Symbol is one (name_offset, code_offset) entry of the public symbol
// table. The entry point is PublicSymbols[0].
type Symbol struct {
	NameOffset int32
	CodeOffset int32
}

const symbolBytes = 8

// Bytefile is the decoded, immutable-except-for-verifier-patch artifact
// described in spec.md §3.
type Bytefile struct {
	StringPool    []byte
	GlobalsCount  int32
	PublicSymbols []Symbol
	Code          []byte
}

// EntryPoint is the code-section offset of the program's entry point: the
// first public symbol.
func (b *Bytefile) EntryPoint() (int, error) {
	if len(b.PublicSymbols) == 0 {
		return 0, verrors.MalformedBytefile("no public symbols, cannot determine entry point")
	}
	ep := int(b.PublicSymbols[0].CodeOffset)
	if ep < 0 || ep >= len(b.Code) {
		return 0, verrors.MalformedBytefile("entry point falls outside the code section")
	}
	return ep, nil
}

// String looks up the NUL-terminated string at the given string-pool byte
// offset.
func (b *Bytefile) String(offset int32) (string, error) {
	if offset < 0 || int(offset) >= len(b.StringPool) {
		return "", verrors.InvalidCString(int(offset))
	}
	end := int(offset)
	for end < len(b.StringPool) && b.StringPool[end] != 0 {
		end++
	}
	if end >= len(b.StringPool) {
		return "", verrors.InvalidCString(int(offset))
	}
	return string(b.StringPool[offset:end]), nil
}

// Decode parses a raw byte buffer (the contents of a .bc file) into a
// Bytefile, validating section sizes and string-pool offsets for the
// public symbol table (other string references are validated by the
// verifier, which is the only component that knows which instructions are
// actually reachable).
//
// path is used only to build diagnostics for FileIsTooLarge.
func Decode(path string, data []byte) (*Bytefile, error) {
	if len(data) >= maxFileSize {
		return nil, verrors.FileIsTooLarge(path, int64(len(data)))
	}
	if len(data) < headerSize {
		return nil, verrors.MalformedBytefile("file shorter than the fixed header")
	}

	stringPoolSize := int(binary.LittleEndian.Uint32(data[0:4]))
	globalsCount := int32(binary.LittleEndian.Uint32(data[4:8]))
	publicSymbolsCount := int(binary.LittleEndian.Uint32(data[8:12]))

	if stringPoolSize < 0 || globalsCount < 0 || publicSymbolsCount < 0 {
		return nil, verrors.MalformedBytefile("negative section size")
	}

	cursor := headerSize
	poolEnd := cursor + stringPoolSize
	if poolEnd < cursor || poolEnd > len(data) {
		return nil, verrors.MalformedBytefile("string pool size overruns the file")
	}
	stringPool := data[cursor:poolEnd]
	cursor = poolEnd

	symsEnd := cursor + publicSymbolsCount*symbolBytes
	if symsEnd < cursor || symsEnd > len(data) {
		return nil, verrors.MalformedBytefile("public symbol table size overruns the file")
	}

	symbols := make([]Symbol, publicSymbolsCount)
	for i := 0; i < publicSymbolsCount; i++ {
		off := cursor + i*symbolBytes
		name := int32(binary.LittleEndian.Uint32(data[off : off+4]))
		code := int32(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		if name < 0 || int(name) >= len(stringPool) {
			return nil, verrors.MalformedBytefile("public symbol name offset outside string pool")
		}
		symbols[i] = Symbol{NameOffset: name, CodeOffset: code}
	}
	cursor = symsEnd

	code := data[cursor:]

	bf := &Bytefile{
		StringPool:    stringPool,
		GlobalsCount:  globalsCount,
		PublicSymbols: symbols,
		Code:          code,
	}

	if _, err := bf.EntryPoint(); err != nil {
		return nil, err
	}

	return bf, nil
}
