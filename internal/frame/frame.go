// Package frame lays out one call frame on the operand stack (component
// C4): a fixed five-word header, followed by the arguments, followed by
// the locals. frame_pointer always refers to the header's first word.
package frame

import (
	"lama/internal/object"
	"lama/internal/verrors"
)

const (
	offClosure = 0
	offArgs    = 1
	offLocals  = 2
	offPrevFP  = 3
	offRetIP   = 4
	HeaderSize = 5
)

// Header describes the five fixed words of a frame, already unboxed where
// applicable, for callers that need all of them at once (END/RET teardown,
// --dump-cfg).
type Header struct {
	Closure      object.Object
	ArgsCount    int
	LocalsCount  int
	PrevFP       int
	ReturnIP     object.Object // Empty for the outermost frame
}

// ReadHeader reads the frame whose header starts at fp.
func ReadHeader(stack []object.Object, fp int) (Header, error) {
	if fp < 0 || fp+HeaderSize > len(stack) {
		return Header{}, verrors.StackUnderflow()
	}
	argsObj := stack[fp+offArgs]
	localsObj := stack[fp+offLocals]
	prevObj := stack[fp+offPrevFP]
	if !argsObj.IsUnboxed() || !localsObj.IsUnboxed() || !prevObj.IsUnboxed() {
		return Header{}, verrors.TypeMismatch("frame header")
	}
	return Header{
		Closure:     stack[fp+offClosure],
		ArgsCount:   int(argsObj.Unbox()),
		LocalsCount: int(localsObj.Unbox()),
		PrevFP:      int(prevObj.Unbox()),
		ReturnIP:    stack[fp+offRetIP],
	}, nil
}

// WriteHeader writes a frame's fixed header words at fp.
func WriteHeader(stack []object.Object, fp int, h Header) {
	stack[fp+offClosure] = h.Closure
	stack[fp+offArgs] = object.NewUnboxed(int32(h.ArgsCount))
	stack[fp+offLocals] = object.NewUnboxed(int32(h.LocalsCount))
	stack[fp+offPrevFP] = object.NewUnboxed(int32(h.PrevFP))
	stack[fp+offRetIP] = h.ReturnIP
}

// ArgAt returns the i-th argument (0-indexed) of the frame based at fp.
func ArgAt(stack []object.Object, fp, argsCount, i int) (object.Object, error) {
	if i < 0 || i >= argsCount {
		return object.Object{}, verrors.InvalidLoadIndex("arg", i, argsCount-1)
	}
	return stack[fp+HeaderSize+i], nil
}

// SetArgAt overwrites the i-th argument of the frame based at fp.
func SetArgAt(stack []object.Object, fp, argsCount, i int, v object.Object) error {
	if i < 0 || i >= argsCount {
		return verrors.InvalidLoadIndex("arg", i, argsCount-1)
	}
	stack[fp+HeaderSize+i] = v
	return nil
}

// LocalAt returns the i-th local of the frame based at fp.
func LocalAt(stack []object.Object, fp, argsCount, localsCount, i int) (object.Object, error) {
	if i < 0 || i >= localsCount {
		return object.Object{}, verrors.InvalidLoadIndex("local", i, localsCount-1)
	}
	return stack[fp+HeaderSize+argsCount+i], nil
}

// SetLocalAt overwrites the i-th local of the frame based at fp.
func SetLocalAt(stack []object.Object, fp, argsCount, localsCount, i int, v object.Object) error {
	if i < 0 || i >= localsCount {
		return verrors.InvalidLoadIndex("local", i, localsCount-1)
	}
	stack[fp+HeaderSize+argsCount+i] = v
	return nil
}
