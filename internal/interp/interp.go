// Package interp is the dispatch loop (component C6): it owns the operand
// stack, the current frame pointer, and the global slots, and executes one
// decoded instruction at a time against the foreign runtime facade in
// package heap.
package interp

import (
	"runtime/debug"

	"lama/internal/bytefile"
	"lama/internal/frame"
	"lama/internal/heap"
	"lama/internal/isa"
	"lama/internal/object"
	"lama/internal/verify"
	"lama/internal/verrors"
)

// MaxArgLen bounds every fixed-size argument buffer (SEXP/BEGIN/CLOSURE/
// ARRAY/BARRAY); wider arities fail with TooManyArguments rather than grow
// the buffer, matching the host's no-allocation-during-dispatch discipline.
const MaxArgLen = 64

// Machine is one interpreter instance: a bytefile, an operand stack, and
// the frame/global state the dispatch loop mutates in place.
type Machine struct {
	bf      *bytefile.Bytefile
	code    []byte // the verifier-patched code section
	depths  []int32
	stack   []object.Object
	globals []object.Object
	fp      int
	ip      int
	rt      *heap.Runtime

	// stackBottom/stackTop stand in for the foreign GC's
	// __gc_stack_bottom/__gc_stack_top globals (§4.6, §9): this Go
	// rendition's collector scans the real Go stack and heap precisely,
	// so these are bookkeeping for diagnostics only, not GC roots.
	stackBottom, stackTop int
}

// New constructs a Machine from a decoded bytefile and the verifier's
// result, reserving an operand stack of the given word capacity.
func New(bf *bytefile.Bytefile, verified *verify.Result, rt *heap.Runtime, stackCapacity int) (*Machine, error) {
	entry, err := bf.EntryPoint()
	if err != nil {
		return nil, err
	}

	globals := make([]object.Object, bf.GlobalsCount)
	for i := range globals {
		globals[i] = object.NewUnboxed(0)
	}

	m := &Machine{
		bf:      bf,
		code:    verified.Code,
		depths:  verified.Depths,
		stack:   make([]object.Object, 0, stackCapacity),
		globals: globals,
		fp:      -1,
		ip:      entry,
		rt:      rt,
	}
	// The outermost call has no real caller: simulate the return-ip slot
	// CALL would otherwise have pushed, as Empty so END at the outermost
	// frame can recognise termination.
	m.stack = append(m.stack, object.Empty)
	m.stackBottom = 0
	m.stackTop = len(m.stack)
	return m, nil
}

func (m *Machine) push(v object.Object) error {
	if len(m.stack) == cap(m.stack) {
		return verrors.StackOverflow(cap(m.stack))
	}
	m.stack = append(m.stack, v)
	m.stackTop = len(m.stack)
	return nil
}

func (m *Machine) pop() (object.Object, error) {
	if len(m.stack) == 0 {
		return object.Object{}, verrors.StackUnderflow()
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	m.stackTop = len(m.stack)
	return v, nil
}

func (m *Machine) checkOffset(o int) error {
	if o < 0 || o >= len(m.code) {
		return verrors.InvalidJumpOffset(o)
	}
	return nil
}

// Run executes the dispatch loop until STOP, the outermost END/RET, or a
// fatal error. Matching the teacher's exec loop, the garbage collector is
// disabled for the duration of dispatch and restored afterward — there is
// no allocation-triggering call here that the host does not already expect
// to pay for at a frame boundary.
func (m *Machine) Run() error {
	old := debug.SetGCPercent(-1)
	defer debug.SetGCPercent(old)

	for {
		halt, err := m.step()
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
	}
}

// step decodes and executes the instruction at ip, returning true when the
// program has halted (STOP or outermost END/RET).
func (m *Machine) step() (bool, error) {
	in, err := isa.Decode(m.code, m.ip)
	if err != nil {
		return false, err
	}
	next := m.ip + in.Width

	switch in.Op {
	case isa.OpBinop:
		return false, m.execBinop(in, next)
	case isa.OpConst:
		if err := m.push(object.NewUnboxed(in.A)); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpString:
		s, err := m.bf.String(in.A)
		if err != nil {
			return false, err
		}
		if err := m.push(heap.Bstring([]byte(s))); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpSexp:
		if err := m.execSexp(in); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpSti:
		if err := m.execSti(); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpSta:
		if err := m.execSta(); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpJmp:
		if err := m.checkOffset(int(in.A)); err != nil {
			return false, err
		}
		m.ip = int(in.A)
	case isa.OpEnd, isa.OpRet:
		return m.execEnd()
	case isa.OpDrop:
		if _, err := m.pop(); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpDup:
		if len(m.stack) == 0 {
			return false, verrors.StackUnderflow()
		}
		if err := m.push(m.stack[len(m.stack)-1]); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpSwap:
		n := len(m.stack)
		if n < 2 {
			return false, verrors.StackUnderflow()
		}
		m.stack[n-1], m.stack[n-2] = m.stack[n-2], m.stack[n-1]
		m.ip = next
	case isa.OpElem:
		if err := m.execElem(); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpLd:
		v, err := m.resolveRead(in.Rel, in.Index)
		if err != nil {
			return false, err
		}
		if err := m.push(v); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpLda:
		if err := m.push(object.NewUnboxed(encodeRef(in.Rel, in.Index))); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpSt:
		if len(m.stack) == 0 {
			return false, verrors.StackUnderflow()
		}
		v := m.stack[len(m.stack)-1]
		if err := m.resolveWrite(in.Rel, in.Index, v); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpCjmpZ, isa.OpCjmpNz:
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		if !v.IsUnboxed() {
			return false, verrors.TypeMismatch("cjmp")
		}
		zero := v.Unbox() == 0
		jump := (in.Op == isa.OpCjmpZ && zero) || (in.Op == isa.OpCjmpNz && !zero)
		if jump {
			if err := m.checkOffset(int(in.A)); err != nil {
				return false, err
			}
			m.ip = int(in.A)
		} else {
			m.ip = next
		}
	case isa.OpBegin:
		if err := m.execBegin(in, false); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpCBegin:
		if err := m.execBegin(in, true); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpClosure:
		if err := m.execClosure(in); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpCallC:
		target, err := m.execCallC(in)
		if err != nil {
			return false, err
		}
		m.ip = target
	case isa.OpCall:
		if err := m.execCall(in, next); err != nil {
			return false, err
		}
		m.ip = int(in.A)
	case isa.OpTag:
		if err := m.execTag(in); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpArray:
		if err := m.execArrayLike(in.A); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpFail:
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		rendered, err := heap.Lstring(v)
		if err != nil {
			return false, err
		}
		return false, verrors.Fail(in.A, in.B, string(rendered.AsPtr().Str))
	case isa.OpLine:
		m.ip = next
	case isa.OpPatt:
		if err := m.execPatt(in.A); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpLread:
		v, err := m.rt.Lread()
		if err != nil {
			return false, err
		}
		if err := m.push(v); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpLwrite:
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		r, err := m.rt.Lwrite(v)
		if err != nil {
			return false, err
		}
		if err := m.push(r); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpLlength:
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		r, err := heap.Llength(v)
		if err != nil {
			return false, err
		}
		if err := m.push(r); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpLstring:
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		r, err := heap.Lstring(v)
		if err != nil {
			return false, err
		}
		if err := m.push(r); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpBarray:
		if err := m.execArrayLike(in.A); err != nil {
			return false, err
		}
		m.ip = next
	case isa.OpStop:
		return true, nil
	default:
		return false, verrors.UnknownOpcode(0, in.Offset)
	}
	return false, nil
}

func (m *Machine) execBinop(in isa.Instr, next int) error {
	rhs, err := m.pop()
	if err != nil {
		return err
	}
	lhs, err := m.pop()
	if err != nil {
		return err
	}
	if !rhs.IsUnboxed() || !lhs.IsUnboxed() {
		return verrors.TypeMismatch("binop")
	}
	a, b := lhs.Unbox(), rhs.Unbox()
	var r int32
	switch in.Binop {
	case isa.BinopAdd:
		r = a + b
	case isa.BinopSub:
		r = a - b
	case isa.BinopMul:
		r = a * b
	case isa.BinopDiv:
		if b == 0 {
			return verrors.DivisionByZero()
		}
		r = a / b
	case isa.BinopMod:
		if b == 0 {
			return verrors.DivisionByZero()
		}
		r = a % b
	case isa.BinopLt:
		r = boolToInt(a < b)
	case isa.BinopLe:
		r = boolToInt(a <= b)
	case isa.BinopGt:
		r = boolToInt(a > b)
	case isa.BinopGe:
		r = boolToInt(a >= b)
	case isa.BinopEq:
		r = boolToInt(a == b)
	case isa.BinopNe:
		r = boolToInt(a != b)
	case isa.BinopAnd:
		r = boolToInt(a != 0 && b != 0)
	case isa.BinopOr:
		r = boolToInt(a != 0 || b != 0)
	default:
		return verrors.TypeMismatch("binop")
	}
	if err := m.push(object.NewUnboxed(r)); err != nil {
		return err
	}
	m.ip = next
	return nil
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (m *Machine) execSexp(in isa.Instr) error {
	n := int(in.B)
	if n > MaxArgLen {
		return verrors.TooManyArguments(n, MaxArgLen)
	}
	var buf [MaxArgLen]object.Object
	for i := n - 1; i >= 0; i-- {
		v, err := m.pop()
		if err != nil {
			return err
		}
		buf[i] = v
	}
	name, err := m.bf.String(in.A)
	if err != nil {
		return err
	}
	elems := append([]object.Object(nil), buf[:n]...)
	return m.push(heap.Bsexp(heap.LtagHash(name), elems))
}

func (m *Machine) execArrayLike(nImm int32) error {
	n := int(nImm)
	if n < 0 {
		return verrors.InvalidLengthForArray(n)
	}
	if n > MaxArgLen {
		return verrors.TooManyArguments(n, MaxArgLen)
	}
	var buf [MaxArgLen]object.Object
	for i := n - 1; i >= 0; i-- {
		v, err := m.pop()
		if err != nil {
			return err
		}
		buf[i] = v
	}
	elems := append([]object.Object(nil), buf[:n]...)
	return m.push(heap.Barray(elems))
}

func (m *Machine) execElem() error {
	idx, err := m.pop()
	if err != nil {
		return err
	}
	container, err := m.pop()
	if err != nil {
		return err
	}
	if !idx.IsUnboxed() {
		return verrors.TypeMismatch("elem")
	}
	k, ok := container.LamaType()
	if !ok {
		return verrors.TypeMismatch("elem")
	}
	i := int(idx.Unbox())
	switch k {
	case object.KindString:
		str := container.AsPtr().Str
		if i < 0 || i >= len(str) {
			return verrors.StringIndexOutOfBounds(i, len(str))
		}
		return m.push(object.NewUnboxed(int32(str[i])))
	case object.KindArray, object.KindSexp:
		elems := container.AsPtr().Elems
		if i < 0 || i >= len(elems) {
			return verrors.InvalidLoadIndex("elem", i, len(elems)-1)
		}
		return m.push(elems[i])
	default:
		return verrors.TypeMismatch("elem")
	}
}

func (m *Machine) execSta() error {
	value, err := m.pop()
	if err != nil {
		return err
	}
	idx, err := m.pop()
	if err != nil {
		return err
	}
	container, err := m.pop()
	if err != nil {
		return err
	}
	if !idx.IsUnboxed() {
		return verrors.TypeMismatch("sta")
	}
	k, ok := container.LamaType()
	if !ok {
		return verrors.TypeMismatch("sta")
	}
	i := int(idx.Unbox())
	switch k {
	case object.KindArray, object.KindSexp:
		elems := container.AsPtr().Elems
		if i < 0 || i >= len(elems) {
			return verrors.InvalidLoadIndex("sta", i, len(elems)-1)
		}
		elems[i] = value
	case object.KindString:
		str := container.AsPtr().Str
		if i < 0 || i >= len(str) {
			return verrors.StringIndexOutOfBounds(i, len(str))
		}
		if !value.IsUnboxed() {
			return verrors.TypeMismatch("sta")
		}
		str[i] = byte(value.Unbox())
	default:
		return verrors.TypeMismatch("sta")
	}
	return m.push(value)
}

// Synthetic addressable-reference encoding for LDA/STI: the reference C
// runtime pushes a raw memory address that STI later writes through. This
// rendition has no such address to hand out, so LDA instead encodes the
// (rel, index) pair it resolved as an unboxed token that only STI
// understands; every other consumer of the stack treats it as an ordinary
// integer.
func encodeRef(rel isa.Rel, index int32) int32 {
	return int32(byte(rel))<<24 | (index & 0x00ffffff)
}

func decodeRef(v int32) (isa.Rel, int32) {
	return isa.Rel(byte(v >> 24)), v & 0x00ffffff
}

func (m *Machine) execSti() error {
	value, err := m.pop()
	if err != nil {
		return err
	}
	ref, err := m.pop()
	if err != nil {
		return err
	}
	if !ref.IsUnboxed() {
		return verrors.TypeMismatch("sti")
	}
	rel, index := decodeRef(ref.Unbox())
	if err := m.resolveWrite(rel, index, value); err != nil {
		return err
	}
	return nil
}

func (m *Machine) currentHeader() (frame.Header, error) {
	if m.fp < 0 {
		return frame.Header{}, verrors.StackUnderflow()
	}
	return frame.ReadHeader(m.stack, m.fp)
}

func (m *Machine) resolveRead(rel isa.Rel, index int32) (object.Object, error) {
	switch rel {
	case isa.RelGlobal:
		i := int(index)
		if i < 0 || i >= len(m.globals) {
			return object.Object{}, verrors.InvalidLoadIndex("global", i, len(m.globals)-1)
		}
		return m.globals[i], nil
	case isa.RelLocal:
		h, err := m.currentHeader()
		if err != nil {
			return object.Object{}, err
		}
		return frame.LocalAt(m.stack, m.fp, h.ArgsCount, h.LocalsCount, int(index))
	case isa.RelArg:
		h, err := m.currentHeader()
		if err != nil {
			return object.Object{}, err
		}
		return frame.ArgAt(m.stack, m.fp, h.ArgsCount, int(index))
	case isa.RelCapture:
		h, err := m.currentHeader()
		if err != nil {
			return object.Object{}, err
		}
		if !h.Closure.IsBoxed() {
			return object.Object{}, verrors.TypeMismatch("capture")
		}
		caps := h.Closure.AsPtr().Elems
		i := int(index)
		if i < 0 || i >= len(caps) {
			return object.Object{}, verrors.InvalidLoadIndex("capture", i, len(caps)-1)
		}
		return caps[i], nil
	default:
		return object.Object{}, verrors.InvalidValueRel(byte(rel))
	}
}

func (m *Machine) resolveWrite(rel isa.Rel, index int32, v object.Object) error {
	switch rel {
	case isa.RelGlobal:
		i := int(index)
		if i < 0 || i >= len(m.globals) {
			return verrors.InvalidLoadIndex("global", i, len(m.globals)-1)
		}
		m.globals[i] = v
		return nil
	case isa.RelLocal:
		h, err := m.currentHeader()
		if err != nil {
			return err
		}
		return frame.SetLocalAt(m.stack, m.fp, h.ArgsCount, h.LocalsCount, int(index), v)
	case isa.RelArg:
		h, err := m.currentHeader()
		if err != nil {
			return err
		}
		return frame.SetArgAt(m.stack, m.fp, h.ArgsCount, int(index), v)
	case isa.RelCapture:
		return verrors.TypeMismatch("capture is not assignable")
	default:
		return verrors.InvalidValueRel(byte(rel))
	}
}

// execBegin establishes a new frame. Pre-condition on the stack, top to
// bottom: [closure] (only when isClosure), then the args_count argument
// values, then the return-ip slot — the mirror image of what execCall /
// execCallC push.
func (m *Machine) execBegin(in isa.Instr, isClosure bool) error {
	argsCount := int(verify.ArgsCount(in.A))
	localsCount := int(in.B)
	if argsCount > MaxArgLen {
		return verrors.TooManyArguments(argsCount, MaxArgLen)
	}

	// The verifier patches EntryDepth(in.A) from whatever CALL/CALLC/CLOSURE
	// site(s) reach this instruction; ArgsCount(in.A) is this function's
	// own declaration of how many argument slots (plus the closure, for
	// CBEGIN) it expects below the return-ip. A miscompiled bytefile where
	// a call site's declared arg count disagrees with the callee's own can
	// reach this point with no static BFS conflict (if the callee is only
	// ever reached from that one site), so the two are cross-checked here.
	wantDepth := argsCount + 1
	if isClosure {
		wantDepth++
	}
	if m.fp == -1 {
		// The entry point has no caller: the verifier seeds it at depth 0
		// rather than through the CALL/CALLC +1/+2 formula, since nothing
		// pushed a real return-ip for it (Machine.New's Empty sentinel is
		// an implementation detail, not a counted argument slot).
		wantDepth = 0
	}
	if gotDepth := int(verify.EntryDepth(in.A)); gotDepth != wantDepth {
		return verrors.ConflictingStackDepth(in.Offset, wantDepth, gotDepth)
	}

	closure := object.Empty
	if isClosure {
		c, err := m.pop()
		if err != nil {
			return err
		}
		if !c.IsBoxed() {
			return verrors.TypeMismatch("cbegin closure")
		}
		closure = c
	}

	var buf [MaxArgLen]object.Object
	for i := argsCount - 1; i >= 0; i-- {
		v, err := m.pop()
		if err != nil {
			return err
		}
		buf[i] = v
	}

	retIP, err := m.pop()
	if err != nil {
		return err
	}

	newFP := len(m.stack)
	for i := 0; i < frame.HeaderSize; i++ {
		if err := m.push(object.Empty); err != nil {
			return err
		}
	}
	frame.WriteHeader(m.stack, newFP, frame.Header{
		Closure:     closure,
		ArgsCount:   argsCount,
		LocalsCount: localsCount,
		PrevFP:      m.fp,
		ReturnIP:    retIP,
	})

	for i := 0; i < argsCount; i++ {
		if err := m.push(buf[i]); err != nil {
			return err
		}
	}
	for i := 0; i < localsCount; i++ {
		if err := m.push(object.NewUnboxed(0)); err != nil {
			return err
		}
	}

	m.fp = newFP
	return nil
}

// execEnd tears down the current frame back to prev_fp, restores ip, and
// re-pushes the popped result. Returning true means the outermost frame's
// return-ip was Empty: the program halted successfully.
func (m *Machine) execEnd() (bool, error) {
	// Read the header before popping: a well-formed function body always
	// leaves exactly one result value above its frame, but the outermost
	// frame's trivial bodies (spec.md §8 scenario 1) may not, and in that
	// case return_ip is Empty so the popped value is discarded anyway.
	h, err := m.currentHeader()
	if err != nil {
		return false, err
	}
	result, err := m.pop()
	if err != nil {
		return false, err
	}
	m.stack = m.stack[:m.fp]
	m.stackTop = len(m.stack)
	m.fp = h.PrevFP

	if h.ReturnIP.IsEmpty() {
		return true, nil
	}
	if !h.ReturnIP.IsUnboxed() {
		return false, verrors.TypeMismatch("return ip")
	}
	target := int(h.ReturnIP.Unbox())
	if err := m.checkOffset(target); err != nil {
		return false, err
	}
	if err := m.push(result); err != nil {
		return false, err
	}
	m.ip = target
	return false, nil
}

func (m *Machine) execClosure(in isa.Instr) error {
	if len(in.Captures) > MaxArgLen {
		return verrors.TooManyArguments(len(in.Captures), MaxArgLen)
	}
	var buf [MaxArgLen]object.Object
	for i, c := range in.Captures {
		v, err := m.resolveRead(c.Rel, c.Index)
		if err != nil {
			return err
		}
		buf[i] = v
	}
	captures := append([]object.Object(nil), buf[:len(in.Captures)]...)
	return m.push(heap.Bclosure(in.A, captures))
}

// execCall pushes the return address beneath the n_args top arguments,
// leaving args on top exactly as BEGIN expects to find them.
func (m *Machine) execCall(in isa.Instr, retTo int) error {
	if err := m.checkOffset(int(in.A)); err != nil {
		return err
	}
	n := int(in.B)
	if n > len(m.stack) {
		return verrors.StackUnderflow()
	}
	return m.insertBelow(n, object.NewUnboxed(int32(retTo)))
}

// execCallC reads the jump target off the closure sitting on top of the
// stack, then inserts the return address beneath both the closure and its
// n_args arguments, matching execBegin(isClosure=true)'s pop order.
func (m *Machine) execCallC(in isa.Instr) (int, error) {
	if len(m.stack) == 0 {
		return 0, verrors.StackUnderflow()
	}
	closure := m.stack[len(m.stack)-1]
	if !closure.IsBoxed() {
		return 0, verrors.TypeMismatch("callc")
	}
	k, ok := closure.LamaType()
	if !ok || k != object.KindClosure {
		return 0, verrors.TypeMismatch("callc")
	}
	target := int(closure.AsPtr().Code)
	if err := m.checkOffset(target); err != nil {
		return 0, err
	}
	n := int(in.A)
	if n+1 > len(m.stack) {
		return 0, verrors.StackUnderflow()
	}
	if err := m.insertBelow(n+1, object.NewUnboxed(int32(in.Offset+in.Width))); err != nil {
		return 0, err
	}
	return target, nil
}

// insertBelow inserts v just below the top n elements of the stack.
func (m *Machine) insertBelow(n int, v object.Object) error {
	if err := m.push(object.Object{}); err != nil {
		return err
	}
	at := len(m.stack) - 1 - n
	copy(m.stack[at+1:], m.stack[at:len(m.stack)-1])
	m.stack[at] = v
	return nil
}

func (m *Machine) execTag(in isa.Instr) error {
	v, err := m.pop()
	if err != nil {
		return err
	}
	k, ok := v.LamaType()
	result := int32(0)
	if ok && k == object.KindSexp {
		name, err := m.bf.String(in.A)
		if err != nil {
			return err
		}
		h := v.AsPtr()
		if h.Tag == heap.LtagHash(name) && int32(len(h.Elems)) == in.B {
			result = 1
		}
	}
	return m.push(object.NewUnboxed(result))
}

func (m *Machine) execPatt(variant int32) error {
	v, err := m.pop()
	if err != nil {
		return err
	}
	var ok bool
	switch variant {
	case 0:
		ok = heap.Bstring_patt(v)
	case 1:
		ok = heap.Barray_patt(v)
	case 2:
		ok = heap.Bclosure_tag_patt(v)
	case 3:
		ok = heap.Bboxed_patt(v)
	case 4:
		ok = heap.Bunboxed_patt(v)
	case 5:
		ok = heap.Barray_tag_patt(v)
	case 6:
		ok = heap.Bstring_tag_patt(v)
	case 7:
		ok = heap.Bsexp_tag_patt(v)
	default:
		return verrors.UnknownOpcode(byte(variant), 0)
	}
	return m.push(object.NewUnboxed(boolToInt(ok)))
}
