// Package verrors defines the fatal error taxonomy shared by the loader,
// verifier, and interpreter. None of these are recovered internally; every
// component returns them up to the CLI driver, which logs one diagnostic
// line and exits non-zero.
package verrors

import "fmt"

// Kind identifies which bucket of the taxonomy an error belongs to, so the
// CLI driver and tests can branch on category without string matching.
type Kind string

const (
	KindLoad    Kind = "load"
	KindVerify  Kind = "verify"
	KindDecode  Kind = "decode"
	KindExec    Kind = "exec"
	KindUser    Kind = "user"
)

// Error is a fatal interpreter error carrying its taxonomy kind, a short
// machine-checkable code, and enough context to print a useful diagnostic.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newErr(k Kind, code, format string, args ...any) *Error {
	return &Error{Kind: k, Code: code, msg: fmt.Sprintf(code+": "+format, args...)}
}

// Load errors (bytefile decode).

func FileIsTooLarge(path string, size int64) error {
	return newErr(KindLoad, "FileIsTooLarge", "%s is %d bytes, exceeds the 1GiB limit", path, size)
}

func MalformedBytefile(reason string) error {
	return newErr(KindLoad, "MalformedBytefile", "%s", reason)
}

// Verify errors.

func ConflictingStackDepth(offset, seen, want int) error {
	return newErr(KindVerify, "ConflictingStackDepth", "offset %d: reached with depth %d, previously %d", offset, want, seen)
}

func NegativeStackDepth(offset int) error {
	return newErr(KindVerify, "NegativeStackDepth", "offset %d: operand stack depth would go negative", offset)
}

func InvalidOffset(kind string, offset int) error {
	return newErr(KindVerify, "InvalidOffset", "%s target %d falls outside its declared section", kind, offset)
}

// Decode errors (shared between verify-time and run-time decoding).

func UnknownOpcode(b byte, offset int) error {
	return newErr(KindDecode, "UnknownOpcode", "byte 0x%02x at offset %d", b, offset)
}

func InvalidValueRel(rel byte) error {
	return newErr(KindDecode, "InvalidValueRel", "unrecognized rel tag %d", rel)
}

func InvalidCString(offset int) error {
	return newErr(KindDecode, "InvalidCString", "string pool offset %d is not NUL-terminated", offset)
}

// MalformedBytefileTruncated reports an instruction immediate that runs
// past the end of the declared code section.
func MalformedBytefileTruncated() error {
	return newErr(KindDecode, "TruncatedImmediate", "immediate runs past the end of the code section")
}

// Execution errors.

func StackUnderflow() error {
	return newErr(KindExec, "StackUnderflow", "operand stack underflow")
}

func StackOverflow(capacity int) error {
	return newErr(KindExec, "StackOverflow", "operand stack exceeded its %d-word capacity", capacity)
}

func NotEnoughArguments(want, got int) error {
	return newErr(KindExec, "NotEnoughArguments", "wanted %d, got %d", want, got)
}

func TypeMismatch(op string) error {
	return newErr(KindExec, "TypeMismatch", "operand type mismatch in %s", op)
}

func InvalidJumpOffset(offset int) error {
	return newErr(KindExec, "InvalidJumpOffset", "jump target %d is outside the code section", offset)
}

func InvalidLoadIndex(rel string, index, bound int) error {
	return newErr(KindExec, "InvalidLoadIndex", "%s index %d out of bounds (0..%d)", rel, index, bound)
}

func InvalidObjectPointer() error {
	return newErr(KindExec, "InvalidObjectPointer", "boxed value does not reference a live heap object")
}

func StringIndexOutOfBounds(index, length int) error {
	return newErr(KindExec, "StringIndexOutOfBounds", "index %d out of bounds (len %d)", index, length)
}

func DivisionByZero() error {
	return newErr(KindExec, "DivisionByZero", "division by zero")
}

func TooManyArguments(got, max int) error {
	return newErr(KindExec, "TooManyArguments", "got %d, max is %d", got, max)
}

func InvalidLengthForArray(n int) error {
	return newErr(KindExec, "InvalidLengthForArray", "invalid array length %d", n)
}

// User-level FAIL.

func Fail(line, col int32, value string) error {
	return newErr(KindUser, "FAIL", "%d:%d: %s", line, col, value)
}
