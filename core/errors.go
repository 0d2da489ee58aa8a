package core

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind is one of the error categories spec.md §7 requires implementations
// to distinguish. Every error that crosses a package boundary in this
// module carries one, via Is/As against the sentinels below.
type Kind string

const (
	KindCapacityExceeded     Kind = "capacity_exceeded"
	KindInvalidQubitReference Kind = "invalid_qubit_reference"
	KindInvalidBytecode      Kind = "invalid_bytecode"
	KindInvalidArgument      Kind = "invalid_argument"
	KindNumericFailure        Kind = "numeric_failure"
	KindUnsetAddress          Kind = "unset_address"
	KindTimeout               Kind = "timeout"
	KindInstructionLimit      Kind = "instruction_limit"
)

// KindError wraps an underlying error with the category a caller needs to
// switch on. errors.Is(err, core.ErrCapacityExceeded) works because Is
// compares Kind, not message text or identity.
type KindError struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *KindError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *KindError) Unwrap() error { return e.err }

func (e *KindError) Is(target error) bool {
	t, ok := target.(*KindError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a KindError, optionally wrapping cause with the stack-trace
// annotation go-faster/errors attaches (the teacher's chosen error
// library for everything that crosses a package boundary).
func New(kind Kind, msg string, cause error) *KindError {
	if cause != nil {
		cause = errors.Wrap(cause, msg)
	}
	return &KindError{Kind: kind, Msg: msg, err: cause}
}

func Newf(kind Kind, cause error, format string, args ...interface{}) *KindError {
	return New(kind, fmt.Sprintf(format, args...), cause)
}

// Sentinels for errors.Is comparisons where no extra context is needed.
var (
	ErrCapacityExceeded      = &KindError{Kind: KindCapacityExceeded, Msg: "capacity exceeded"}
	ErrInvalidQubitReference = &KindError{Kind: KindInvalidQubitReference, Msg: "invalid qubit reference"}
	ErrInvalidBytecode       = &KindError{Kind: KindInvalidBytecode, Msg: "invalid bytecode"}
	ErrInvalidArgument       = &KindError{Kind: KindInvalidArgument, Msg: "invalid argument"}
	ErrNumericFailure        = &KindError{Kind: KindNumericFailure, Msg: "numeric failure"}
	ErrUnsetAddress          = &KindError{Kind: KindUnsetAddress, Msg: "unset address"}
	ErrTimeout               = &KindError{Kind: KindTimeout, Msg: "timeout"}
	ErrInstructionLimit      = &KindError{Kind: KindInstructionLimit, Msg: "instruction limit reached"}
)

// Is reports whether err belongs to kind, walking the error chain the way
// the standard library's errors.Is does (go-faster/errors.Is is its
// drop-in replacement and understands the same Unwrap contract).
func Is(err error, kind Kind) bool {
	var ke *KindError
	for err != nil {
		if k, ok := err.(*KindError); ok {
			ke = k
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ke != nil && ke.Kind == kind
}

// errors.As / errors.Wrap pass-throughs so callers needn't import
// go-faster/errors directly just to inspect a wrapped cause.
var (
	As = errors.As
	Wrap = errors.Wrap
)
