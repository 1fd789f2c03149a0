package vm

import (
	"errors"
	"fmt"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/eval"
	"github.com/zurustar/dirplayer/pkg/lingo"
	"github.com/zurustar/dirplayer/pkg/score"
)

// ErrorType represents the type of runtime error.
type ErrorType string

const (
	// Load errors, recorded against the chunk or member.
	ErrorMalformedContainer ErrorType = "MALFORMED_CONTAINER"
	ErrorDecode             ErrorType = "DECODE_ERROR"

	// Script errors. They abort the current dispatch, never the VM.
	ErrorTypeMismatch     ErrorType = "TYPE_ERROR"
	ErrorHandlerNotFound  ErrorType = "HANDLER_NOT_FOUND"
	ErrorIndexOutOfRange  ErrorType = "INDEX_OUT_OF_RANGE"
	ErrorDivisionByZero   ErrorType = "DIVISION_BY_ZERO"
	ErrorAsyncResource    ErrorType = "ASYNC_RESOURCE_FAILURE"
	ErrorStackOverflow    ErrorType = "STACK_OVERFLOW"
	ErrorCancelled        ErrorType = "CANCELLED"
	ErrorInvalidOperation ErrorType = "INVALID_OPERATION"
)

var (
	// ErrHandlerNotFound is returned when no builtin, instance, ancestor or
	// movie script defines the called handler.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrCancelled unwinds tasks suspended when the movie is unloaded.
	ErrCancelled = errors.New("cancelled")

	// ErrStackOverflow is returned when a task exceeds MaxStackDepth.
	ErrStackOverflow = errors.New("stack overflow")

	// ErrNoMovie is returned by operations that need a loaded movie.
	ErrNoMovie = errors.New("no movie loaded")

	// ErrNotSuspended is returned by Resume and the step commands when no
	// task is stopped at a breakpoint.
	ErrNotSuspended = errors.New("no suspended task")

	// ErrUnknownRequest is returned by ProvideAsyncResource for ids that
	// are not pending.
	ErrUnknownRequest = errors.New("unknown async request")
)

// RuntimeError is a script error with the position it was raised at.
type RuntimeError struct {
	Type    ErrorType
	Message string
	Script  string // script member, "" when raised outside bytecode
	Handler string
	Index   int // bytecode index, -1 if unknown
	Cause   error
}

func (e *RuntimeError) Error() string {
	if e.Script != "" || e.Handler != "" {
		return fmt.Sprintf("[%s] %s at %s/%s[%d]", e.Type, e.Message, e.Script, e.Handler, e.Index)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

// Recoverable reports whether the VM can continue with the next event. Only
// cancellation is treated specially: it is swallowed rather than reported.
func (e *RuntimeError) Recoverable() bool {
	return e.Type != ErrorCancelled
}

// NewRuntimeError creates a RuntimeError without position information.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{Type: errType, Message: message, Index: -1}
}

// NewTypeError creates a type error.
func NewTypeError(format string, args ...any) *RuntimeError {
	e := NewRuntimeError(ErrorTypeMismatch, fmt.Sprintf(format, args...))
	e.Cause = datum.ErrType
	return e
}

// NewHandlerNotFoundError creates the recoverable error for an undefined
// handler.
func NewHandlerNotFoundError(name string) *RuntimeError {
	e := NewRuntimeError(ErrorHandlerNotFound, fmt.Sprintf("handler not found: %s", name))
	e.Cause = ErrHandlerNotFound
	return e
}

// NewIndexOutOfRangeError creates an index error.
func NewIndexOutOfRangeError(index, length int) *RuntimeError {
	e := NewRuntimeError(ErrorIndexOutOfRange, fmt.Sprintf("index %d out of range (length %d)", index, length))
	e.Cause = datum.ErrIndexOutOfRange
	return e
}

// NewStackOverflowError creates a stack overflow error.
func NewStackOverflowError(depth int) *RuntimeError {
	e := NewRuntimeError(ErrorStackOverflow, fmt.Sprintf("stack overflow: depth %d exceeds maximum %d", depth, MaxStackDepth))
	e.Cause = ErrStackOverflow
	return e
}

// NewInvalidOperationError creates an error for bytecode the VM refuses to
// run, such as malformed operands or unsupported instructions.
func NewInvalidOperationError(format string, args ...any) *RuntimeError {
	return NewRuntimeError(ErrorInvalidOperation, fmt.Sprintf(format, args...))
}

// ClassifyError maps an error from any layer to its ErrorType.
func ClassifyError(err error) ErrorType {
	var re *RuntimeError
	switch {
	case errors.As(err, &re):
		return re.Type
	case errors.Is(err, ErrCancelled):
		return ErrorCancelled
	case errors.Is(err, ErrHandlerNotFound):
		return ErrorHandlerNotFound
	case errors.Is(err, ErrStackOverflow):
		return ErrorStackOverflow
	case errors.Is(err, datum.ErrDivideByZero):
		return ErrorDivisionByZero
	case errors.Is(err, datum.ErrIndexOutOfRange):
		return ErrorIndexOutOfRange
	case errors.Is(err, datum.ErrType), errors.Is(err, eval.ErrUndefined), errors.Is(err, eval.ErrSyntax):
		return ErrorTypeMismatch
	case errors.Is(err, chunk.ErrMalformedContainer):
		return ErrorMalformedContainer
	case errors.Is(err, cast.ErrDecode), errors.Is(err, lingo.ErrDecode), errors.Is(err, score.ErrDecode):
		return ErrorDecode
	}
	return ErrorInvalidOperation
}

// at wraps err as a RuntimeError positioned at the scope's current
// instruction. Errors that already carry a position keep it.
func at(s *Scope, err error) *RuntimeError {
	var re *RuntimeError
	if errors.As(err, &re) {
		if re.Script == "" && re.Handler == "" && s != nil {
			re.Script, re.Handler, re.Index = s.ScriptName, s.HandlerName, s.Index
		}
		return re
	}
	re = &RuntimeError{Type: ClassifyError(err), Message: err.Error(), Index: -1, Cause: err}
	if s != nil {
		re.Script, re.Handler, re.Index = s.ScriptName, s.HandlerName, s.Index
	}
	return re
}
