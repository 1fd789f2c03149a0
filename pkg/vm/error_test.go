package vm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/eval"
)

func TestRuntimeError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RuntimeError
		want string
	}{
		{
			name: "without position",
			err:  NewRuntimeError(ErrorInvalidOperation, "bad opcode"),
			want: "[INVALID_OPERATION] bad opcode",
		},
		{
			name: "with position",
			err:  &RuntimeError{Type: ErrorHandlerNotFound, Message: "handler not found: foo", Script: "main", Handler: "mouseUp", Index: 4},
			want: "[HANDLER_NOT_FOUND] handler not found: foo at main/mouseUp[4]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"runtime error", NewStackOverflowError(MaxStackDepth + 1), ErrorStackOverflow},
		{"cancelled", fmt.Errorf("task: %w", ErrCancelled), ErrorCancelled},
		{"handler not found", ErrHandlerNotFound, ErrorHandlerNotFound},
		{"divide by zero", datum.ErrDivideByZero, ErrorDivisionByZero},
		{"index", fmt.Errorf("getAt: %w", datum.ErrIndexOutOfRange), ErrorIndexOutOfRange},
		{"type", datum.ErrType, ErrorTypeMismatch},
		{"eval syntax", eval.ErrSyntax, ErrorTypeMismatch},
		{"container", chunk.ErrMalformedContainer, ErrorMalformedContainer},
		{"other", errors.New("boom"), ErrorInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAt_KeepsFirstPosition(t *testing.T) {
	inner := &Scope{ScriptName: "a", HandlerName: "inner", Index: 2}
	outer := &Scope{ScriptName: "b", HandlerName: "outer", Index: 7}
	re := at(outer, at(inner, datum.ErrType))
	if re.Handler != "inner" || re.Index != 2 {
		t.Errorf("position = %s[%d], want inner[2]", re.Handler, re.Index)
	}
	if !errors.Is(re, datum.ErrType) {
		t.Error("cause lost")
	}
	if !re.Recoverable() {
		t.Error("type error not recoverable")
	}
}

func TestParseBreakpoint(t *testing.T) {
	tests := []struct {
		in      string
		want    Breakpoint
		wantErr bool
	}{
		{in: "main:mouseUp:3", want: Breakpoint{Script: "main", Handler: "mouseUp", Index: 3, Enabled: true}},
		{in: "lib:a:b:exitFrame:0", want: Breakpoint{Script: "lib:a:b", Handler: "exitFrame", Index: 0, Enabled: true}},
		{in: " main : go : 12", want: Breakpoint{Script: "main", Handler: "go", Index: 12, Enabled: true}},
		{in: "main:mouseUp", wantErr: true},
		{in: "main:mouseUp:-1", wantErr: true},
		{in: ":mouseUp:1", wantErr: true},
		{in: "nocolons", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBreakpoint(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBreakpoint() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseBreakpoint() = %+v, want %+v", got, tt.want)
			}
			if !tt.wantErr && got.String() == "" {
				t.Error("String() empty")
			}
		})
	}
}
