package lingo

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/zurustar/dirplayer/pkg/opcode"
)

var testOpts = Options{Version: 500}

// sampleScript builds:
//
//	on startMovie a
//	  x = 42
//	  set the gVal = x   -- setglobal
//	  put "hi" & a
//	end
func sampleScript() (*Script, Names) {
	names := Names{"startMovie", "a", "x", "gVal", "put", "helper"}
	mul := testOpts.VariableMultiplier()
	s := &Script{
		Number:        1,
		GlobalNameIDs: []uint16{3},
		Literals: []Literal{
			{Kind: LiteralString, Str: "hi"},
			{Kind: LiteralFloat, Float: 2.5},
			{Kind: LiteralInt, Int: 7},
		},
		Handlers: []*Handler{
			{
				NameID:        0,
				ArgNameIDs:    []uint16{1},
				LocalNameIDs:  []uint16{2},
				GlobalNameIDs: []uint16{3},
				Bytecode: []opcode.OpCode{
					{Cmd: opcode.PushInt8, Obj: 42},
					{Cmd: opcode.SetLocal, Obj: 0},
					{Cmd: opcode.GetLocal, Obj: 0},
					{Cmd: opcode.SetGlobal, Obj: 3},
					{Cmd: opcode.PushCons, Obj: 0 * mul},
					{Cmd: opcode.GetParam, Obj: 0},
					{Cmd: opcode.JoinStr},
					{Cmd: opcode.PushArgListNoRet, Obj: 1},
					{Cmd: opcode.ExtCall, Obj: 4},
					{Cmd: opcode.PushInt16, Obj: -300},
					{Cmd: opcode.PushInt32, Obj: 100000},
					{Cmd: opcode.Ret},
				},
			},
			{
				NameID:   5,
				Bytecode: []opcode.OpCode{{Cmd: opcode.PushZero}, {Cmd: opcode.Ret}},
			},
		},
	}
	return s, names
}

func TestDecodeScript_RoundTrip(t *testing.T) {
	src, names := sampleScript()
	got, err := DecodeScript(EncodeScript(src, testOpts), testOpts)
	if err != nil {
		t.Fatalf("DecodeScript() error = %v", err)
	}
	if len(got.Handlers) != 2 {
		t.Fatalf("handlers = %d, want 2", len(got.Handlers))
	}
	h := got.Handlers[0]
	if len(h.Bytecode) != len(src.Handlers[0].Bytecode) {
		t.Fatalf("bytecode length = %d, want %d", len(h.Bytecode), len(src.Handlers[0].Bytecode))
	}
	for i, op := range h.Bytecode {
		want := src.Handlers[0].Bytecode[i]
		if op.Cmd != want.Cmd || op.Obj != want.Obj {
			t.Errorf("op %d = %v %d, want %v %d", i, op.Cmd, op.Obj, want.Cmd, want.Obj)
		}
		if idx, ok := h.IndexOf(op.Pos); !ok || idx != i {
			t.Errorf("IndexOf(%d) = %d, %v", op.Pos, idx, ok)
		}
	}
	if got.Literals[0].Str != "hi" || got.Literals[1].Float != 2.5 || got.Literals[2].Int != 7 {
		t.Errorf("literals = %+v", got.Literals)
	}
	if h2, idx, ok := got.HandlerByName(names, "HELPER"); !ok || idx != 1 || h2.NameID != 5 {
		t.Errorf("HandlerByName(HELPER) = %v, %d, %v", h2, idx, ok)
	}
}

func TestDecodeScript_CapitalXAndOldLiterals(t *testing.T) {
	for _, opts := range []Options{{Version: 400}, {Version: 1100, CapitalX: true}} {
		src, _ := sampleScript()
		got, err := DecodeScript(EncodeScript(src, opts), opts)
		if err != nil {
			t.Fatalf("%+v: DecodeScript() error = %v", opts, err)
		}
		if len(got.Literals) != 3 || got.Literals[0].Str != "hi" {
			t.Errorf("%+v: literals = %+v", opts, got.Literals)
		}
		if len(got.Handlers[1].Bytecode) != 2 {
			t.Errorf("%+v: second handler = %+v", opts, got.Handlers[1].Bytecode)
		}
	}
}

func TestDisassembly(t *testing.T) {
	src, names := sampleScript()
	data := EncodeScript(src, testOpts)
	s, err := DecodeScript(data, testOpts)
	if err != nil {
		t.Fatal(err)
	}
	d := Disassembler{Script: s, Names: names, Options: testOpts}
	text := d.Handler(s.Handlers[0])

	for _, want := range []string{
		"on startMovie a",
		"pushint8 42",
		"setlocal x",
		"setglobal gVal",
		`pushcons "hi"`,
		"getparam a",
		"extcall put",
		"pushint16 -300",
		"pushint32 100000",
		"ret",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("disassembly missing %q:\n%s", want, text)
		}
	}
}

func TestDisassembly_DegradesWithoutNames(t *testing.T) {
	src, _ := sampleScript()
	s, err := DecodeScript(EncodeScript(src, testOpts), testOpts)
	if err != nil {
		t.Fatal(err)
	}
	// A name table that is too short for every id.
	d := Disassembler{Script: s, Names: Names{"only"}, Options: testOpts}
	text := d.Handler(s.Handlers[0])
	if !strings.Contains(text, "extcall 4") || !strings.Contains(text, "setlocal 0") {
		t.Errorf("expected raw operands:\n%s", text)
	}
	if !strings.Contains(text, "on #0") && !strings.Contains(text, "on only") {
		t.Errorf("unexpected header:\n%s", text)
	}
}

func TestProperty_DisassemblyDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	names := Names{"a", "b", "c"}
	properties.Property("same bytes give the same text", prop.ForAll(
		func(code []byte) bool {
			ops, _ := DecodeBytecode(code)
			h := &Handler{Bytecode: ops}
			d := Disassembler{Names: names, Options: testOpts}
			first := d.Handler(h)
			ops2, _ := DecodeBytecode(code)
			second := Disassembler{Names: names, Options: testOpts}.Handler(&Handler{Bytecode: ops2})
			return first == second && first == d.Handler(h)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("encode/decode keeps instructions", prop.ForAll(
		func(vals []int32) bool {
			cmds := []opcode.Cmd{opcode.PushInt8, opcode.PushInt16, opcode.PushInt32, opcode.ExtCall, opcode.Jmp}
			var ops []opcode.OpCode
			for i, v := range vals {
				c := cmds[i%len(cmds)]
				obj := int64(v)
				if c == opcode.ExtCall || c == opcode.Jmp {
					obj = int64(uint16(v))
				}
				ops = append(ops, opcode.OpCode{Cmd: c, Obj: obj})
			}
			got, err := DecodeBytecode(EncodeBytecode(ops))
			if err != nil || len(got) != len(ops) {
				return false
			}
			for i := range ops {
				if got[i].Cmd != ops[i].Cmd || got[i].Obj != ops[i].Obj {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int32()),
	))

	properties.TestingRun(t)
}

func TestProperty_TruncatedScriptNeverPanics(t *testing.T) {
	src, _ := sampleScript()
	data := EncodeScript(src, testOpts)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	properties.Property("truncation yields ErrDecode", prop.ForAll(
		func(n int) bool {
			_, err := DecodeScript(data[:n], testOpts)
			return err == nil || errors.Is(err, ErrDecode)
		},
		gen.IntRange(0, len(data)-1),
	))
	properties.TestingRun(t)
}

func TestNamesAndContext(t *testing.T) {
	names := Names{"startMovie", "exitFrame", "ünïcode"}
	got, err := DecodeNames(EncodeNames(Names{"startMovie", "exitFrame"}), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1] != "exitFrame" {
		t.Errorf("DecodeNames() = %v", got)
	}
	if id, ok := names.Lookup("EXITFRAME"); !ok || id != 1 {
		t.Errorf("Lookup() = %d, %v", id, ok)
	}

	ctx := &Context{NamesID: 9, Entries: []ContextEntry{{SectionID: 12}, {SectionID: -1}}}
	dec, err := DecodeContext(EncodeContext(ctx))
	if err != nil {
		t.Fatal(err)
	}
	if dec.NamesID != 9 || len(dec.Entries) != 2 || dec.Entries[0].SectionID != 12 || dec.Entries[1].SectionID != -1 {
		t.Errorf("DecodeContext() = %+v", dec)
	}
	if _, err := DecodeContext([]byte{1, 2, 3}); !errors.Is(err, ErrDecode) {
		t.Errorf("short context: err = %v", err)
	}
}

func TestFloat80(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want float64
	}{
		{"one", []byte{0x3f, 0xff, 0x80, 0, 0, 0, 0, 0, 0, 0}, 1},
		{"three", []byte{0x40, 0x00, 0xc0, 0, 0, 0, 0, 0, 0, 0}, 3},
		{"minus half", []byte{0xbf, 0xfe, 0x80, 0, 0, 0, 0, 0, 0, 0}, -0.5},
		{"zero", make([]byte, 10), 0},
		{"short", []byte{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Float80(tt.in); got != tt.want {
				t.Errorf("Float80() = %v, want %v", got, tt.want)
			}
		})
	}
	if !math.IsInf(Float80([]byte{0x7f, 0xff, 0, 0, 0, 0, 0, 0, 0, 0}), 1) {
		t.Error("max exponent should be +Inf")
	}
}
