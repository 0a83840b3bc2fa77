package nesting

import (
	"reflect"
	"testing"

	"github.com/wastrumentation/wastrument/internal/wasm"
)

func constI32(v int32) wasm.Instr { return wasm.Instr{Op: wasm.OpI32Const, I32: v} }

func TestParseLowerRoundtripIfElse(t *testing.T) {
	body := []wasm.Instr{
		constI32(0),
		{Op: wasm.OpIf, Block: wasm.ValueBlockType(wasm.I32)},
		constI32(1),
		{Op: wasm.OpElse},
		constI32(2),
		{Op: wasm.OpEnd},
		{Op: wasm.OpDrop},
		{Op: wasm.OpEnd},
	}

	tree, err := Parse(0, body)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []Node{
		Leaf{Index: 0, Instr: constI32(0)},
		If{
			Index: 1,
			Type:  wasm.ValueBlockType(wasm.I32),
			Then:  []Node{Leaf{Index: 2, Instr: constI32(1)}},
			Else:  []Node{Leaf{Index: 4, Instr: constI32(2)}},
		},
		Leaf{Index: 6, Instr: wasm.Instr{Op: wasm.OpDrop}},
	}
	if !reflect.DeepEqual(tree, want) {
		t.Fatalf("Parse tree mismatch:\n got: %#v\nwant: %#v", tree, want)
	}

	lowered := Lower(tree)
	if !reflect.DeepEqual(lowered, body) {
		t.Fatalf("Lower roundtrip mismatch:\n got: %#v\nwant: %#v", lowered, body)
	}
}

func TestParseLowerRoundtripNoElse(t *testing.T) {
	body := []wasm.Instr{
		constI32(1),
		{Op: wasm.OpIf, Block: wasm.EmptyBlockType()},
		{Op: wasm.OpNop},
		{Op: wasm.OpEnd},
		{Op: wasm.OpEnd},
	}
	tree, err := Parse(0, body)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ifNode, ok := tree[1].(If)
	if !ok {
		t.Fatalf("expected If node, got %#v", tree[1])
	}
	if ifNode.HasElse() {
		t.Fatalf("expected no else arm")
	}
	lowered := Lower(tree)
	if !reflect.DeepEqual(lowered, body) {
		t.Fatalf("Lower roundtrip mismatch:\n got: %#v\nwant: %#v", lowered, body)
	}
}

func TestParseNestedBlockLoop(t *testing.T) {
	body := []wasm.Instr{
		{Op: wasm.OpBlock, Block: wasm.EmptyBlockType()},
		{Op: wasm.OpLoop, Block: wasm.EmptyBlockType()},
		{Op: wasm.OpBr, Label: 0},
		{Op: wasm.OpEnd},
		{Op: wasm.OpEnd},
		{Op: wasm.OpEnd},
	}
	tree, err := Parse(0, body)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	block, ok := tree[0].(Block)
	if !ok || len(block.Body) != 1 {
		t.Fatalf("expected a single Block node, got %#v", tree)
	}
	loop, ok := block.Body[0].(Loop)
	if !ok || len(loop.Body) != 1 {
		t.Fatalf("expected a nested Loop node, got %#v", block.Body)
	}
	lowered := Lower(tree)
	if !reflect.DeepEqual(lowered, body) {
		t.Fatalf("Lower roundtrip mismatch:\n got: %#v\nwant: %#v", lowered, body)
	}
}

func TestParseRejectsElseWithoutIf(t *testing.T) {
	body := []wasm.Instr{
		{Op: wasm.OpBlock, Block: wasm.EmptyBlockType()},
		{Op: wasm.OpElse},
		{Op: wasm.OpEnd},
		{Op: wasm.OpEnd},
	}
	if _, err := Parse(0, body); err == nil {
		t.Fatal("expected IfDidNotPrecedeElse error")
	}
}

func TestParseRejectsExcessiveEnd(t *testing.T) {
	// The function closes after the first instruction, leaving a trailing
	// Nop that is never reached by any open frame.
	body := []wasm.Instr{
		{Op: wasm.OpNop},
		{Op: wasm.OpEnd},
		{Op: wasm.OpNop},
	}
	if _, err := Parse(0, body); err == nil {
		t.Fatal("expected ExcessiveEnd error")
	}
}

func TestParseRejectsEndWithoutParent(t *testing.T) {
	// A second top-level End, after the function has already closed once.
	body := []wasm.Instr{
		{Op: wasm.OpNop},
		{Op: wasm.OpEnd},
		{Op: wasm.OpEnd},
	}
	if _, err := Parse(0, body); err == nil {
		t.Fatal("expected EndWithoutParent error")
	}
}

func TestParseRejectsBodyNonEndTermination(t *testing.T) {
	body := []wasm.Instr{
		{Op: wasm.OpBlock, Block: wasm.EmptyBlockType()},
		{Op: wasm.OpNop},
		{Op: wasm.OpEnd},
		// missing the function-closing End
	}
	if _, err := Parse(0, body); err == nil {
		t.Fatal("expected BodyNonEndTermination error")
	}
}

func addFuncType() wasm.FunctionType {
	return wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32, wasm.I32}, Results: []wasm.ValueKind{wasm.I32}}
}

func TestInferTypesSimpleArithmetic(t *testing.T) {
	module := &wasm.Module{Types: []wasm.FunctionType{addFuncType()}}
	body := []wasm.Instr{
		{Op: wasm.OpLocalGet, Local: 0},
		{Op: wasm.OpLocalGet, Local: 1},
		{Op: wasm.OpI32Add},
		{Op: wasm.OpEnd},
	}
	types, err := InferTypes(0, module, addFuncType(), []wasm.ValueKind{wasm.I32, wasm.I32}, body)
	if err != nil {
		t.Fatalf("InferTypes: %v", err)
	}
	if len(types) != 4 {
		t.Fatalf("expected 4 instruction types, got %d", len(types))
	}
	add := types[2]
	if len(add.Inputs) != 2 || add.Inputs[0] != wasm.I32 || add.Inputs[1] != wasm.I32 {
		t.Fatalf("i32.add inputs: %v", add.Inputs)
	}
	if len(add.Outputs) != 1 || add.Outputs[0] != wasm.I32 {
		t.Fatalf("i32.add outputs: %v", add.Outputs)
	}
	if types[0].Unreachable || types[3].Unreachable {
		t.Fatalf("no instruction should be unreachable here: %+v", types)
	}
}

func TestInferTypesMarksCodeAfterBrUnreachable(t *testing.T) {
	module := &wasm.Module{Types: []wasm.FunctionType{{Results: []wasm.ValueKind{wasm.I32}}}}
	ft := wasm.FunctionType{Results: []wasm.ValueKind{wasm.I32}}
	body := []wasm.Instr{
		{Op: wasm.OpBlock, Block: wasm.ValueBlockType(wasm.I32)},
		constI32(1),
		{Op: wasm.OpBr, Label: 0},
		{Op: wasm.OpNop}, // dead: after an unconditional branch
		{Op: wasm.OpEnd},
		{Op: wasm.OpEnd},
	}
	types, err := InferTypes(0, module, ft, nil, body)
	if err != nil {
		t.Fatalf("InferTypes: %v", err)
	}
	if types[1].Unreachable {
		t.Fatalf("const before the br should be reachable")
	}
	if !types[3].Unreachable {
		t.Fatalf("nop after the br should be marked unreachable")
	}
}

func TestInferTypesRejectsStackUnderflow(t *testing.T) {
	module := &wasm.Module{}
	ft := wasm.FunctionType{}
	body := []wasm.Instr{
		{Op: wasm.OpI32Add},
		{Op: wasm.OpEnd},
	}
	if _, err := InferTypes(0, module, ft, nil, body); err == nil {
		t.Fatal("expected a type inference error for popping an empty stack")
	}
}
