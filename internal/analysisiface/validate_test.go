package analysisiface

import (
	"testing"

	"github.com/wastrumentation/wastrument/internal/wasm"
)

func TestValidateAcceptsMatchingExport(t *testing.T) {
	genericApplyFT := wasm.FunctionType{
		Params:  []wasm.ValueKind{wasm.I32, wasm.I32, wasm.I32, wasm.I32, wasm.I32},
		Results: []wasm.ValueKind{},
	}
	m := &wasm.Module{
		Types:   []wasm.FunctionType{genericApplyFT},
		Funcs:   []wasm.TypeIndex{0},
		Code:    []wasm.Code{{Body: []wasm.Instr{{Op: wasm.OpEnd}}}},
		Exports: []wasm.Export{{Name: "generic_apply", Kind: wasm.ExternFunc, Index: 0}},
	}
	set := Resolve(map[Hook]bool{GenericApply: true}, nil, nil)
	if err := Validate(m, set); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsMissingExport(t *testing.T) {
	m := &wasm.Module{}
	set := Resolve(map[Hook]bool{GenericApply: true}, nil, nil)
	if err := Validate(m, set); err == nil {
		t.Fatalf("expected an error for a missing required export")
	}
}

func TestValidateRejectsWrongSignature(t *testing.T) {
	wrongFT := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{}}
	m := &wasm.Module{
		Types:   []wasm.FunctionType{wrongFT},
		Funcs:   []wasm.TypeIndex{0},
		Code:    []wasm.Code{{Body: []wasm.Instr{{Op: wasm.OpEnd}}}},
		Exports: []wasm.Export{{Name: "generic_apply", Kind: wasm.ExternFunc, Index: 0}},
	}
	set := Resolve(map[Hook]bool{GenericApply: true}, nil, nil)
	if err := Validate(m, set); err == nil {
		t.Fatalf("expected an error for a signature mismatch")
	}
}
