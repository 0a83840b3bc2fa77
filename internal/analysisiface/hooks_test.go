package analysisiface

import (
	"testing"

	"github.com/wastrumentation/wastrument/internal/wasm"
)

func TestResolveGenericApplySignature(t *testing.T) {
	set := Resolve(map[Hook]bool{GenericApply: true}, nil, nil)
	if len(set.Exports) != 1 {
		t.Fatalf("expected exactly one export, got %d: %+v", len(set.Exports), set.Exports)
	}
	e := set.Exports[0]
	if e.Name != "generic_apply" {
		t.Fatalf("unexpected export name %q", e.Name)
	}
	want := wasm.FunctionType{
		Params:  []wasm.ValueKind{wasm.I32, wasm.I32, wasm.I32, wasm.I32, wasm.I32},
		Results: []wasm.ValueKind{},
	}
	if !e.Type.Equal(want) {
		t.Fatalf("generic_apply signature = %s, want %s", e.Type, want)
	}
}

func TestResolveSkipsDisabledHooks(t *testing.T) {
	set := Resolve(map[Hook]bool{CallPre: true}, nil, nil)
	for _, e := range set.Exports {
		if e.Name == "specialized_call_post" {
			t.Fatalf("CallPost export present despite not being enabled")
		}
	}
	if !set.Enabled(CallPre) {
		t.Fatal("expected CallPre to be enabled")
	}
	if set.Enabled(CallPost) {
		t.Fatal("expected CallPost to be disabled")
	}
}

func TestResolveLocalGetEmitsOnePerKindActuallyUsed(t *testing.T) {
	set := Resolve(map[Hook]bool{LocalGet: true}, []wasm.ValueKind{wasm.I32, wasm.F64}, nil)
	names := map[string]bool{}
	for _, e := range set.Exports {
		names[e.Name] = true
	}
	if !names["specialized_local_get_i32"] || !names["specialized_local_get_f64"] {
		t.Fatalf("missing typed local.get traps: %+v", set.Exports)
	}
	if names["specialized_local_get_i64"] {
		t.Fatalf("unexpected trap for a kind never used as a local: %+v", set.Exports)
	}
}

func TestCallBaseImportIsFixed(t *testing.T) {
	imp := CallBaseImport()
	if imp.Namespace != "transformed_input" || imp.Name != "call_base" {
		t.Fatalf("unexpected call_base import: %+v", imp)
	}
}
