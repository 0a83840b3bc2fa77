package signature

import (
	"testing"

	"github.com/wastrumentation/wastrument/internal/wasm"
)

func TestBuildDeduplicatesSignatures(t *testing.T) {
	addType := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32, wasm.I32}, Results: []wasm.ValueKind{wasm.I32}}
	voidType := wasm.FunctionType{}
	m := &wasm.Module{
		Types: []wasm.FunctionType{addType, voidType},
		Imports: []wasm.Import{
			{Module: "env", Name: "log", IsFunc: true, FuncType: 1},
		},
		Funcs: []wasm.TypeIndex{0, 0, 1},
	}
	catalog := Build(m)
	if catalog.Len() != 2 {
		t.Fatalf("expected 2 distinct signatures, got %d: %+v", catalog.Len(), catalog.Entries())
	}
}

func TestSignatureName(t *testing.T) {
	s := Signature{Results: []wasm.ValueKind{wasm.I32}, Params: []wasm.ValueKind{wasm.I32, wasm.F64}}
	want := "ret_i32_arg_i32_f64"
	if got := s.Name(); got != want {
		t.Fatalf("Name() = %q, want %q", got, want)
	}
}

func TestEntryOffsetsResultsThenParams(t *testing.T) {
	c := &Catalog{}
	entry, _ := c.Lookup(wasm.FunctionType{
		Results: []wasm.ValueKind{wasm.I32, wasm.F64},
		Params:  []wasm.ValueKind{wasm.I64},
	})
	if len(entry.ResultOffsets) != 2 || entry.ResultOffsets[0] != 0 || entry.ResultOffsets[1] != 4 {
		t.Fatalf("unexpected result offsets: %v", entry.ResultOffsets)
	}
	if len(entry.ParamOffsets) != 1 || entry.ParamOffsets[0] != 12 {
		t.Fatalf("unexpected param offsets: %v", entry.ParamOffsets)
	}
	if entry.BufferSize != 20 {
		t.Fatalf("unexpected buffer size: %d", entry.BufferSize)
	}
}

func TestFingerprintStableAcrossRebuilds(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FunctionType{{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{wasm.I32}}},
		Funcs: []wasm.TypeIndex{0, 0},
	}
	a := Build(m).Fingerprint()
	b := Build(m).Fingerprint()
	if a != b {
		t.Fatalf("fingerprint not stable: %q vs %q", a, b)
	}
	if a == "" {
		t.Fatal("expected a non-empty fingerprint")
	}
}
