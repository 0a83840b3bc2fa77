package merge

import (
	"testing"

	"github.com/wastrumentation/wastrument/internal/wasm"
)

func findExport(m *wasm.Module, name string) (wasm.Export, bool) {
	for _, e := range m.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return wasm.Export{}, false
}

// TestMergeResolvesImportByName builds a two-module merge where the target
// imports a helper the library exports, and checks the import disappears
// and every call site now points straight at the library's function.
func TestMergeResolvesImportByName(t *testing.T) {
	voidFT := wasm.FunctionType{}
	target := &wasm.Module{
		Types:   []wasm.FunctionType{voidFT},
		Imports: []wasm.Import{{Module: "stack", Name: "helper", IsFunc: true, FuncType: 0}},
		Funcs:   []wasm.TypeIndex{0},
		Code: []wasm.Code{
			{Body: []wasm.Instr{{Op: wasm.OpCall, Func: 0}, {Op: wasm.OpEnd}}}, // calls the imported helper
		},
		Exports: []wasm.Export{{Name: "run", Kind: wasm.ExternFunc, Index: 1}},
	}
	library := &wasm.Module{
		Types: []wasm.FunctionType{voidFT},
		Funcs: []wasm.TypeIndex{0},
		Code: []wasm.Code{
			{Body: []wasm.Instr{{Op: wasm.OpEnd}}},
		},
		Exports: []wasm.Export{{Name: "helper", Kind: wasm.ExternFunc, Index: 0}},
	}

	out, err := Merge([]Source{
		{Name: "target", Module: target},
		{Name: "library", Module: library},
	}, Options{Primary: "target"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if len(out.Imports) != 0 {
		t.Fatalf("expected the resolved import to vanish, got %+v", out.Imports)
	}
	// target's func comes first (merged index 0, since it had the only
	// kept-or-not import slot, now empty, so defined funcs start at 0):
	// target.run at 0, library.helper at 1.
	runExp, ok := findExport(out, "run")
	if !ok {
		t.Fatalf("missing run export")
	}
	call := out.Code[runExp.Index].Body[0]
	if call.Op != wasm.OpCall {
		t.Fatalf("expected the call instruction preserved, got %+v", call)
	}
	libHelperExp, ok := findExport(out, "helper")
	if !ok {
		t.Fatalf("missing helper export")
	}
	if uint32(call.Func) != libHelperExp.Index {
		t.Fatalf("expected the call resolved straight to library's helper (index %d), got %d", libHelperExp.Index, call.Func)
	}
}

// TestMergeRenamesCollidingExportsPreferringPrimary checks that when both
// sources export the same name, the primary keeps it unrenamed.
func TestMergeRenamesCollidingExportsPreferringPrimary(t *testing.T) {
	voidFT := wasm.FunctionType{}
	mk := func() *wasm.Module {
		return &wasm.Module{
			Types:   []wasm.FunctionType{voidFT},
			Funcs:   []wasm.TypeIndex{0},
			Code:    []wasm.Code{{Body: []wasm.Instr{{Op: wasm.OpEnd}}}},
			Exports: []wasm.Export{{Name: "shared", Kind: wasm.ExternFunc, Index: 0}},
		}
	}
	out, err := Merge([]Source{
		{Name: "target", Module: mk()},
		{Name: "analysis", Module: mk()},
	}, Options{Primary: "target"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if _, ok := findExport(out, "shared"); !ok {
		t.Fatalf("expected the primary's export to keep the bare name")
	}
	if _, ok := findExport(out, "shared_analysis"); !ok {
		t.Fatalf("expected the colliding export renamed by namespace, got %+v", out.Exports)
	}
}

// TestMergeFoldsNonPrimaryStartIntoPrimary checks _start folding: a
// non-primary _start survives as a renamed export and is also called from
// a synthesized combined _start that still runs the primary's own body.
func TestMergeFoldsNonPrimaryStartIntoPrimary(t *testing.T) {
	voidFT := wasm.FunctionType{}
	target := &wasm.Module{
		Types:   []wasm.FunctionType{voidFT},
		Funcs:   []wasm.TypeIndex{0},
		Code:    []wasm.Code{{Body: []wasm.Instr{{Op: wasm.OpEnd}}}},
		Exports: []wasm.Export{{Name: "_start", Kind: wasm.ExternFunc, Index: 0}},
	}
	library := &wasm.Module{
		Types:   []wasm.FunctionType{voidFT},
		Funcs:   []wasm.TypeIndex{0},
		Code:    []wasm.Code{{Body: []wasm.Instr{{Op: wasm.OpEnd}}}},
		Exports: []wasm.Export{{Name: "_start", Kind: wasm.ExternFunc, Index: 0}},
	}

	out, err := Merge([]Source{
		{Name: "target", Module: target},
		{Name: "library", Module: library},
	}, Options{Primary: "target"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	libStart, ok := findExport(out, "_start_library")
	if !ok {
		t.Fatalf("expected library's _start renamed and kept, got %+v", out.Exports)
	}
	start, ok := findExport(out, "_start")
	if !ok {
		t.Fatalf("missing merged _start export")
	}
	body := out.Code[start.Index].Body
	if len(body) != 3 || body[0].Op != wasm.OpCall || uint32(body[0].Func) != libStart.Index {
		t.Fatalf("expected the combined _start to call library's start first, got %+v (libStart.Index=%d)", body, libStart.Index)
	}
	if body[1].Op != wasm.OpCall {
		t.Fatalf("expected the combined _start to also call the primary's original body, got %+v", body)
	}
}

func TestMergeRejectsUnknownPrimary(t *testing.T) {
	_, err := Merge([]Source{{Name: "target", Module: &wasm.Module{}}}, Options{Primary: "nope"})
	if err == nil {
		t.Fatalf("expected an error for an unknown primary source")
	}
}
