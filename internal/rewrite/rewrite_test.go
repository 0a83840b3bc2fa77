package rewrite

import (
	"testing"

	"github.com/wastrumentation/wastrument/internal/analysisiface"
	"github.com/wastrumentation/wastrument/internal/signature"
	"github.com/wastrumentation/wastrument/internal/wasm"
)

func set(hooks ...analysisiface.Hook) *analysisiface.Set {
	m := make(map[analysisiface.Hook]bool, len(hooks))
	for _, h := range hooks {
		m[h] = true
	}
	return &analysisiface.Set{Hooks: m}
}

func findImport(m *wasm.Module, namespace, name string) (wasm.Import, bool) {
	for _, imp := range m.Imports {
		if imp.Module == namespace && imp.Name == name {
			return imp, true
		}
	}
	return wasm.Import{}, false
}

func findExport(m *wasm.Module, name string) (wasm.Export, bool) {
	for _, exp := range m.Exports {
		if exp.Name == name {
			return exp, true
		}
	}
	return wasm.Export{}, false
}

func TestRewriteCallBracketsPreAndPost(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FunctionType{{}},
		Funcs: []wasm.TypeIndex{0, 0},
		Code: []wasm.Code{
			{Body: []wasm.Instr{{Op: wasm.OpCall, Func: 1}, {Op: wasm.OpEnd}}},
			{Body: []wasm.Instr{{Op: wasm.OpEnd}}},
		},
	}
	res, err := Rewrite(m, Options{Iface: set(analysisiface.CallPre, analysisiface.CallPost), Catalog: &signature.Catalog{}})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	body := res.Module.Code[0].Body
	if len(body) != 6 {
		t.Fatalf("expected pre-call, call, post-call plus end (6 instrs), got %d: %+v", len(body), body)
	}
	if body[0].Op != wasm.OpI32Const || body[1].Op != wasm.OpCall {
		t.Fatalf("expected pre-trap const+call before the real call, got %+v", body[:2])
	}
	if _, ok := findImport(res.Module, NamespaceAnalysis, "specialized_call_pre"); !ok {
		t.Fatalf("missing specialized_call_pre import")
	}
	if _, ok := findImport(res.Module, NamespaceAnalysis, "specialized_call_post"); !ok {
		t.Fatalf("missing specialized_call_post import")
	}
}

func TestRewriteCallPassthroughWhenDisabled(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FunctionType{{}},
		Funcs: []wasm.TypeIndex{0, 0},
		Code: []wasm.Code{
			{Body: []wasm.Instr{{Op: wasm.OpCall, Func: 1}, {Op: wasm.OpEnd}}},
			{Body: []wasm.Instr{{Op: wasm.OpEnd}}},
		},
	}
	res, err := Rewrite(m, Options{Iface: set(), Catalog: &signature.Catalog{}})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	body := res.Module.Code[0].Body
	if len(body) != 2 || body[0].Op != wasm.OpCall || body[1].Op != wasm.OpEnd {
		t.Fatalf("expected the call untouched, got %+v", body)
	}
}

func TestRewriteLocalGetIsPostTraplocalSetIsPreTrap(t *testing.T) {
	ft := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}}
	m := &wasm.Module{
		Types: []wasm.FunctionType{ft},
		Funcs: []wasm.TypeIndex{0},
		Code: []wasm.Code{
			{Body: []wasm.Instr{
				{Op: wasm.OpLocalGet, Local: 0},
				{Op: wasm.OpLocalSet, Local: 0},
				{Op: wasm.OpEnd},
			}},
		},
	}
	res, err := Rewrite(m, Options{Iface: set(analysisiface.LocalGet, analysisiface.LocalSet), Catalog: &signature.Catalog{}})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	body := res.Module.Code[0].Body
	// local.get, trap-call (post), trap-call (pre), local.set, end
	if len(body) != 5 {
		t.Fatalf("expected 5 instructions, got %d: %+v", len(body), body)
	}
	if body[0].Op != wasm.OpLocalGet || body[1].Op != wasm.OpCall {
		t.Fatalf("local.get trap must follow the real get, got %+v", body[:2])
	}
	if body[2].Op != wasm.OpCall || body[3].Op != wasm.OpLocalSet {
		t.Fatalf("local.set trap must precede the real set, got %+v", body[2:4])
	}
	if _, ok := findImport(res.Module, NamespaceAnalysis, "specialized_local_get_i32"); !ok {
		t.Fatalf("missing typed local.get trap import")
	}
	if _, ok := findImport(res.Module, NamespaceAnalysis, "specialized_local_set_i32"); !ok {
		t.Fatalf("missing typed local.set trap import")
	}
}

func TestRewriteUnsupportedOpcodeFails(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FunctionType{{}},
		Funcs: []wasm.TypeIndex{0},
		Code: []wasm.Code{
			{Body: []wasm.Instr{{Op: wasm.OpRefNull}, {Op: wasm.OpEnd}}},
		},
	}
	_, err := Rewrite(m, Options{Iface: set(), Catalog: &signature.Catalog{}})
	if err == nil {
		t.Fatalf("expected an error for ref.null, got nil")
	}
}

func TestRewriteGenericApplyInstallsApplyTableAndCallBase(t *testing.T) {
	ft := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32, wasm.I32}, Results: []wasm.ValueKind{wasm.I32}}
	m := &wasm.Module{
		Types: []wasm.FunctionType{ft},
		Funcs: []wasm.TypeIndex{0},
		Code: []wasm.Code{
			{Body: []wasm.Instr{
				{Op: wasm.OpLocalGet, Local: 0},
				{Op: wasm.OpLocalGet, Local: 1},
				{Op: wasm.OpI32Add},
				{Op: wasm.OpEnd},
			}},
		},
	}
	cat := signature.Build(m)
	res, err := Rewrite(m, Options{Iface: set(analysisiface.GenericApply), Catalog: cat})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if slot, ok := res.ApplyTableSlot[0]; !ok || slot != 0 {
		t.Fatalf("expected function 0 installed at apply slot 0, got %v ok=%v", slot, ok)
	}
	if len(res.Module.Tables) != 1 {
		t.Fatalf("expected one apply table, got %d", len(res.Module.Tables))
	}
	if len(res.Module.Elements) != 1 || len(res.Module.Elements[0].Funcs) != 1 {
		t.Fatalf("expected one element segment with one entry, got %+v", res.Module.Elements)
	}
	if _, ok := findExport(res.Module, "call_base"); !ok {
		t.Fatalf("missing call_base export")
	}
	// original function's body is now the front door: it must no longer
	// contain the real add, only buffer marshalling and generic_apply.
	front := res.Module.Code[0].Body
	for _, instr := range front {
		if instr.Op == wasm.OpI32Add {
			t.Fatalf("original function body should have been replaced by the front door, found i32.add: %+v", front)
		}
	}
	if _, ok := findImport(res.Module, NamespaceAnalysis, "generic_apply"); !ok {
		t.Fatalf("missing generic_apply import")
	}
}

// blockBalance walks a flat body tracking nested-block depth via a simple
// stack of opcodes, returning the ending depth (0 means every opened block/
// loop/if was closed) and the deepest depth reached.
func blockBalance(body []wasm.Instr) (end int, maxDepth int) {
	depth := 0
	for _, instr := range body {
		switch instr.Op {
		case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case wasm.OpEnd:
			depth--
		}
	}
	return depth, maxDepth
}

func TestBuildValueDispatcherBalancesBlocks(t *testing.T) {
	b := newBuilder(&wasm.Module{}, Options{Catalog: &signature.Catalog{}})
	fn := b.buildValueDispatcher([]wasm.LabelIndex{0, 2, 1}, wasm.LabelIndex(3))
	code, ok := b.mod.CodeOf(fn)
	if !ok {
		t.Fatalf("dispatcher function not found at index %d", fn)
	}
	// The dispatcher opens n+2 wrapper blocks ($return, $exit, and n case
	// buckets) and must close every one of them; the function's own End
	// then takes the count one below zero.
	end, max := blockBalance(code.Body)
	if end != -1 {
		// -1 accounts for the function's own trailing End, which closes
		// past the outermost $return in our depth count (blockBalance treats
		// every End as closing a Block/Loop/If, but the function body's
		// own End has no matching opener in this count).
		t.Fatalf("unbalanced blocks in dispatcher body: ending depth %d (want -1), body=%+v", end, code.Body)
	}
	if max != 5 {
		t.Fatalf("expected 5 nested wrapper blocks ($return + $exit + 3 case buckets), got %d", max)
	}
}

// TestBuildValueDispatcherMatchesSwitchDispatchScenario covers the
// end-to-end "switch dispatch" scenario: table [4,0,1,2] with default 3
// must map selector 0..4 and an out-of-range selector to the documented
// results, not just produce a balanced instruction stream. A prior version
// of buildValueDispatcher passed every balance check here while every
// in-range selector actually returned the default value, so this
// evaluates the synthesized body rather than only inspecting its shape.
func TestBuildValueDispatcherMatchesSwitchDispatchScenario(t *testing.T) {
	b := newBuilder(&wasm.Module{}, Options{Catalog: &signature.Catalog{}})
	labels := []wasm.LabelIndex{4, 0, 1, 2}
	fn := b.buildValueDispatcher(labels, wasm.LabelIndex(3))
	code, ok := b.mod.CodeOf(fn)
	if !ok {
		t.Fatalf("dispatcher function not found at index %d", fn)
	}

	cases := map[int32]int32{0: 4, 1: 0, 2: 1, 3: 2, 4: 3, 99: 3}
	for selector, want := range cases {
		got, err := evalI32Dispatcher(code.Body, selector)
		if err != nil {
			t.Fatalf("evaluating dispatcher for selector %d: %v", selector, err)
		}
		if got != want {
			t.Fatalf("selector %d: got %d, want %d", selector, got, want)
		}
	}
}

func TestBranchDispatchCascadeBalancesBlocks(t *testing.T) {
	instrs := branchDispatchCascade([]wasm.LabelIndex{0, 2, 1}, wasm.LabelIndex(3))
	end, max := blockBalance(instrs)
	if end != 0 {
		t.Fatalf("unbalanced blocks in branch cascade: ending depth %d, instrs=%+v", end, instrs)
	}
	if max != 5 {
		t.Fatalf("expected 5 nested wrapper blocks (default bucket + 4 case buckets, depthCount=maxDepth+1=4), got %d", max)
	}
	// The selector must not be re-read from a local: the cascade's first
	// instruction is a wrapper block, not a local.get.
	if instrs[0].Op != wasm.OpBlock {
		t.Fatalf("expected the cascade to open its outermost wrapper block first, got %+v", instrs[0])
	}
	for _, instr := range instrs {
		if instr.Op == wasm.OpLocalGet {
			t.Fatalf("cascade must consume the selector already on the stack, not read a local: %+v", instrs)
		}
	}
}

func TestRewriteBrTableProducesWellFormedSequence(t *testing.T) {
	ft := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}}
	m := &wasm.Module{
		Types: []wasm.FunctionType{ft},
		Funcs: []wasm.TypeIndex{0},
		Code: []wasm.Code{
			{Body: []wasm.Instr{
				{Op: wasm.OpBlock, Block: wasm.EmptyBlockType()},
				{Op: wasm.OpBlock, Block: wasm.EmptyBlockType()},
				{Op: wasm.OpBlock, Block: wasm.EmptyBlockType()},
				{Op: wasm.OpLocalGet, Local: 0},
				{Op: wasm.OpBrTable, Labels: []wasm.LabelIndex{0, 1}, DefaultLabel: 2},
				{Op: wasm.OpEnd},
				{Op: wasm.OpEnd},
				{Op: wasm.OpEnd},
				{Op: wasm.OpEnd},
			}},
		},
	}
	res, err := Rewrite(m, Options{Iface: set(analysisiface.BrTable), Catalog: &signature.Catalog{}})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	body := res.Module.Code[0].Body
	end, _ := blockBalance(body)
	// -1 is the function's own trailing End; every block opened in the body
	// (the three originals and the branch cascade's wrappers) is closed.
	if end != -1 {
		t.Fatalf("rewritten function body has unbalanced blocks: ending depth %d (want -1), body=%+v", end, body)
	}
	if _, ok := findImport(res.Module, NamespaceAnalysis, "specialized_br_table"); !ok {
		t.Fatalf("missing specialized_br_table import")
	}
}

func TestImportFuncDedupsByNamespaceAndName(t *testing.T) {
	b := newBuilder(&wasm.Module{}, Options{Catalog: &signature.Catalog{}})
	ft := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{wasm.I32}}
	a := b.importFunc(NamespaceAnalysis, "specialized_select", ft)
	c := b.importFunc(NamespaceAnalysis, "specialized_select", ft)
	if a != c {
		t.Fatalf("expected the same import reused, got %d and %d", a, c)
	}
	if len(b.mod.Imports) != 1 {
		t.Fatalf("expected exactly one import, got %d", len(b.mod.Imports))
	}
}

func TestExportFuncAvoidsNameCollision(t *testing.T) {
	m := &wasm.Module{Exports: []wasm.Export{{Name: "call_base", Kind: wasm.ExternFunc, Index: 0}}}
	b := newBuilder(m, Options{Catalog: &signature.Catalog{}})
	b.exportFunc("call_base", 1)
	if _, ok := findExport(b.mod, "call_base_2"); !ok {
		t.Fatalf("expected a renamed export avoiding the collision, got %+v", b.mod.Exports)
	}
}
