package orchestrator

import (
	"context"
	"testing"

	"github.com/wastrumentation/wastrument/internal/analysis"
	"github.com/wastrumentation/wastrument/internal/analysisiface"
	"github.com/wastrumentation/wastrument/internal/trampoline"
	"github.com/wastrumentation/wastrument/internal/wasm"
	"github.com/wastrumentation/wastrument/internal/wasm/binary"
)

// stubTrampolineCompiler ignores the generated Go source and returns a
// precompiled module with no exports, standing in for a real toolchain
// invocation in tests that never exercise a hook requiring a trampoline
// import to resolve.
type stubTrampolineCompiler struct{ bytes []byte }

func (s stubTrampolineCompiler) Compile(_ context.Context, _ []trampoline.GeneratedFile) ([]byte, error) {
	return s.bytes, nil
}

type stubAnalysisCompiler struct{ bytes []byte }

func (s stubAnalysisCompiler) Compile(_ context.Context, _ analysis.Descriptor) ([]byte, error) {
	return s.bytes, nil
}

func emptyModuleBytes() []byte {
	return binary.EncodeModule(&wasm.Module{})
}

// targetModuleBytes builds a single exported function add(a, b) -> a + b.
func targetModuleBytes() []byte {
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
		Exports: []wasm.Export{{Name: "add", Kind: wasm.ExternFunc, Index: 0}},
	}
	return binary.EncodeModule(m)
}

// TestRunWithNoHooksPassesTargetThrough exercises every pipeline stage with
// every hook disabled: rewrite should leave the target's body untouched,
// the resolved interface should require nothing of the analysis, and the
// merged module should still export "add".
func TestRunWithNoHooksPassesTargetThrough(t *testing.T) {
	p := New(
		stubTrampolineCompiler{bytes: emptyModuleBytes()},
		stubAnalysisCompiler{bytes: emptyModuleBytes()},
		nil,
	)

	resp, err := p.Run(context.Background(), Request{
		TargetBytes: targetModuleBytes(),
		Analysis:    analysis.Descriptor{SourceKind: "wasm", SourceBytes: emptyModuleBytes()},
		Hooks:       map[analysisiface.Hook]bool{},
		Primary:     PrimaryTarget,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected a non-empty request ID")
	}

	out, err := binary.DecodeModule(resp.Bytes)
	if err != nil {
		t.Fatalf("decoding merged module: %v", err)
	}
	found := false
	for _, e := range out.Exports {
		if e.Name == "add" && e.Kind == wasm.ExternFunc {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the merged module to still export add, got %+v", out.Exports)
	}
}

// TestRunRejectsAnalysisMissingRequiredExport enables CallPre, which
// demands a specialized_call_pre export from the analysis; an analysis
// module that doesn't provide it must fail at ResolveIface, not later.
func TestRunRejectsAnalysisMissingRequiredExport(t *testing.T) {
	p := New(
		stubTrampolineCompiler{bytes: emptyModuleBytes()},
		stubAnalysisCompiler{bytes: emptyModuleBytes()},
		nil,
	)

	_, err := p.Run(context.Background(), Request{
		TargetBytes: targetModuleBytes(),
		Analysis:    analysis.Descriptor{SourceKind: "wasm", SourceBytes: emptyModuleBytes()},
		Hooks:       map[analysisiface.Hook]bool{analysisiface.CallPre: true},
		Primary:     PrimaryTarget,
	})
	if err == nil {
		t.Fatalf("expected an error when the analysis lacks a required export")
	}
}
