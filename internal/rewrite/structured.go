package rewrite

import (
	"github.com/wastrumentation/wastrument/internal/analysisiface"
	"github.com/wastrumentation/wastrument/internal/wasm"
)

var i32ToI32 = wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{wasm.I32}}

// ifCondTrap returns the trap call to splice in immediately before an If
// node's opening instruction, consuming and replacing the condition already
// on the stack. Reports false when neither IfThen nor IfThenElse is enabled.
func (b *builder) ifCondTrap(hasElse bool) (wasm.Instr, bool) {
	if hasElse {
		if !b.iface.Enabled(analysisiface.IfThenElse) {
			return wasm.Instr{}, false
		}
		return wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, "specialized_if_then_else_k", i32ToI32)}, true
	}
	if !b.iface.Enabled(analysisiface.IfThen) {
		return wasm.Instr{}, false
	}
	return wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, "specialized_if_then_k", i32ToI32)}, true
}

// rewriteSelect splices the select trap in before a select instruction,
// threading the boolean condition through the analysis.
func (b *builder) rewriteSelect(instr wasm.Instr) []wasm.Instr {
	if !b.iface.Enabled(analysisiface.Select) {
		return []wasm.Instr{instr}
	}
	trap := wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, "specialized_select", i32ToI32)}
	return []wasm.Instr{trap, instr}
}

// rewriteBrIf splices the br_if trap in before a br_if instruction: the
// label is passed alongside the condition, and the trap's returned i32
// becomes the effective condition the real br_if branches on.
func (b *builder) rewriteBrIf(instr wasm.Instr) []wasm.Instr {
	if !b.iface.Enabled(analysisiface.BrIf) {
		return []wasm.Instr{instr}
	}
	trapFT := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32, wasm.I32}, Results: []wasm.ValueKind{wasm.I32}}
	return []wasm.Instr{
		{Op: wasm.OpI32Const, I32: int32(instr.Label)},
		{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, "specialized_br_if", trapFT)},
		instr,
	}
}
