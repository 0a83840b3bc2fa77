package rewrite

import (
	"github.com/wastrumentation/wastrument/internal/analysisiface"
	"github.com/wastrumentation/wastrument/internal/wasm"
)

// rewriteCall brackets a direct call with pre/post traps, each taking the
// callee's function index as its sole argument. The original call itself is
// left untouched in between; CallPre/CallPost never intercepts arguments or
// results the way generic-apply does, it only observes that the call
// happened.
func (b *builder) rewriteCall(instr wasm.Instr) []wasm.Instr {
	i32ToNone := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{}}
	var out []wasm.Instr
	if b.iface.Enabled(analysisiface.CallPre) {
		out = append(out,
			wasm.Instr{Op: wasm.OpI32Const, I32: int32(instr.Func)},
			wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, "specialized_call_pre", i32ToNone)},
		)
	}
	out = append(out, instr)
	if b.iface.Enabled(analysisiface.CallPost) {
		out = append(out,
			wasm.Instr{Op: wasm.OpI32Const, I32: int32(instr.Func)},
			wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, "specialized_call_post", i32ToNone)},
		)
	}
	return out
}

// rewriteCallIndirect brackets a call_indirect. The pre-trap consumes the
// entry index already on the stack together with the table immediate and
// returns the (possibly rewritten) entry index the real call_indirect uses;
// the post-trap observes the table immediate only, leaving results alone.
func (b *builder) rewriteCallIndirect(instr wasm.Instr) []wasm.Instr {
	var out []wasm.Instr
	if b.iface.Enabled(analysisiface.CallIndirectPre) {
		out = append(out,
			wasm.Instr{Op: wasm.OpI32Const, I32: int32(instr.Table)},
			wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, "specialized_call_indirect_pre",
				wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32, wasm.I32}, Results: []wasm.ValueKind{wasm.I32}})},
		)
	}
	out = append(out, instr)
	if b.iface.Enabled(analysisiface.CallIndirectPost) {
		out = append(out,
			wasm.Instr{Op: wasm.OpI32Const, I32: int32(instr.Table)},
			wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, "specialized_call_indirect_post",
				wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{}})},
		)
	}
	return out
}
