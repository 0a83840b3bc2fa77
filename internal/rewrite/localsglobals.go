package rewrite

import (
	"github.com/wastrumentation/wastrument/internal/analysisiface"
	"github.com/wastrumentation/wastrument/internal/wasm"
)

// rewriteLocalGet wraps a local.get with a post-trap: the real get runs
// first, then the analysis may rewrite the value it produced.
func (b *builder) rewriteLocalGet(instr wasm.Instr, kind wasm.ValueKind) []wasm.Instr {
	if !b.iface.Enabled(analysisiface.LocalGet) {
		return []wasm.Instr{instr}
	}
	return []wasm.Instr{instr, b.typedTrap("specialized_local_get_", kind)}
}

// rewriteLocalTee wraps a local.tee with a pre-trap over the value about to
// be stored and re-pushed.
func (b *builder) rewriteLocalTee(instr wasm.Instr, kind wasm.ValueKind) []wasm.Instr {
	if !b.iface.Enabled(analysisiface.LocalTee) {
		return []wasm.Instr{instr}
	}
	return []wasm.Instr{b.typedTrap("specialized_local_tee_", kind), instr}
}

// rewriteLocalSet wraps a local.set with a pre-trap over the value about to
// be stored.
func (b *builder) rewriteLocalSet(instr wasm.Instr, kind wasm.ValueKind) []wasm.Instr {
	if !b.iface.Enabled(analysisiface.LocalSet) {
		return []wasm.Instr{instr}
	}
	return []wasm.Instr{b.typedTrap("specialized_local_set_", kind), instr}
}

func (b *builder) rewriteGlobalGet(instr wasm.Instr, kind wasm.ValueKind) []wasm.Instr {
	if !b.iface.Enabled(analysisiface.GlobalGet) {
		return []wasm.Instr{instr}
	}
	return []wasm.Instr{instr, b.typedTrap("specialized_global_get_", kind)}
}

func (b *builder) rewriteGlobalSet(instr wasm.Instr, kind wasm.ValueKind) []wasm.Instr {
	if !b.iface.Enabled(analysisiface.GlobalSet) {
		return []wasm.Instr{instr}
	}
	return []wasm.Instr{b.typedTrap("specialized_global_set_", kind), instr}
}

// typedTrap builds the call instruction for a kind-specific (kind)->(kind)
// identity-shaped trap, named prefix+kind.
func (b *builder) typedTrap(prefix string, kind wasm.ValueKind) wasm.Instr {
	ft := wasm.FunctionType{Params: []wasm.ValueKind{kind}, Results: []wasm.ValueKind{kind}}
	return wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, prefix+kind.String(), ft)}
}
