package rewrite

import (
	"github.com/wastrumentation/wastrument/internal/analysisiface"
	"github.com/wastrumentation/wastrument/internal/wasm"
)

// rewriteLoad replaces a raw load with a call into the analysis's typed
// load trap, which performs the memory read itself (and may return a
// doctored value, e.g. scrubbing NaN payloads) rather than observing one
// the engine already produced.
func (b *builder) rewriteLoad(instr wasm.Instr) []wasm.Instr {
	if !b.iface.Enabled(analysisiface.Load) {
		return []wasm.Instr{instr}
	}
	kind := instr.Op.LoadResultKind()
	name := "specialized_load_" + kind.String()
	ft := wasm.FunctionType{
		Params:  []wasm.ValueKind{wasm.I32, wasm.I64, wasm.I32},
		Results: []wasm.ValueKind{kind},
	}
	return []wasm.Instr{
		{Op: wasm.OpI64Const, I64: int64(instr.Mem.Offset)},
		{Op: wasm.OpI32Const, I32: instr.Op.LoadTag()},
		{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, name, ft)},
	}
}

// rewriteStore replaces a raw store with a call into the analysis's typed
// store trap, which performs the write itself.
func (b *builder) rewriteStore(instr wasm.Instr) []wasm.Instr {
	if !b.iface.Enabled(analysisiface.Store) {
		return []wasm.Instr{instr}
	}
	kind := instr.Op.StoreValueKind()
	name := "specialized_store_" + kind.String()
	ft := wasm.FunctionType{
		Params:  []wasm.ValueKind{wasm.I32, kind, wasm.I64, wasm.I32},
		Results: []wasm.ValueKind{},
	}
	return []wasm.Instr{
		{Op: wasm.OpI64Const, I64: int64(instr.Mem.Offset)},
		{Op: wasm.OpI32Const, I32: instr.Op.StoreTag()},
		{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, name, ft)},
	}
}

// memIndexConst is the MVP's only memory index; multi-memory is out of
// scope, but the trap signatures carry an index operand for forward fit.
const memIndexConst = 0

func (b *builder) rewriteMemorySize(instr wasm.Instr) []wasm.Instr {
	if !b.iface.Enabled(analysisiface.MemorySize) {
		return []wasm.Instr{instr}
	}
	ft := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{wasm.I32}}
	return []wasm.Instr{
		{Op: wasm.OpI32Const, I32: memIndexConst},
		{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, "specialized_memory_size", ft)},
	}
}

func (b *builder) rewriteMemoryGrow(instr wasm.Instr) []wasm.Instr {
	if !b.iface.Enabled(analysisiface.MemoryGrow) {
		return []wasm.Instr{instr}
	}
	ft := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32, wasm.I32}, Results: []wasm.ValueKind{wasm.I32}}
	return []wasm.Instr{
		{Op: wasm.OpI32Const, I32: memIndexConst},
		{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, "specialized_memory_grow", ft)},
	}
}
