package merge

import (
	"github.com/wastrumentation/wastrument/internal/wasm"
	"github.com/wastrumentation/wastrument/internal/werr"
)

// remapCode rewrites a single function body's cross-referencing operands
// into the merged index space. Locals are untouched: a local index is
// private to its own function frame and never crosses a module boundary.
func remapCode(code wasm.Code, source int, types *typePlan, funcs, tables, mems, globals *entityPlan) wasm.Code {
	return wasm.Code{
		Locals: code.Locals,
		Body:   remapInstrs(code.Body, source, types, funcs, tables, mems, globals),
	}
}

func remapInstrs(instrs []wasm.Instr, source int, types *typePlan, funcs, tables, mems, globals *entityPlan) []wasm.Instr {
	out := make([]wasm.Instr, len(instrs))
	for i, instr := range instrs {
		out[i] = remapInstr(instr, source, types, funcs, tables, mems, globals)
	}
	return out
}

func remapInstr(instr wasm.Instr, source int, types *typePlan, funcs, tables, mems, globals *entityPlan) wasm.Instr {
	if instr.Block.HasIndex {
		instr.Block.TypeIdx = types.remapType(source, instr.Block.TypeIdx)
	}
	switch instr.Op {
	case wasm.OpCall:
		instr.Func = wasm.FuncIndex(funcs.resolve(source, uint32(instr.Func)))
	case wasm.OpCallIndirect:
		instr.Type = types.remapType(source, instr.Type)
		instr.Table = wasm.TableIndex(tables.resolve(source, uint32(instr.Table)))
	case wasm.OpGlobalGet, wasm.OpGlobalSet:
		instr.Global = wasm.GlobalIndex(globals.resolve(source, uint32(instr.Global)))
	}
	return instr
}

func remapFuncIndices(fns []wasm.FuncIndex, source int, funcs *entityPlan) []wasm.FuncIndex {
	out := make([]wasm.FuncIndex, len(fns))
	for i, f := range fns {
		out[i] = wasm.FuncIndex(funcs.resolve(source, uint32(f)))
	}
	return out
}

// placePrimaryMemory validates the single-memory assumption the MVP
// instruction set relies on (no Instr in this model carries an explicit
// memory-index operand, so every load/store implicitly addresses memory
// 0). With at most one real memory surviving the merge — whether defined
// by one source or imported and resolved against another's export — it
// always lands at merged index 0 regardless of which source owns it, so
// no explicit reordering is needed; merge only needs to reject the
// unsupported case of more than one.
func placePrimaryMemory(out *wasm.Module, mems *entityPlan, primaryIdx int, sources []Source) error {
	total := len(out.Mems)
	for _, imp := range out.Imports {
		if imp.IsMemory {
			total++
		}
	}
	if total > 1 {
		return werr.New(werr.KindUnsupportedFeature,
			"merge produced %d distinct memories; multi-memory is not supported, compile the trampoline and analysis against an imported shared memory instead", total)
	}
	return nil
}
