package merge

import "github.com/wastrumentation/wastrument/internal/wasm"

// mergeExports builds the merged export list: every source's exports are
// carried over with their index remapped into the merged space, renaming
// on a name collision so the primary source's own name always wins.
func mergeExports(out *wasm.Module, sources []Source, funcs, tables, mems, globals *entityPlan, primaryIdx int) {
	taken := make(map[string]bool)

	// The primary's exports claim their names first so collisions always
	// resolve in its favor, regardless of source declaration order.
	order := make([]int, 0, len(sources))
	order = append(order, primaryIdx)
	for si := range sources {
		if si != primaryIdx {
			order = append(order, si)
		}
	}

	type pending struct {
		source int
		exp    wasm.Export
	}
	var all []pending
	for _, si := range order {
		for _, exp := range sources[si].Module.Exports {
			all = append(all, pending{source: si, exp: exp})
		}
	}

	for _, p := range all {
		name := p.exp.Name
		if taken[name] {
			name = p.exp.Name + "_" + sources[p.source].Name
			for i := 2; taken[name]; i++ {
				name = p.exp.Name + "_" + sources[p.source].Name + "_" + itoa(i)
			}
		}
		taken[name] = true
		out.Exports = append(out.Exports, wasm.Export{
			Name:  name,
			Kind:  p.exp.Kind,
			Index: resolveExport(p.exp, p.source, funcs, tables, mems, globals),
		})
	}
}

func resolveExport(exp wasm.Export, source int, funcs, tables, mems, globals *entityPlan) uint32 {
	switch exp.Kind {
	case wasm.ExternFunc:
		return funcs.resolve(source, exp.Index)
	case wasm.ExternTable:
		return tables.resolve(source, exp.Index)
	case wasm.ExternMemory:
		return mems.resolve(source, exp.Index)
	case wasm.ExternGlobal:
		return globals.resolve(source, exp.Index)
	}
	return exp.Index
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// foldStarts implements the _start-folding responsibility: every
// non-primary source's _start (already carried into the merged export
// list, renamed, by mergeExports) is additionally wired into a combined
// start function that runs before the primary's own _start body, in
// source registration order. If the primary has no _start of its own, the
// synthesized function becomes the merged module's only _start.
func foldStarts(out *wasm.Module, sources []Source, funcs *entityPlan, primaryIdx int) error {
	var otherStarts []wasm.FuncIndex
	var primaryStart *wasm.FuncIndex

	for si, src := range sources {
		for _, exp := range src.Module.Exports {
			if exp.Name != "_start" || exp.Kind != wasm.ExternFunc {
				continue
			}
			newIdx := wasm.FuncIndex(funcs.resolve(si, exp.Index))
			if si == primaryIdx {
				idx := newIdx
				primaryStart = &idx
			} else {
				otherStarts = append(otherStarts, newIdx)
			}
		}
	}

	if len(otherStarts) == 0 {
		return nil
	}

	var body []wasm.Instr
	for _, fn := range otherStarts {
		body = append(body, wasm.Instr{Op: wasm.OpCall, Func: fn})
	}
	if primaryStart != nil {
		body = append(body, wasm.Instr{Op: wasm.OpCall, Func: *primaryStart})
	}
	body = append(body, wasm.Instr{Op: wasm.OpEnd})

	voidType := internVoidType(out)
	newFn := nextFuncIndex(out)
	out.Funcs = append(out.Funcs, voidType)
	out.Code = append(out.Code, wasm.Code{Body: body})

	for i, exp := range out.Exports {
		if exp.Name == "_start" && exp.Kind == wasm.ExternFunc {
			out.Exports[i].Index = uint32(newFn)
			return nil
		}
	}
	out.Exports = append(out.Exports, wasm.Export{Name: "_start", Kind: wasm.ExternFunc, Index: uint32(newFn)})
	return nil
}

func internVoidType(out *wasm.Module) wasm.TypeIndex {
	ft := wasm.FunctionType{}
	for i, existing := range out.Types {
		if existing.Equal(ft) {
			return wasm.TypeIndex(i)
		}
	}
	out.Types = append(out.Types, ft)
	return wasm.TypeIndex(len(out.Types) - 1)
}

func nextFuncIndex(out *wasm.Module) wasm.FuncIndex {
	return wasm.FuncIndex(importCount(out, wasm.ExternFunc) + len(out.Funcs))
}

func importCount(out *wasm.Module, kind wasm.ExternKind) int {
	n := 0
	for _, imp := range out.Imports {
		if (kind == wasm.ExternFunc && imp.IsFunc) ||
			(kind == wasm.ExternTable && imp.IsTable) ||
			(kind == wasm.ExternMemory && imp.IsMemory) ||
			(kind == wasm.ExternGlobal && imp.IsGlobal) {
			n++
		}
	}
	return n
}
