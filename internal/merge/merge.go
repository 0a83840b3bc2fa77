// Package merge fuses the rewritten target, the compiled trampoline
// library, and the compiled analysis into a single module: cross-module
// imports are resolved by name against the other sources' exports, export
// name collisions are renamed preferring the target's own names, the
// primary source's memory becomes memory 0, and every non-primary _start
// export is folded into the primary's.
package merge

import (
	"github.com/wastrumentation/wastrument/internal/wasm"
	"github.com/wastrumentation/wastrument/internal/werr"
)

// Source is one module participating in a merge, named for _start
// renaming, export-collision preference, and diagnostics.
type Source struct {
	Name   string
	Module *wasm.Module
}

// Options configures a merge pass.
type Options struct {
	// Primary names the source whose exports win name collisions and whose
	// memory becomes the merged module's memory 0. Required.
	Primary string
}

// Merge fuses sources into a single module per the package doc.
func Merge(sources []Source, opts Options) (*wasm.Module, error) {
	if len(sources) == 0 {
		return nil, werr.New(werr.KindMerge, "no sources to merge")
	}
	primaryIdx := -1
	for i, s := range sources {
		if s.Name == opts.Primary {
			primaryIdx = i
		}
	}
	if primaryIdx < 0 {
		return nil, werr.New(werr.KindMerge, "primary source %q not among merge inputs", opts.Primary)
	}

	exportIdx := buildExportIndex(sources)

	types := newTypePlan(sources)
	funcs := newEntityPlan(wasm.ExternFunc, sources, exportIdx)
	tables := newEntityPlan(wasm.ExternTable, sources, exportIdx)
	mems := newEntityPlan(wasm.ExternMemory, sources, exportIdx)
	globals := newEntityPlan(wasm.ExternGlobal, sources, exportIdx)

	out := &wasm.Module{}
	out.Types = types.merged

	// External (unresolved) imports, in source order, each remapped to the
	// merged type index for func imports.
	for si, src := range sources {
		var funcLocal, tableLocal, memLocal, globalLocal uint32
		for _, imp := range src.Module.Imports {
			switch {
			case imp.IsFunc:
				if funcs.kept[si][funcLocal] {
					newImp := imp
					newImp.FuncType = types.remapType(si, imp.FuncType)
					out.Imports = append(out.Imports, newImp)
				}
				funcLocal++
			case imp.IsTable:
				if tables.kept[si][tableLocal] {
					out.Imports = append(out.Imports, imp)
				}
				tableLocal++
			case imp.IsMemory:
				if mems.kept[si][memLocal] {
					out.Imports = append(out.Imports, imp)
				}
				memLocal++
			case imp.IsGlobal:
				if globals.kept[si][globalLocal] {
					out.Imports = append(out.Imports, imp)
				}
				globalLocal++
			}
		}
	}

	// Defined entities, in source order, bodies/inits remapped to the
	// merged index spaces.
	for si, src := range sources {
		m := src.Module
		for i, t := range m.Funcs {
			out.Funcs = append(out.Funcs, types.remapType(si, t))
			out.Code = append(out.Code, remapCode(m.Code[i], si, types, funcs, tables, mems, globals))
		}
		for _, t := range m.Tables {
			out.Tables = append(out.Tables, t)
		}
		for _, l := range m.Mems {
			out.Mems = append(out.Mems, l)
		}
		for _, g := range m.Globals {
			out.Globals = append(out.Globals, wasm.Global{
				Type: g.Type,
				Init: remapInstrs(g.Init, si, types, funcs, tables, mems, globals),
			})
		}
		for _, e := range m.Elements {
			out.Elements = append(out.Elements, wasm.Element{
				Table:  wasm.TableIndex(tables.resolve(si, uint32(e.Table))),
				Offset: remapInstrs(e.Offset, si, types, funcs, tables, mems, globals),
				Funcs:  remapFuncIndices(e.Funcs, si, funcs),
			})
		}
		for _, d := range m.Data {
			out.Data = append(out.Data, wasm.Data{
				Mem:    wasm.MemIndex(mems.resolve(si, uint32(d.Mem))),
				Offset: remapInstrs(d.Offset, si, types, funcs, tables, mems, globals),
				Bytes:  d.Bytes,
			})
		}
		out.Customs = append(out.Customs, m.Customs...)
	}

	if sources[primaryIdx].Module.Start != nil {
		remapped := wasm.FuncIndex(funcs.resolve(primaryIdx, uint32(*sources[primaryIdx].Module.Start)))
		out.Start = &remapped
	}

	if err := placePrimaryMemory(out, mems, primaryIdx, sources); err != nil {
		return nil, err
	}

	mergeExports(out, sources, funcs, tables, mems, globals, primaryIdx)

	if err := foldStarts(out, sources, funcs, primaryIdx); err != nil {
		return nil, err
	}

	return out, nil
}

// buildExportIndex maps an export name to the first source that exports
// it, for cross-module import resolution. First source in input order
// wins on a name clash, matching the deterministic-naming contract merge
// depends on.
type exportTarget struct {
	source int
	kind   wasm.ExternKind
	index  uint32
}

func buildExportIndex(sources []Source) map[string]exportTarget {
	idx := make(map[string]exportTarget)
	for si, src := range sources {
		for _, exp := range src.Module.Exports {
			if _, exists := idx[exp.Name]; !exists {
				idx[exp.Name] = exportTarget{source: si, kind: exp.Kind, index: exp.Index}
			}
		}
	}
	return idx
}
