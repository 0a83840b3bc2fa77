package merge

import "github.com/wastrumentation/wastrument/internal/wasm"

// entityPlan computes, for one kind of importable/exportable entity
// (func, table, memory, or global), how every source's old shared index
// space maps into the merged module's single index space of that kind.
//
// A source's old index space for a kind is, as always in Wasm, every
// import of that kind (in declaration order) followed by every
// module-defined entity of that kind. Dropping a resolved import shrinks
// nothing in that space — old indices are never renumbered within a
// source, only mapped forward into the merged space.
type entityPlan struct {
	kind wasm.ExternKind

	importedCount []uint32 // per source: number of kind imports it declares
	definedCount  []uint32 // per source: number of kind entities it defines
	definedBase   []uint32 // per source: merged index of its first defined entity

	kept       []map[uint32]bool         // per source: local import idx -> kept as external import
	newImport  []map[uint32]uint32       // per source: local import idx -> merged index, kept only
	dropTarget []map[uint32]exportTarget // per source: local import idx -> resolution target, dropped only
}

func newEntityPlan(kind wasm.ExternKind, sources []Source, exportIdx map[string]exportTarget) *entityPlan {
	n := len(sources)
	p := &entityPlan{
		kind:          kind,
		importedCount: make([]uint32, n),
		definedCount:  make([]uint32, n),
		definedBase:   make([]uint32, n),
		kept:          make([]map[uint32]bool, n),
		newImport:     make([]map[uint32]uint32, n),
		dropTarget:    make([]map[uint32]exportTarget, n),
	}

	for si, src := range sources {
		p.kept[si] = make(map[uint32]bool)
		p.newImport[si] = make(map[uint32]uint32)
		p.dropTarget[si] = make(map[uint32]exportTarget)

		var local uint32
		for _, imp := range src.Module.Imports {
			if !importIsKind(imp, kind) {
				continue
			}
			if target, ok := exportIdx[imp.Name]; ok && target.kind == kind && target.source != si {
				p.dropTarget[si][local] = target
			} else {
				p.kept[si][local] = true
			}
			local++
		}
		p.importedCount[si] = local
		p.definedCount[si] = definedCountOf(src.Module, kind)
	}

	var nextImportIdx uint32
	for si := range sources {
		var local uint32
		for local = 0; local < p.importedCount[si]; local++ {
			if p.kept[si][local] {
				p.newImport[si][local] = nextImportIdx
				nextImportIdx++
			}
		}
	}

	base := nextImportIdx
	for si := range sources {
		p.definedBase[si] = base
		base += p.definedCount[si]
	}

	return p
}

// resolve maps a (source, old local index) pair of this kind into the
// merged index space, following dropped-import resolution chains.
func (p *entityPlan) resolve(source int, oldIdx uint32) uint32 {
	for steps := 0; steps < len(p.importedCount)+1; steps++ {
		if oldIdx >= p.importedCount[source] {
			return p.definedBase[source] + (oldIdx - p.importedCount[source])
		}
		if newIdx, ok := p.newImport[source][oldIdx]; ok {
			return newIdx
		}
		target := p.dropTarget[source][oldIdx]
		source, oldIdx = target.source, target.index
	}
	return 0 // unreachable for well-formed modules; cycle guard only
}

func importIsKind(imp wasm.Import, kind wasm.ExternKind) bool {
	switch kind {
	case wasm.ExternFunc:
		return imp.IsFunc
	case wasm.ExternTable:
		return imp.IsTable
	case wasm.ExternMemory:
		return imp.IsMemory
	case wasm.ExternGlobal:
		return imp.IsGlobal
	}
	return false
}

func definedCountOf(m *wasm.Module, kind wasm.ExternKind) uint32 {
	switch kind {
	case wasm.ExternFunc:
		return uint32(len(m.Funcs))
	case wasm.ExternTable:
		return uint32(len(m.Tables))
	case wasm.ExternMemory:
		return uint32(len(m.Mems))
	case wasm.ExternGlobal:
		return uint32(len(m.Globals))
	}
	return 0
}

// typePlan dedupes function types structurally across every source.
type typePlan struct {
	merged []wasm.FunctionType
	remap  []map[wasm.TypeIndex]wasm.TypeIndex // per source
}

func newTypePlan(sources []Source) *typePlan {
	p := &typePlan{remap: make([]map[wasm.TypeIndex]wasm.TypeIndex, len(sources))}
	for si, src := range sources {
		p.remap[si] = make(map[wasm.TypeIndex]wasm.TypeIndex)
		for oldIdx, ft := range src.Module.Types {
			p.remap[si][wasm.TypeIndex(oldIdx)] = p.intern(ft)
		}
	}
	return p
}

func (p *typePlan) intern(ft wasm.FunctionType) wasm.TypeIndex {
	for i, existing := range p.merged {
		if existing.Equal(ft) {
			return wasm.TypeIndex(i)
		}
	}
	p.merged = append(p.merged, ft)
	return wasm.TypeIndex(len(p.merged) - 1)
}

func (p *typePlan) remapType(source int, old wasm.TypeIndex) wasm.TypeIndex {
	return p.remap[source][old]
}
