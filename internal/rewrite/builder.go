// Package rewrite visits a target module's structured bodies (component A)
// and, for each event kind the resolved analysis interface (component E)
// enables, replaces the matching leaf with a deterministic trap-dispatch
// sequence: the generic-apply installer, direct/indirect call brackets,
// structured-branch brackets, the br_table synthesizer, and the typed
// memory/local/global traps.
package rewrite

import (
	"github.com/wastrumentation/wastrument/internal/analysisiface"
	"github.com/wastrumentation/wastrument/internal/signature"
	"github.com/wastrumentation/wastrument/internal/wasm"
	"github.com/wastrumentation/wastrument/internal/werr"
)

// Namespaces the rewritten module imports its collaborators' helpers under.
// Resolved by name at merge time (component F).
const (
	NamespaceAnalysis   = "analysis"
	NamespaceStack      = "wastrumentation_stack"
	NamespaceTransformed = "transformed_input"
)

// Options configures a rewrite pass.
type Options struct {
	Iface   *analysisiface.Set
	Catalog *signature.Catalog
	// Targets restricts the rewrite to these pre-rewrite function indices.
	// Nil means every module-defined function.
	Targets []wasm.FuncIndex
}

// Result is the outcome of a successful rewrite pass.
type Result struct {
	Module *wasm.Module
	// ApplyTableSlot maps a pre-rewrite function index to its slot in the
	// synthesized apply table, for every function generic-apply installed.
	ApplyTableSlot map[wasm.FuncIndex]uint32
}

// builder accumulates mutations to a cloned copy of the target module: new
// imports, functions, table entries, and locals, while rewriting existing
// function bodies in place.
type builder struct {
	mod     *wasm.Module
	iface   *analysisiface.Set
	catalog *signature.Catalog

	importFuncIdx map[string]wasm.FuncIndex // "namespace.name" -> shared func index
	exportNames   map[string]bool

	applyTableIdx     wasm.TableIndex
	applyTableEnsured bool
	applyThunks       []wasm.FuncIndex // apply table contents, in slot order
	applyTableSlot    map[wasm.FuncIndex]uint32
}

func newBuilder(m *wasm.Module, opts Options) *builder {
	b := &builder{
		mod:            m,
		iface:          opts.Iface,
		catalog:        opts.Catalog,
		importFuncIdx:  make(map[string]wasm.FuncIndex),
		exportNames:    make(map[string]bool),
		applyTableSlot: make(map[wasm.FuncIndex]uint32),
	}
	for _, exp := range m.Exports {
		b.exportNames[exp.Name] = true
	}
	return b
}

// importFunc returns the shared function index for a (namespace, name, type)
// import, adding it to the module if not already present. Reused across
// call sites so two events needing the same helper don't duplicate imports.
func (b *builder) importFunc(namespace, name string, ft wasm.FunctionType) wasm.FuncIndex {
	key := namespace + "." + name
	if idx, ok := b.importFuncIdx[key]; ok {
		return idx
	}
	typeIdx := b.internType(ft)
	idx := wasm.FuncIndex(b.countFuncs())
	b.mod.Imports = append(b.mod.Imports, wasm.Import{
		Module: namespace, Name: name, IsFunc: true, FuncType: typeIdx,
	})
	b.importFuncIdx[key] = idx
	return idx
}

// internType dedups function types by structural equality, adding a new
// type section entry only when no existing one matches.
func (b *builder) internType(ft wasm.FunctionType) wasm.TypeIndex {
	for i, existing := range b.mod.Types {
		if existing.Equal(ft) {
			return wasm.TypeIndex(i)
		}
	}
	b.mod.Types = append(b.mod.Types, ft)
	return wasm.TypeIndex(len(b.mod.Types) - 1)
}

// countFuncs returns the size of the current shared function index space.
// Imports must always be appended before any new module-defined function is
// added, since the shared index space places every import before every
// module-defined function (the module's own encoding order, unchanged by
// rewriting).
func (b *builder) countFuncs() int {
	n := 0
	for _, imp := range b.mod.Imports {
		if imp.IsFunc {
			n++
		}
	}
	return n + len(b.mod.Funcs)
}

// addFunc appends a new module-defined function with the given signature
// and body, returning its shared function index.
func (b *builder) addFunc(ft wasm.FunctionType, locals []wasm.ValueKind, body []wasm.Instr) wasm.FuncIndex {
	typeIdx := b.internType(ft)
	idx := wasm.FuncIndex(b.countFuncs())
	b.mod.Funcs = append(b.mod.Funcs, typeIdx)
	b.mod.Code = append(b.mod.Code, wasm.Code{Locals: locals, Body: body})
	return idx
}

// exportFunc exports fn under name, renaming on collision by appending a
// numeric suffix (collisions are resolved for real by the module merger;
// here we only need to guarantee our own synthesized names don't clash with
// the target's pre-existing exports).
func (b *builder) exportFunc(name string, fn wasm.FuncIndex) {
	candidate := name
	for i := 2; b.exportNames[candidate]; i++ {
		candidate = name + "_" + itoa(i)
	}
	b.exportNames[candidate] = true
	b.mod.Exports = append(b.mod.Exports, wasm.Export{Name: candidate, Kind: wasm.ExternFunc, Index: uint32(fn)})
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ensureApplyTable creates the dedicated apply table on first use.
func (b *builder) ensureApplyTable() wasm.TableIndex {
	if b.applyTableEnsured {
		return b.applyTableIdx
	}
	b.applyTableIdx = wasm.TableIndex(len(b.mod.Tables))
	b.mod.Tables = append(b.mod.Tables, wasm.TableType{
		ElemKind: wasm.RefFuncRef,
		Limits:   wasm.Limits{Min: 0},
	})
	b.applyTableEnsured = true
	return b.applyTableIdx
}

// installApplyThunk appends thunk to the apply table's backing element
// segment, returning its slot index.
func (b *builder) installApplyThunk(original wasm.FuncIndex, thunk wasm.FuncIndex) uint32 {
	tableIdx := b.ensureApplyTable()
	slot := uint32(len(b.applyThunks))
	b.applyThunks = append(b.applyThunks, thunk)
	b.applyTableSlot[original] = slot

	if len(b.mod.Elements) == 0 || b.mod.Elements[len(b.mod.Elements)-1].Table != tableIdx {
		b.mod.Elements = append(b.mod.Elements, wasm.Element{
			Table:  tableIdx,
			Offset: []wasm.Instr{{Op: wasm.OpI32Const, I32: 0}, {Op: wasm.OpEnd}},
		})
	}
	elem := &b.mod.Elements[len(b.mod.Elements)-1]
	elem.Funcs = append(elem.Funcs, thunk)
	b.mod.Tables[tableIdx].Limits.Min = uint32(len(elem.Funcs))
	return slot
}

func failUnsupported(loc wasm.Location, reason string) error {
	return werr.At(werr.KindUnsupportedFeature, loc, "%s", reason)
}
