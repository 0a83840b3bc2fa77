// Package analysisiface turns a set of enabled hook kinds into the exact
// analysis exports an instrumented module expects and the trampoline
// imports it must in turn supply, per the frozen ABI table the rewriters
// and the module merger both depend on.
package analysisiface

import "github.com/wastrumentation/wastrument/internal/wasm"

// Hook is the closed set of instrumentable event kinds.
type Hook string

const (
	GenericApply       Hook = "GenericApply"
	CallPre            Hook = "CallPre"
	CallPost           Hook = "CallPost"
	CallIndirectPre    Hook = "CallIndirectPre"
	CallIndirectPost   Hook = "CallIndirectPost"
	IfThen             Hook = "IfThen"
	IfThenElse         Hook = "IfThenElse"
	BrIf               Hook = "BrIf"
	BrTable            Hook = "BrTable"
	Select             Hook = "Select"
	LocalGet           Hook = "LocalGet"
	LocalSet           Hook = "LocalSet"
	LocalTee           Hook = "LocalTee"
	GlobalGet          Hook = "GlobalGet"
	GlobalSet          Hook = "GlobalSet"
	Load               Hook = "Load"
	Store              Hook = "Store"
	MemorySize         Hook = "MemorySize"
	MemoryGrow         Hook = "MemoryGrow"
	BlockPrePost       Hook = "BlockPrePost"
	LoopPrePost        Hook = "LoopPrePost"
)

// AllHooks enumerates every hook kind, in a fixed order used wherever a
// stable iteration order matters (e.g. deterministic export resolution).
var AllHooks = []Hook{
	GenericApply, CallPre, CallPost, CallIndirectPre, CallIndirectPost,
	IfThen, IfThenElse, BrIf, BrTable, Select,
	LocalGet, LocalSet, LocalTee, GlobalGet, GlobalSet,
	Load, Store, MemorySize, MemoryGrow, BlockPrePost, LoopPrePost,
}

// ExportSpec names one expected analysis export along with its fixed
// signature.
type ExportSpec struct {
	Name string
	Type wasm.FunctionType
}

// Set is a resolved analysis interface: the enabled hooks and the exports
// expected of the analysis module.
type Set struct {
	Hooks   map[Hook]bool
	Exports []ExportSpec
}

// Enabled reports whether hook is in the set.
func (s *Set) Enabled(h Hook) bool { return s.Hooks[h] }

const transformedInputNamespace = "transformed_input"

// Resolve builds the analysis interface for an enabled hook set. localKinds
// and globalKinds list the distinct value kinds local/global traps must be
// emitted for (only kinds actually touched in the target need a typed
// trap), since §6's "one per value kind" local/global trap family is
// otherwise unbounded.
func Resolve(hooks map[Hook]bool, localKinds, globalKinds []wasm.ValueKind) *Set {
	set := &Set{Hooks: hooks}

	i32 := []wasm.ValueKind{wasm.I32}
	none := []wasm.ValueKind{}

	add := func(h Hook, name string, params, results []wasm.ValueKind) {
		if hooks[h] {
			set.Exports = append(set.Exports, ExportSpec{
				Name: name,
				Type: wasm.FunctionType{Params: params, Results: results},
			})
		}
	}

	add(GenericApply, "generic_apply", []wasm.ValueKind{wasm.I32, wasm.I32, wasm.I32, wasm.I32, wasm.I32}, none)
	add(CallPre, "specialized_call_pre", i32, none)
	add(CallPost, "specialized_call_post", i32, none)
	add(CallIndirectPre, "specialized_call_indirect_pre", []wasm.ValueKind{wasm.I32, wasm.I32}, i32)
	add(CallIndirectPost, "specialized_call_indirect_post", i32, none)
	add(IfThen, "specialized_if_then_k", i32, i32)
	add(IfThenElse, "specialized_if_then_else_k", i32, i32)
	add(BrIf, "specialized_br_if", []wasm.ValueKind{wasm.I32, wasm.I32}, i32)
	add(BrTable, "specialized_br_table", []wasm.ValueKind{wasm.I32, wasm.I32}, i32)
	add(Select, "specialized_select", i32, i32)
	add(BlockPrePost, "block_pre", none, none)
	add(BlockPrePost, "block_post", none, none)
	add(LoopPrePost, "loop_pre", none, none)
	add(LoopPrePost, "loop_post", none, none)
	add(MemorySize, "specialized_memory_size", i32, i32)
	add(MemoryGrow, "specialized_memory_grow", i32i32(), i32)

	if hooks[LocalGet] || hooks[LocalTee] {
		for _, k := range localKinds {
			if hooks[LocalGet] {
				add0(set, "specialized_local_get_"+k.String(), []wasm.ValueKind{k}, []wasm.ValueKind{k})
			}
			if hooks[LocalTee] {
				add0(set, "specialized_local_tee_"+k.String(), []wasm.ValueKind{k}, []wasm.ValueKind{k})
			}
		}
	}
	if hooks[LocalSet] {
		for _, k := range localKinds {
			add0(set, "specialized_local_set_"+k.String(), []wasm.ValueKind{k}, []wasm.ValueKind{k})
		}
	}
	if hooks[GlobalGet] {
		for _, k := range globalKinds {
			add0(set, "specialized_global_get_"+k.String(), []wasm.ValueKind{k}, []wasm.ValueKind{k})
		}
	}
	if hooks[GlobalSet] {
		for _, k := range globalKinds {
			add0(set, "specialized_global_set_"+k.String(), []wasm.ValueKind{k}, []wasm.ValueKind{k})
		}
	}
	if hooks[Load] {
		for _, k := range []wasm.ValueKind{wasm.I32, wasm.I64, wasm.F32, wasm.F64} {
			add0(set, "specialized_load_"+k.String(),
				[]wasm.ValueKind{wasm.I32, wasm.I64, wasm.I32}, []wasm.ValueKind{k})
		}
	}
	if hooks[Store] {
		for _, k := range []wasm.ValueKind{wasm.I32, wasm.I64, wasm.F32, wasm.F64} {
			add0(set, "specialized_store_"+k.String(),
				[]wasm.ValueKind{wasm.I32, k, wasm.I64, wasm.I32}, none)
		}
	}

	return set
}

func add0(set *Set, name string, params, results []wasm.ValueKind) {
	set.Exports = append(set.Exports, ExportSpec{Name: name, Type: wasm.FunctionType{Params: params, Results: results}})
}

func i32i32() []wasm.ValueKind { return []wasm.ValueKind{wasm.I32, wasm.I32} }

// TrampolineImport names one helper the trampoline library must publish in
// the transformed_input namespace for the analysis to consume.
type TrampolineImport struct {
	Namespace string
	Name      string
}

// CallBaseImport is the fixed import the analysis uses to invoke the
// original function through the apply table.
func CallBaseImport() TrampolineImport {
	return TrampolineImport{Namespace: transformedInputNamespace, Name: "call_base"}
}
