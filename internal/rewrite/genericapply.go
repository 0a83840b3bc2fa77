package rewrite

import (
	"github.com/wastrumentation/wastrument/internal/signature"
	"github.com/wastrumentation/wastrument/internal/wasm"
)

// installGenericApply clones original's body to a fresh function index
// (preserving its real semantics), installs an apply thunk for it in the
// dedicated apply table, and overwrites original's own body with the
// buffer-marshalling front door that calls into the analysis's
// generic_apply export. Returns the clone's function index (where the
// event-rewrite pass must continue, since original's own body is now the
// front door) and its apply table slot.
func (b *builder) installGenericApply(original wasm.FuncIndex, ft wasm.FunctionType, code wasm.Code) (wasm.FuncIndex, uint32, error) {
	entry, _ := b.catalog.Lookup(ft)

	clone := b.addFunc(ft, append([]wasm.ValueKind(nil), code.Locals...), append([]wasm.Instr(nil), code.Body...))

	thunk := b.buildApplyThunk(entry, clone)
	slot := b.installApplyThunk(original, thunk)

	newCode := b.buildApplyFrontDoor(entry, slot)
	if c, ok := b.mod.CodeOf(original); ok {
		*c = newCode
	}
	return clone, slot, nil
}

// buildApplyThunk synthesizes the (ptr:i32)->() function the apply table
// points at: unmarshal arguments from the value buffer, call the original
// (now cloned) function, and marshal results back.
func (b *builder) buildApplyThunk(entry signature.Entry, target wasm.FuncIndex) wasm.FuncIndex {
	name := entry.Signature.Name()
	ft := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{}}

	const ptrLocal = wasm.LocalIndex(0) // the thunk's sole parameter

	var body []wasm.Instr
	for i, k := range entry.Signature.Params {
		body = append(body,
			wasm.Instr{Op: wasm.OpLocalGet, Local: ptrLocal},
			wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceStack, "load_arg"+itoa(i)+"_"+name,
				wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{k}})},
		)
	}
	body = append(body, wasm.Instr{Op: wasm.OpCall, Func: target})

	results := entry.Signature.Results
	scratchBase := 1 // local 0 is ptr; scratches start at local 1
	for i := len(results) - 1; i >= 0; i-- {
		body = append(body, wasm.Instr{Op: wasm.OpLocalSet, Local: wasm.LocalIndex(scratchBase + i)})
	}

	storeRetsParams := make([]wasm.ValueKind, 0, len(results)+1)
	storeRetsParams = append(storeRetsParams, wasm.I32)
	body = append(body, wasm.Instr{Op: wasm.OpLocalGet, Local: ptrLocal})
	for i, k := range results {
		storeRetsParams = append(storeRetsParams, k)
		body = append(body, wasm.Instr{Op: wasm.OpLocalGet, Local: wasm.LocalIndex(scratchBase + i)})
	}
	body = append(body, wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceStack, "store_rets_"+name,
		wasm.FunctionType{Params: storeRetsParams, Results: []wasm.ValueKind{}})})
	body = append(body, wasm.Instr{Op: wasm.OpEnd})

	locals := append([]wasm.ValueKind(nil), results...)
	return b.addFunc(ft, locals, body)
}

// buildApplyFrontDoor synthesizes the replacement body installed at the
// original function index: allocate the value/type buffers from the live
// parameters, call generic_apply, reconstruct results, and free.
func (b *builder) buildApplyFrontDoor(entry signature.Entry, slot uint32) wasm.Code {
	name := entry.Signature.Name()
	params := entry.Signature.Params
	results := entry.Signature.Results

	// ptr/pt locals sit immediately after the function's own parameters.
	ptrLocal := wasm.LocalIndex(len(params))
	ptLocal := wasm.LocalIndex(len(params) + 1)

	var body []wasm.Instr
	for i := range params {
		body = append(body, wasm.Instr{Op: wasm.OpLocalGet, Local: wasm.LocalIndex(i)})
	}
	allocFT := wasm.FunctionType{Params: params, Results: []wasm.ValueKind{wasm.I32}}
	body = append(body,
		wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceStack, "allocate_"+name, allocFT)},
		wasm.Instr{Op: wasm.OpLocalSet, Local: ptrLocal},
	)

	typeTags := make([]wasm.ValueKind, 0, len(results)+len(params))
	for range results {
		typeTags = append(typeTags, wasm.I32)
	}
	for range params {
		typeTags = append(typeTags, wasm.I32)
	}
	for _, k := range results {
		body = append(body, wasm.Instr{Op: wasm.OpI32Const, I32: k.Tag()})
	}
	for _, k := range params {
		body = append(body, wasm.Instr{Op: wasm.OpI32Const, I32: k.Tag()})
	}
	allocTypesFT := wasm.FunctionType{Params: typeTags, Results: []wasm.ValueKind{wasm.I32}}
	body = append(body,
		wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceStack, "allocate_types_"+name, allocTypesFT)},
		wasm.Instr{Op: wasm.OpLocalSet, Local: ptLocal},
	)

	genericApply := b.importFunc(NamespaceAnalysis, "generic_apply", wasm.FunctionType{
		Params:  []wasm.ValueKind{wasm.I32, wasm.I32, wasm.I32, wasm.I32, wasm.I32},
		Results: []wasm.ValueKind{},
	})
	body = append(body,
		wasm.Instr{Op: wasm.OpI32Const, I32: int32(slot)},
		wasm.Instr{Op: wasm.OpI32Const, I32: int32(len(params))},
		wasm.Instr{Op: wasm.OpI32Const, I32: int32(len(results))},
		wasm.Instr{Op: wasm.OpLocalGet, Local: ptrLocal},
		wasm.Instr{Op: wasm.OpLocalGet, Local: ptLocal},
		wasm.Instr{Op: wasm.OpCall, Func: genericApply},
	)

	for i, k := range results {
		body = append(body,
			wasm.Instr{Op: wasm.OpLocalGet, Local: ptrLocal},
			wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceStack, "load_ret"+itoa(i)+"_"+name,
				wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{k}})},
		)
	}

	freeFT := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{}}
	body = append(body,
		wasm.Instr{Op: wasm.OpLocalGet, Local: ptrLocal},
		wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceStack, "free_"+name, freeFT)},
		wasm.Instr{Op: wasm.OpLocalGet, Local: ptLocal},
		wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceStack, "free_types_"+name, freeFT)},
		wasm.Instr{Op: wasm.OpEnd},
	)

	return wasm.Code{Locals: []wasm.ValueKind{wasm.I32, wasm.I32}, Body: body}
}

// buildCallBase synthesizes and exports call_base: an indirect call through
// the apply table, letting the analysis invoke a generic-apply-installed
// function's original body by its apply slot. The analysis imports this as
// (transformed_input, call_base); the merger resolves that import to this
// export on the target module.
func (b *builder) buildCallBase() wasm.FuncIndex {
	ft := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32, wasm.I32}, Results: []wasm.ValueKind{}}
	tableIdx := b.ensureApplyTable()
	thunkType := b.internType(wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{}})

	body := []wasm.Instr{
		{Op: wasm.OpLocalGet, Local: 0}, // ptr
		{Op: wasm.OpLocalGet, Local: 1}, // k (table slot)
		{Op: wasm.OpCallIndirect, Type: thunkType, Table: tableIdx},
		{Op: wasm.OpEnd},
	}
	fn := b.addFunc(ft, nil, body)
	b.exportFunc("call_base", fn)
	return fn
}
