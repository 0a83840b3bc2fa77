package rewrite

import (
	"github.com/wastrumentation/wastrument/internal/analysisiface"
	"github.com/wastrumentation/wastrument/internal/nesting"
	"github.com/wastrumentation/wastrument/internal/wasm"
)

// Rewrite runs a full instrumentation pass over m: for every target function
// with GenericApply enabled, clones its body behind an apply thunk and
// replaces it with the buffer-marshalling front door; then, for every
// target function's real body (the clone when GenericApply applied, the
// function itself otherwise), walks its structure bottom-up and replaces
// each enabled event with its trap-dispatch sequence. m itself is never
// mutated; Result.Module is a fresh copy.
func Rewrite(m *wasm.Module, opts Options) (*Result, error) {
	clone := cloneModule(m)
	b := newBuilder(clone, opts)

	targets := opts.Targets
	if targets == nil {
		targets = definedFuncIndices(clone)
	}

	genericApplyOn := b.iface.Enabled(analysisiface.GenericApply)
	usedApplyTable := false

	for _, fn := range targets {
		ft, ok := clone.FuncType(fn)
		if !ok {
			continue // imported, nothing to rewrite
		}
		code, ok := clone.CodeOf(fn)
		if !ok {
			continue
		}

		workFn := fn
		if genericApplyOn {
			cloneFn, _, err := b.installGenericApply(fn, ft, *code)
			if err != nil {
				return nil, err
			}
			workFn = cloneFn
			usedApplyTable = true
		}

		// rewriteFuncBody may append helper functions to clone.Code, so the
		// result is stored by position, not through a pointer taken before.
		pos := int(workFn) - clone.ImportedFuncCount()
		if pos < 0 || pos >= len(clone.Code) {
			continue
		}
		rewritten, err := b.rewriteFuncBody(workFn, ft, clone.Code[pos])
		if err != nil {
			return nil, err
		}
		clone.Code[pos] = rewritten
	}

	if usedApplyTable {
		b.buildCallBase()
	}

	return &Result{Module: clone, ApplyTableSlot: b.applyTableSlot}, nil
}

// definedFuncIndices lists every module-defined function's shared index, in
// declaration order.
func definedFuncIndices(m *wasm.Module) []wasm.FuncIndex {
	base := m.ImportedFuncCount()
	out := make([]wasm.FuncIndex, len(m.Funcs))
	for i := range m.Funcs {
		out[i] = wasm.FuncIndex(base + i)
	}
	return out
}

// cloneModule makes a shallow-element, deep-slice copy of m so rewriting
// never mutates the caller's module.
func cloneModule(m *wasm.Module) *wasm.Module {
	c := *m
	c.Types = append([]wasm.FunctionType(nil), m.Types...)
	c.Imports = append([]wasm.Import(nil), m.Imports...)
	c.Funcs = append([]wasm.TypeIndex(nil), m.Funcs...)
	c.Tables = append([]wasm.TableType(nil), m.Tables...)
	c.Mems = append([]wasm.Limits(nil), m.Mems...)
	c.Globals = append([]wasm.Global(nil), m.Globals...)
	c.Exports = append([]wasm.Export(nil), m.Exports...)
	c.Elements = append([]wasm.Element(nil), m.Elements...)
	c.Data = append([]wasm.Data(nil), m.Data...)
	c.Customs = append([]wasm.Custom(nil), m.Customs...)
	c.Code = make([]wasm.Code, len(m.Code))
	for i, code := range m.Code {
		c.Code[i] = wasm.Code{
			Locals: append([]wasm.ValueKind(nil), code.Locals...),
			Body:   append([]wasm.Instr(nil), code.Body...),
		}
	}
	if m.Start != nil {
		start := *m.Start
		c.Start = &start
	}
	return &c
}

// localKindOf resolves a local index to its value kind across the shared
// parameter/declared-local index space.
func localKindOf(ft wasm.FunctionType, locals []wasm.ValueKind, idx wasm.LocalIndex) wasm.ValueKind {
	i := int(idx)
	if i < len(ft.Params) {
		return ft.Params[i]
	}
	return locals[i-len(ft.Params)]
}

// rewriteFuncBody parses fn's body into a tree, rewrites it bottom-up, and
// flattens the result back into a fresh Code entry.
func (b *builder) rewriteFuncBody(fn wasm.FuncIndex, ft wasm.FunctionType, code wasm.Code) (wasm.Code, error) {
	nodes, err := nesting.Parse(fn, code.Body)
	if err != nil {
		return wasm.Code{}, err
	}
	kindOf := func(idx wasm.LocalIndex) wasm.ValueKind { return localKindOf(ft, code.Locals, idx) }

	body, err := b.emitNodes(fn, nodes, kindOf)
	if err != nil {
		return wasm.Code{}, err
	}
	body = append(body, wasm.Instr{Op: wasm.OpEnd})
	return wasm.Code{Locals: code.Locals, Body: body}, nil
}

// emitNodes lowers a nesting tree back to a flat body, substituting each
// leaf's event-rewrite output and recursing into structured children.
func (b *builder) emitNodes(fn wasm.FuncIndex, nodes []nesting.Node, kindOf func(wasm.LocalIndex) wasm.ValueKind) ([]wasm.Instr, error) {
	var out []wasm.Instr
	for _, n := range nodes {
		switch n := n.(type) {
		case nesting.Leaf:
			rewritten, err := b.rewriteLeaf(fn, n, kindOf)
			if err != nil {
				return nil, err
			}
			out = append(out, rewritten...)
		case nesting.Block:
			rewritten, err := b.emitBlock(fn, n, kindOf)
			if err != nil {
				return nil, err
			}
			out = append(out, rewritten...)
		case nesting.Loop:
			rewritten, err := b.emitLoop(fn, n, kindOf)
			if err != nil {
				return nil, err
			}
			out = append(out, rewritten...)
		case nesting.If:
			rewritten, err := b.emitIf(fn, n, kindOf)
			if err != nil {
				return nil, err
			}
			out = append(out, rewritten...)
		}
	}
	return out, nil
}

func (b *builder) emitBlock(fn wasm.FuncIndex, n nesting.Block, kindOf func(wasm.LocalIndex) wasm.ValueKind) ([]wasm.Instr, error) {
	out := []wasm.Instr{{Op: wasm.OpBlock, Block: n.Type}}
	if b.iface.Enabled(analysisiface.BlockPrePost) {
		out = append(out, b.noArgTrap("block_pre"))
	}
	body, err := b.emitNodes(fn, n.Body, kindOf)
	if err != nil {
		return nil, err
	}
	out = append(out, body...)
	if b.iface.Enabled(analysisiface.BlockPrePost) {
		out = append(out, b.noArgTrap("block_post"))
	}
	out = append(out, wasm.Instr{Op: wasm.OpEnd})
	return out, nil
}

func (b *builder) emitLoop(fn wasm.FuncIndex, n nesting.Loop, kindOf func(wasm.LocalIndex) wasm.ValueKind) ([]wasm.Instr, error) {
	out := []wasm.Instr{{Op: wasm.OpLoop, Block: n.Type}}
	if b.iface.Enabled(analysisiface.LoopPrePost) {
		out = append(out, b.noArgTrap("loop_pre"))
	}
	body, err := b.emitNodes(fn, n.Body, kindOf)
	if err != nil {
		return nil, err
	}
	out = append(out, body...)
	if b.iface.Enabled(analysisiface.LoopPrePost) {
		out = append(out, b.noArgTrap("loop_post"))
	}
	out = append(out, wasm.Instr{Op: wasm.OpEnd})
	return out, nil
}

// emitIf splices the condition trap in front of the if itself (it consumes
// and replaces the condition already on the stack, same as rewriteSelect
// and rewriteBrIf), then recurses into both arms unconditionally: HasElse
// governs whether the else arm exists at all, not whether it's visited.
func (b *builder) emitIf(fn wasm.FuncIndex, n nesting.If, kindOf func(wasm.LocalIndex) wasm.ValueKind) ([]wasm.Instr, error) {
	var out []wasm.Instr
	if trap, ok := b.ifCondTrap(n.HasElse()); ok {
		out = append(out, trap)
	}
	out = append(out, wasm.Instr{Op: wasm.OpIf, Block: n.Type})
	then, err := b.emitNodes(fn, n.Then, kindOf)
	if err != nil {
		return nil, err
	}
	out = append(out, then...)
	if n.HasElse() {
		out = append(out, wasm.Instr{Op: wasm.OpElse})
		elseArm, err := b.emitNodes(fn, n.Else, kindOf)
		if err != nil {
			return nil, err
		}
		out = append(out, elseArm...)
	}
	out = append(out, wasm.Instr{Op: wasm.OpEnd})
	return out, nil
}

// rewriteLeaf dispatches a single flat instruction to its event rewriter by
// opcode, passing through untouched when no hook applies. Reference-type
// opcodes are rejected outright: the instrumentation surface never type-
// infers or rewrites them.
func (b *builder) rewriteLeaf(fn wasm.FuncIndex, leaf nesting.Leaf, kindOf func(wasm.LocalIndex) wasm.ValueKind) ([]wasm.Instr, error) {
	instr := leaf.Instr
	if instr.Op.IsUnsupported() {
		loc := wasm.Location{FuncIndex: fn, InstrIndex: leaf.Index}
		return nil, failUnsupported(loc, "unsupported opcode "+instr.Op.String())
	}
	switch instr.Op {
	case wasm.OpCall:
		return b.rewriteCall(instr), nil
	case wasm.OpCallIndirect:
		return b.rewriteCallIndirect(instr), nil
	case wasm.OpSelect:
		return b.rewriteSelect(instr), nil
	case wasm.OpBrIf:
		return b.rewriteBrIf(instr), nil
	case wasm.OpBrTable:
		return b.rewriteBrTable(instr), nil
	case wasm.OpLocalGet:
		return b.rewriteLocalGet(instr, kindOf(instr.Local)), nil
	case wasm.OpLocalSet:
		return b.rewriteLocalSet(instr, kindOf(instr.Local)), nil
	case wasm.OpLocalTee:
		return b.rewriteLocalTee(instr, kindOf(instr.Local)), nil
	case wasm.OpGlobalGet:
		gt, _ := b.mod.GlobalType(instr.Global)
		return b.rewriteGlobalGet(instr, gt.Kind), nil
	case wasm.OpGlobalSet:
		gt, _ := b.mod.GlobalType(instr.Global)
		return b.rewriteGlobalSet(instr, gt.Kind), nil
	case wasm.OpMemorySize:
		return b.rewriteMemorySize(instr), nil
	case wasm.OpMemoryGrow:
		return b.rewriteMemoryGrow(instr), nil
	default:
		if instr.Op.IsLoad() {
			return b.rewriteLoad(instr), nil
		}
		if instr.Op.IsStore() {
			return b.rewriteStore(instr), nil
		}
		return []wasm.Instr{instr}, nil
	}
}

// noArgTrap builds a ()->() notification call, used by the block/loop
// pre/post hooks.
func (b *builder) noArgTrap(name string) wasm.Instr {
	ft := wasm.FunctionType{}
	return wasm.Instr{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, name, ft)}
}
