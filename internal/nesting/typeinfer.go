package nesting

import (
	"github.com/wastrumentation/wastrument/internal/wasm"
	"github.com/wastrumentation/wastrument/internal/werr"
)

// InstrType is the inferred operand-kind signature of one instruction at
// its position in a body: the kinds it pops off and pushes onto the
// abstract value stack. Unreachable is set once the type checker has
// proven the point dead (after an instruction with no normal continuation,
// such as unreachable/br/return), in which case Inputs/Outputs still carry
// the instruction's statically-known kinds but the stack they operate on is
// polymorphic and unconstrained.
type InstrType struct {
	Inputs      []wasm.ValueKind
	Outputs     []wasm.ValueKind
	Unreachable bool
}

// unknownKind marks a stack slot whose kind is unconstrained because it sits
// below the polymorphic floor of an already-unreachable control frame.
const unknownKind wasm.ValueKind = 0xFF

type ctrlFrame struct {
	opcode     wasm.Opcode // OpBlock, OpLoop, OpIf, or 0 for the function frame
	startTypes []wasm.ValueKind
	endTypes   []wasm.ValueKind
	labelTypes []wasm.ValueKind // what a branch targeting this frame expects on the stack
	height     int
	unreachable bool
}

type checker struct {
	fn     wasm.FuncIndex
	module *wasm.Module
	locals []wasm.ValueKind
	stack  []wasm.ValueKind
	ctrl   []ctrlFrame
}

func (c *checker) loc(i int) wasm.Location { return wasm.Location{FuncIndex: c.fn, InstrIndex: i} }

func (c *checker) pushVal(k wasm.ValueKind) { c.stack = append(c.stack, k) }

func (c *checker) pushVals(ks []wasm.ValueKind) {
	for _, k := range ks {
		c.pushVal(k)
	}
}

func (c *checker) popVal(i int) (wasm.ValueKind, error) {
	top := &c.ctrl[len(c.ctrl)-1]
	if len(c.stack) == top.height {
		if top.unreachable {
			return unknownKind, nil
		}
		return 0, werr.At(werr.KindTypeInference, c.loc(i), "value stack underflow")
	}
	k := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return k, nil
}

func (c *checker) popExpect(i int, want wasm.ValueKind) (wasm.ValueKind, error) {
	got, err := c.popVal(i)
	if err != nil {
		return 0, err
	}
	if got == unknownKind {
		return want, nil
	}
	if got != want {
		return 0, werr.At(werr.KindTypeInference, c.loc(i), "expected %s on stack, got %s", want, got)
	}
	return got, nil
}

func (c *checker) popExpectVals(i int, want []wasm.ValueKind) ([]wasm.ValueKind, error) {
	got := make([]wasm.ValueKind, len(want))
	for j := len(want) - 1; j >= 0; j-- {
		k, err := c.popExpect(i, want[j])
		if err != nil {
			return nil, err
		}
		got[j] = k
	}
	return got, nil
}

func (c *checker) pushCtrl(opcode wasm.Opcode, start, end, label []wasm.ValueKind) {
	c.ctrl = append(c.ctrl, ctrlFrame{
		opcode: opcode, startTypes: start, endTypes: end, labelTypes: label,
		height: len(c.stack),
	})
	c.pushVals(start)
}

func (c *checker) popCtrl(i int) ([]wasm.ValueKind, error) {
	top := c.ctrl[len(c.ctrl)-1]
	if _, err := c.popExpectVals(i, top.endTypes); err != nil {
		return nil, err
	}
	if len(c.stack) != top.height {
		return nil, werr.At(werr.KindTypeInference, c.loc(i), "block leaves extra values on the stack")
	}
	c.ctrl = c.ctrl[:len(c.ctrl)-1]
	return top.endTypes, nil
}

func (c *checker) markUnreachable() {
	top := &c.ctrl[len(c.ctrl)-1]
	c.stack = c.stack[:top.height]
	top.unreachable = true
}

func (c *checker) labelTypes(i, n int) ([]wasm.ValueKind, error) {
	if n < 0 || n >= len(c.ctrl) {
		return nil, werr.At(werr.KindTypeInference, c.loc(i), "branch target out of range")
	}
	return c.ctrl[len(c.ctrl)-1-n].labelTypes, nil
}

func (c *checker) currentUnreachable() bool {
	return c.ctrl[len(c.ctrl)-1].unreachable
}

// InferTypes forward-typechecks a function body, one instruction at a time.
// locals is the full local index space (parameters followed by declared
// locals). It returns one InstrType per flat instruction in body, in order.
func InferTypes(fn wasm.FuncIndex, module *wasm.Module, funcType wasm.FunctionType, locals []wasm.ValueKind, body []wasm.Instr) ([]InstrType, error) {
	c := &checker{fn: fn, module: module, locals: locals}
	c.pushCtrl(0, nil, funcType.Results, funcType.Results)

	out := make([]InstrType, len(body))
	for i, instr := range body {
		wasUnreachable := c.currentUnreachable()
		in, o, err := c.step(i, instr)
		if err != nil {
			return nil, err
		}
		out[i] = InstrType{Inputs: in, Outputs: o, Unreachable: wasUnreachable}
	}
	return out, nil
}

func (c *checker) step(i int, instr wasm.Instr) (ins, outs []wasm.ValueKind, err error) {
	op := instr.Op

	if ft, ok := op.StaticSignature(); ok {
		if ins, err = c.popExpectVals(i, ft.Params); err != nil {
			return nil, nil, err
		}
		c.pushVals(ft.Results)
		return ft.Params, ft.Results, nil
	}

	switch op {
	case wasm.OpUnreachable:
		c.markUnreachable()
		return nil, nil, nil

	case wasm.OpNop:
		return nil, nil, nil

	case wasm.OpBlock, wasm.OpLoop:
		params, results := c.module.BlockSignature(instr.Block)
		if _, err = c.popExpectVals(i, params); err != nil {
			return nil, nil, err
		}
		label := results
		if op == wasm.OpLoop {
			label = params
		}
		c.pushCtrl(op, params, results, label)
		return params, nil, nil

	case wasm.OpIf:
		params, results := c.module.BlockSignature(instr.Block)
		if _, err = c.popExpect(i, wasm.I32); err != nil {
			return nil, nil, err
		}
		if _, err = c.popExpectVals(i, params); err != nil {
			return nil, nil, err
		}
		c.pushCtrl(op, params, results, results)
		return append(append([]wasm.ValueKind{}, params...), wasm.I32), nil, nil

	case wasm.OpElse:
		// Else reopens the same frame for the else arm with the same
		// start types, discarding whatever the then-arm produced.
		top := c.ctrl[len(c.ctrl)-1]
		end, perr := c.popCtrl(i)
		if perr != nil {
			return nil, nil, perr
		}
		c.pushCtrl(wasm.OpIf, top.startTypes, end, top.labelTypes)
		return nil, nil, nil

	case wasm.OpEnd:
		end, perr := c.popCtrl(i)
		if perr != nil {
			return nil, nil, perr
		}
		c.pushVals(end)
		return end, end, nil

	case wasm.OpBr:
		lt, lerr := c.labelTypes(i, int(instr.Label))
		if lerr != nil {
			return nil, nil, lerr
		}
		if _, err = c.popExpectVals(i, lt); err != nil {
			return nil, nil, err
		}
		c.markUnreachable()
		return lt, nil, nil

	case wasm.OpBrIf:
		if _, err = c.popExpect(i, wasm.I32); err != nil {
			return nil, nil, err
		}
		lt, lerr := c.labelTypes(i, int(instr.Label))
		if lerr != nil {
			return nil, nil, lerr
		}
		if _, err = c.popExpectVals(i, lt); err != nil {
			return nil, nil, err
		}
		c.pushVals(lt)
		return append(append([]wasm.ValueKind{}, lt...), wasm.I32), lt, nil

	case wasm.OpBrTable:
		if _, err = c.popExpect(i, wasm.I32); err != nil {
			return nil, nil, err
		}
		defaultTypes, derr := c.labelTypes(i, int(instr.DefaultLabel))
		if derr != nil {
			return nil, nil, derr
		}
		for _, l := range instr.Labels {
			lt, lerr := c.labelTypes(i, int(l))
			if lerr != nil {
				return nil, nil, lerr
			}
			if len(lt) != len(defaultTypes) {
				return nil, nil, werr.At(werr.KindTypeInference, c.loc(i), "br_table arms disagree on arity")
			}
		}
		if _, err = c.popExpectVals(i, defaultTypes); err != nil {
			return nil, nil, err
		}
		c.markUnreachable()
		return defaultTypes, nil, nil

	case wasm.OpReturn:
		funcResults := c.ctrl[0].endTypes
		if _, err = c.popExpectVals(i, funcResults); err != nil {
			return nil, nil, err
		}
		c.markUnreachable()
		return funcResults, nil, nil

	case wasm.OpCall:
		ft, ok := c.module.FuncType(instr.Func)
		if !ok {
			return nil, nil, werr.At(werr.KindTypeInference, c.loc(i), "call to undefined function %d", instr.Func)
		}
		if _, err = c.popExpectVals(i, ft.Params); err != nil {
			return nil, nil, err
		}
		c.pushVals(ft.Results)
		return ft.Params, ft.Results, nil

	case wasm.OpCallIndirect:
		if int(instr.Type) >= len(c.module.Types) {
			return nil, nil, werr.At(werr.KindTypeInference, c.loc(i), "call_indirect to undefined type %d", instr.Type)
		}
		ft := c.module.Types[instr.Type]
		if _, err = c.popExpect(i, wasm.I32); err != nil {
			return nil, nil, err
		}
		if _, err = c.popExpectVals(i, ft.Params); err != nil {
			return nil, nil, err
		}
		c.pushVals(ft.Results)
		return append(append([]wasm.ValueKind{}, ft.Params...), wasm.I32), ft.Results, nil

	case wasm.OpDrop:
		k, perr := c.popVal(i)
		if perr != nil {
			return nil, nil, perr
		}
		if k == unknownKind {
			return nil, nil, nil
		}
		return []wasm.ValueKind{k}, nil, nil

	case wasm.OpSelect:
		if _, err = c.popExpect(i, wasm.I32); err != nil {
			return nil, nil, err
		}
		b, berr := c.popVal(i)
		if berr != nil {
			return nil, nil, berr
		}
		a, aerr := c.popExpectIfKnown(i, b)
		if aerr != nil {
			return nil, nil, aerr
		}
		result := a
		if result == unknownKind {
			result = b
		}
		if result == unknownKind {
			result = wasm.I32
		}
		c.pushVal(result)
		return []wasm.ValueKind{result, result, wasm.I32}, []wasm.ValueKind{result}, nil

	case wasm.OpLocalGet:
		k, lerr := c.localKind(i, instr.Local)
		if lerr != nil {
			return nil, nil, lerr
		}
		c.pushVal(k)
		return nil, []wasm.ValueKind{k}, nil

	case wasm.OpLocalSet:
		k, lerr := c.localKind(i, instr.Local)
		if lerr != nil {
			return nil, nil, lerr
		}
		if _, err = c.popExpect(i, k); err != nil {
			return nil, nil, err
		}
		return []wasm.ValueKind{k}, nil, nil

	case wasm.OpLocalTee:
		k, lerr := c.localKind(i, instr.Local)
		if lerr != nil {
			return nil, nil, lerr
		}
		if _, err = c.popExpect(i, k); err != nil {
			return nil, nil, err
		}
		c.pushVal(k)
		return []wasm.ValueKind{k}, []wasm.ValueKind{k}, nil

	case wasm.OpGlobalGet:
		gt, ok := c.module.GlobalType(instr.Global)
		if !ok {
			return nil, nil, werr.At(werr.KindTypeInference, c.loc(i), "global.get of undefined global %d", instr.Global)
		}
		c.pushVal(gt.Kind)
		return nil, []wasm.ValueKind{gt.Kind}, nil

	case wasm.OpGlobalSet:
		gt, ok := c.module.GlobalType(instr.Global)
		if !ok {
			return nil, nil, werr.At(werr.KindTypeInference, c.loc(i), "global.set of undefined global %d", instr.Global)
		}
		if !gt.Mutable {
			return nil, nil, werr.At(werr.KindTypeInference, c.loc(i), "global.set of immutable global %d", instr.Global)
		}
		if _, err = c.popExpect(i, gt.Kind); err != nil {
			return nil, nil, err
		}
		return []wasm.ValueKind{gt.Kind}, nil, nil

	case wasm.OpMemorySize:
		c.pushVal(wasm.I32)
		return nil, []wasm.ValueKind{wasm.I32}, nil

	case wasm.OpMemoryGrow:
		if _, err = c.popExpect(i, wasm.I32); err != nil {
			return nil, nil, err
		}
		c.pushVal(wasm.I32)
		return []wasm.ValueKind{wasm.I32}, []wasm.ValueKind{wasm.I32}, nil

	default:
		if op.IsLoad() {
			if _, err = c.popExpect(i, wasm.I32); err != nil {
				return nil, nil, err
			}
			result := op.LoadResultKind()
			c.pushVal(result)
			return []wasm.ValueKind{wasm.I32}, []wasm.ValueKind{result}, nil
		}
		if op.IsStore() {
			valKind := op.StoreValueKind()
			if _, err = c.popExpect(i, valKind); err != nil {
				return nil, nil, err
			}
			if _, err = c.popExpect(i, wasm.I32); err != nil {
				return nil, nil, err
			}
			return []wasm.ValueKind{wasm.I32, valKind}, nil, nil
		}
		if op.IsUnsupported() {
			return nil, nil, werr.At(werr.KindUnsupportedFeature, c.loc(i), "opcode %s is not instrumentable", op)
		}
		return nil, nil, werr.At(werr.KindTypeInference, c.loc(i), "unrecognized opcode %s", op)
	}
}

// popExpectIfKnown is popExpect but tolerates an unknown expected kind
// (propagating whatever is actually on the stack), for select's first
// operand whose kind is only pinned down by its sibling.
func (c *checker) popExpectIfKnown(i int, want wasm.ValueKind) (wasm.ValueKind, error) {
	if want == unknownKind {
		return c.popVal(i)
	}
	return c.popExpect(i, want)
}

func (c *checker) localKind(i int, idx wasm.LocalIndex) (wasm.ValueKind, error) {
	if int(idx) >= len(c.locals) {
		return 0, werr.At(werr.KindTypeInference, c.loc(i), "reference to undefined local %d", idx)
	}
	return c.locals[idx], nil
}
