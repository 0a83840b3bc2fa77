package nesting

import (
	"github.com/wastrumentation/wastrument/internal/wasm"
	"github.com/wastrumentation/wastrument/internal/werr"
)

// frame is one entry of the parser's container stack, tracking a still-open
// block/loop/if so its body can be closed off once the matching End (or, for
// an if-then, an Else) is reached.
type frame struct {
	kind wasm.Opcode // OpBlock, OpLoop, or OpIf
	index int
	typ   wasm.BlockType
	body  []Node // children accumulated so far in the current arm
	then  []Node // saved `then` arm, once an Else has been seen for an OpIf frame
	sawElse bool
}

// Parse converts a function's flat instruction body into a tree of Nodes.
// body is expected to end with exactly one OpEnd closing the function frame
// itself, as produced by the binary decoder; that terminal End is consumed
// and does not appear as a Leaf in the result.
func Parse(fn wasm.FuncIndex, body []wasm.Instr) ([]Node, error) {
	var stack []frame
	var top []Node // accumulator for the current nesting level
	funcClosedAt := -1

	loc := func(i int) wasm.Location { return wasm.Location{FuncIndex: fn, InstrIndex: i} }

	appendChild := func(n Node) {
		if len(stack) == 0 {
			top = append(top, n)
			return
		}
		f := &stack[len(stack)-1]
		f.body = append(f.body, n)
	}

	for i, instr := range body {
		switch instr.Op {
		case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
			stack = append(stack, frame{kind: instr.Op, index: i, typ: instr.Block})

		case wasm.OpElse:
			if len(stack) == 0 || stack[len(stack)-1].kind != wasm.OpIf || stack[len(stack)-1].sawElse {
				return nil, werr.At(werr.KindParse, loc(i), "if did not precede else")
			}
			f := &stack[len(stack)-1]
			f.then = f.body
			f.body = nil
			f.sawElse = true

		case wasm.OpEnd:
			if len(stack) == 0 {
				// No block/loop/if frame is open. The first such End closes
				// the function body itself; any further one has no parent
				// at all, not even the function's own.
				if funcClosedAt >= 0 {
					return nil, werr.At(werr.KindParse, loc(i), "end without parent")
				}
				funcClosedAt = i
				continue
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			var n Node
			switch f.kind {
			case wasm.OpBlock:
				n = Block{Index: f.index, Type: f.typ, Body: f.body}
			case wasm.OpLoop:
				n = Loop{Index: f.index, Type: f.typ, Body: f.body}
			case wasm.OpIf:
				thenArm, elseArm := f.body, ([]Node)(nil)
				if f.sawElse {
					thenArm, elseArm = f.then, f.body
				}
				n = If{Index: f.index, Type: f.typ, Then: thenArm, Else: elseArm}
			}
			appendChild(n)

		default:
			appendChild(Leaf{Index: i, Instr: instr})
		}
	}

	if funcClosedAt < 0 {
		return nil, werr.At(werr.KindParse, loc(len(body)-1), "body did not terminate in end")
	}
	if funcClosedAt != len(body)-1 {
		return nil, werr.At(werr.KindParse, loc(funcClosedAt), "excessive end")
	}
	return top, nil
}
