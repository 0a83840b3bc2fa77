package rewrite

import (
	"fmt"

	"github.com/wastrumentation/wastrument/internal/nesting"
	"github.com/wastrumentation/wastrument/internal/wasm"
)

// evalI32Dispatcher interprets a (i32)->(i32) function body built entirely
// from Block/Br/BrTable/LocalGet/LocalSet/I32Const/End, the restricted
// instruction set buildValueDispatcher emits. It exists only to let tests
// assert on the value a synthesized dispatcher actually produces, since
// block-balance checks alone can't distinguish a correct br/label layout
// from one that reaches the right block but the wrong code once there.
func evalI32Dispatcher(body []wasm.Instr, selector int32) (int32, error) {
	nodes, err := nesting.Parse(wasm.FuncIndex(0), body)
	if err != nil {
		return 0, err
	}
	locals := []int32{selector, 0}
	stack := make([]int32, 0, 4)
	remaining, branched, err := evalSeq(nodes, locals, &stack)
	if err != nil {
		return 0, err
	}
	if branched {
		return 0, fmt.Errorf("branched out of the function body (remaining=%d)", remaining)
	}
	if len(stack) != 1 {
		return 0, fmt.Errorf("expected exactly one value on the stack at function end, got %v", stack)
	}
	return stack[0], nil
}

// evalSeq runs nodes in order against locals/stack. It returns
// (remaining, true, nil) when a Br/BrTable inside nodes branches out of the
// sequence before reaching its end: remaining counts how many further
// enclosing blocks, beyond the one that directly contains nodes, the
// branch still needs to exit. A caller that owns one such enclosing block
// absorbs the branch (stops propagating) exactly when remaining is 0.
func evalSeq(nodes []nesting.Node, locals []int32, stack *[]int32) (int, bool, error) {
	for _, n := range nodes {
		switch v := n.(type) {
		case nesting.Leaf:
			remaining, branched, err := evalLeaf(v.Instr, locals, stack)
			if err != nil {
				return 0, false, err
			}
			if branched {
				return remaining, true, nil
			}
		case nesting.Block:
			remaining, branched, err := evalSeq(v.Body, locals, stack)
			if err != nil {
				return 0, false, err
			}
			if branched {
				if remaining == 0 {
					continue
				}
				return remaining - 1, true, nil
			}
		default:
			return 0, false, fmt.Errorf("unsupported node in dispatcher evaluator: %#v", n)
		}
	}
	return 0, false, nil
}

func evalLeaf(instr wasm.Instr, locals []int32, stack *[]int32) (int, bool, error) {
	switch instr.Op {
	case wasm.OpLocalGet:
		*stack = append(*stack, locals[instr.Local])
		return 0, false, nil
	case wasm.OpLocalSet:
		n := len(*stack)
		locals[instr.Local] = (*stack)[n-1]
		*stack = (*stack)[:n-1]
		return 0, false, nil
	case wasm.OpI32Const:
		*stack = append(*stack, instr.I32)
		return 0, false, nil
	case wasm.OpBr:
		return int(instr.Label), true, nil
	case wasm.OpBrTable:
		n := len(*stack)
		selector := (*stack)[n-1]
		*stack = (*stack)[:n-1]
		label := instr.DefaultLabel
		if selector >= 0 && int(selector) < len(instr.Labels) {
			label = instr.Labels[selector]
		}
		return int(label), true, nil
	default:
		return 0, false, fmt.Errorf("unsupported opcode in dispatcher evaluator: %v", instr.Op)
	}
}
