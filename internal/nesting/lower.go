package nesting

import "github.com/wastrumentation/wastrument/internal/wasm"

// Lower flattens a tree back into a flat instruction body, re-synthesizing
// the Block/Loop/If/Else/End markers the tree only implies. It is the
// unconditional inverse of Parse: lower(parse(b)) reproduces b for any b
// Parse accepts.
func Lower(nodes []Node) []wasm.Instr {
	out := lowerInto(nil, nodes)
	return append(out, wasm.Instr{Op: wasm.OpEnd})
}

func lowerInto(out []wasm.Instr, nodes []Node) []wasm.Instr {
	for _, n := range nodes {
		switch n := n.(type) {
		case Leaf:
			out = append(out, n.Instr)

		case Block:
			out = append(out, wasm.Instr{Op: wasm.OpBlock, Block: n.Type})
			out = lowerInto(out, n.Body)
			out = append(out, wasm.Instr{Op: wasm.OpEnd})

		case Loop:
			out = append(out, wasm.Instr{Op: wasm.OpLoop, Block: n.Type})
			out = lowerInto(out, n.Body)
			out = append(out, wasm.Instr{Op: wasm.OpEnd})

		case If:
			out = append(out, wasm.Instr{Op: wasm.OpIf, Block: n.Type})
			out = lowerInto(out, n.Then)
			if n.HasElse() {
				out = append(out, wasm.Instr{Op: wasm.OpElse})
				out = lowerInto(out, n.Else)
			}
			out = append(out, wasm.Instr{Op: wasm.OpEnd})
		}
	}
	return out
}
