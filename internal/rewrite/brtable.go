package rewrite

import (
	"github.com/wastrumentation/wastrument/internal/analysisiface"
	"github.com/wastrumentation/wastrument/internal/wasm"
)

// rewriteBrTable replaces a br_table with a three-step dispatch: a
// synthesized helper function maps the selector index to the original
// target depth (without actually branching), the analysis may rewrite that
// depth, and a second, inline nested-block cascade performs the real branch
// to whichever depth comes back.
//
// The inline cascade's case bodies all resolve to the same literal br
// immediate: landing inside case bucket v sits behind exactly
// (depthCount-v) still-open wrapper blocks, and reaching original depth v
// from there takes (v+1) further exits, so the total is always depthCount+1
// (label depthCount): the wrapper nesting and the target depth cancel out.
// Only the default bucket, which has no wrapper blocks left open by the
// time its code runs, keeps its own unmodified literal depth.
func (b *builder) rewriteBrTable(instr wasm.Instr) []wasm.Instr {
	if !b.iface.Enabled(analysisiface.BrTable) {
		return []wasm.Instr{instr}
	}

	dispatcher := b.buildValueDispatcher(instr.Labels, instr.DefaultLabel)

	trapFT := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32, wasm.I32}, Results: []wasm.ValueKind{wasm.I32}}
	out := []wasm.Instr{
		{Op: wasm.OpCall, Func: dispatcher},
		{Op: wasm.OpI32Const, I32: int32(instr.DefaultLabel)},
		{Op: wasm.OpCall, Func: b.importFunc(NamespaceAnalysis, "specialized_br_table", trapFT)},
	}
	out = append(out, branchDispatchCascade(instr.Labels, instr.DefaultLabel)...)
	return out
}

// buildValueDispatcher synthesizes a (i32)->(i32) helper mapping a br_table
// selector to the depth it would have branched to, as a plain return value
// rather than an actual branch. Every wrapper block stays empty-typed; a
// scratch local carries the dispatched depth across the block boundaries
// (an empty-typed block's br/fallthrough can't carry a value on the operand
// stack, so the result travels through the local instead).
//
// case_bucket_0 is innermost, wrapping the br_table itself; case_bucket_i's
// landing code (after its own end) sits inside case_bucket_i+1, or directly
// inside $exit for i = n-1. Reaching $exit's end from there means exiting
// the n-1-i case buckets still open above it plus $exit itself. $exit is in
// turn wrapped in $return, so every case's landing branches one level
// further out, to $return's end, skipping past the default assignment that
// sits between $exit's end and $return's end: label n-i. The default entry
// has no case wrapper left to skip past — it lands right after $exit's end
// and simply falls through $return's end into the shared result read,
// rather than branching there itself.
func (b *builder) buildValueDispatcher(labels []wasm.LabelIndex, defaultLabel wasm.LabelIndex) wasm.FuncIndex {
	n := len(labels)
	empty := wasm.EmptyBlockType()
	const resultLocal = wasm.LocalIndex(1) // local 0 is the selector param

	var body []wasm.Instr
	body = append(body, wasm.Instr{Op: wasm.OpBlock, Block: empty}) // $return
	body = append(body, wasm.Instr{Op: wasm.OpBlock, Block: empty}) // $exit
	for i := n - 1; i >= 0; i-- {
		body = append(body, wasm.Instr{Op: wasm.OpBlock, Block: empty}) // case_bucket_i, i=0 innermost
	}
	body = append(body, wasm.Instr{Op: wasm.OpLocalGet, Local: 0})

	caseLabels := make([]wasm.LabelIndex, n)
	for i := range caseLabels {
		caseLabels[i] = wasm.LabelIndex(i)
	}
	body = append(body, wasm.Instr{Op: wasm.OpBrTable, Labels: caseLabels, DefaultLabel: wasm.LabelIndex(n)})

	for i := 0; i < n; i++ {
		body = append(body,
			wasm.Instr{Op: wasm.OpEnd}, // closes case_bucket_i
			wasm.Instr{Op: wasm.OpI32Const, I32: int32(labels[i])},
			wasm.Instr{Op: wasm.OpLocalSet, Local: resultLocal},
			wasm.Instr{Op: wasm.OpBr, Label: wasm.LabelIndex(n - i)}, // reaches $return, past the default assignment
		)
	}
	// default's DefaultLabel (n) exits all n case buckets plus $exit, landing
	// right after $exit's end, still inside $return: it falls straight
	// through $return's own end below rather than branching there, since it
	// has no further wrapper block left to skip.
	body = append(body,
		wasm.Instr{Op: wasm.OpEnd}, // closes $exit
		wasm.Instr{Op: wasm.OpI32Const, I32: int32(defaultLabel)},
		wasm.Instr{Op: wasm.OpLocalSet, Local: resultLocal},
		wasm.Instr{Op: wasm.OpEnd}, // closes $return
		wasm.Instr{Op: wasm.OpLocalGet, Local: resultLocal},
		wasm.Instr{Op: wasm.OpEnd}, // function end
	)

	ft := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32}, Results: []wasm.ValueKind{wasm.I32}}
	return b.addFunc(ft, []wasm.ValueKind{wasm.I32}, body)
}

// branchDispatchCascade builds the inline cascade performing the real
// branch for whichever depth the analysis selects. depthCount covers every
// integer depth from 0 up to the largest depth actually used, so the
// identity case bodies are always reachable regardless of which value comes
// back.
func branchDispatchCascade(labels []wasm.LabelIndex, defaultLabel wasm.LabelIndex) []wasm.Instr {
	maxDepth := int(defaultLabel)
	for _, l := range labels {
		if int(l) > maxDepth {
			maxDepth = int(l)
		}
	}
	depthCount := maxDepth + 1 // number of identity case positions, 0..maxDepth
	empty := wasm.EmptyBlockType()

	var out []wasm.Instr
	out = append(out, wasm.Instr{Op: wasm.OpBlock, Block: empty}) // default bucket, outermost
	for v := depthCount - 1; v >= 0; v-- {
		out = append(out, wasm.Instr{Op: wasm.OpBlock, Block: empty}) // case bucket v; v=0 ends up innermost
	}
	// The selector (newTarget) is already on the stack, left there by the
	// preceding specialized_br_table call; br_table consumes it directly.

	caseLabels := make([]wasm.LabelIndex, depthCount)
	for v := range caseLabels {
		caseLabels[v] = wasm.LabelIndex(v)
	}
	out = append(out, wasm.Instr{Op: wasm.OpBrTable, Labels: caseLabels, DefaultLabel: wasm.LabelIndex(depthCount)})

	// Closing order follows nesting: case bucket 0 (innermost) first, up
	// through case bucket depthCount-1, then the default bucket last. At
	// case v's landing point, depthCount-v wrapper blocks are still open
	// (the remaining case buckets plus the default bucket); exiting all of
	// them and then v+1 more original constructs to reach original depth v
	// totals depthCount+1 constructs, i.e. literal br(depthCount) every
	// time: the wrapper nesting and the target depth cancel out. The
	// default lands outside every wrapper block, zero of them still open,
	// so it reaches original depth defaultLabel directly via its own
	// unmodified literal.
	for v := 0; v < depthCount; v++ {
		out = append(out, wasm.Instr{Op: wasm.OpEnd}) // closes case bucket v
		out = append(out, wasm.Instr{Op: wasm.OpBr, Label: wasm.LabelIndex(depthCount)})
	}
	out = append(out, wasm.Instr{Op: wasm.OpEnd}) // closes default bucket
	out = append(out, wasm.Instr{Op: wasm.OpBr, Label: defaultLabel})
	return out
}
