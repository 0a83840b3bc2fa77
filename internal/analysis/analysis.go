// Package analysis is the orchestrator's analysis-compiler collaborator:
// it turns an analysis descriptor (a source-language tag plus source
// bytes) into compiled Wasm bytes exporting the verbatim analysis ABI.
// Most source kinds are external collaborators reached through the same
// opaque-Compiler shape internal/trampoline uses; the "wasm" kind is a
// passthrough for analyses the caller already compiled.
package analysis

import (
	"context"

	"github.com/wastrumentation/wastrument/internal/werr"
)

// Descriptor names the analysis to compile: a source-language tag and the
// source bytes themselves (or, for SourceKind "wasm", already-compiled
// module bytes).
type Descriptor struct {
	SourceKind  string
	SourceBytes []byte
}

// Compiler turns a Descriptor into compiled Wasm bytes exporting the
// analysis ABI. Concrete implementations shell out to a source-language
// toolchain; tests substitute a stub.
type Compiler interface {
	Compile(ctx context.Context, desc Descriptor) ([]byte, error)
}

// Passthrough is a Compiler for analyses the caller already compiled to
// Wasm: it accepts SourceKind "wasm" and returns SourceBytes unchanged,
// delegating every other source kind to Next.
type Passthrough struct {
	Next Compiler
}

func (p Passthrough) Compile(ctx context.Context, desc Descriptor) ([]byte, error) {
	if desc.SourceKind == "wasm" {
		if len(desc.SourceBytes) == 0 {
			return nil, werr.New(werr.KindCompileAnalysis, "analysis descriptor declares source kind \"wasm\" but carries no bytes")
		}
		return desc.SourceBytes, nil
	}
	if p.Next == nil {
		return nil, werr.New(werr.KindCompileAnalysis, "no compiler registered for analysis source kind %q", desc.SourceKind)
	}
	return p.Next.Compile(ctx, desc)
}

var _ Compiler = Passthrough{}
