package analysis

import (
	"context"

	"github.com/wastrumentation/wastrument/internal/trampoline"
	"github.com/wastrumentation/wastrument/internal/trampoline/goenv"
	"github.com/wastrumentation/wastrument/internal/werr"
)

// Toolchain is a Compiler for analyses written in a Go-family source kind
// ("go" or "tinygo"): the descriptor's bytes are the single main package
// source file, handed to the matching goenv.Env preset exactly as the
// trampoline compiler does, since both ultimately just build a scratch Go
// module down to Wasm.
type Toolchain struct {
	GoVersion string
}

func (t Toolchain) Compile(ctx context.Context, desc Descriptor) ([]byte, error) {
	var env *goenv.Env
	switch desc.SourceKind {
	case "go":
		env = goenv.WasmGoEnv(t.GoVersion)
	case "tinygo":
		env = goenv.TinyGoEnv()
	default:
		return nil, werr.New(werr.KindCompileAnalysis, "no toolchain registered for analysis source kind %q", desc.SourceKind)
	}

	files := []trampoline.GeneratedFile{{Filename: "analysis.go", Content: string(desc.SourceBytes)}}
	bytes, err := env.Compile(ctx, files)
	if err != nil {
		return nil, werr.Wrap(werr.KindCompileAnalysis, err, "compiling analysis")
	}
	return bytes, nil
}

var _ Compiler = Toolchain{}
