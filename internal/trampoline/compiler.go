package trampoline

import "context"

// Compiler turns generated Go source into Wasm bytes. The spec treats the
// underlying toolchain as an opaque collaborator; the concrete
// implementation (internal/trampoline/goenv) shells out to a real `go` or
// `tinygo` binary, while tests substitute a stub.
type Compiler interface {
	Compile(ctx context.Context, files []GeneratedFile) ([]byte, error)
}
