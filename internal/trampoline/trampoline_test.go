package trampoline

import (
	"context"
	"strings"
	"testing"

	"github.com/wastrumentation/wastrument/internal/signature"
	"github.com/wastrumentation/wastrument/internal/wasm"
)

func testCatalog() *signature.Catalog {
	m := &wasm.Module{
		Types: []wasm.FunctionType{
			{Params: []wasm.ValueKind{wasm.I32, wasm.I32}, Results: []wasm.ValueKind{wasm.I32}},
			{Results: []wasm.ValueKind{wasm.F64}},
		},
		Funcs: []wasm.TypeIndex{0, 1},
	}
	return signature.Build(m)
}

func TestGenerateEmitsPreludeAndOneFilePerCatalog(t *testing.T) {
	files, err := Generate(testCatalog())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected a single combined file, got %d", len(files))
	}
	src := files[0].Content
	if !strings.Contains(src, "package main") {
		t.Fatalf("missing package clause:\n%s", src)
	}
	if !strings.Contains(src, "//go:wasmexport free_ret_i32_arg_i32_i32\n") {
		t.Fatalf("missing per-signature free export:\n%s", src)
	}
}

func TestGenerateEmitsPerSignatureHelpers(t *testing.T) {
	files, err := Generate(testCatalog())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	src := files[0].Content
	for _, want := range []string{
		"func allocate_ret_i32_arg_i32_i32(arg0 int32, arg1 int32) uint32",
		"func load_arg0_ret_i32_arg_i32_i32(ptr uint32) int32",
		"func store_ret0_ret_i32_arg_i32_i32(ptr uint32, v int32)",
		"func allocate_ret_f64_arg_(",
		"func load_ret0_ret_f64_arg_(ptr uint32) float64",
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("generated source missing %q\n%s", want, src)
		}
	}
}

type stubCompiler struct {
	gotFiles []GeneratedFile
	result   []byte
	err      error
}

func (s *stubCompiler) Compile(ctx context.Context, files []GeneratedFile) ([]byte, error) {
	s.gotFiles = files
	return s.result, s.err
}

func TestCompilerInterfaceAcceptsGeneratedFiles(t *testing.T) {
	files, err := Generate(testCatalog())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	stub := &stubCompiler{result: []byte{0x00, 0x61, 0x73, 0x6d}}
	var c Compiler = stub
	out, err := c.Compile(context.Background(), files)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(stub.gotFiles) != 1 {
		t.Fatalf("expected the compiler to receive the generated files")
	}
	if len(out) != 4 {
		t.Fatalf("expected the stub's result to pass through unchanged")
	}
}

