// Package goenv is the concrete Compiler collaborator: it shells out to a
// real Go or tinygo toolchain against a disposable module directory,
// mirroring the way the teacher's ext builder assembles a scratch go.mod
// and invokes `go build` with an adjusted GOOS/GOARCH.
package goenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wastrumentation/wastrument/internal/trampoline"
	"github.com/wastrumentation/wastrument/internal/werr"
)

// Env is a trampoline.Compiler backed by an external toolchain invocation.
type Env struct {
	// ToolchainBin is the compiler binary, e.g. "tinygo" or "go".
	ToolchainBin string
	// BuildArgs are the subcommand and flags preceding the output/target
	// arguments, e.g. []string{"build", "-target=wasm-unknown"} for tinygo,
	// or []string{"build"} for the standard toolchain's GOOS=wasip1 mode.
	BuildArgs []string
	// Env is additional environment (e.g. GOOS=wasip1, GOARCH=wasm) appended
	// to os.Environ() for the build subprocess.
	Env []string
	// GoVersion is recorded in the scratch module's go.mod.
	GoVersion string
}

var _ trampoline.Compiler = (*Env)(nil)

// Compile writes files into a scratch module directory, builds it with the
// configured toolchain, and returns the resulting Wasm binary.
func (e *Env) Compile(ctx context.Context, files []trampoline.GeneratedFile) ([]byte, error) {
	dir, err := os.MkdirTemp("", "wastrument-trampoline-*")
	if err != nil {
		return nil, werr.Wrap(werr.KindCompileTrampoline, err, "creating scratch build directory")
	}
	defer os.RemoveAll(dir)

	goVersion := e.GoVersion
	if goVersion == "" {
		goVersion = "1.23"
	}
	modFile := fmt.Sprintf("module trampoline\n\ngo %s\n", goVersion)
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(modFile), 0o644); err != nil {
		return nil, werr.Wrap(werr.KindCompileTrampoline, err, "writing scratch go.mod")
	}

	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.Filename), []byte(f.Content), 0o644); err != nil {
			return nil, werr.Wrap(werr.KindCompileTrampoline, err, "writing %s", f.Filename)
		}
	}

	out := filepath.Join(dir, "trampoline.wasm")
	args := append(append([]string{}, e.BuildArgs...), "-o", out, ".")

	bin := e.ToolchainBin
	if bin == "" {
		bin = "go"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), e.Env...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, werr.Wrap(werr.KindCompileTrampoline, err,
			"%s %s failed: %s", bin, strings.Join(args, " "), strings.TrimSpace(string(output)))
	}

	wasmBytes, err := os.ReadFile(out)
	if err != nil {
		return nil, werr.Wrap(werr.KindCompileTrampoline, err, "reading compiled trampoline")
	}
	return wasmBytes, nil
}

// WasmGoEnv returns the Env preset for the standard Go toolchain's wasip1
// target, the default collaborator when tinygo isn't requested.
func WasmGoEnv(goVersion string) *Env {
	return &Env{
		ToolchainBin: "go",
		BuildArgs:    []string{"build"},
		Env:          []string{"GOOS=wasip1", "GOARCH=wasm"},
		GoVersion:    goVersion,
	}
}

// TinyGoEnv returns the Env preset for tinygo, used when the generated ABI
// needs a smaller or wasm-unknown target rather than wasip1.
func TinyGoEnv() *Env {
	return &Env{
		ToolchainBin: "tinygo",
		BuildArgs:    []string{"build", "-target=wasm-unknown"},
	}
}
