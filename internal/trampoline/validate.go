package trampoline

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/wastrumentation/wastrument/internal/werr"
)

// Validate type-checks generated files in an ephemeral directory before a
// Compiler is asked to shell out to an external toolchain, the same
// load-then-check-errors idiom the teacher's Inspector runs ahead of its
// own build step.
func Validate(files []GeneratedFile) error {
	dir, err := os.MkdirTemp("", "wastrument-trampoline-validate-*")
	if err != nil {
		return werr.Wrap(werr.KindCompileTrampoline, err, "creating validation directory")
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module trampoline\n\ngo 1.23\n"), 0o644); err != nil {
		return werr.Wrap(werr.KindCompileTrampoline, err, "writing validation go.mod")
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.Filename), []byte(f.Content), 0o644); err != nil {
			return werr.Wrap(werr.KindCompileTrampoline, err, "writing %s", f.Filename)
		}
	}

	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo,
		Dir:  dir,
		Env:  append(os.Environ(), "GOWORK=off"),
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return werr.Wrap(werr.KindCompileTrampoline, err, "loading generated trampoline source")
	}

	var problems []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			problems = append(problems, e.Error())
		}
	}
	if len(problems) > 0 {
		return werr.New(werr.KindCompileTrampoline, "generated trampoline source (%s) does not type-check:\n  %s",
			describeFiles(files), strings.Join(problems, "\n  "))
	}
	return nil
}

// describeFiles names the files checked by a Validate call, for error
// messages.
func describeFiles(files []GeneratedFile) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Filename
	}
	return strings.Join(names, ", ")
}
