// Package trampoline generates the value/type-buffer ABI helpers that
// transport parameter and result values across the boundary between an
// instrumented target and its analysis, and arranges for their compilation
// to Wasm.
//
// The helpers are generated as Go source and compiled by an external
// collaborator (see Compiler); this package never interprets or executes
// them itself.
package trampoline

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/wastrumentation/wastrument/internal/signature"
	"github.com/wastrumentation/wastrument/internal/wasm"
)

// GeneratedFile is one Go source file produced by the generator.
type GeneratedFile struct {
	Filename string
	Content  string
}

// Generate emits the trampoline library's Go source for every entry in the
// catalog: a shared runtime prelude (the value/type buffer arena and
// typed load/store primitives) plus one block of exports per signature.
func Generate(catalog *signature.Catalog) ([]GeneratedFile, error) {
	var body strings.Builder
	body.WriteString(preludeSource)

	for _, entry := range catalog.Entries() {
		src, err := renderEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("trampoline: rendering %s: %w", entry.Signature.Name(), err)
		}
		body.WriteString(src)
	}

	return []GeneratedFile{
		{Filename: "trampoline.go", Content: body.String()},
	}, nil
}

func goKind(k wasm.ValueKind) string {
	switch k {
	case wasm.I32:
		return "int32"
	case wasm.I64:
		return "int64"
	case wasm.F32:
		return "float32"
	case wasm.F64:
		return "float64"
	default:
		return "int32"
	}
}

type entryView struct {
	Name           string
	BufferSize     int
	Results        []slotView
	Params         []slotView
	AllParamTypes  string // comma-joined "argN type" for allocate's signature
	AllParamNames  string // comma-joined "argN" for passing through
	AllResultTypes string // comma-joined "retN type" for store_rets' signature
}

type slotView struct {
	Index  int
	Offset int
	Kind   string
	Load   string // the runtime load primitive for this kind, e.g. "loadI32"
	Store  string
}

func renderEntry(e signature.Entry) (string, error) {
	view := entryView{Name: e.Signature.Name(), BufferSize: e.BufferSize}

	var paramDecls, paramNames, resultDecls []string
	for i, k := range e.Signature.Params {
		view.Params = append(view.Params, slotView{
			Index: i, Offset: e.ParamOffsets[i], Kind: goKind(k),
			Load: loadPrimitive(k), Store: storePrimitive(k),
		})
		paramDecls = append(paramDecls, fmt.Sprintf("arg%d %s", i, goKind(k)))
		paramNames = append(paramNames, fmt.Sprintf("arg%d", i))
	}
	for i, k := range e.Signature.Results {
		view.Results = append(view.Results, slotView{
			Index: i, Offset: e.ResultOffsets[i], Kind: goKind(k),
			Load: loadPrimitive(k), Store: storePrimitive(k),
		})
		resultDecls = append(resultDecls, fmt.Sprintf("ret%d %s", i, goKind(k)))
	}
	view.AllParamTypes = strings.Join(paramDecls, ", ")
	view.AllParamNames = strings.Join(paramNames, ", ")
	view.AllResultTypes = strings.Join(resultDecls, ", ")

	tmpl, err := template.New("entry").Parse(entryTemplate)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func loadPrimitive(k wasm.ValueKind) string {
	switch k {
	case wasm.I32:
		return "loadI32"
	case wasm.I64:
		return "loadI64"
	case wasm.F32:
		return "loadF32"
	case wasm.F64:
		return "loadF64"
	default:
		return "loadI32"
	}
}

func storePrimitive(k wasm.ValueKind) string {
	switch k {
	case wasm.I32:
		return "storeI32"
	case wasm.I64:
		return "storeI64"
	case wasm.F32:
		return "storeF32"
	case wasm.F64:
		return "storeF64"
	default:
		return "storeI32"
	}
}

// preludeSource is emitted once, ahead of every signature's helpers. It
// owns the buffer arena (Go-heap byte slices pinned against collection by
// the map, addressed to the analysis and target by their linear-memory
// pointer) and the typed read/write primitives the per-signature helpers
// are templated over.
const preludeSource = `// Code generated by internal/trampoline. DO NOT EDIT.
package main

import (
	"encoding/binary"
	"unsafe"
)

var arena = make(map[uint32][]byte)

func pin(buf []byte) uint32 {
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	arena[ptr] = buf
	return ptr
}

func loadI32(buf []byte, off int) int32 { return int32(binary.LittleEndian.Uint32(buf[off:])) }
func loadI64(buf []byte, off int) int64 { return int64(binary.LittleEndian.Uint64(buf[off:])) }
func loadF32(buf []byte, off int) float32 {
	return float32FromBits(binary.LittleEndian.Uint32(buf[off:]))
}
func loadF64(buf []byte, off int) float64 {
	return float64FromBits(binary.LittleEndian.Uint64(buf[off:]))
}

func storeI32(buf []byte, off int, v int32) { binary.LittleEndian.PutUint32(buf[off:], uint32(v)) }
func storeI64(buf []byte, off int, v int64) { binary.LittleEndian.PutUint64(buf[off:], uint64(v)) }
func storeF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], float32Bits(v))
}
func storeF64(buf []byte, off int, v float64) {
	binary.LittleEndian.PutUint64(buf[off:], float64Bits(v))
}

func float32FromBits(b uint32) float32 { return *(*float32)(unsafe.Pointer(&b)) }
func float64FromBits(b uint64) float64 { return *(*float64)(unsafe.Pointer(&b)) }
func float32Bits(f float32) uint32     { return *(*uint32)(unsafe.Pointer(&f)) }
func float64Bits(f float64) uint64     { return *(*uint64)(unsafe.Pointer(&f)) }

`

// entryTemplate renders the allocate/free/load/store family for one
// cataloged signature. <R>/<A> in the spec's naming scheme correspond to
// the template's {{.Name}}, which already embeds "ret_<R>_arg_<A>".
const entryTemplate = `
//go:wasmexport allocate_{{.Name}}
func allocate_{{.Name}}({{.AllParamTypes}}) uint32 {
	buf := make([]byte, {{.BufferSize}})
	{{- range .Params}}
	{{.Store}}(buf, {{.Offset}}, arg{{.Index}})
	{{- end}}
	return pin(buf)
}

//go:wasmexport allocate_types_{{.Name}}
func allocate_types_{{.Name}}(tags ...int32) uint32 {
	buf := make([]byte, len(tags)*4)
	for i, tag := range tags {
		storeI32(buf, i*4, tag)
	}
	return pin(buf)
}

//go:wasmexport free_types_{{.Name}}
func free_types_{{.Name}}(ptr uint32) {
	delete(arena, ptr)
}

//go:wasmexport free_{{.Name}}
func free_{{.Name}}(ptr uint32) {
	delete(arena, ptr)
}
{{range .Params}}
//go:wasmexport load_arg{{.Index}}_{{$.Name}}
func load_arg{{.Index}}_{{$.Name}}(ptr uint32) {{.Kind}} {
	return {{.Load}}(arena[ptr], {{.Offset}})
}

//go:wasmexport store_arg{{.Index}}_{{$.Name}}
func store_arg{{.Index}}_{{$.Name}}(ptr uint32, v {{.Kind}}) {
	{{.Store}}(arena[ptr], {{.Offset}}, v)
}
{{end}}
{{range .Results}}
//go:wasmexport load_ret{{.Index}}_{{$.Name}}
func load_ret{{.Index}}_{{$.Name}}(ptr uint32) {{.Kind}} {
	return {{.Load}}(arena[ptr], {{.Offset}})
}

//go:wasmexport store_ret{{.Index}}_{{$.Name}}
func store_ret{{.Index}}_{{$.Name}}(ptr uint32, v {{.Kind}}) {
	{{.Store}}(arena[ptr], {{.Offset}}, v)
}
{{end}}
//go:wasmexport store_args_{{.Name}}
func store_args_{{.Name}}(ptr uint32, {{.AllParamTypes}}) {
	buf := arena[ptr]
	{{- range .Params}}
	{{.Store}}(buf, {{.Offset}}, arg{{.Index}})
	{{- end}}
}

//go:wasmexport store_rets_{{.Name}}
func store_rets_{{.Name}}(ptr uint32, {{.AllResultTypes}}) {
	buf := arena[ptr]
	{{- range .Results}}
	{{.Store}}(buf, {{.Offset}}, ret{{.Index}})
	{{- end}}
}
`
