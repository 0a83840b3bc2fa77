// Package orchestrator wires the engine's components into the single
// top-level pipeline a caller actually invokes: parse, catalog, emit and
// compile the trampoline, compile the analysis, resolve its interface,
// rewrite the target, and merge the three modules into one. It is
// expressed as a sequence of named stages over a shared *Context,
// generalized from the teacher's fixed lexer→parser→analyzer chain
// (internal/pipeline) into a reusable shape — but, unlike that chain,
// a failing stage aborts the run immediately rather than collecting
// further diagnostics, per the no-partial-output contract every stage
// in this engine already follows.
package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/wastrumentation/wastrument/internal/analysis"
	"github.com/wastrumentation/wastrument/internal/analysisiface"
	"github.com/wastrumentation/wastrument/internal/cache"
	"github.com/wastrumentation/wastrument/internal/merge"
	"github.com/wastrumentation/wastrument/internal/nesting"
	"github.com/wastrumentation/wastrument/internal/rewrite"
	"github.com/wastrumentation/wastrument/internal/signature"
	"github.com/wastrumentation/wastrument/internal/trampoline"
	"github.com/wastrumentation/wastrument/internal/wasm"
	"github.com/wastrumentation/wastrument/internal/wasm/binary"
	"github.com/wastrumentation/wastrument/internal/werr"
)

// Primary selects which of the two caller-supplied modules claims memory
// index 0 and wins export-name collisions with the trampoline library.
type Primary string

const (
	PrimaryTarget   Primary = "target"
	PrimaryAnalysis Primary = "analysis"
)

// Request is one instrumentation invocation.
type Request struct {
	TargetBytes []byte
	Analysis    analysis.Descriptor
	Hooks       map[analysisiface.Hook]bool
	// Targets restricts instrumentation to these pre-rewrite function
	// indices. Nil means every module-defined function in the target.
	Targets []wasm.FuncIndex
	Primary Primary
}

// Response is the successful outcome of a Run.
type Response struct {
	RequestID string
	Bytes     []byte
}

// Context carries state threaded between stages. Stage implementations
// read what earlier stages populated and write their own result into it;
// RequestID is set once up front and never touched again, so every error
// and log line a stage produces can be correlated back to one invocation.
type Context struct {
	RequestID string
	Request   Request

	Target  *wasm.Module
	Catalog *signature.Catalog

	TrampolineFiles []trampoline.GeneratedFile
	TrampolineBytes []byte
	TrampolineMod   *wasm.Module

	AnalysisBytes []byte
	AnalysisMod   *wasm.Module

	Iface *analysisiface.Set

	Rewritten *rewrite.Result

	Merged *wasm.Module
}

// Stage is one named step of the pipeline. It mutates ctx in place and
// returns an error that, if non-nil, aborts the run without running any
// further stage.
type Stage interface {
	Name() string
	Run(ctx context.Context, c *Context) error
}

// Pipeline is an ordered sequence of Stages, run until the first error.
type Pipeline struct {
	stages []Stage
}

// New builds the fixed instrumentation pipeline: Parse → Catalog →
// EmitLib → CompileLib → CompileAnalysis → ResolveIface → Rewrite →
// Merge.
func New(trampolineCompiler trampoline.Compiler, analysisCompiler analysis.Compiler, trampolineCache *cache.Cache) *Pipeline {
	return &Pipeline{stages: []Stage{
		parseStage{},
		catalogStage{},
		emitLibStage{},
		compileLibStage{compiler: trampolineCompiler, cache: trampolineCache},
		compileAnalysisStage{compiler: analysisCompiler},
		resolveIfaceStage{},
		rewriteStage{},
		mergeStage{},
	}}
}

// Run executes every stage of p in order over a freshly generated request,
// returning the merged module's encoded bytes on success.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Response, error) {
	c := &Context{RequestID: uuid.NewString(), Request: req}
	for _, stage := range p.stages {
		if err := stage.Run(ctx, c); err != nil {
			return nil, annotate(c.RequestID, stage.Name(), err)
		}
	}
	return &Response{RequestID: c.RequestID, Bytes: binary.EncodeModule(c.Merged)}, nil
}

func annotate(requestID, stage string, err error) error {
	if we, ok := err.(*werr.Error); ok {
		return werr.Wrap(we.Kind, we, "request %s: stage %s", requestID, stage)
	}
	return werr.Wrap(werr.KindIO, err, "request %s: stage %s", requestID, stage)
}

// --- Parse -----------------------------------------------------------

type parseStage struct{}

func (parseStage) Name() string { return "Parse" }

func (parseStage) Run(_ context.Context, c *Context) error {
	mod, err := binary.DecodeModule(c.Request.TargetBytes)
	if err != nil {
		return err
	}
	c.Target = mod

	targets := c.Request.Targets
	if targets == nil {
		targets = definedFuncIndices(mod)
	}
	for _, fn := range targets {
		ft, ok := mod.FuncType(fn)
		if !ok {
			continue
		}
		code, ok := mod.CodeOf(fn)
		if !ok {
			continue
		}
		if _, err := nesting.Parse(fn, code.Body); err != nil {
			return err
		}
		if _, err := nesting.InferTypes(fn, mod, ft, allLocals(ft, code.Locals), code.Body); err != nil {
			return err
		}
	}
	return nil
}

func definedFuncIndices(m *wasm.Module) []wasm.FuncIndex {
	base := m.ImportedFuncCount()
	out := make([]wasm.FuncIndex, len(m.Funcs))
	for i := range m.Funcs {
		out[i] = wasm.FuncIndex(base + i)
	}
	return out
}

func allLocals(ft wasm.FunctionType, declared []wasm.ValueKind) []wasm.ValueKind {
	out := make([]wasm.ValueKind, 0, len(ft.Params)+len(declared))
	out = append(out, ft.Params...)
	out = append(out, declared...)
	return out
}

// --- Catalog -----------------------------------------------------------

type catalogStage struct{}

func (catalogStage) Name() string { return "Catalog" }

func (catalogStage) Run(_ context.Context, c *Context) error {
	c.Catalog = signature.Build(c.Target)
	return nil
}

// --- EmitLib -----------------------------------------------------------

type emitLibStage struct{}

func (emitLibStage) Name() string { return "EmitLib" }

func (emitLibStage) Run(_ context.Context, c *Context) error {
	files, err := trampoline.Generate(c.Catalog)
	if err != nil {
		return err
	}
	if err := trampoline.Validate(files); err != nil {
		return err
	}
	c.TrampolineFiles = files
	return nil
}

// --- CompileLib ----------------------------------------------------------

type compileLibStage struct {
	compiler trampoline.Compiler
	cache    *cache.Cache
}

func (compileLibStage) Name() string { return "CompileLib" }

func (s compileLibStage) Run(ctx context.Context, c *Context) error {
	fingerprint := c.Catalog.Fingerprint()

	if s.cache != nil {
		if cached, ok, err := s.cache.Lookup(ctx, fingerprint); err == nil && ok {
			c.TrampolineBytes = cached
		} else if err != nil {
			return werr.Wrap(werr.KindCompileTrampoline, err, "looking up trampoline cache")
		}
	}

	if c.TrampolineBytes == nil {
		bytes, err := s.compiler.Compile(ctx, c.TrampolineFiles)
		if err != nil {
			return err
		}
		c.TrampolineBytes = bytes
		if s.cache != nil {
			if err := s.cache.Store(ctx, fingerprint, bytes); err != nil {
				return werr.Wrap(werr.KindCompileTrampoline, err, "storing trampoline cache entry")
			}
		}
	}

	mod, err := binary.DecodeModule(c.TrampolineBytes)
	if err != nil {
		return werr.Wrap(werr.KindCompileTrampoline, err, "decoding compiled trampoline")
	}
	c.TrampolineMod = mod
	return nil
}

// --- CompileAnalysis ------------------------------------------------------

type compileAnalysisStage struct {
	compiler analysis.Compiler
}

func (compileAnalysisStage) Name() string { return "CompileAnalysis" }

func (s compileAnalysisStage) Run(ctx context.Context, c *Context) error {
	bytes, err := s.compiler.Compile(ctx, c.Request.Analysis)
	if err != nil {
		return err
	}
	c.AnalysisBytes = bytes
	mod, err := binary.DecodeModule(bytes)
	if err != nil {
		return werr.Wrap(werr.KindCompileAnalysis, err, "decoding compiled analysis")
	}
	c.AnalysisMod = mod
	return nil
}

// --- ResolveIface --------------------------------------------------------

type resolveIfaceStage struct{}

func (resolveIfaceStage) Name() string { return "ResolveIface" }

func (resolveIfaceStage) Run(_ context.Context, c *Context) error {
	c.Iface = analysisiface.Resolve(c.Request.Hooks, localKinds(c.Target), globalKinds(c.Target))
	return analysisiface.Validate(c.AnalysisMod, c.Iface)
}

func localKinds(m *wasm.Module) []wasm.ValueKind {
	seen := map[wasm.ValueKind]bool{}
	var out []wasm.ValueKind
	for _, code := range m.Code {
		for _, k := range code.Locals {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

func globalKinds(m *wasm.Module) []wasm.ValueKind {
	seen := map[wasm.ValueKind]bool{}
	var out []wasm.ValueKind
	add := func(k wasm.ValueKind) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, imp := range m.Imports {
		if imp.IsGlobal {
			add(imp.Global.Kind)
		}
	}
	for _, g := range m.Globals {
		add(g.Type.Kind)
	}
	return out
}

// --- Rewrite -------------------------------------------------------------

type rewriteStage struct{}

func (rewriteStage) Name() string { return "Rewrite" }

func (rewriteStage) Run(_ context.Context, c *Context) error {
	res, err := rewrite.Rewrite(c.Target, rewrite.Options{
		Iface:   c.Iface,
		Catalog: c.Catalog,
		Targets: c.Request.Targets,
	})
	if err != nil {
		return err
	}
	c.Rewritten = res
	return nil
}

// --- Merge -----------------------------------------------------------

type mergeStage struct{}

func (mergeStage) Name() string { return "Merge" }

func (mergeStage) Run(_ context.Context, c *Context) error {
	primary := "target"
	if c.Request.Primary == PrimaryAnalysis {
		primary = "analysis"
	}
	out, err := merge.Merge([]merge.Source{
		{Name: "target", Module: c.Rewritten.Module},
		{Name: "trampoline", Module: c.TrampolineMod},
		{Name: "analysis", Module: c.AnalysisMod},
	}, merge.Options{Primary: primary})
	if err != nil {
		return err
	}
	c.Merged = out
	return nil
}
