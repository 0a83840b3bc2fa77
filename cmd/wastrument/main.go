// Command wastrument instruments a WebAssembly module with a compiled
// analysis, either once as a CLI invocation or continuously as a gRPC
// service. Flag handling follows the teacher's own cmd/funxy in spirit
// (a thin command parsing a handful of flags around one real job) but
// uses the standard flag package rather than cmd/funxy's raw os.Args
// scanning, since no example in the pack wires a CLI framework into its
// own teacher binary and flag is the smallest idiomatic step up from that.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wastrumentation/wastrument/internal/analysis"
	"github.com/wastrumentation/wastrument/internal/analysisiface"
	"github.com/wastrumentation/wastrument/internal/cache"
	"github.com/wastrumentation/wastrument/internal/orchestrator"
	"github.com/wastrumentation/wastrument/internal/trampoline/goenv"
	"github.com/wastrumentation/wastrument/internal/wasm"
)

func main() {
	diag := newDiagWriter(os.Stderr)
	if err := run(diag); err != nil {
		diag.Errorf("%v", err)
		diag.Flush()
		os.Exit(1)
	}
	diag.Flush()
}

func run(diag *diagWriter) error {
	var (
		configPath  = flag.String("config", "wastrument.yaml", "project configuration file")
		inputPath   = flag.String("input-program-path", "", "path to the target Wasm module")
		analysisPth = flag.String("analysis-descriptor", "", "path to the analysis source or compiled module")
		sourceKind  = flag.String("analysis-source-kind", "", "analysis source kind: go, tinygo, or wasm")
		outputPath  = flag.String("output-path", "", "path to write the instrumented module to")
		hooksFlag   = flag.String("hooks", "", "comma-separated hook names to instrument")
		targetsFlag = flag.String("targets", "", "comma-separated function indices to restrict instrumentation to")
		primaryFlag = flag.String("primary", "", "which module wins export collisions: target or analysis")
		cacheDB     = flag.String("cache-db", "", "path to the trampoline compile cache database")
		goVersion   = flag.String("go-version", "1.22", "Go version recorded in the scratch trampoline/analysis module")
		serveAddr   = flag.String("serve", "", "listen address to run as a gRPC service instead of a single run (e.g. :7777)")
	)
	flag.Parse()

	fc, err := loadFileConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", *configPath, err)
	}

	inputProgramPath := firstNonEmpty(*inputPath, fc.InputProgramPath)
	analysisPath := firstNonEmpty(*analysisPth, fc.AnalysisPath)
	analysisSourceKind := firstNonEmpty(*sourceKind, fc.AnalysisSourceKind)
	finalOutputPath := firstNonEmpty(*outputPath, fc.OutputPath)
	primary := firstNonEmpty(*primaryFlag, fc.Primary, string(orchestrator.PrimaryTarget))
	cacheDBPath := firstNonEmpty(*cacheDB, fc.CacheDB)

	hookNames := splitCSV(*hooksFlag)
	if len(hookNames) == 0 {
		hookNames = fc.Hooks
	}
	targetIndices, err := parseTargets(*targetsFlag, fc.Targets)
	if err != nil {
		return err
	}

	var trampolineCache *cache.Cache
	if cacheDBPath != "" {
		trampolineCache, err = cache.Open(cacheDBPath)
		if err != nil {
			return fmt.Errorf("opening trampoline cache: %w", err)
		}
		defer trampolineCache.Close()
	}

	pipeline := orchestrator.New(
		goenv.WasmGoEnv(*goVersion),
		analysis.Passthrough{Next: analysis.Toolchain{GoVersion: *goVersion}},
		trampolineCache,
	)

	if *serveAddr != "" {
		return serve(*serveAddr, pipeline, diag)
	}

	if inputProgramPath == "" || analysisPath == "" || finalOutputPath == "" {
		return fmt.Errorf("--input-program-path, --analysis-descriptor, and --output-path are required outside --serve mode")
	}

	targetBytes, err := os.ReadFile(inputProgramPath)
	if err != nil {
		return fmt.Errorf("reading target module: %w", err)
	}
	analysisBytes, err := os.ReadFile(analysisPath)
	if err != nil {
		return fmt.Errorf("reading analysis descriptor: %w", err)
	}
	if analysisSourceKind == "" {
		analysisSourceKind = inferSourceKind(analysisPath)
	}

	hooks := make(map[analysisiface.Hook]bool, len(hookNames))
	for _, h := range hookNames {
		hooks[analysisiface.Hook(h)] = true
	}

	diag.Stagef("Run", "instrumenting %s with %s", inputProgramPath, analysisPath)
	resp, err := pipeline.Run(context.Background(), orchestrator.Request{
		TargetBytes: targetBytes,
		Analysis: analysis.Descriptor{
			SourceKind:  analysisSourceKind,
			SourceBytes: analysisBytes,
		},
		Hooks:   hooks,
		Targets: targetIndices,
		Primary: orchestrator.Primary(primary),
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(finalOutputPath, resp.Bytes, 0o644); err != nil {
		return fmt.Errorf("writing instrumented module: %w", err)
	}
	diag.Successf("wrote %s (request %s)", finalOutputPath, resp.RequestID)
	return nil
}

func inferSourceKind(path string) string {
	switch {
	case strings.HasSuffix(path, ".wasm"):
		return "wasm"
	case strings.HasSuffix(path, ".go"):
		return "go"
	default:
		return "tinygo"
	}
}

func parseTargets(flagValue string, fromFile []uint32) ([]wasm.FuncIndex, error) {
	raw := splitCSV(flagValue)
	if len(raw) == 0 {
		if len(fromFile) == 0 {
			return nil, nil
		}
		out := make([]wasm.FuncIndex, len(fromFile))
		for i, v := range fromFile {
			out[i] = wasm.FuncIndex(v)
		}
		return out, nil
	}
	out := make([]wasm.FuncIndex, len(raw))
	for i, s := range raw {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid --targets entry %q: %w", s, err)
		}
		out[i] = wasm.FuncIndex(n)
	}
	return out, nil
}
