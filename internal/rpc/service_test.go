package rpc

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wastrumentation/wastrument/internal/analysis"
	"github.com/wastrumentation/wastrument/internal/orchestrator"
	"github.com/wastrumentation/wastrument/internal/rpc/wastrumentpb"
	"github.com/wastrumentation/wastrument/internal/trampoline"
	"github.com/wastrumentation/wastrument/internal/wasm"
	"github.com/wastrumentation/wastrument/internal/wasm/binary"
	"github.com/wastrumentation/wastrument/internal/werr"
)

type stubTrampolineCompiler struct{ bytes []byte }

func (s stubTrampolineCompiler) Compile(_ context.Context, _ []trampoline.GeneratedFile) ([]byte, error) {
	return s.bytes, nil
}

type stubAnalysisCompiler struct{ bytes []byte }

func (s stubAnalysisCompiler) Compile(_ context.Context, _ analysis.Descriptor) ([]byte, error) {
	return s.bytes, nil
}

func emptyModuleBytes() []byte { return binary.EncodeModule(&wasm.Module{}) }

func addFuncModuleBytes() []byte {
	ft := wasm.FunctionType{Params: []wasm.ValueKind{wasm.I32, wasm.I32}, Results: []wasm.ValueKind{wasm.I32}}
	m := &wasm.Module{
		Types: []wasm.FunctionType{ft},
		Funcs: []wasm.TypeIndex{0},
		Code: []wasm.Code{{Body: []wasm.Instr{
			{Op: wasm.OpLocalGet, Local: 0},
			{Op: wasm.OpLocalGet, Local: 1},
			{Op: wasm.OpI32Add},
			{Op: wasm.OpEnd},
		}}},
		Exports: []wasm.Export{{Name: "add", Kind: wasm.ExternFunc, Index: 0}},
	}
	return binary.EncodeModule(m)
}

func TestInstrumentRoundTripsThroughWireMessages(t *testing.T) {
	p := orchestrator.New(
		stubTrampolineCompiler{bytes: emptyModuleBytes()},
		stubAnalysisCompiler{bytes: emptyModuleBytes()},
		nil,
	)
	s := &Server{Pipeline: p}

	req := wastrumentpb.NewInstrumentRequest()
	req.SetTargetBytes(addFuncModuleBytes())
	req.SetAnalysisSourceKind("wasm")
	req.SetAnalysisSourceBytes(emptyModuleBytes())
	req.SetPrimary(string(orchestrator.PrimaryTarget))

	resp, err := s.Instrument(context.Background(), req)
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}
	if resp.GetRequestID() == "" {
		t.Fatalf("expected a non-empty request ID")
	}
	out, err := binary.DecodeModule(resp.GetWasmBytes())
	if err != nil {
		t.Fatalf("decoding response wasm bytes: %v", err)
	}
	found := false
	for _, e := range out.Exports {
		if e.Name == "add" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected merged module to still export add, got %+v", out.Exports)
	}
}

func TestInstrumentMapsCompileAnalysisFailureToFailedPrecondition(t *testing.T) {
	p := orchestrator.New(
		stubTrampolineCompiler{bytes: emptyModuleBytes()},
		failingAnalysisCompiler{},
		nil,
	)
	s := &Server{Pipeline: p}

	req := wastrumentpb.NewInstrumentRequest()
	req.SetTargetBytes(addFuncModuleBytes())
	req.SetAnalysisSourceKind("wasm")
	req.SetPrimary(string(orchestrator.PrimaryTarget))

	_, err := s.Instrument(context.Background(), req)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", status.Code(err))
	}
}

type failingAnalysisCompiler struct{}

func (failingAnalysisCompiler) Compile(_ context.Context, _ analysis.Descriptor) ([]byte, error) {
	return nil, werr.New(werr.KindCompileAnalysis, "boom")
}
