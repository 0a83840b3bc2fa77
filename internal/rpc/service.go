// Package rpc exposes the orchestrator over gRPC as a single Instrument
// RPC, grounded on the teacher's internal/evaluator/builtins_grpc.go use
// of a hand-assembled grpc.ServiceDesc and grpc.MethodDesc (there built
// for a funxy-script-registered service; here built once, at compile
// time, for the engine's own fixed schema).
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wastrumentation/wastrument/internal/analysis"
	"github.com/wastrumentation/wastrument/internal/analysisiface"
	"github.com/wastrumentation/wastrument/internal/orchestrator"
	"github.com/wastrumentation/wastrument/internal/rpc/wastrumentpb"
	"github.com/wastrumentation/wastrument/internal/wasm"
	"github.com/wastrumentation/wastrument/internal/werr"
)

// Server implements the Instrument RPC by delegating to an
// *orchestrator.Pipeline.
type Server struct {
	Pipeline *orchestrator.Pipeline
}

// Instrument runs one instrumentation request to completion, translating
// the wire message into an orchestrator.Request and its result (or
// error) back into the wire response (or a mapped gRPC status).
func (s *Server) Instrument(ctx context.Context, req *wastrumentpb.InstrumentRequest) (*wastrumentpb.InstrumentResponse, error) {
	hooks := make(map[analysisiface.Hook]bool, len(req.GetHooks()))
	for _, h := range req.GetHooks() {
		hooks[analysisiface.Hook(h)] = true
	}

	var targets []wasm.FuncIndex
	if raw := req.GetTargets(); raw != nil {
		targets = make([]wasm.FuncIndex, len(raw))
		for i, idx := range raw {
			targets[i] = wasm.FuncIndex(idx)
		}
	}

	primary := orchestrator.PrimaryTarget
	if req.GetPrimary() == string(orchestrator.PrimaryAnalysis) {
		primary = orchestrator.PrimaryAnalysis
	}

	out, err := s.Pipeline.Run(ctx, orchestrator.Request{
		TargetBytes: req.GetTargetBytes(),
		Analysis: analysis.Descriptor{
			SourceKind:  req.GetAnalysisSourceKind(),
			SourceBytes: req.GetAnalysisSourceBytes(),
		},
		Hooks:   hooks,
		Targets: targets,
		Primary: primary,
	})
	if err != nil {
		return nil, mapError(err)
	}

	resp := wastrumentpb.NewInstrumentResponse()
	resp.SetWasmBytes(out.Bytes)
	resp.SetRequestID(out.RequestID)
	return resp, nil
}

// mapError translates a werr.Error kind onto the closest-matching gRPC
// status code, per SPEC_FULL.md's service/orchestrator error-mapping
// table: invalid input is a caller error, the two compile failures are a
// precondition the caller can fix by supplying different source, and
// everything else is an opaque internal failure.
func mapError(err error) error {
	we, ok := err.(*werr.Error)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	switch we.Kind {
	case werr.KindInvalidConfiguration:
		return status.Error(codes.InvalidArgument, we.Error())
	case werr.KindCompileAnalysis, werr.KindCompileTrampoline:
		return status.Error(codes.FailedPrecondition, we.Error())
	default:
		return status.Error(codes.Internal, we.Error())
	}
}

// ServiceDesc is the hand-assembled grpc.ServiceDesc for the
// InstrumentationServer, the same shape builtins_grpc.go's
// builtinGrpcRegister assembles per funxy-registered service — but with a
// single, fixed method rather than one derived from a runtime-loaded
// protoreflect.ServiceDescriptor.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "wastrumentpb.Instrumentation",
	HandlerType: (*instrumentationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Instrument",
			Handler:    instrumentHandler,
		},
	},
	Metadata: "wastrument.proto",
}

type instrumentationServer interface {
	Instrument(context.Context, *wastrumentpb.InstrumentRequest) (*wastrumentpb.InstrumentResponse, error)
}

func instrumentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := wastrumentpb.NewInstrumentRequest()
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(instrumentationServer).Instrument(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/wastrumentpb.Instrumentation/Instrument"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(instrumentationServer).Instrument(ctx, req.(*wastrumentpb.InstrumentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Register wires s onto grpcServer under the Instrumentation service name.
func Register(grpcServer *grpc.Server, s *Server) {
	grpcServer.RegisterService(&ServiceDesc, s)
}
