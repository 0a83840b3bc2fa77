package main

import (
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/wastrumentation/wastrument/internal/orchestrator"
	"github.com/wastrumentation/wastrument/internal/rpc"
)

// serve starts the instrumentation gRPC service and blocks until it
// stops, the same net.Listen-plus-Server.Serve shape
// internal/evaluator/builtins_grpc.go's builtinGrpcServe uses for a
// funxy-script-registered server.
func serve(addr string, pipeline *orchestrator.Pipeline, diag *diagWriter) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	grpcServer := grpc.NewServer()
	rpc.Register(grpcServer, &rpc.Server{Pipeline: pipeline})

	diag.Stagef("Serve", "listening on %s", addr)
	diag.Flush()
	return grpcServer.Serve(lis)
}
