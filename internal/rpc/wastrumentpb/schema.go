// Package wastrumentpb defines the fixed message schema for the
// instrumentation service's single RPC. Unlike the teacher's
// internal/evaluator/builtins_grpc.go, which loads arbitrary caller-
// supplied .proto files at runtime via jhump/protoreflect so funxy scripts
// can bind to any service, this service's schema never changes at
// runtime, so it is built once, in Go, as a literal descriptor via
// google.golang.org/protobuf/reflect/protodesc rather than parsed from a
// .proto file at build time (no protoc step this repository can assume).
package wastrumentpb

import (
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

var (
	fileDescriptor protoreflect.FileDescriptor

	instrumentRequestDesc  protoreflect.MessageDescriptor
	instrumentResponseDesc protoreflect.MessageDescriptor

	instrumentRequestType  protoreflect.MessageType
	instrumentResponseType protoreflect.MessageType
)

func init() {
	proto3 := "proto3"
	optional := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()
	repeated := descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()

	field := func(name string, num int32, label *descriptorpb.FieldDescriptorProto_Label, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:     strPtr(name),
			Number:   int32Ptr(num),
			Label:    label,
			Type:     typ.Enum(),
			JsonName: strPtr(name),
		}
	}

	fdp := &descriptorpb.FileDescriptorProto{
		Name:    strPtr("wastrument.proto"),
		Package: strPtr("wastrumentpb"),
		Syntax:  &proto3,
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: strPtr("InstrumentRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("target_bytes", 1, optional, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
					field("analysis_source_kind", 2, optional, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("analysis_source_bytes", 3, optional, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
					field("hooks", 4, repeated, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("targets", 5, repeated, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					field("primary", 6, optional, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				},
			},
			{
				Name: strPtr("InstrumentResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("wasm_bytes", 1, optional, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
					field("request_id", 2, optional, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				},
			},
		},
	}

	fd, err := protodesc.NewFile(fdp, nil)
	if err != nil {
		panic("wastrumentpb: building file descriptor: " + err.Error())
	}
	fileDescriptor = fd

	instrumentRequestDesc = fd.Messages().ByName("InstrumentRequest")
	instrumentResponseDesc = fd.Messages().ByName("InstrumentResponse")

	instrumentRequestType = dynamicpb.NewMessageType(instrumentRequestDesc)
	instrumentResponseType = dynamicpb.NewMessageType(instrumentResponseDesc)
}

func strPtr(s string) *string { return &s }
func int32Ptr(i int32) *int32 { return &i }
