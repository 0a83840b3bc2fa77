package wastrumentpb

import (
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// InstrumentRequest is the request message for the Instrument RPC: target
// bytes, an analysis descriptor (source kind + source bytes), the enabled
// hook names, an optional list of target function indices, and a primary
// selector ("target" or "analysis").
type InstrumentRequest struct {
	*dynamicpb.Message
}

// NewInstrumentRequest returns an empty request ready for its setters.
func NewInstrumentRequest() *InstrumentRequest {
	return &InstrumentRequest{Message: dynamicpb.NewMessage(instrumentRequestDesc)}
}

var reqFields = fieldsOf(instrumentRequestDesc)

func (r *InstrumentRequest) GetTargetBytes() []byte {
	return r.Get(reqFields["target_bytes"]).Bytes()
}
func (r *InstrumentRequest) SetTargetBytes(b []byte) {
	r.Set(reqFields["target_bytes"], protoreflect.ValueOfBytes(b))
}

func (r *InstrumentRequest) GetAnalysisSourceKind() string {
	return r.Get(reqFields["analysis_source_kind"]).String()
}
func (r *InstrumentRequest) SetAnalysisSourceKind(s string) {
	r.Set(reqFields["analysis_source_kind"], protoreflect.ValueOfString(s))
}

func (r *InstrumentRequest) GetAnalysisSourceBytes() []byte {
	return r.Get(reqFields["analysis_source_bytes"]).Bytes()
}
func (r *InstrumentRequest) SetAnalysisSourceBytes(b []byte) {
	r.Set(reqFields["analysis_source_bytes"], protoreflect.ValueOfBytes(b))
}

func (r *InstrumentRequest) GetHooks() []string {
	return stringList(r.Get(reqFields["hooks"]).List())
}
func (r *InstrumentRequest) SetHooks(hooks []string) {
	setStringList(r.Mutable(reqFields["hooks"]).List(), hooks)
}

func (r *InstrumentRequest) GetTargets() []uint32 {
	return uint32List(r.Get(reqFields["targets"]).List())
}
func (r *InstrumentRequest) SetTargets(targets []uint32) {
	setUint32List(r.Mutable(reqFields["targets"]).List(), targets)
}

func (r *InstrumentRequest) GetPrimary() string {
	return r.Get(reqFields["primary"]).String()
}
func (r *InstrumentRequest) SetPrimary(s string) {
	r.Set(reqFields["primary"], protoreflect.ValueOfString(s))
}

// InstrumentResponse is the response message for the Instrument RPC: the
// merged module's encoded bytes and the request ID assigned by the
// orchestrator, for log correlation.
type InstrumentResponse struct {
	*dynamicpb.Message
}

func NewInstrumentResponse() *InstrumentResponse {
	return &InstrumentResponse{Message: dynamicpb.NewMessage(instrumentResponseDesc)}
}

var respFields = fieldsOf(instrumentResponseDesc)

func (r *InstrumentResponse) GetWasmBytes() []byte {
	return r.Get(respFields["wasm_bytes"]).Bytes()
}
func (r *InstrumentResponse) SetWasmBytes(b []byte) {
	r.Set(respFields["wasm_bytes"], protoreflect.ValueOfBytes(b))
}

func (r *InstrumentResponse) GetRequestID() string {
	return r.Get(respFields["request_id"]).String()
}
func (r *InstrumentResponse) SetRequestID(s string) {
	r.Set(respFields["request_id"], protoreflect.ValueOfString(s))
}

func fieldsOf(md protoreflect.MessageDescriptor) map[string]protoreflect.FieldDescriptor {
	out := make(map[string]protoreflect.FieldDescriptor)
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		out[string(fd.Name())] = fd
	}
	return out
}

func stringList(l protoreflect.List) []string {
	out := make([]string, l.Len())
	for i := range out {
		out[i] = l.Get(i).String()
	}
	return out
}

func setStringList(l protoreflect.List, values []string) {
	for _, v := range values {
		l.Append(protoreflect.ValueOfString(v))
	}
}

func uint32List(l protoreflect.List) []uint32 {
	out := make([]uint32, l.Len())
	for i := range out {
		out[i] = uint32(l.Get(i).Uint())
	}
	return out
}

func setUint32List(l protoreflect.List, values []uint32) {
	for _, v := range values {
		l.Append(protoreflect.ValueOfUint32(v))
	}
}
