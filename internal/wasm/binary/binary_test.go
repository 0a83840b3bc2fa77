package binary

import (
	"bytes"
	"testing"

	"github.com/wastrumentation/wastrument/internal/wasm"
)

// minimalModule builds a module exporting a single function
// add(i32, i32) -> i32 that computes local.get 0 + local.get 1.
func minimalModule() *wasm.Module {
	m := &wasm.Module{
		Types: []wasm.FunctionType{
			{Params: []wasm.ValueKind{wasm.I32, wasm.I32}, Results: []wasm.ValueKind{wasm.I32}},
		},
		Funcs: []wasm.TypeIndex{0},
		Exports: []wasm.Export{
			{Name: "add", Kind: wasm.ExternFunc, Index: 0},
		},
		Code: []wasm.Code{
			{
				Body: []wasm.Instr{
					{Op: wasm.OpLocalGet, Local: 0},
					{Op: wasm.OpLocalGet, Local: 1},
					{Op: wasm.OpI32Add},
					{Op: wasm.OpEnd},
				},
			},
		},
	}
	return m
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	m := minimalModule()
	encoded := EncodeModule(m)

	decoded, err := DecodeModule(encoded)
	if err != nil {
		t.Fatalf("DecodeModule: %v", err)
	}

	if len(decoded.Types) != 1 {
		t.Fatalf("expected 1 type, got %d", len(decoded.Types))
	}
	if !decoded.Types[0].Equal(m.Types[0]) {
		t.Fatalf("type mismatch: got %v want %v", decoded.Types[0], m.Types[0])
	}
	if len(decoded.Code) != 1 || len(decoded.Code[0].Body) != 4 {
		t.Fatalf("unexpected code section: %+v", decoded.Code)
	}
	if decoded.Code[0].Body[2].Op != wasm.OpI32Add {
		t.Fatalf("expected i32.add at index 2, got %s", decoded.Code[0].Body[2].Op)
	}

	reencoded := EncodeModule(decoded)
	if !bytes.Equal(encoded, reencoded) {
		t.Fatalf("re-encoding a decoded module is not byte-identical")
	}
}

func TestLEB128RoundtripSigned(t *testing.T) {
	cases := []int64{0, 1, -1, 127, -128, 128, -129, 1 << 33, -(1 << 33)}
	for _, v := range cases {
		buf := appendVarint(nil, v)
		r := newReader(buf)
		got, err := r.varint64(64)
		if err != nil {
			t.Fatalf("varint64(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("varint64 roundtrip: got %d want %d", got, v)
		}
	}
}

func TestLEB128RoundtripUnsigned(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 1 << 20, 1 << 33}
	for _, v := range cases {
		buf := appendUvarint(nil, v)
		r := newReader(buf)
		got, err := r.uvarint64(64)
		if err != nil {
			t.Fatalf("uvarint64(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("uvarint64 roundtrip: got %d want %d", got, v)
		}
	}
}

func TestDecodeModuleRejectsBadMagic(t *testing.T) {
	_, err := DecodeModule([]byte{0x00, 0x00, 0x00, 0x00})
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestDecodeModuleRejectsRefTypes(t *testing.T) {
	m := minimalModule()
	m.Code[0].Body = []wasm.Instr{
		{Op: wasm.OpRefNull},
		{Op: wasm.OpEnd},
	}
	encoded := EncodeModule(m)
	_, err := DecodeModule(encoded)
	if err == nil {
		t.Fatal("expected error decoding ref.null")
	}
}
