package binary

import (
	"math"

	"github.com/wastrumentation/wastrument/internal/wasm"
)

// EncodeModule serializes the shared data model back into Wasm binary
// bytes. Section order follows the canonical MVP layout; EncodeModule is
// the total inverse of DecodeModule up to custom-section placement (all
// custom sections are re-emitted after the Data section).
func EncodeModule(m *wasm.Module) []byte {
	out := make([]byte, 0, 4096)
	out = append(out, magic[:]...)
	out = append(out, version[:]...)

	if len(m.Types) > 0 {
		out = appendSection(out, sectionType, encodeTypeSection(m))
	}
	if len(m.Imports) > 0 {
		out = appendSection(out, sectionImport, encodeImportSection(m))
	}
	if len(m.Funcs) > 0 {
		out = appendSection(out, sectionFunction, encodeFunctionSection(m))
	}
	if len(m.Tables) > 0 {
		out = appendSection(out, sectionTable, encodeTableSection(m))
	}
	if len(m.Mems) > 0 {
		out = appendSection(out, sectionMemory, encodeMemorySection(m))
	}
	if len(m.Globals) > 0 {
		out = appendSection(out, sectionGlobal, encodeGlobalSection(m))
	}
	if len(m.Exports) > 0 {
		out = appendSection(out, sectionExport, encodeExportSection(m))
	}
	if m.Start != nil {
		out = appendSection(out, sectionStart, appendUvarint(nil, uint64(*m.Start)))
	}
	if len(m.Elements) > 0 {
		out = appendSection(out, sectionElement, encodeElementSection(m))
	}
	if len(m.Code) > 0 {
		out = appendSection(out, sectionCode, encodeCodeSection(m))
	}
	if len(m.Data) > 0 {
		out = appendSection(out, sectionData, encodeDataSection(m))
	}
	for _, c := range m.Customs {
		body := appendUvarint(nil, uint64(len(c.Name)))
		body = append(body, c.Name...)
		body = append(body, c.Bytes...)
		out = appendSection(out, sectionCustom, body)
	}
	return out
}

func appendSection(out []byte, id uint8, body []byte) []byte {
	out = append(out, id)
	out = appendUvarint(out, uint64(len(body)))
	return append(out, body...)
}

func encodeName(out []byte, s string) []byte {
	out = appendUvarint(out, uint64(len(s)))
	return append(out, s...)
}

func encodeValueKindVec(out []byte, ks []wasm.ValueKind) []byte {
	out = appendUvarint(out, uint64(len(ks)))
	for _, k := range ks {
		out = append(out, encodeValueKind(k))
	}
	return out
}

func encodeLimits(out []byte, l wasm.Limits) []byte {
	if l.HasMax {
		out = append(out, 1)
		out = appendUvarint(out, uint64(l.Min))
		out = appendUvarint(out, uint64(l.Max))
	} else {
		out = append(out, 0)
		out = appendUvarint(out, uint64(l.Min))
	}
	return out
}

func encodeGlobalType(out []byte, gt wasm.GlobalType) []byte {
	out = append(out, encodeValueKind(gt.Kind))
	if gt.Mutable {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	return out
}

func encodeTypeSection(m *wasm.Module) []byte {
	out := appendUvarint(nil, uint64(len(m.Types)))
	for _, ft := range m.Types {
		out = append(out, 0x60)
		out = encodeValueKindVec(out, ft.Params)
		out = encodeValueKindVec(out, ft.Results)
	}
	return out
}

func encodeImportSection(m *wasm.Module) []byte {
	out := appendUvarint(nil, uint64(len(m.Imports)))
	for _, imp := range m.Imports {
		out = encodeName(out, imp.Module)
		out = encodeName(out, imp.Name)
		switch {
		case imp.IsFunc:
			out = append(out, 0)
			out = appendUvarint(out, uint64(imp.FuncType))
		case imp.IsTable:
			out = append(out, 1)
			out = append(out, imp.Table.ElemKind)
			out = encodeLimits(out, imp.Table.Limits)
		case imp.IsMemory:
			out = append(out, 2)
			out = encodeLimits(out, imp.Memory)
		case imp.IsGlobal:
			out = append(out, 3)
			out = encodeGlobalType(out, imp.Global)
		}
	}
	return out
}

func encodeFunctionSection(m *wasm.Module) []byte {
	out := appendUvarint(nil, uint64(len(m.Funcs)))
	for _, idx := range m.Funcs {
		out = appendUvarint(out, uint64(idx))
	}
	return out
}

func encodeTableSection(m *wasm.Module) []byte {
	out := appendUvarint(nil, uint64(len(m.Tables)))
	for _, t := range m.Tables {
		out = append(out, t.ElemKind)
		out = encodeLimits(out, t.Limits)
	}
	return out
}

func encodeMemorySection(m *wasm.Module) []byte {
	out := appendUvarint(nil, uint64(len(m.Mems)))
	for _, l := range m.Mems {
		out = encodeLimits(out, l)
	}
	return out
}

func encodeGlobalSection(m *wasm.Module) []byte {
	out := appendUvarint(nil, uint64(len(m.Globals)))
	for _, g := range m.Globals {
		out = encodeGlobalType(out, g.Type)
		out = encodeInstrs(out, g.Init)
	}
	return out
}

func encodeExportSection(m *wasm.Module) []byte {
	out := appendUvarint(nil, uint64(len(m.Exports)))
	for _, e := range m.Exports {
		out = encodeName(out, e.Name)
		out = append(out, byte(e.Kind))
		out = appendUvarint(out, uint64(e.Index))
	}
	return out
}

func encodeElementSection(m *wasm.Module) []byte {
	out := appendUvarint(nil, uint64(len(m.Elements)))
	for _, el := range m.Elements {
		out = appendUvarint(out, 0) // flags: active, table index 0
		out = encodeInstrs(out, el.Offset)
		out = appendUvarint(out, uint64(len(el.Funcs)))
		for _, f := range el.Funcs {
			out = appendUvarint(out, uint64(f))
		}
	}
	return out
}

func encodeDataSection(m *wasm.Module) []byte {
	out := appendUvarint(nil, uint64(len(m.Data)))
	for _, d := range m.Data {
		out = appendUvarint(out, 0) // flags: active, memory index 0
		out = encodeInstrs(out, d.Offset)
		out = appendUvarint(out, uint64(len(d.Bytes)))
		out = append(out, d.Bytes...)
	}
	return out
}

func encodeCodeSection(m *wasm.Module) []byte {
	out := appendUvarint(nil, uint64(len(m.Code)))
	for _, c := range m.Code {
		body := encodeLocals(c.Locals)
		body = encodeInstrs(body, c.Body)
		out = appendUvarint(out, uint64(len(body)))
		out = append(out, body...)
	}
	return out
}

// encodeLocals re-run-length-encodes the expanded per-local kind slice into
// (count, kind) groups, coalescing adjacent locals of the same kind.
func encodeLocals(locals []wasm.ValueKind) []byte {
	type group struct {
		kind  wasm.ValueKind
		count uint32
	}
	var groups []group
	for _, k := range locals {
		if len(groups) > 0 && groups[len(groups)-1].kind == k {
			groups[len(groups)-1].count++
		} else {
			groups = append(groups, group{kind: k, count: 1})
		}
	}
	out := appendUvarint(nil, uint64(len(groups)))
	for _, g := range groups {
		out = appendUvarint(out, uint64(g.count))
		out = append(out, encodeValueKind(g.kind))
	}
	return out
}

func encodeBlockType(out []byte, bt wasm.BlockType) []byte {
	switch {
	case bt.Empty:
		return append(out, 0x40)
	case bt.HasKind:
		return append(out, encodeValueKind(bt.ValKind))
	default:
		return appendVarint(out, int64(bt.TypeIdx))
	}
}

func encodeInstrs(out []byte, instrs []wasm.Instr) []byte {
	for _, instr := range instrs {
		out = encodeInstr(out, instr)
	}
	return out
}

func encodeInstr(out []byte, instr wasm.Instr) []byte {
	out = append(out, byte(instr.Op))
	switch instr.Op {
	case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
		out = encodeBlockType(out, instr.Block)

	case wasm.OpBr, wasm.OpBrIf:
		out = appendUvarint(out, uint64(instr.Label))

	case wasm.OpBrTable:
		out = appendUvarint(out, uint64(len(instr.Labels)))
		for _, l := range instr.Labels {
			out = appendUvarint(out, uint64(l))
		}
		out = appendUvarint(out, uint64(instr.DefaultLabel))

	case wasm.OpCall:
		out = appendUvarint(out, uint64(instr.Func))

	case wasm.OpCallIndirect:
		out = appendUvarint(out, uint64(instr.Type))
		out = appendUvarint(out, uint64(instr.Table))

	case wasm.OpLocalGet, wasm.OpLocalSet, wasm.OpLocalTee:
		out = appendUvarint(out, uint64(instr.Local))

	case wasm.OpGlobalGet, wasm.OpGlobalSet:
		out = appendUvarint(out, uint64(instr.Global))

	case wasm.OpMemorySize, wasm.OpMemoryGrow:
		out = append(out, 0x00)

	case wasm.OpI32Const:
		out = appendVarint(out, int64(instr.I32))

	case wasm.OpI64Const:
		out = appendVarint(out, instr.I64)

	case wasm.OpF32Const:
		bits := math.Float32bits(instr.F32)
		out = append(out, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))

	case wasm.OpF64Const:
		bits := math.Float64bits(instr.F64)
		for i := 0; i < 8; i++ {
			out = append(out, byte(bits>>(8*i)))
		}

	default:
		if instr.Op.IsLoad() || instr.Op.IsStore() {
			out = appendUvarint(out, uint64(instr.Mem.Align))
			out = appendUvarint(out, instr.Mem.Offset)
		}
	}
	return out
}
