package binary

import (
	"fmt"

	"github.com/wastrumentation/wastrument/internal/wasm"
)

const (
	sectionCustom uint8 = iota
	sectionType
	sectionImport
	sectionFunction
	sectionTable
	sectionMemory
	sectionGlobal
	sectionExport
	sectionStart
	sectionElement
	sectionCode
	sectionData
)

var magic = [4]byte{0x00, 0x61, 0x73, 0x6D}
var version = [4]byte{0x01, 0x00, 0x00, 0x00}

// DecodeModule parses a well-formed Wasm binary into the shared data model.
// It performs no validation beyond what structural decoding requires;
// deeper type-directed checks are the nesting parser's job.
func DecodeModule(data []byte) (*wasm.Module, error) {
	r := newReader(data)
	hdr, err := r.bytesN(8)
	if err != nil {
		return nil, fmt.Errorf("binary: %w", err)
	}
	for i := 0; i < 4; i++ {
		if hdr[i] != magic[i] {
			return nil, fmt.Errorf("binary: bad magic number")
		}
	}
	for i := 0; i < 4; i++ {
		if hdr[4+i] != version[i] {
			return nil, fmt.Errorf("binary: unsupported version")
		}
	}

	m := &wasm.Module{}
	var funcTypeIdxs []wasm.TypeIndex

	for !r.eof() {
		id, err := r.byte()
		if err != nil {
			return nil, err
		}
		size, err := r.uvarint32()
		if err != nil {
			return nil, fmt.Errorf("binary: section %d size: %w", id, err)
		}
		body, err := r.bytesN(int(size))
		if err != nil {
			return nil, fmt.Errorf("binary: section %d body: %w", id, err)
		}
		sr := newReader(body)

		switch id {
		case sectionCustom:
			name, err := sr.name()
			if err != nil {
				return nil, fmt.Errorf("binary: custom section name: %w", err)
			}
			m.Customs = append(m.Customs, wasm.Custom{Name: name, Bytes: body[sr.pos:]})

		case sectionType:
			n, err := sr.uvarint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				ft, err := decodeFuncType(sr)
				if err != nil {
					return nil, fmt.Errorf("binary: type[%d]: %w", i, err)
				}
				m.Types = append(m.Types, ft)
			}

		case sectionImport:
			n, err := sr.uvarint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				imp, err := decodeImport(sr)
				if err != nil {
					return nil, fmt.Errorf("binary: import[%d]: %w", i, err)
				}
				m.Imports = append(m.Imports, imp)
			}

		case sectionFunction:
			n, err := sr.uvarint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				idx, err := sr.uvarint32()
				if err != nil {
					return nil, err
				}
				funcTypeIdxs = append(funcTypeIdxs, wasm.TypeIndex(idx))
			}

		case sectionTable:
			n, err := sr.uvarint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				elemKind, err := sr.byte()
				if err != nil {
					return nil, err
				}
				limits, err := decodeLimits(sr)
				if err != nil {
					return nil, err
				}
				m.Tables = append(m.Tables, wasm.TableType{ElemKind: elemKind, Limits: limits})
			}

		case sectionMemory:
			n, err := sr.uvarint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				limits, err := decodeLimits(sr)
				if err != nil {
					return nil, err
				}
				m.Mems = append(m.Mems, limits)
			}

		case sectionGlobal:
			n, err := sr.uvarint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				gt, err := decodeGlobalType(sr)
				if err != nil {
					return nil, err
				}
				init, err := decodeExpr(sr)
				if err != nil {
					return nil, fmt.Errorf("binary: global[%d] init: %w", i, err)
				}
				m.Globals = append(m.Globals, wasm.Global{Type: gt, Init: init})
			}

		case sectionExport:
			n, err := sr.uvarint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				name, err := sr.name()
				if err != nil {
					return nil, err
				}
				kind, err := sr.byte()
				if err != nil {
					return nil, err
				}
				idx, err := sr.uvarint32()
				if err != nil {
					return nil, err
				}
				m.Exports = append(m.Exports, wasm.Export{Name: name, Kind: wasm.ExternKind(kind), Index: idx})
			}

		case sectionStart:
			idx, err := sr.uvarint32()
			if err != nil {
				return nil, err
			}
			fi := wasm.FuncIndex(idx)
			m.Start = &fi

		case sectionElement:
			n, err := sr.uvarint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				el, err := decodeElement(sr)
				if err != nil {
					return nil, fmt.Errorf("binary: element[%d]: %w", i, err)
				}
				m.Elements = append(m.Elements, el)
			}

		case sectionCode:
			n, err := sr.uvarint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				code, err := decodeCode(sr)
				if err != nil {
					return nil, fmt.Errorf("binary: code[%d]: %w", i, err)
				}
				m.Code = append(m.Code, code)
			}

		case sectionData:
			n, err := sr.uvarint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				d, err := decodeData(sr)
				if err != nil {
					return nil, fmt.Errorf("binary: data[%d]: %w", i, err)
				}
				m.Data = append(m.Data, d)
			}

		default:
			return nil, fmt.Errorf("binary: unknown section id %d", id)
		}
	}

	m.Funcs = funcTypeIdxs
	return m, nil
}

func decodeValueKind(b byte) (wasm.ValueKind, error) {
	switch b {
	case 0x7F:
		return wasm.I32, nil
	case 0x7E:
		return wasm.I64, nil
	case 0x7D:
		return wasm.F32, nil
	case 0x7C:
		return wasm.F64, nil
	default:
		return 0, fmt.Errorf("binary: unsupported value type 0x%02x (reference/vector/GC kinds are rejected)", b)
	}
}

func encodeValueKind(k wasm.ValueKind) byte {
	switch k {
	case wasm.I32:
		return 0x7F
	case wasm.I64:
		return 0x7E
	case wasm.F32:
		return 0x7D
	case wasm.F64:
		return 0x7C
	default:
		panic("binary: invalid value kind")
	}
}

func decodeFuncType(r *reader) (wasm.FunctionType, error) {
	tag, err := r.byte()
	if err != nil {
		return wasm.FunctionType{}, err
	}
	if tag != 0x60 {
		return wasm.FunctionType{}, fmt.Errorf("binary: expected func type tag 0x60, got 0x%02x", tag)
	}
	params, err := decodeValueKindVec(r)
	if err != nil {
		return wasm.FunctionType{}, err
	}
	results, err := decodeValueKindVec(r)
	if err != nil {
		return wasm.FunctionType{}, err
	}
	return wasm.FunctionType{Params: params, Results: results}, nil
}

func decodeValueKindVec(r *reader) ([]wasm.ValueKind, error) {
	n, err := r.uvarint32()
	if err != nil {
		return nil, err
	}
	kinds := make([]wasm.ValueKind, n)
	for i := uint32(0); i < n; i++ {
		b, err := r.byte()
		if err != nil {
			return nil, err
		}
		k, err := decodeValueKind(b)
		if err != nil {
			return nil, err
		}
		kinds[i] = k
	}
	return kinds, nil
}

func decodeLimits(r *reader) (wasm.Limits, error) {
	tag, err := r.byte()
	if err != nil {
		return wasm.Limits{}, err
	}
	min, err := r.uvarint32()
	if err != nil {
		return wasm.Limits{}, err
	}
	l := wasm.Limits{Min: min}
	if tag == 1 {
		max, err := r.uvarint32()
		if err != nil {
			return wasm.Limits{}, err
		}
		l.Max = max
		l.HasMax = true
	}
	return l, nil
}

func decodeGlobalType(r *reader) (wasm.GlobalType, error) {
	kb, err := r.byte()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	k, err := decodeValueKind(kb)
	if err != nil {
		return wasm.GlobalType{}, err
	}
	mb, err := r.byte()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	return wasm.GlobalType{Kind: k, Mutable: mb == 1}, nil
}

func decodeImport(r *reader) (wasm.Import, error) {
	mod, err := r.name()
	if err != nil {
		return wasm.Import{}, err
	}
	name, err := r.name()
	if err != nil {
		return wasm.Import{}, err
	}
	kind, err := r.byte()
	if err != nil {
		return wasm.Import{}, err
	}
	imp := wasm.Import{Module: mod, Name: name}
	switch kind {
	case 0:
		idx, err := r.uvarint32()
		if err != nil {
			return wasm.Import{}, err
		}
		imp.IsFunc = true
		imp.FuncType = wasm.TypeIndex(idx)
	case 1:
		elemKind, err := r.byte()
		if err != nil {
			return wasm.Import{}, err
		}
		limits, err := decodeLimits(r)
		if err != nil {
			return wasm.Import{}, err
		}
		imp.IsTable = true
		imp.Table = wasm.TableType{ElemKind: elemKind, Limits: limits}
	case 2:
		limits, err := decodeLimits(r)
		if err != nil {
			return wasm.Import{}, err
		}
		imp.IsMemory = true
		imp.Memory = limits
	case 3:
		gt, err := decodeGlobalType(r)
		if err != nil {
			return wasm.Import{}, err
		}
		imp.IsGlobal = true
		imp.Global = gt
	default:
		return wasm.Import{}, fmt.Errorf("binary: unknown import kind %d", kind)
	}
	return imp, nil
}

func decodeElement(r *reader) (wasm.Element, error) {
	flags, err := r.uvarint32()
	if err != nil {
		return wasm.Element{}, err
	}
	if flags != 0 {
		return wasm.Element{}, fmt.Errorf("binary: only active element segments with table index 0 are supported (flags=%d)", flags)
	}
	offset, err := decodeExpr(r)
	if err != nil {
		return wasm.Element{}, err
	}
	n, err := r.uvarint32()
	if err != nil {
		return wasm.Element{}, err
	}
	funcs := make([]wasm.FuncIndex, n)
	for i := uint32(0); i < n; i++ {
		idx, err := r.uvarint32()
		if err != nil {
			return wasm.Element{}, err
		}
		funcs[i] = wasm.FuncIndex(idx)
	}
	return wasm.Element{Table: 0, Offset: offset, Funcs: funcs}, nil
}

func decodeData(r *reader) (wasm.Data, error) {
	flags, err := r.uvarint32()
	if err != nil {
		return wasm.Data{}, err
	}
	if flags != 0 {
		return wasm.Data{}, fmt.Errorf("binary: only active data segments with memory index 0 are supported (flags=%d)", flags)
	}
	offset, err := decodeExpr(r)
	if err != nil {
		return wasm.Data{}, err
	}
	n, err := r.uvarint32()
	if err != nil {
		return wasm.Data{}, err
	}
	b, err := r.bytesN(int(n))
	if err != nil {
		return wasm.Data{}, err
	}
	return wasm.Data{Mem: 0, Offset: offset, Bytes: append([]byte(nil), b...)}, nil
}

func decodeCode(r *reader) (wasm.Code, error) {
	size, err := r.uvarint32()
	if err != nil {
		return wasm.Code{}, err
	}
	body, err := r.bytesN(int(size))
	if err != nil {
		return wasm.Code{}, err
	}
	br := newReader(body)

	localGroups, err := br.uvarint32()
	if err != nil {
		return wasm.Code{}, err
	}
	var locals []wasm.ValueKind
	for i := uint32(0); i < localGroups; i++ {
		count, err := br.uvarint32()
		if err != nil {
			return wasm.Code{}, err
		}
		kb, err := br.byte()
		if err != nil {
			return wasm.Code{}, err
		}
		k, err := decodeValueKind(kb)
		if err != nil {
			return wasm.Code{}, err
		}
		for j := uint32(0); j < count; j++ {
			locals = append(locals, k)
		}
	}

	instrs, err := decodeInstrs(br)
	if err != nil {
		return wasm.Code{}, err
	}
	return wasm.Code{Locals: locals, Body: instrs}, nil
}

// decodeExpr decodes a constant init expression: instructions up to and
// including the terminating End.
func decodeExpr(r *reader) ([]wasm.Instr, error) {
	return decodeInstrs(r)
}

// decodeInstrs decodes a flat instruction stream to its end-of-buffer (a
// function body or init expression), including the terminating End
// instruction that closes the outermost frame.
func decodeInstrs(r *reader) ([]wasm.Instr, error) {
	var out []wasm.Instr
	depth := 1 // the implicit outer frame; decremented on each unmatched End
	for {
		instr, err := decodeInstr(r)
		if err != nil {
			return nil, err
		}
		out = append(out, instr)
		switch instr.Op {
		case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
			depth++
		case wasm.OpEnd:
			depth--
			if depth == 0 {
				return out, nil
			}
		}
		if r.eof() && depth != 0 {
			return nil, fmt.Errorf("binary: body ended without matching End (depth=%d)", depth)
		}
	}
}

func decodeBlockType(r *reader) (wasm.BlockType, error) {
	// Peek without consuming on failure paths is unnecessary here: the
	// block type encoding is a single varint whose value space disjointly
	// covers 0x40 (empty), value kinds (0x7C-0x7F), and non-negative type
	// indices (encoded as a signed LEB128, i.e. always >= 0 for type uses).
	v, err := r.varint64(33)
	if err != nil {
		return wasm.BlockType{}, err
	}
	switch v {
	case -0x40:
		return wasm.EmptyBlockType(), nil
	case -1:
		return wasm.ValueBlockType(wasm.I32), nil
	case -2:
		return wasm.ValueBlockType(wasm.I64), nil
	case -3:
		return wasm.ValueBlockType(wasm.F32), nil
	case -4:
		return wasm.ValueBlockType(wasm.F64), nil
	default:
		if v < 0 {
			return wasm.BlockType{}, fmt.Errorf("binary: unsupported block type encoding %d", v)
		}
		return wasm.IndexBlockType(wasm.TypeIndex(v)), nil
	}
}

func decodeInstr(r *reader) (wasm.Instr, error) {
	opByte, err := r.byte()
	if err != nil {
		return wasm.Instr{}, err
	}
	op := wasm.Opcode(opByte)

	if op.IsUnsupported() {
		return wasm.Instr{}, fmt.Errorf("binary: unsupported instruction %s (reference types are out of instrumentation scope)", op)
	}

	instr := wasm.Instr{Op: op}

	switch op {
	case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
		bt, err := decodeBlockType(r)
		if err != nil {
			return wasm.Instr{}, err
		}
		instr.Block = bt

	case wasm.OpBr, wasm.OpBrIf:
		l, err := r.uvarint32()
		if err != nil {
			return wasm.Instr{}, err
		}
		instr.Label = wasm.LabelIndex(l)

	case wasm.OpBrTable:
		n, err := r.uvarint32()
		if err != nil {
			return wasm.Instr{}, err
		}
		labels := make([]wasm.LabelIndex, n)
		for i := uint32(0); i < n; i++ {
			l, err := r.uvarint32()
			if err != nil {
				return wasm.Instr{}, err
			}
			labels[i] = wasm.LabelIndex(l)
		}
		def, err := r.uvarint32()
		if err != nil {
			return wasm.Instr{}, err
		}
		instr.Labels = labels
		instr.DefaultLabel = wasm.LabelIndex(def)

	case wasm.OpCall:
		f, err := r.uvarint32()
		if err != nil {
			return wasm.Instr{}, err
		}
		instr.Func = wasm.FuncIndex(f)

	case wasm.OpCallIndirect:
		t, err := r.uvarint32()
		if err != nil {
			return wasm.Instr{}, err
		}
		tbl, err := r.uvarint32()
		if err != nil {
			return wasm.Instr{}, err
		}
		instr.Type = wasm.TypeIndex(t)
		instr.Table = wasm.TableIndex(tbl)

	case wasm.OpLocalGet, wasm.OpLocalSet, wasm.OpLocalTee:
		l, err := r.uvarint32()
		if err != nil {
			return wasm.Instr{}, err
		}
		instr.Local = wasm.LocalIndex(l)

	case wasm.OpGlobalGet, wasm.OpGlobalSet:
		g, err := r.uvarint32()
		if err != nil {
			return wasm.Instr{}, err
		}
		instr.Global = wasm.GlobalIndex(g)

	case wasm.OpMemorySize, wasm.OpMemoryGrow:
		_, err := r.byte() // reserved memory-index byte, always 0x00 in the MVP
		if err != nil {
			return wasm.Instr{}, err
		}

	case wasm.OpI32Const:
		v, err := r.varint32()
		if err != nil {
			return wasm.Instr{}, err
		}
		instr.I32 = v

	case wasm.OpI64Const:
		v, err := r.varint64(64)
		if err != nil {
			return wasm.Instr{}, err
		}
		instr.I64 = v

	case wasm.OpF32Const:
		v, err := r.f32()
		if err != nil {
			return wasm.Instr{}, err
		}
		instr.F32 = v

	case wasm.OpF64Const:
		v, err := r.f64()
		if err != nil {
			return wasm.Instr{}, err
		}
		instr.F64 = v

	default:
		if op.IsLoad() || op.IsStore() {
			align, err := r.uvarint32()
			if err != nil {
				return wasm.Instr{}, err
			}
			offset, err := r.uvarint64(32)
			if err != nil {
				return wasm.Instr{}, err
			}
			instr.Mem = wasm.MemArg{Align: align, Offset: offset}
		}
		// all remaining opcodes (control Unreachable/Nop/Else/End/Return,
		// parametric Drop/Select, and the fixed-arity numeric ops) carry
		// no immediates.
	}

	return instr, nil
}
