package wasm

// BlockType is the type annotation on a block/loop/if: either an empty
// type, a single value-kind result, or an index into the module's type
// section for a full (params, results) signature.
type BlockType struct {
	Empty    bool
	ValKind  ValueKind
	HasKind  bool
	TypeIdx  TypeIndex
	HasIndex bool
}

func EmptyBlockType() BlockType { return BlockType{Empty: true} }

func ValueBlockType(k ValueKind) BlockType { return BlockType{HasKind: true, ValKind: k} }

func IndexBlockType(idx TypeIndex) BlockType { return BlockType{HasIndex: true, TypeIdx: idx} }

// Instr is one flat instruction, position-bearing by its slice index in a
// Code body. Immediates are interpreted according to Op; at most one of the
// typed immediate fields is meaningful per opcode.
type Instr struct {
	Op Opcode

	// control: block/loop/if
	Block BlockType

	// control: br, br_if
	Label LabelIndex

	// control: br_table
	Labels       []LabelIndex
	DefaultLabel LabelIndex

	// control: call
	Func FuncIndex

	// control: call_indirect
	Type  TypeIndex
	Table TableIndex

	// variable: local.get/set/tee
	Local LocalIndex

	// variable: global.get/set
	Global GlobalIndex

	// memory: load/store
	Mem MemArg

	// numeric consts
	I32 int32
	I64 int64
	F32 float32
	F64 float64
}

// Import describes one imported entity, tagged by which field is set.
type Import struct {
	Module string
	Name   string

	IsFunc   bool
	FuncType TypeIndex

	IsTable bool
	Table   TableType

	IsMemory bool
	Memory   Limits

	IsGlobal bool
	Global   GlobalType
}

// Export describes one exported entity.
type Export struct {
	Name string
	Kind ExternKind
	Index uint32
}

type ExternKind byte

const (
	ExternFunc ExternKind = iota
	ExternTable
	ExternMemory
	ExternGlobal
)

// Code is a module-defined function's locals declaration and flat body.
// Body always ends with exactly one OpEnd closing the function frame.
type Code struct {
	Locals []ValueKind // expanded, one entry per local (not run-length encoded)
	Body   []Instr
}

// Global is a module-defined global with its constant initializer
// expression (a short instruction sequence ending in End; only const and
// global.get of an imported immutable global are legal per the MVP).
type Global struct {
	Type GlobalType
	Init []Instr
}

// Element is an active element segment initializing a table region with
// function indices.
type Element struct {
	Table  TableIndex
	Offset []Instr
	Funcs  []FuncIndex
}

// Data is an active data segment initializing a memory region.
type Data struct {
	Mem    MemIndex
	Offset []Instr
	Bytes  []byte
}

// Custom is an opaque custom section, preserved by the binary codec but
// otherwise ignored by the instrumentation engine except the "name"
// section, which components may read for diagnostics.
type Custom struct {
	Name  string
	Bytes []byte
}

// Module is the shared, in-memory representation of a Wasm binary's
// section model. The nesting parser, rewriters, and merger all operate on
// (or produce) this structure; the binary codec is its only serialization.
type Module struct {
	Types    []FunctionType
	Imports  []Import
	Funcs    []TypeIndex // one TypeIndex per module-defined function, parallel to Code
	Tables   []TableType
	Mems     []Limits
	Globals  []Global
	Exports  []Export
	Start    *FuncIndex
	Elements []Element
	Code     []Code
	Data     []Data
	Customs  []Custom
}

// FuncType resolves the signature of function index idx, accounting for
// the shared index space across imported and module-defined functions.
func (m *Module) FuncType(idx FuncIndex) (FunctionType, bool) {
	importedFuncCount := 0
	for _, imp := range m.Imports {
		if imp.IsFunc {
			if FuncIndex(importedFuncCount) == idx {
				return m.Types[imp.FuncType], true
			}
			importedFuncCount++
		}
	}
	definedIdx := int(idx) - importedFuncCount
	if definedIdx < 0 || definedIdx >= len(m.Funcs) {
		return FunctionType{}, false
	}
	return m.Types[m.Funcs[definedIdx]], true
}

// ImportedFuncCount returns how many functions in the shared function index
// space are imports, i.e. the offset at which module-defined function
// bodies (Code) begin.
func (m *Module) ImportedFuncCount() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.IsFunc {
			n++
		}
	}
	return n
}

// HasBody reports whether function index idx is module-defined (and thus
// has a Code entry) as opposed to imported.
func (m *Module) HasBody(idx FuncIndex) bool {
	return int(idx) >= m.ImportedFuncCount()
}

// CodeOf returns the Code entry for a module-defined function index.
func (m *Module) CodeOf(idx FuncIndex) (*Code, bool) {
	i := int(idx) - m.ImportedFuncCount()
	if i < 0 || i >= len(m.Code) {
		return nil, false
	}
	return &m.Code[i], true
}

// GlobalType resolves the type of global index idx across the shared
// imported/module-defined global index space, mirroring FuncType.
func (m *Module) GlobalType(idx GlobalIndex) (GlobalType, bool) {
	importedCount := 0
	for _, imp := range m.Imports {
		if imp.IsGlobal {
			if GlobalIndex(importedCount) == idx {
				return imp.Global, true
			}
			importedCount++
		}
	}
	definedIdx := int(idx) - importedCount
	if definedIdx < 0 || definedIdx >= len(m.Globals) {
		return GlobalType{}, false
	}
	return m.Globals[definedIdx].Type, true
}

// BlockSignature resolves a block/loop/if type annotation to its concrete
// (params, results) pair.
func (m *Module) BlockSignature(bt BlockType) (params, results []ValueKind) {
	switch {
	case bt.Empty:
		return nil, nil
	case bt.HasKind:
		return nil, []ValueKind{bt.ValKind}
	default:
		ft := m.Types[bt.TypeIdx]
		return ft.Params, ft.Results
	}
}
