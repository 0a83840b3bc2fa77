// Package wasm holds the shared data model for the instrumentation engine:
// value kinds, function signatures, indices, memargs, and the module section
// layout. It is consumed by every other component and never executes Wasm.
package wasm

import "fmt"

// ValueKind is one of the four numeric value types the instrumentation
// surface supports. Reference, vector, and GC kinds are rejected wherever
// they would reach an instrumented edge.
type ValueKind byte

const (
	I32 ValueKind = iota
	I64
	F32
	F64
)

// Size returns the kind's fixed byte size in linear memory.
func (k ValueKind) Size() int {
	switch k {
	case I32, F32:
		return 4
	case I64, F64:
		return 8
	default:
		panic(fmt.Sprintf("wasm: invalid value kind %d", byte(k)))
	}
}

// Tag is the 32-bit tag value used in the trampoline type buffer and in the
// operation-tag argument to load/store traps. Frozen per spec §6.
func (k ValueKind) Tag() int32 {
	switch k {
	case I32:
		return 0
	case F32:
		return 1
	case I64:
		return 2
	case F64:
		return 3
	default:
		panic(fmt.Sprintf("wasm: invalid value kind %d", byte(k)))
	}
}

func (k ValueKind) String() string {
	switch k {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("ValueKind(%d)", byte(k))
	}
}

// KindFromTag inverts ValueKind.Tag, for decoding type-buffer entries.
func KindFromTag(tag int32) (ValueKind, error) {
	switch tag {
	case 0:
		return I32, nil
	case 1:
		return F32, nil
	case 2:
		return I64, nil
	case 3:
		return F64, nil
	default:
		return 0, fmt.Errorf("wasm: unrecognized kind tag %d", tag)
	}
}

// FunctionType is the ordered parameter- and result-kind vectors of a
// function or signature. Identity is by value equality over both slices.
type FunctionType struct {
	Params  []ValueKind
	Results []ValueKind
}

// Equal reports whether two signatures have the same parameter and result
// kind sequences.
func (ft FunctionType) Equal(other FunctionType) bool {
	return kindsEqual(ft.Params, other.Params) && kindsEqual(ft.Results, other.Results)
}

func kindsEqual(a, b []ValueKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (ft FunctionType) String() string {
	return fmt.Sprintf("(%s) -> (%s)", kindsString(ft.Params), kindsString(ft.Results))
}

func kindsString(ks []ValueKind) string {
	s := ""
	for i, k := range ks {
		if i > 0 {
			s += ", "
		}
		s += k.String()
	}
	return s
}

// Index types. All are plain uint32 aliases; distinct names document intent
// and catch accidental cross-namespace mixing at review time.
type (
	TypeIndex     uint32
	FuncIndex     uint32
	TableIndex    uint32
	MemIndex      uint32
	GlobalIndex   uint32
	ElemIndex     uint32
	DataIndex     uint32
	LocalIndex    uint32
	LabelIndex    uint32
)

// MemArg is the static offset/alignment pair carried by every load/store
// instruction.
type MemArg struct {
	Align  uint32
	Offset uint64
}

// Limits bounds a table or memory's size, in table elements or 64KiB pages.
type Limits struct {
	Min uint32
	Max uint32
	HasMax bool
}

// GlobalType is a global's value kind plus mutability.
type GlobalType struct {
	Kind    ValueKind
	Mutable bool
}

// TableType is a table's element kind (only funcref is in-scope) and size
// limits.
type TableType struct {
	ElemKind byte // RefFuncRef, the only supported element kind
	Limits   Limits
}

const RefFuncRef byte = 0x70

// Location identifies a point in a target body. Stable for the duration of
// a single rewrite pass; invalidated once the pass completes.
type Location struct {
	FuncIndex FuncIndex
	InstrIndex int
}

func (l Location) String() string {
	return fmt.Sprintf("func[%d]@%d", l.FuncIndex, l.InstrIndex)
}
