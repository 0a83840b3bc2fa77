// Package nesting turns a function body's flat instruction list into a tree
// that makes block/loop/if structure explicit, and back. Every other
// component that needs to reason about control structure (the rewriters in
// particular) walks this tree instead of re-deriving nesting from a stack of
// Block/Loop/If/Else/End markers itself.
package nesting

import "github.com/wastrumentation/wastrument/internal/wasm"

// Node is one element of a body: either a leaf instruction or a structured
// control construct carrying its own nested bodies.
type Node interface {
	node()
}

// Leaf wraps a single flat instruction that carries no nested body:
// anything other than block/loop/if. Index is the instruction's position in
// the original flat body, preserved for diagnostics and Location values.
type Leaf struct {
	Index int
	Instr wasm.Instr
}

func (Leaf) node() {}

// Block is a `block ... end` construct.
type Block struct {
	Index int // position of the opening `block` instruction
	Type  wasm.BlockType
	Body  []Node
}

func (Block) node() {}

// Loop is a `loop ... end` construct.
type Loop struct {
	Index int // position of the opening `loop` instruction
	Type  wasm.BlockType
	Body  []Node
}

func (Loop) node() {}

// If is an `if ... [else ...] end` construct. Else is nil when the source
// had no else arm (equivalent to an empty one per the MVP semantics).
type If struct {
	Index int // position of the opening `if` instruction
	Type  wasm.BlockType
	Then  []Node
	Else  []Node
}

func (If) node() {}

// HasElse reports whether the if carried an explicit else arm.
func (n If) HasElse() bool { return n.Else != nil }
