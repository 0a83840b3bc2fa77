// Package signature catalogs the distinct function signatures exercised by
// a module's functions (declared and imported alike) and fixes, for each
// one, the canonical name and value-buffer layout the trampoline generator
// builds its ABI around.
package signature

import (
	"fmt"
	"strings"

	"github.com/wastrumentation/wastrument/internal/wasm"
)

// Signature is a function's parameter- and result-kind lists, the unit the
// catalog collapses duplicates over.
type Signature struct {
	Results []wasm.ValueKind
	Params  []wasm.ValueKind
}

func fromFunctionType(ft wasm.FunctionType) Signature {
	return Signature{Results: ft.Results, Params: ft.Params}
}

func (s Signature) equal(other Signature) bool {
	return kindsEqual(s.Results, other.Results) && kindsEqual(s.Params, other.Params)
}

func kindsEqual(a, b []wasm.ValueKind) bool {
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

// Name is the canonical `ret_<R>_arg_<A>` suffix the trampoline generator
// appends to every helper it emits for this signature.
func (s Signature) Name() string {
	return fmt.Sprintf("ret_%s_arg_%s", joinKinds(s.Results), joinKinds(s.Params))
}

func joinKinds(ks []wasm.ValueKind) string {
	parts := make([]string, len(ks))
	for i, k := range ks {
		parts[i] = k.String()
	}
	return strings.Join(parts, "_")
}

// Entry is one catalog slot: a signature plus its value-buffer layout.
// Offsets are computed once, results first starting at 0 and then
// parameters immediately following, each value occupying exactly
// ValueKind.Size() bytes with no padding.
type Entry struct {
	Signature     Signature
	ResultOffsets []int
	ParamOffsets  []int
	BufferSize    int
}

func buildEntry(s Signature) Entry {
	offset := 0
	resultOffsets := make([]int, len(s.Results))
	for i, k := range s.Results {
		resultOffsets[i] = offset
		offset += k.Size()
	}
	paramOffsets := make([]int, len(s.Params))
	for i, k := range s.Params {
		paramOffsets[i] = offset
		offset += k.Size()
	}
	return Entry{Signature: s, ResultOffsets: resultOffsets, ParamOffsets: paramOffsets, BufferSize: offset}
}

// Catalog is the deduplicated set of signatures discovered in a module,
// in first-seen order (stable, so two builds of the same module produce
// byte-identical trampoline output).
type Catalog struct {
	entries []Entry
}

// Len reports the number of distinct signatures in the catalog.
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns the catalog's entries in catalog order.
func (c *Catalog) Entries() []Entry { return c.entries }

// Lookup returns the entry for a signature, adding it if not already
// present. The returned index is stable for the lifetime of the catalog.
func (c *Catalog) Lookup(ft wasm.FunctionType) (Entry, int) {
	s := fromFunctionType(ft)
	for i, e := range c.entries {
		if e.Signature.equal(s) {
			return e, i
		}
	}
	e := buildEntry(s)
	c.entries = append(c.entries, e)
	return e, len(c.entries) - 1
}

// Build enumerates the signatures of every function in m's shared index
// space — imported and module-defined alike — collapsing duplicates.
func Build(m *wasm.Module) *Catalog {
	c := &Catalog{}
	for _, imp := range m.Imports {
		if imp.IsFunc {
			c.Lookup(m.Types[imp.FuncType])
		}
	}
	for _, typeIdx := range m.Funcs {
		c.Lookup(m.Types[typeIdx])
	}
	return c
}

// Fingerprint deterministically summarizes the catalog's signature set (its
// canonical names, in catalog order) for use as a cache key by anything
// that memoizes work keyed only on the signature set, not the functions'
// bodies — see internal/cache.
func (c *Catalog) Fingerprint() string {
	var b strings.Builder
	for i, e := range c.entries {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(e.Signature.Name())
	}
	return b.String()
}
