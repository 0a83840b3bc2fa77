package analysisiface

import (
	"github.com/wastrumentation/wastrument/internal/wasm"
	"github.com/wastrumentation/wastrument/internal/werr"
)

// Validate checks that m exports every ExportSpec in set with a matching
// signature, failing with AnalysisInterfaceMismatch at the first missing
// or mismatched export.
func Validate(m *wasm.Module, set *Set) error {
	for _, spec := range set.Exports {
		exp, ok := findExport(m, spec.Name)
		if !ok {
			return werr.New(werr.KindAnalysisInterfaceMismatch,
				"analysis is missing required export %q", spec.Name)
		}
		if exp.Kind != wasm.ExternFunc {
			return werr.New(werr.KindAnalysisInterfaceMismatch,
				"analysis export %q is not a function", spec.Name)
		}
		ft, ok := m.FuncType(wasm.FuncIndex(exp.Index))
		if !ok {
			return werr.New(werr.KindAnalysisInterfaceMismatch,
				"analysis export %q has no resolvable signature", spec.Name)
		}
		if !ft.Equal(spec.Type) {
			return werr.New(werr.KindAnalysisInterfaceMismatch,
				"analysis export %q has signature %s, expected %s", spec.Name, signatureString(ft), signatureString(spec.Type))
		}
	}
	return nil
}

func findExport(m *wasm.Module, name string) (wasm.Export, bool) {
	for _, e := range m.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return wasm.Export{}, false
}

func signatureString(ft wasm.FunctionType) string {
	return kindsString(ft.Params) + "->" + kindsString(ft.Results)
}

func kindsString(ks []wasm.ValueKind) string {
	out := make([]byte, 0, len(ks))
	for _, k := range ks {
		switch k {
		case wasm.I32:
			out = append(out, 'i')
		case wasm.I64:
			out = append(out, 'I')
		case wasm.F32:
			out = append(out, 'f')
		case wasm.F64:
			out = append(out, 'F')
		default:
			out = append(out, '?')
		}
	}
	return string(out)
}
