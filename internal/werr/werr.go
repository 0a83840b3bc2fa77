// Package werr is the instrumentation engine's error taxonomy. Every stage
// of the pipeline reports failures as a *werr.Error; no stage attempts
// recovery, and errors propagate unchanged up to the orchestrator.
package werr

import (
	"fmt"

	"github.com/wastrumentation/wastrument/internal/wasm"
)

// Kind is the closed set of error kinds a pipeline stage can report.
type Kind string

const (
	KindParse                   Kind = "ParseError"
	KindTypeInference           Kind = "TypeInferenceError"
	KindRewrite                 Kind = "RewriteError"
	KindSignature                Kind = "SignatureError"
	KindUnsupportedFeature       Kind = "UnsupportedFeature"
	KindAnalysisInterfaceMismatch Kind = "AnalysisInterfaceMismatch"
	KindCompileTrampoline        Kind = "CompileTrampolineFailed"
	KindCompileAnalysis          Kind = "CompileAnalysisFailed"
	KindMerge                    Kind = "MergeError"
	KindIO                       Kind = "IoError"
	KindInvalidConfiguration     Kind = "InvalidConfiguration"
)

// Error is the single top-level error sum. Location is the zero value
// (FuncIndex 0, InstrIndex 0) with HasLocation false when no location is
// meaningful for the failure.
type Error struct {
	Kind        Kind
	Reason      string
	Location    wasm.Location
	HasLocation bool
	Cause       error
}

func (e *Error) Error() string {
	if e.HasLocation {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Location, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a location-less error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// At builds an error anchored to a specific (function, instruction) location.
func At(kind Kind, loc wasm.Location, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Location: loc, HasLocation: true}
}

// Wrap builds an error of the given kind wrapping an underlying cause,
// preserving it for errors.Is/As while still surfacing a Kind.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Cause: cause}
}
