package shader

import (
	"errors"
	"fmt"
)

// Stage names the step of shader construction that produced a CompileError.
type Stage string

const (
	// StagePreprocess is a malformed @oxy annotation.
	StagePreprocess Stage = "preprocess"

	// StageNaga is a WGSL syntax or type error reported by the naga front end.
	StageNaga Stage = "naga"

	// StageContract is a mismatch between the shader's bindings and the renderer's payloads.
	StageContract Stage = "contract"

	// StageDriver is a failure reported by the GPU driver while creating the pipeline.
	StageDriver Stage = "driver"
)

// CompileError is a fatal shader error. Diagnostic holds the compiler or checker output
// verbatim so it can be shown to the shader author.
type CompileError struct {
	Stage      Stage
	Label      string
	Diagnostic string
	Err        error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader %q: %s: %s", e.Label, e.Stage, e.Diagnostic)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// NewCompileError wraps err as a CompileError, using its message as the diagnostic.
//
// Parameters:
//   - stage: the failing stage
//   - label: the shader label
//   - err: the underlying error
//
// Returns:
//   - *CompileError: the wrapped error
func NewCompileError(stage Stage, label string, err error) *CompileError {
	return &CompileError{Stage: stage, Label: label, Diagnostic: err.Error(), Err: err}
}

// AsCompileError reports whether err wraps a CompileError and returns it.
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
