package shader

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
)

// ShaderType identifies the pipeline stage of a shader entry point.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
// It holds the processed source and the contract parsed from it.
type shader struct {
	label     string
	rawSource string
	source    string
	contract  Contract

	pp          PreProcessor
	validator   *Validator
	expectation *Expectation
	logger      *slog.Logger
}

// Shader defines the interface for a pre-processed render shader holding a vertex and a
// fragment entry point. It exposes the processed WGSL, the parsed contract and the module
// descriptor needed for pipeline creation.
type Shader interface {
	// Label returns the shader label used in diagnostics and GPU object names.
	//
	// Returns:
	//   - string: the shader label
	Label() string

	// Source retrieves the pre-processed WGSL source code, with @oxy annotations expanded.
	//
	// Returns:
	//   - string: the WGSL source code handed to the driver
	Source() string

	// RawSource retrieves the WGSL source as it was given to NewShader.
	//
	// Returns:
	//   - string: the unprocessed source
	RawSource() string

	// VertexEntryPoint returns the name of the @vertex function.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	VertexEntryPoint() string

	// FragmentEntryPoint returns the name of the @fragment function.
	//
	// Returns:
	//   - string: the entry point name (e.g. "fs_main")
	FragmentEntryPoint() string

	// Contract returns the bindings, vertex inputs and struct sizes parsed from the source.
	//
	// Returns:
	//   - Contract: the parsed contract
	Contract() Contract

	// Declarations returns the @oxy:group annotations expanded by the pre-processor, in source order.
	//
	// Returns:
	//   - []Annotation: the binding declarations
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes WGSL source and parses its contract. When a Validator is given
// the processed source is compiled by naga, and when an Expectation is given the contract
// is checked against it. Every failure is returned as a *CompileError.
//
// Parameters:
//   - label: the shader label
//   - source: the raw WGSL source, possibly holding @oxy annotations
//   - options: functional options to configure processing and validation
//
// Returns:
//   - Shader: the processed shader
//   - error: a *CompileError describing the failing stage
func NewShader(label, source string, options ...ShaderOption) (Shader, error) {
	s := &shader{
		label:     label,
		rawSource: source,
		logger:    slog.Default(),
	}
	for _, option := range options {
		option(s)
	}
	if s.pp == nil {
		s.pp = NewPreProcessor(camera.VariantFocal)
	}

	processed, err := s.pp.Process(source)
	if err != nil {
		return nil, NewCompileError(StagePreprocess, label, err)
	}
	s.source = processed

	if s.validator != nil {
		if err := s.validator.Validate(label, processed); err != nil {
			return nil, err
		}
	}

	s.contract = ParseContract(processed)
	if s.expectation != nil {
		if err := s.contract.Check(*s.expectation); err != nil {
			return nil, NewCompileError(StageContract, label, err)
		}
	}
	if s.contract.VertexEntryPoint == "" || s.contract.FragmentEntryPoint == "" {
		return nil, NewCompileError(StageContract, label, fmt.Errorf("a render shader needs both a @vertex and a @fragment entry point"))
	}

	s.logger.Debug("shader processed",
		"label", label,
		"vertex", s.contract.VertexEntryPoint,
		"fragment", s.contract.FragmentEntryPoint,
		"bindings", len(s.contract.Bindings))
	return s, nil
}

func (s *shader) Label() string {
	return s.label
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) RawSource() string {
	return s.rawSource
}

func (s *shader) VertexEntryPoint() string {
	return s.contract.VertexEntryPoint
}

func (s *shader) FragmentEntryPoint() string {
	return s.contract.FragmentEntryPoint
}

func (s *shader) Contract() Contract {
	return s.contract
}

func (s *shader) Declarations() []Annotation {
	return s.pp.Declarations()
}
