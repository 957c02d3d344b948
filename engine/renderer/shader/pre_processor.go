// The pre-processor turns //@oxy: directives into WGSL. Struct text comes from the Go
// packages that own the matching byte layouts, so the shader and the uploaded payloads
// are generated from one definition.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
)

// registryEntry is a struct that directives can include and bind.
type registryEntry struct {
	// Source is the WGSL struct declaration pasted by @oxy:include.
	Source string

	// Type is the struct name used in generated declarations, e.g. "Camera".
	Type string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	structRegistry map[AnnotationArg]registryEntry

	// declarations holds the group directives of the last Process call.
	declarations []Annotation
}

// PreProcessor processes raw WGSL shader source code containing @oxy: annotations,
// replacing them with generated declarations or injected struct sources.
type PreProcessor interface {
	// Process takes raw WGSL shader source code and pre-processes it by replacing
	// @oxy: annotations with their corresponding WGSL output. @oxy:include annotations
	// are replaced with embedded struct source text. @oxy:group annotations are replaced
	// with generated @group/@binding variable declarations.
	//
	// The declarations list is reset at the start of each call and can be retrieved
	// via Declarations() after Process returns.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations to be processed
	//
	// Returns:
	//   - string: the processed WGSL shader source code with annotations replaced
	//   - error: an error if any annotation is malformed or references an unknown type
	Process(source string) (string, error)

	// Declarations returns the @oxy:group annotations collected during the most recent
	// call to Process, in source order. Returns nil if Process has not been called.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor whose registry holds the Camera struct of the
// given variant and the Sphere struct. Additional structs can be registered with WithStruct.
//
// Parameters:
//   - variant: the camera variant whose Camera struct is injected for "camera"
//   - options: functional options to extend the registry
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(variant camera.Variant, options ...PreProcessorOption) PreProcessor {
	p := &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgCamera: {Source: camera.StructSource(variant), Type: "Camera"},
			AnnotationArgSphere: {Source: scene.GPUSphereSource, Type: "Sphere"},
		},
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	included := make(map[AnnotationArg]bool)

	var out strings.Builder
	out.Grow(len(source))
	for i, line := range strings.Split(source, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out.WriteString(line)
			continue
		}

		expanded, err := p.expand(a, included)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", a.Line, err)
		}
		out.WriteString(expanded)
	}
	return out.String(), nil
}

// expand returns the WGSL that replaces one annotation line. A struct included twice expands
// to an empty line the second time.
func (p *preProcessor) expand(a *Annotation, included map[AnnotationArg]bool) (string, error) {
	switch a.Type {
	case annotationTypeInclude:
		entry, ok := p.structRegistry[a.Args[0]]
		if !ok {
			return "", fmt.Errorf("unknown @oxy:include argument %q", a.Args[0])
		}
		if included[a.Args[0]] {
			return "", nil
		}
		included[a.Args[0]] = true
		return entry.Source, nil
	case AnnotationTypeBindingGroup:
		wgslType, err := p.resolveType(a.Args[2])
		if err != nil {
			return "", err
		}
		p.declarations = append(p.declarations, *a)
		return fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
			*a.Group, *a.Binding, addressSpaces[a.Args[0]], a.Args[1], wgslType), nil
	default:
		return "", fmt.Errorf("unknown annotation type %q", a.Type)
	}
}

// resolveType maps a registry key, optionally wrapped in array<>, to the WGSL type it declares.
func (p *preProcessor) resolveType(arg AnnotationArg) (string, error) {
	key, isArray := strings.CutPrefix(string(arg), "array<")
	if isArray {
		key = strings.TrimSuffix(key, ">")
	}
	entry, ok := p.structRegistry[AnnotationArg(key)]
	switch {
	case !ok && isArray:
		return "", fmt.Errorf("unknown array element type %q in @oxy:group annotation", key)
	case !ok:
		return "", fmt.Errorf("unknown struct type %q in @oxy:group annotation", key)
	case isArray:
		return "array<" + entry.Type + ">", nil
	default:
		return entry.Type, nil
	}
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

// PreProcessorOption is a functional option applied during NewPreProcessor.
type PreProcessorOption func(*preProcessor)

// WithStruct registers an extra struct that shaders can include and bind.
//
// Parameters:
//   - key: the annotation argument naming the struct
//   - source: the WGSL struct definition
//   - typeName: the WGSL type name declared by source
//
// Returns:
//   - PreProcessorOption: a function that registers the struct
func WithStruct(key AnnotationArg, source, typeName string) PreProcessorOption {
	return func(p *preProcessor) {
		p.structRegistry[key] = registryEntry{Source: source, Type: typeName}
	}
}
