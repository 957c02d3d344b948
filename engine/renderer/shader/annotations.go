package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// annotationPrefix marks a WGSL line comment as a pre-processor directive, e.g. "//@oxy:include camera".
const annotationPrefix = "@oxy:"

// AnnotationType is the directive name that follows the prefix.
type AnnotationType string

const (
	// annotationTypeInclude pastes the WGSL struct registered under a key.
	//
	//	//@oxy:include <struct>
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup emits a @group/@binding variable and is recorded in the
	// pre-processor's declarations.
	//
	//	//@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// <type> is a struct key or array<key>.
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// annotationArity is the number of arguments each directive takes.
var annotationArity = map[AnnotationType]int{
	annotationTypeInclude:      1,
	AnnotationTypeBindingGroup: 5,
}

// Annotation is one parsed directive.
type Annotation struct {
	Type AnnotationType

	// Args is [struct] for include and [address space, var name, type] for group.
	Args []AnnotationArg

	// Line is 1-based.
	Line int

	// Group and Binding are set for group annotations only.
	Group   *int
	Binding *int
}

// AnnotationArg is a directive argument: a struct key, an address space or a variable name.
type AnnotationArg string

// Struct keys known to every pre-processor. More can be added with WithStruct.
const (
	// AnnotationArgCamera is the Camera struct of the configured camera variant.
	AnnotationArgCamera AnnotationArg = "camera"

	// AnnotationArgSphere is the Sphere struct of the scene storage buffer.
	AnnotationArgSphere AnnotationArg = "sphere"
)

const (
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead    AnnotationArg = "storage_read"
)

// addressSpaces maps the address space argument of a group directive to its var<> syntax.
var addressSpaces = map[AnnotationArg]string{
	annotationArgStorageTypeUniform: "var<uniform>",
	annotationArgStorageTypeRead:    "var<storage, read>",
}

// parseAnnotation parses one source line. Lines that are not a comment starting with the
// prefix return nil and no error. Struct keys are resolved later by the pre-processor.
//
// Parameters:
//   - line: the raw WGSL source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	comment, ok := strings.CutPrefix(strings.TrimSpace(line), "//")
	if !ok {
		return nil, nil
	}
	_, directive, ok := strings.Cut(comment, annotationPrefix)
	if !ok {
		return nil, nil
	}

	fields := strings.Fields(directive)
	if len(fields) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}
	kind := AnnotationType(fields[0])
	arity, known := annotationArity[kind]
	if !known {
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, kind)
	}
	args := fields[1:]
	if len(args) != arity {
		return nil, fmt.Errorf("line %d: @oxy:%s takes %d argument(s), got %d", lineNum, kind, arity, len(args))
	}

	a := &Annotation{Type: kind, Line: lineNum}
	if kind == annotationTypeInclude {
		a.Args = []AnnotationArg{AnnotationArg(args[0])}
		return a, nil
	}

	indices := make([]int, 2)
	for i, name := range []string{"group", "binding"} {
		n, err := strconv.Atoi(args[i])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("line %d: invalid %s number %q in @oxy:group annotation", lineNum, name, args[i])
		}
		indices[i] = n
	}
	space := AnnotationArg(args[2])
	if _, ok := addressSpaces[space]; !ok {
		return nil, fmt.Errorf("line %d: unknown address space %q in @oxy:group annotation", lineNum, space)
	}
	a.Group, a.Binding = &indices[0], &indices[1]
	a.Args = []AnnotationArg{space, AnnotationArg(args[3]), AnnotationArg(args[4])}
	return a, nil
}
