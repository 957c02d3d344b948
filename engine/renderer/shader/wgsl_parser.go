package shader

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// structBlockRegex captures the name and body of a struct declaration
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	locationRegex = regexp.MustCompile(`@location\(\s*(\d+)\s*\)`)
	builtinRegex  = regexp.MustCompile(`@builtin\(\s*\w+\s*\)`)

	// attributeRegex matches any @name or @name(...) attribute
	attributeRegex = regexp.MustCompile(`@\w+(?:\([^)]*\))?`)

	// memberRegex captures the name and type of a struct member once attributes are removed
	memberRegex = regexp.MustCompile(`^(\w+)\s*:\s*(.+)$`)

	// bindingDeclRegex captures group, binding, optional address space, variable name and type
	// from declarations like: @group(0) @binding(0) var<uniform> camera: Camera;
	bindingDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

var entryPointRegex = map[ShaderType]*regexp.Regexp{
	ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
	ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
}

// wgslSource is comment-free WGSL with its struct declarations parsed once.
type wgslSource struct {
	text    string
	structs []wgslStruct
	layouts layoutTable
}

func newWGSLSource(source string) *wgslSource {
	text := stripComments(source)
	structs := parseStructs(text)
	return &wgslSource{
		text:    text,
		structs: structs,
		layouts: resolveStructs(structs),
	}
}

// entryPoint returns the name of the first function tagged with the stage attribute, or ""
// when the source has none.
func (w *wgslSource) entryPoint(stage ShaderType) string {
	re, ok := entryPointRegex[stage]
	if !ok {
		return ""
	}
	if m := re.FindStringSubmatch(w.text); m != nil {
		return m[1]
	}
	return ""
}

// bindings lists every @group/@binding variable ordered by group, then binding.
func (w *wgslSource) bindings() []Binding {
	matches := bindingDeclRegex.FindAllStringSubmatch(w.text, -1)
	out := make([]Binding, 0, len(matches))
	for _, m := range matches {
		group, _ := strconv.Atoi(m[1])
		index, _ := strconv.Atoi(m[2])
		typ := strings.TrimSpace(m[5])

		b := Binding{
			Group:        group,
			Binding:      index,
			VarName:      m[4],
			TypeName:     typ,
			Type:         classifyBuffer(m[3]),
			RuntimeArray: isRuntimeArray(typ),
		}
		if l, ok := w.layouts.resolve(typ); ok {
			b.Size = l.size
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b Binding) int {
		return cmp.Or(cmp.Compare(a.Group, b.Group), cmp.Compare(a.Binding, b.Binding))
	})
	return out
}

// vertexLayouts builds one buffer layout per vertex input struct, in declaration order.
// Structs with a member that has no vertex format are skipped.
func (w *wgslSource) vertexLayouts() []wgpu.VertexBufferLayout {
	var out []wgpu.VertexBufferLayout
	for _, s := range w.structs {
		if !s.vertexInput() {
			continue
		}
		if layout, ok := vertexBufferLayout(s); ok {
			out = append(out, layout)
		}
	}
	return out
}

// structSizes returns the byte size of every struct whose layout could be resolved.
func (w *wgslSource) structSizes() map[string]uint64 {
	sizes := make(map[string]uint64, len(w.layouts))
	for name, l := range w.layouts {
		sizes[name] = l.size
	}
	return sizes
}

// vertexBufferLayout packs the struct members tightly in declaration order.
func vertexBufferLayout(s wgslStruct) (wgpu.VertexBufferLayout, bool) {
	attrs := make([]wgpu.VertexAttribute, 0, len(s.fields))
	var stride uint64
	for _, f := range s.fields {
		format, size, ok := vertexFormat(f.typ)
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         format,
			Offset:         stride,
			ShaderLocation: uint32(f.location),
		})
		stride += size
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: stride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}

func parseStructs(text string) []wgslStruct {
	matches := structBlockRegex.FindAllStringSubmatch(text, -1)
	structs := make([]wgslStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, wgslStruct{name: m[1], fields: parseMembers(m[2])})
	}
	return structs
}

// parseMembers splits a struct body into members. Attributes are recorded and then removed
// so the remainder is always "name: type".
func parseMembers(body string) []wgslField {
	var fields []wgslField
	for _, decl := range splitTopLevel(body) {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		f := wgslField{location: -1, builtin: builtinRegex.MatchString(decl)}
		if m := locationRegex.FindStringSubmatch(decl); m != nil {
			f.location, _ = strconv.Atoi(m[1])
		}
		m := memberRegex.FindStringSubmatch(strings.TrimSpace(attributeRegex.ReplaceAllString(decl, "")))
		if m == nil {
			continue
		}
		f.name, f.typ = m[1], strings.TrimSpace(m[2])
		fields = append(fields, f)
	}
	return fields
}

// splitTopLevel splits s at commas outside of <> and () nesting, so array<T, N> and
// @interpolate(flat, either) stay whole.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '<', '(':
			depth++
		case '>', ')':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes // line comments and nested /* */ block comments in a single scan.
// Newlines are kept so the remaining text lines up with the original source.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		c := source[i]
		var next byte
		if i+1 < len(source) {
			next = source[i+1]
		}
		switch {
		case c == '/' && next == '*':
			depth++
			i++
		case depth > 0 && c == '*' && next == '/':
			depth--
			i++
		case depth > 0:
			if c == '\n' {
				sb.WriteByte(c)
			}
		case c == '/' && next == '/':
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				sb.WriteByte('\n')
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
