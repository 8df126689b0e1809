// annotations.go defines the @oxy: annotations understood by the pre-processor. Annotations are
// single-line comments prefixed with @oxy: and work in both GLSL and WGSL sources since both
// languages share the "//" line comment.
package shader

import (
	"fmt"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects a named include from the Store at the annotation site.
	// It is the annotation form of #include<name>.
	//
	// Syntax: //@oxy:include <name>
	//
	// Example: //@oxy:include clipPlaneVertex
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeDeclarations is replaced by the emitter output for the program's attributes,
	// uniform block and samplers. A source without this annotation gets the declarations
	// prepended after the define block.
	//
	// Syntax: //@oxy:declarations
	AnnotationTypeDeclarations AnnotationType = "declarations"
)

// Annotation is a single parsed @oxy: annotation.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. For include, [0] is the include name.
	Args []string

	// Line is the 1-based line number in the source where this annotation was found.
	Line int
}

// parseAnnotation attempts to parse a single line of source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	comment, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return nil, nil
	}
	after, ok := strings.CutPrefix(strings.TrimSpace(comment), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{Type: AnnotationTypeInclude, Args: args[1:], Line: lineNum}, nil
	case AnnotationTypeDeclarations:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy declarations annotation takes no arguments", lineNum)
		}
		return &Annotation{Type: AnnotationTypeDeclarations, Line: lineNum}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
