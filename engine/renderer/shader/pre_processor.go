// pre_processor.go implements the Oxy shader pre-processor. It resolves conditional blocks against
// a define set, expands includes, replaces @oxy: annotations with generated declarations and
// finally adapts the result to the target language: GLSL gets a version header followed by the
// #define lines, WGSL (which has no preprocessor) gets valued defines substituted in place.
package shader

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
)

// glslHeader opens every GLSL program. Any #version line of the source is dropped in its favour.
const glslHeader = "#version 300 es\nprecision highp float;\nprecision highp int;\n"

// maxIncludeDepth bounds nested includes so a cycle fails instead of recursing forever.
const maxIncludeDepth = 16

// includePattern matches #include<name> with an optional [start..end] repeat range.
var includePattern = regexp.MustCompile(`^#include\s*<\s*([A-Za-z0-9_]+)\s*>\s*(?:\[\s*(\d+)\s*\.\.\s*(\d+)\s*\])?\s*$`)

// IncludeResolver returns the source of a named include for a language.
type IncludeResolver interface {
	Include(name string, lang Language) (string, bool)
}

// Unit is one stage of a program handed to the pre-processor.
type Unit struct {
	Stage  Stage
	Source string

	// Defines is the resolved define set. Nil is treated as empty.
	Defines *defines.Set

	// Declarations is emitted at the //@oxy:declarations annotation, or prepended when the
	// source has none. Nil emits nothing.
	Declarations *Declarations
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	lang     Language
	emitter  Emitter
	includes IncludeResolver
	logger   *slog.Logger
}

// PreProcessor turns a stored shader source into the final source of one program variant.
type PreProcessor interface {
	// Language returns the language the pre-processor writes.
	Language() Language

	// Process resolves conditionals, includes and annotations of unit.Source against unit.Defines.
	//
	// Parameters:
	//   - unit: the stage source, define set and declarations
	//
	// Returns:
	//   - string: the processed source
	//   - error: a line-numbered error for malformed directives, unknown includes or unbalanced blocks
	Process(unit Unit) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor for lang.
//
// Parameters:
//   - lang: the target shading language
//   - options: builder options
//
// Returns:
//   - PreProcessor: the pre-processor
func NewPreProcessor(lang Language, options ...PreProcessorBuilderOption) PreProcessor {
	p := &preProcessor{
		lang:    lang,
		emitter: NewEmitter(lang),
		logger:  slog.Default(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *preProcessor) Language() Language {
	return p.lang
}

// condFrame is one open conditional block.
type condFrame struct {
	parentActive bool
	active       bool
	taken        bool
	sawElse      bool
}

// processState is shared across include expansion.
type processState struct {
	unit     Unit
	set      *defines.Set
	out      []string
	declared bool
}

func (p *preProcessor) Process(unit Unit) (string, error) {
	set := unit.Defines
	if set == nil {
		set = defines.NewSet()
	}
	st := &processState{unit: unit, set: set.Clone()}
	if err := p.processSource(st, unit.Source, "", 0); err != nil {
		return "", err
	}

	body := strings.Join(st.out, "\n")
	if unit.Declarations != nil && !st.declared {
		body = p.emitter.Emit(unit.Stage, *unit.Declarations) + body
	}

	if p.lang == LanguageGLSL {
		var sb strings.Builder
		sb.WriteString(glslHeader)
		if set.Len() > 0 {
			sb.WriteString(set.Join())
			sb.WriteString("\n")
		}
		sb.WriteString(body)
		return sb.String(), nil
	}
	return substituteDefines(body, st.set), nil
}

// processSource runs the conditional state machine over one source. Includes recurse with their
// own conditional stack so blocks cannot span file boundaries.
func (p *preProcessor) processSource(st *processState, source, name string, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("include %q: nesting deeper than %d", name, maxIncludeDepth)
	}

	var stack []condFrame
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}

	lines := strings.Split(source, "\n")
	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			directive, rest := splitDirective(trimmed)
			switch directive {
			case "ifdef", "ifndef":
				if rest == "" {
					return lineError(name, lineNum, "#%s requires a name", directive)
				}
				parent := active()
				cond := st.set.Has(strings.Fields(rest)[0]) == (directive == "ifdef")
				stack = append(stack, condFrame{parentActive: parent, active: parent && cond, taken: parent && cond})
				continue
			case "if":
				parent := active()
				cond := false
				if parent {
					v, err := evalCondition(rest, st.set)
					if err != nil {
						return lineError(name, lineNum, "#if %s: %v", rest, err)
					}
					cond = v
				}
				stack = append(stack, condFrame{parentActive: parent, active: parent && cond, taken: parent && cond})
				continue
			case "elif":
				if len(stack) == 0 {
					return lineError(name, lineNum, "#elif without #if")
				}
				f := &stack[len(stack)-1]
				if f.sawElse {
					return lineError(name, lineNum, "#elif after #else")
				}
				if !f.parentActive || f.taken {
					f.active = false
					continue
				}
				v, err := evalCondition(rest, st.set)
				if err != nil {
					return lineError(name, lineNum, "#elif %s: %v", rest, err)
				}
				f.active, f.taken = v, v
				continue
			case "else":
				if len(stack) == 0 {
					return lineError(name, lineNum, "#else without #if")
				}
				f := &stack[len(stack)-1]
				if f.sawElse {
					return lineError(name, lineNum, "duplicate #else")
				}
				f.sawElse = true
				f.active = f.parentActive && !f.taken
				f.taken = true
				continue
			case "endif":
				if len(stack) == 0 {
					return lineError(name, lineNum, "#endif without #if")
				}
				stack = stack[:len(stack)-1]
				continue
			}

			if !active() {
				continue
			}

			switch directive {
			case "define":
				st.set.Add(rest)
				if p.lang == LanguageGLSL {
					st.out = append(st.out, line)
				}
				continue
			case "undef":
				st.set.Remove(strings.TrimSpace(rest))
				if p.lang == LanguageGLSL {
					st.out = append(st.out, line)
				}
				continue
			case "version":
				continue
			case "include":
				if err := p.expandInclude(st, trimmed, name, lineNum, depth); err != nil {
					return err
				}
				continue
			}
		}

		if !active() {
			continue
		}

		a, err := parseAnnotation(line, lineNum)
		if err != nil {
			if name != "" {
				return fmt.Errorf("include %q: %w", name, err)
			}
			return err
		}
		if a == nil {
			st.out = append(st.out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypeInclude:
			if err := p.includeNamed(st, a.Args[0], name, lineNum, depth, -1); err != nil {
				return err
			}
		case AnnotationTypeDeclarations:
			if st.unit.Declarations != nil && !st.declared {
				st.out = append(st.out, strings.TrimSuffix(p.emitter.Emit(st.unit.Stage, *st.unit.Declarations), "\n"))
			}
			st.declared = true
		}
	}

	if len(stack) > 0 {
		return lineError(name, len(lines), "unterminated conditional block")
	}
	return nil
}

// expandInclude handles a #include<name> line, repeating the include for each index of an
// optional [start..end] range with {X} replaced by the index.
func (p *preProcessor) expandInclude(st *processState, line, parent string, lineNum, depth int) error {
	m := includePattern.FindStringSubmatch(line)
	if m == nil {
		return lineError(parent, lineNum, "malformed include %q", line)
	}
	if m[2] == "" {
		return p.includeNamed(st, m[1], parent, lineNum, depth, -1)
	}
	start, _ := strconv.Atoi(m[2])
	end, _ := strconv.Atoi(m[3])
	if end < start {
		return lineError(parent, lineNum, "include range %d..%d is empty", start, end)
	}
	for idx := start; idx <= end; idx++ {
		if err := p.includeNamed(st, m[1], parent, lineNum, depth, idx); err != nil {
			return err
		}
	}
	return nil
}

func (p *preProcessor) includeNamed(st *processState, name, parent string, lineNum, depth, index int) error {
	if p.includes == nil {
		return lineError(parent, lineNum, "unknown include %q", name)
	}
	src, ok := p.includes.Include(name, p.lang)
	if !ok {
		return lineError(parent, lineNum, "unknown include %q", name)
	}
	if index >= 0 {
		src = strings.ReplaceAll(src, "{X}", strconv.Itoa(index))
	}
	p.logger.Debug("shader include", "name", name, "depth", depth+1)
	return p.processSource(st, src, name, depth+1)
}

// splitDirective splits "#ifdef FOO" into "ifdef" and "FOO". "#include<x>" yields "include".
func splitDirective(line string) (string, string) {
	body := strings.TrimSpace(line[1:])
	end := strings.IndexFunc(body, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	if end < 0 {
		return body, ""
	}
	return body[:end], strings.TrimSpace(body[end:])
}

func lineError(include string, lineNum int, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if include != "" {
		return fmt.Errorf("include %q: line %d: %s", include, lineNum, msg)
	}
	return fmt.Errorf("line %d: %s", lineNum, msg)
}

// substituteDefines replaces every whole-word occurrence of a valued define with its value.
// Flag defines are left alone; they only steer conditionals.
func substituteDefines(body string, set *defines.Set) string {
	values := make(map[string]string)
	var names []string
	for _, name := range set.Names() {
		if v, _ := set.Value(name); v != "" {
			values[name] = v
			names = append(names, regexp.QuoteMeta(name))
		}
	}
	if len(names) == 0 {
		return body
	}
	// longest first so a name never shadows a longer one sharing its prefix
	slices.SortFunc(names, func(a, b string) int { return len(b) - len(a) })
	re := regexp.MustCompile(`\b(` + strings.Join(names, "|") + `)\b`)
	return re.ReplaceAllStringFunc(body, func(m string) string {
		return values[m]
	})
}
