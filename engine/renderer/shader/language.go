package shader

import (
	"fmt"
	"strings"
)

// Language identifies the shading language a program is written in.
type Language int

const (
	// LanguageGLSL targets GLSL ES 3.00 (WebGL2-class backends).
	LanguageGLSL Language = iota

	// LanguageWGSL targets WGSL (WebGPU-class backends).
	LanguageWGSL
)

// String returns the lower case language name, also used as the shader file extension.
func (l Language) String() string {
	switch l {
	case LanguageGLSL:
		return "glsl"
	case LanguageWGSL:
		return "wgsl"
	default:
		return fmt.Sprintf("language(%d)", int(l))
	}
}

// ParseLanguage parses a language name as written in configuration files.
//
// Parameters:
//   - s: "glsl" or "wgsl", case-insensitive
//
// Returns:
//   - Language: the parsed language
//   - error: an error if the name is unknown
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "glsl":
		return LanguageGLSL, nil
	case "wgsl", "":
		return LanguageWGSL, nil
	default:
		return 0, fmt.Errorf("unknown shader language %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Language) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Language) UnmarshalText(b []byte) error {
	v, err := ParseLanguage(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Stage identifies a programmable pipeline stage.
type Stage int

const (
	// StageVertex is the vertex stage.
	StageVertex Stage = iota

	// StageFragment is the fragment stage.
	StageFragment
)

// String returns the stage name, also used in shader file names.
func (s Stage) String() string {
	if s == StageFragment {
		return "fragment"
	}
	return "vertex"
}
