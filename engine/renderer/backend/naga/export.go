package naga

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// stageExt maps a stage to the file extension infix of its artifacts.
var stageExt = map[shader.Stage]string{
	shader.StageVertex:   "vert",
	shader.StageFragment: "frag",
}

// ArtifactName returns the file name prefix of the artifacts of key: the shader name followed by
// a short hash of the define set, so every variant gets a distinct, filesystem-safe name.
//
// Parameters:
//   - key: the effect key, "name@defines"
//
// Returns:
//   - string: the artifact base name
func ArtifactName(key string) string {
	name, _, _ := strings.Cut(key, "@")
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	sum := sha256.Sum256([]byte(key))
	return name + "-" + hex.EncodeToString(sum[:4])
}

// Export writes the SPIR-V of every stage of p to dir, and the GLSL when the compiler produced
// it. Existing files are overwritten.
//
// Parameters:
//   - dir: the output directory, created if missing
//   - p: the translated program
//
// Returns:
//   - []string: the written paths
//   - error: an error if a file could not be written
func Export(dir string, p Program) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	base := ArtifactName(p.Key())
	var written []string
	for _, stage := range []shader.Stage{shader.StageVertex, shader.StageFragment} {
		out := p.Stage(stage)
		prefix := base + "." + stageExt[stage]
		files := []struct {
			name string
			data []byte
		}{{prefix + ".spv", out.SPIRV}}
		if out.GLSL != "" {
			files = append(files, struct {
				name string
				data []byte
			}{prefix + ".glsl", []byte(out.GLSL)})
		}
		for _, f := range files {
			path := filepath.Join(dir, f.name)
			if err := os.WriteFile(path, f.data, 0o644); err != nil {
				return written, fmt.Errorf("export %s: %w", p.Key(), err)
			}
			written = append(written, path)
		}
	}
	return written, nil
}
