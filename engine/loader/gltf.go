package loader

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// GLB container constants.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
const (
	glbMagic     = 0x46546C67 // "glTF"
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A // "JSON"
)

var (
	errInvalidVersion    = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic   = errors.New("invalid GLB magic number")
	errInvalidGLBVersion = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk  = errors.New("GLB file missing JSON chunk")
)

// componentUnsignedInt is the accessor component type of 32-bit indices.
const componentUnsignedInt = 5125

type glbHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

type glbChunkHeader struct {
	Length uint32
	Type   uint32
}

// document holds the parts of a glTF document that decide which shader variant a mesh needs.
// Buffers are never read.
type document struct {
	Asset struct {
		Version string `json:"version"`
	} `json:"asset"`
	Nodes     []node     `json:"nodes,omitempty"`
	Meshes    []mesh     `json:"meshes,omitempty"`
	Skins     []skin     `json:"skins,omitempty"`
	Accessors []accessor `json:"accessors,omitempty"`
}

type node struct {
	Name string `json:"name,omitempty"`
	Mesh *int   `json:"mesh,omitempty"`
	Skin *int   `json:"skin,omitempty"`
}

type mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []primitive `json:"primitives"`
}

type primitive struct {
	// Attributes maps semantics such as POSITION or JOINTS_0 to accessor indices.
	Attributes map[string]int   `json:"attributes"`
	Indices    *int             `json:"indices,omitempty"`
	Targets    []map[string]int `json:"targets,omitempty"`
}

type skin struct {
	Joints []int `json:"joints"`
}

type accessor struct {
	ComponentType int    `json:"componentType"`
	Count         int    `json:"count"`
	Type          string `json:"type"`
}

// parseDocument decodes a .gltf JSON document or the JSON chunk of a .glb container.
func parseDocument(data []byte, isGLB bool) (*document, error) {
	if isGLB {
		var err error
		if data, err = glbJSON(data); err != nil {
			return nil, err
		}
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, errInvalidVersion
	}
	return &doc, nil
}

// glbJSON returns the JSON chunk of a GLB container.
func glbJSON(data []byte) ([]byte, error) {
	r := bytes.NewReader(data)
	var header glbHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read GLB header: %w", err)
	}
	if header.Magic != glbMagic {
		return nil, errInvalidGLBMagic
	}
	if header.Version != glbVersion {
		return nil, errInvalidGLBVersion
	}
	for {
		var chunk glbChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errMissingJSONChunk
			}
			return nil, fmt.Errorf("read GLB chunk header: %w", err)
		}
		if int64(chunk.Length) > int64(r.Len()) {
			return nil, fmt.Errorf("GLB chunk of %d bytes exceeds the file", chunk.Length)
		}
		if chunk.Type == glbChunkJSON {
			out := make([]byte, chunk.Length)
			_, err := io.ReadFull(r, out)
			return out, err
		}
		if _, err := r.Seek(int64(chunk.Length), io.SeekCurrent); err != nil {
			return nil, err
		}
	}
}

// isGLB reports whether data starts with the GLB magic number.
func isGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == glbMagic
}
