// Package loader reads glTF 2.0 assets far enough to describe their meshes to the material
// system: which vertex attributes exist, how many bones influence a vertex and how many morph
// targets are active. Those facts select the shader variant a mesh is drawn with.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxBoneInfluencers is the most influences per vertex the skinning includes support.
const maxBoneInfluencers = 8

// MeshInfo describes the vertex data of one glTF mesh, merged over its primitives.
type MeshInfo struct {
	Name string

	HasNormals      bool
	HasTangents     bool
	HasUVs          bool
	HasUV2s         bool
	HasVertexColors bool

	// BoneInfluencers is 4 per JOINTS_n set, capped at 8.
	BoneInfluencers int

	// Bones is the joint count of the skin bound to the mesh, 0 when unskinned.
	Bones int

	MorphTargets int
	MorphNormals bool

	HasIndices  bool
	Indices32   bool
	VertexCount int
}

// Inspect reads the meshes of a .gltf or .glb file.
//
// Parameters:
//   - path: the asset path
//
// Returns:
//   - []MeshInfo: one entry per mesh, in document order
//   - error: an error if the file cannot be read or is not glTF 2.0
func Inspect(path string) ([]MeshInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	glb := strings.EqualFold(filepath.Ext(path), ".glb") || isGLB(data)
	infos, err := inspect(data, glb)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return infos, nil
}

// InspectReader reads the meshes of a glTF document from r.
//
// Parameters:
//   - r: the document
//   - glb: true for the binary container format
//
// Returns:
//   - []MeshInfo: one entry per mesh
//   - error: an error if the document is invalid
func InspectReader(r io.Reader, glb bool) ([]MeshInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return inspect(data, glb)
}

func inspect(data []byte, glb bool) ([]MeshInfo, error) {
	doc, err := parseDocument(data, glb)
	if err != nil {
		return nil, err
	}

	// A mesh instanced by a skinned node takes the joint count of that skin.
	bones := make(map[int]int)
	for _, n := range doc.Nodes {
		if n.Mesh == nil || n.Skin == nil || *n.Skin < 0 || *n.Skin >= len(doc.Skins) {
			continue
		}
		bones[*n.Mesh] = max(bones[*n.Mesh], len(doc.Skins[*n.Skin].Joints))
	}

	out := make([]MeshInfo, len(doc.Meshes))
	for i, m := range doc.Meshes {
		info := MeshInfo{Name: m.Name, Bones: bones[i]}
		if info.Name == "" {
			info.Name = fmt.Sprintf("mesh%d", i)
		}
		for _, p := range m.Primitives {
			info.merge(doc, p)
		}
		if info.Bones == 0 {
			info.BoneInfluencers = 0
		}
		out[i] = info
	}
	return out, nil
}

// merge adds the attributes of one primitive.
func (info *MeshInfo) merge(doc *document, p primitive) {
	joints := 0
	for semantic, acc := range p.Attributes {
		switch {
		case semantic == "POSITION":
			if acc >= 0 && acc < len(doc.Accessors) {
				info.VertexCount += doc.Accessors[acc].Count
			}
		case semantic == "NORMAL":
			info.HasNormals = true
		case semantic == "TANGENT":
			info.HasTangents = true
		case semantic == "TEXCOORD_0":
			info.HasUVs = true
		case semantic == "TEXCOORD_1":
			info.HasUV2s = true
		case semantic == "COLOR_0":
			info.HasVertexColors = true
		case strings.HasPrefix(semantic, "JOINTS_"):
			joints++
		}
	}
	info.BoneInfluencers = min(max(info.BoneInfluencers, joints*4), maxBoneInfluencers)

	info.MorphTargets = max(info.MorphTargets, len(p.Targets))
	for _, t := range p.Targets {
		if _, ok := t["NORMAL"]; ok {
			info.MorphNormals = true
		}
	}

	if p.Indices != nil {
		info.HasIndices = true
		if i := *p.Indices; i >= 0 && i < len(doc.Accessors) && doc.Accessors[i].ComponentType == componentUnsignedInt {
			info.Indices32 = true
		}
	}
}

// Find returns the mesh named name, or the first mesh when name is empty.
func Find(infos []MeshInfo, name string) (MeshInfo, bool) {
	for _, info := range infos {
		if name == "" || info.Name == name {
			return info, true
		}
	}
	return MeshInfo{}, false
}
