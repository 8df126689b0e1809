// Package variants precompiles the shader variants of serialized materials. A manifest lists
// material documents and the mesh configurations they are drawn with; every pair is prepared
// through a rendering context exactly as a frame would, so the effect cache ends up holding
// every variant the materials need.
package variants

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/engine/loader"
	"github.com/Carmen-Shannon/oxy-fx/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned when a manifest extension is neither YAML nor TOML.
var ErrUnknownFormat = errors.New("unknown manifest format")

// Mesh describes the vertex data and attachments of one mesh configuration.
type Mesh struct {
	Name string `yaml:"name" toml:"name"`

	// GLTF names a .gltf or .glb asset, relative to the manifest. When set, the vertex flags,
	// bone and morph counts are read from the asset mesh named GLTFMesh, or its first mesh.
	GLTF     string `yaml:"gltf" toml:"gltf"`
	GLTFMesh string `yaml:"gltf_mesh" toml:"gltf_mesh"`

	UVs          bool `yaml:"uvs" toml:"uvs"`
	Normals      bool `yaml:"normals" toml:"normals"`
	Tangents     bool `yaml:"tangents" toml:"tangents"`
	VertexColors bool `yaml:"vertex_colors" toml:"vertex_colors"`

	// Bones is the skeleton size, 0 for an unskinned mesh.
	Bones           int  `yaml:"bones" toml:"bones"`
	BoneInfluencers int  `yaml:"bone_influencers" toml:"bone_influencers"`
	BoneTexture     bool `yaml:"bone_texture" toml:"bone_texture"`

	// MorphTargets is the number of active morph targets, 0 for none.
	MorphTargets int `yaml:"morph_targets" toml:"morph_targets"`

	Instances     int  `yaml:"instances" toml:"instances"`
	ThinInstances bool `yaml:"thin_instances" toml:"thin_instances"`

	morphNormals bool
	indices32    bool
}

// Scene is the scene state shared by every variant of a manifest.
type Scene struct {
	// Fog is one of none, exp, exp2 or linear.
	Fog string `yaml:"fog" toml:"fog"`

	// ClipPlanes is the number of active user clip planes, at most 6.
	ClipPlanes int `yaml:"clip_planes" toml:"clip_planes"`
}

// Manifest lists the materials to precompile and the meshes they are drawn with.
type Manifest struct {
	// Materials are serialized shader material documents, relative to the manifest.
	Materials []string `yaml:"materials" toml:"materials"`

	// Meshes defaults to a single mesh with normals and UVs.
	Meshes []Mesh `yaml:"meshes" toml:"meshes"`
	Scene  Scene  `yaml:"scene" toml:"scene"`

	// dir is the manifest directory material paths are resolved against.
	dir string
}

// LoadManifest reads a manifest, choosing the decoder by extension.
//
// Parameters:
//   - path: a .yaml, .yml or .toml file
//
// Returns:
//   - Manifest: the decoded and validated manifest
//   - error: an error if the file cannot be read, decoded or validated
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	m, err := DecodeManifest(filepath.Ext(path), data)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	if err := m.resolveAssets(); err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// resolveAssets fills the meshes that name a glTF asset from the asset.
func (m *Manifest) resolveAssets() error {
	for i, mesh := range m.Meshes {
		if mesh.GLTF == "" {
			continue
		}
		path := mesh.GLTF
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.dir, path)
		}
		infos, err := loader.Inspect(path)
		if err != nil {
			return fmt.Errorf("mesh %s: %w", mesh.Name, err)
		}
		info, ok := loader.Find(infos, mesh.GLTFMesh)
		if !ok {
			return fmt.Errorf("mesh %s: %s has no mesh %q", mesh.Name, mesh.GLTF, mesh.GLTFMesh)
		}
		m.Meshes[i] = mesh.withInfo(info)
	}
	return m.Validate()
}

// withInfo replaces the vertex data description of m with the one read from an asset. Instancing
// and bone texture settings are kept.
func (m Mesh) withInfo(info loader.MeshInfo) Mesh {
	m.UVs = info.HasUVs
	m.Normals = info.HasNormals
	m.Tangents = info.HasTangents
	m.VertexColors = info.HasVertexColors
	m.Bones = info.Bones
	m.BoneInfluencers = info.BoneInfluencers
	m.MorphTargets = info.MorphTargets
	m.morphNormals = info.MorphNormals
	m.indices32 = info.Indices32
	return m
}

// DecodeManifest decodes data in the format named by ext.
//
// Parameters:
//   - ext: the file extension including the dot
//   - data: the file contents
//
// Returns:
//   - Manifest: the decoded and validated manifest
//   - error: ErrUnknownFormat, a decode error or a validation error
func DecodeManifest(ext string, data []byte) (Manifest, error) {
	var m Manifest
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return Manifest{}, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return Manifest{}, err
		}
	default:
		return Manifest{}, fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}
	if len(m.Meshes) == 0 {
		m.Meshes = []Mesh{{Name: "default", UVs: true, Normals: true}}
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate reports every invalid field.
func (m Manifest) Validate() error {
	var errs []error
	if len(m.Materials) == 0 {
		errs = append(errs, errors.New("no materials"))
	}
	names := make(map[string]bool, len(m.Meshes))
	for i, mesh := range m.Meshes {
		if mesh.Name == "" {
			errs = append(errs, fmt.Errorf("meshes[%d]: missing name", i))
		} else if names[mesh.Name] {
			errs = append(errs, fmt.Errorf("meshes[%d]: duplicate name %q", i, mesh.Name))
		}
		names[mesh.Name] = true
		if mesh.Bones < 0 || mesh.BoneInfluencers < 0 || mesh.MorphTargets < 0 || mesh.Instances < 0 {
			errs = append(errs, fmt.Errorf("mesh %s: counts must not be negative", mesh.Name))
		}
		if mesh.BoneInfluencers > 0 && mesh.Bones == 0 {
			errs = append(errs, fmt.Errorf("mesh %s: bone_influencers without bones", mesh.Name))
		}
	}
	if _, err := m.Scene.fogMode(); err != nil {
		errs = append(errs, err)
	}
	if m.Scene.ClipPlanes < 0 || m.Scene.ClipPlanes > 6 {
		errs = append(errs, fmt.Errorf("scene.clip_planes must be within 0..6, got %d", m.Scene.ClipPlanes))
	}
	return errors.Join(errs...)
}

// MaterialPaths returns the material paths resolved against the manifest directory.
func (m Manifest) MaterialPaths() []string {
	out := make([]string, len(m.Materials))
	for i, p := range m.Materials {
		if m.dir != "" && !filepath.IsAbs(p) {
			p = filepath.Join(m.dir, p)
		}
		out[i] = p
	}
	return out
}

func (s Scene) fogMode() (scene.FogMode, error) {
	switch strings.ToLower(s.Fog) {
	case "", "none":
		return scene.FogModeNone, nil
	case "exp":
		return scene.FogModeExp, nil
	case "exp2":
		return scene.FogModeExp2, nil
	case "linear":
		return scene.FogModeLinear, nil
	}
	return 0, fmt.Errorf("unknown fog mode %q", s.Fog)
}

// Build creates the scene described by s.
func (s Scene) Build() *scene.Scene {
	sc := scene.NewScene(nil)
	if mode, err := s.fogMode(); err == nil && mode != scene.FogModeNone {
		sc.FogEnabled = true
		sc.Fog.Mode = mode
	}
	for i := range min(s.ClipPlanes, len(sc.ClipPlanes)) {
		sc.ClipPlanes[i] = &mgl32.Vec4{0, 1, 0, float32(i)}
	}
	return sc
}

// Build creates the scene mesh described by m.
func (m Mesh) Build() *scene.Mesh {
	out := scene.NewMesh(m.Name)
	out.HasUVs = m.UVs
	out.HasNormals = m.Normals
	out.HasTangents = m.Tangents
	out.HasVertexColors = m.VertexColors
	out.HasIndexBuffer = true
	out.IndexBuffer32Bits = m.indices32
	out.Instances = m.Instances
	out.ThinInstances = m.ThinInstances
	if m.Bones > 0 {
		bones := make([]mgl32.Mat4, m.Bones)
		for i := range bones {
			bones[i] = mgl32.Ident4()
		}
		out.Skeleton = &scene.Skeleton{Bones: bones, UseTexture: m.BoneTexture}
		out.NumBoneInfluencers = m.BoneInfluencers
	}
	if m.MorphTargets > 0 {
		out.Morph = &scene.MorphTargetManager{
			Influences:        make([]float32, m.MorphTargets),
			SupportsPositions: true,
			SupportsNormals:   m.Normals && (m.GLTF == "" || m.morphNormals),
		}
	}
	return out
}
