package loader

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocument = `{
  "asset": {"version": "2.0"},
  "nodes": [
    {"name": "body", "mesh": 0, "skin": 0},
    {"name": "prop", "mesh": 1}
  ],
  "skins": [{"joints": [1, 2, 3, 4, 5]}],
  "accessors": [
    {"componentType": 5126, "count": 24, "type": "VEC3"},
    {"componentType": 5125, "count": 36, "type": "SCALAR"},
    {"componentType": 5123, "count": 6, "type": "SCALAR"},
    {"componentType": 5126, "count": 8, "type": "VEC3"}
  ],
  "meshes": [
    {
      "name": "Body",
      "primitives": [
        {
          "attributes": {"POSITION": 0, "NORMAL": 0, "TEXCOORD_0": 0, "JOINTS_0": 0, "WEIGHTS_0": 0, "JOINTS_1": 0, "WEIGHTS_1": 0},
          "indices": 1,
          "targets": [{"POSITION": 0}, {"POSITION": 0, "NORMAL": 0}]
        },
        {"attributes": {"POSITION": 3, "TANGENT": 3}, "indices": 2}
      ]
    },
    {
      "primitives": [
        {"attributes": {"POSITION": 3, "COLOR_0": 3, "JOINTS_0": 3}}
      ]
    }
  ]
}`

// glb wraps a JSON document in a GLB container followed by an empty BIN chunk.
func glb(t *testing.T, doc string, binFirst bool) []byte {
	t.Helper()
	for len(doc)%4 != 0 {
		doc += " "
	}
	var chunks bytes.Buffer
	writeChunk := func(kind uint32, data []byte) {
		require.NoError(t, binary.Write(&chunks, binary.LittleEndian, glbChunkHeader{Length: uint32(len(data)), Type: kind}))
		chunks.Write(data)
	}
	if binFirst {
		writeChunk(0x004E4942, make([]byte, 8))
	}
	writeChunk(glbChunkJSON, []byte(doc))

	var out bytes.Buffer
	require.NoError(t, binary.Write(&out, binary.LittleEndian, glbHeader{Magic: glbMagic, Version: glbVersion, Length: uint32(12 + chunks.Len())}))
	out.Write(chunks.Bytes())
	return out.Bytes()
}

func TestInspectReader(t *testing.T) {
	infos, err := InspectReader(strings.NewReader(testDocument), false)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	body := infos[0]
	assert.Equal(t, "Body", body.Name)
	assert.True(t, body.HasNormals)
	assert.True(t, body.HasUVs)
	assert.True(t, body.HasTangents)
	assert.False(t, body.HasVertexColors)
	assert.Equal(t, 5, body.Bones)
	assert.Equal(t, 8, body.BoneInfluencers)
	assert.Equal(t, 2, body.MorphTargets)
	assert.True(t, body.MorphNormals)
	assert.True(t, body.HasIndices)
	assert.True(t, body.Indices32)
	assert.Equal(t, 32, body.VertexCount)

	prop := infos[1]
	assert.Equal(t, "mesh1", prop.Name)
	assert.True(t, prop.HasVertexColors)
	assert.Zero(t, prop.Bones)
	assert.Zero(t, prop.BoneInfluencers, "joints without a skin are ignored")
	assert.False(t, prop.HasIndices)
}

func TestInspectGLB(t *testing.T) {
	for _, binFirst := range []bool{false, true} {
		infos, err := InspectReader(bytes.NewReader(glb(t, testDocument, binFirst)), true)
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, 5, infos[0].Bones)
	}
}

func TestInspectErrors(t *testing.T) {
	_, err := InspectReader(strings.NewReader(`{"asset": {"version": "1.0"}}`), false)
	assert.ErrorIs(t, err, errInvalidVersion)

	_, err = InspectReader(strings.NewReader(`{`), false)
	assert.Error(t, err)

	bad := glb(t, testDocument, false)
	binary.LittleEndian.PutUint32(bad[0:], 0xdeadbeef)
	_, err = InspectReader(bytes.NewReader(bad), true)
	assert.ErrorIs(t, err, errInvalidGLBMagic)

	bad = glb(t, testDocument, false)
	binary.LittleEndian.PutUint32(bad[4:], 1)
	_, err = InspectReader(bytes.NewReader(bad), true)
	assert.ErrorIs(t, err, errInvalidGLBVersion)

	var header bytes.Buffer
	require.NoError(t, binary.Write(&header, binary.LittleEndian, glbHeader{Magic: glbMagic, Version: glbVersion, Length: 12}))
	_, err = InspectReader(bytes.NewReader(header.Bytes()), true)
	assert.ErrorIs(t, err, errMissingJSONChunk)

	truncated := glb(t, testDocument, false)
	_, err = InspectReader(bytes.NewReader(truncated[:40]), true)
	assert.ErrorContains(t, err, "exceeds the file")
}

func TestInspectFile(t *testing.T) {
	dir := t.TempDir()
	gltfPath := filepath.Join(dir, "model.gltf")
	require.NoError(t, os.WriteFile(gltfPath, []byte(testDocument), 0o644))
	// Binary content is detected by magic even under a .gltf extension.
	glbPath := filepath.Join(dir, "packed.gltf")
	require.NoError(t, os.WriteFile(glbPath, glb(t, testDocument, false), 0o644))

	for _, path := range []string{gltfPath, glbPath} {
		infos, err := Inspect(path)
		require.NoError(t, err, path)
		assert.Len(t, infos, 2)
	}

	_, err := Inspect(filepath.Join(dir, "missing.glb"))
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	infos := []MeshInfo{{Name: "a"}, {Name: "b"}}
	info, ok := Find(infos, "b")
	assert.True(t, ok)
	assert.Equal(t, "b", info.Name)

	info, ok = Find(infos, "")
	assert.True(t, ok)
	assert.Equal(t, "a", info.Name)

	_, ok = Find(infos, "c")
	assert.False(t, ok)
	_, ok = Find(nil, "")
	assert.False(t, ok)
}
