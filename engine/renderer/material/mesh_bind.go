package material

import (
	"strconv"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-fx/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// bindBones applies the bone matrices of a GPU skinned mesh. Nothing is applied when the variant
// resolved skinning to the CPU.
func bindBones(binder uniform.Binder, mesh *scene.Mesh, set *defines.Set) {
	skel := mesh.Skeleton
	if skel == nil {
		return
	}
	if v, _ := set.Value("NUM_BONE_INFLUENCERS"); v == "" || v == "0" {
		return
	}
	if set.Has("BONETEXTURE") {
		if skel.Texture != nil {
			binder.Apply("boneSampler", uniform.TextureValue(skel.Texture))
		}
		binder.Apply("boneTextureWidth", uniform.Float(4*float32(len(skel.Bones)+1)))
		return
	}

	// The array holds one identity matrix past the last bone.
	n := len(skel.Bones) + 1
	if v, ok := set.Value("BonesPerMesh"); ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	bones := make([]mgl32.Mat4, n)
	for i := range bones {
		bones[i] = mgl32.Ident4()
		if i < len(skel.Bones) {
			bones[i] = skel.Bones[i]
		}
	}
	binder.Apply("mBones", uniform.MatrixArray(bones))
}

// bindMorphTargets applies the morph influences and, in texture mode, the target texture.
func bindMorphTargets(binder uniform.Binder, mesh *scene.Mesh) {
	mt := mesh.Morph
	if mt == nil || len(mt.Influences) == 0 {
		return
	}
	binder.Apply("morphTargetInfluences", uniform.Floats(mt.Influences))
	if mt.UseTextures && mt.Texture != nil {
		binder.Apply("morphTargets", uniform.TextureValue(mt.Texture))
		binder.Apply("morphTargetTextureInfo", uniform.Vector3(mt.TextureInfo()))
		binder.Apply("morphTargetTextureIndices", uniform.Floats(mt.TextureIndices()))
	}
}

// bindBakedVertexAnimation applies the baked animation texture and playback state. Instanced
// draws read the settings from a vertex attribute instead of the uniform.
func bindBakedVertexAnimation(binder uniform.Binder, mesh *scene.Mesh, time float32, instanced bool) {
	bva := mesh.BakedVertexAnimation
	if bva == nil {
		return
	}
	binder.Apply("bakedVertexAnimationTextureSizeInverted", uniform.Vector2(bva.TextureSizeInverted()))
	binder.Apply("bakedVertexAnimationTime", uniform.Float(time))
	if !instanced {
		binder.Apply("bakedVertexAnimationSettings", uniform.Vector4(bva.Settings))
	}
	if bva.Texture != nil {
		binder.Apply("bakedVertexAnimationTexture", uniform.TextureValue(bva.Texture))
	}
}
