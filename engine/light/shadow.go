package light

// ShadowMapResolution is the width and height in texels of the directional shadow map the
// shadow record is computed for.
const ShadowMapResolution = 2048

// DefaultShadowHalfExtent is the orthographic half-extent (in world units) of the directional
// light shadow frustum around the camera.
const DefaultShadowHalfExtent float32 = 40.0

// DefaultShadowNear is the near plane of the directional shadow projection.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the far plane of the directional shadow projection.
const DefaultShadowFar float32 = 200.0

// DefaultShadowBias is the constant depth bias applied to shadow comparisons.
const DefaultShadowBias float32 = 0.001

// DefaultShadowNormalBiasScale is the multiplier applied to the shadow map texel world-size
// to compute the normal-offset bias.
const DefaultShadowNormalBiasScale float32 = 3.0
