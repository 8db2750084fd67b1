package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/stretchr/testify/assert"
)

func TestMarshalLightBufferSkipsDisabled(t *testing.T) {
	lights := make([]Light, 3)
	for i := range lights {
		lights[i].SetDefaults()
		lights[i].Intensity = float32(i + 1)
	}
	lights[1].Flags |= FlagDisabled

	dst := make([]byte, 64*4)
	n := MarshalLightBuffer(dst, 64, lights, common.Vec3{0.1, 0.2, 0.3})
	assert.Equal(t, 2, n)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(dst[12:16]))

	// second slot holds the third light
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(dst[128+28:128+32])))
}

func TestDirectionalShadowCentersFrustum(t *testing.T) {
	s := NewDirectionalShadow(common.Vec3{0, -1, 0}, common.Vec3{5, 0, 5})
	clip := s.LightVP.TransformCoord(common.Vec3{5, 0, 5})
	assert.InDelta(t, 0, clip[0], 1e-4)
	assert.InDelta(t, 0, clip[1], 1e-4)
	assert.True(t, clip[2] > 0 && clip[2] < 1)
	assert.Equal(t, 80, s.Size())
	assert.InDelta(t, 2*DefaultShadowHalfExtent/ShadowMapResolution*DefaultShadowNormalBiasScale, s.NormalBias, 1e-6)
}
