package scene

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
)

// DDGI probe grid and atlas texel counts per probe.
const (
	ddgiGridX       = 32
	ddgiGridY       = 8
	ddgiGridZ       = 32
	ddgiColorTexels = 8
	ddgiDepthTexels = 16
)

// runRippleUpdateSystem ages the water ripples at a 60Hz normalized step and drops the
// faded ones.
func (s *scene) runRippleUpdateSystem() {
	if s.dt <= 0 {
		return
	}
	step := s.dt * 60
	kept := s.ripples[:0]
	for _, r := range s.ripples {
		r.update(step)
		if !r.expired() {
			kept = append(kept, r)
		}
	}
	s.ripples = kept
}

// updateSurfelGI creates the surfel ping-pong pair on first need and swaps it every frame.
// Disabling surfel GI releases the pair.
func (s *scene) updateSurfelGI() {
	if !s.surfelGI {
		releaseTexture(&s.textures.SurfelGI[0])
		releaseTexture(&s.textures.SurfelGI[1])
		return
	}
	if s.textures.SurfelGI[0] == nil {
		for i, label := range []string{"Scene::surfelGI[0]", "Scene::surfelGI[1]"} {
			s.textures.SurfelGI[i] = gpu.MustCreateTexture(s.device, gpu.TextureDesc{
				Label:  label,
				Width:  surfelResolution,
				Height: surfelResolution,
				Format: gpu.TextureFormatRGBA32Float,
				Usage:  gpu.TextureUsageStorage | gpu.TextureUsageSampled,
			})
		}
	}
	s.textures.SurfelGI[0], s.textures.SurfelGI[1] = s.textures.SurfelGI[1], s.textures.SurfelGI[0]
}

// updateDDGI advances the probe volume: one-time atlases, a ping-pong color swap and a grid
// covering the scene bounds grown by one unit. Disabling DDGI releases everything.
func (s *scene) updateDDGI() {
	if !s.ddgiEnabled {
		releaseTexture(&s.textures.DDGIColor[0])
		releaseTexture(&s.textures.DDGIColor[1])
		releaseTexture(&s.textures.DDGIDepth)
		s.ddgi = ddgiVolume{}
		return
	}
	if s.textures.DDGIDepth == nil {
		for i, label := range []string{"Scene::ddgiColor[0]", "Scene::ddgiColor[1]"} {
			s.textures.DDGIColor[i] = gpu.MustCreateTexture(s.device, gpu.TextureDesc{
				Label:  label,
				Width:  ddgiGridX * ddgiColorTexels,
				Height: ddgiGridY * ddgiGridZ * ddgiColorTexels,
				Format: gpu.TextureFormatRGBA32Float,
				Usage:  gpu.TextureUsageStorage | gpu.TextureUsageSampled,
			})
		}
		s.textures.DDGIDepth = gpu.MustCreateTexture(s.device, gpu.TextureDesc{
			Label:  "Scene::ddgiDepth",
			Width:  ddgiGridX * ddgiDepthTexels,
			Height: ddgiGridY * ddgiGridZ * ddgiDepthTexels,
			Format: gpu.TextureFormatRG32Float,
			Usage:  gpu.TextureUsageStorage | gpu.TextureUsageSampled,
		})
	}
	s.textures.DDGIColor[0], s.textures.DDGIColor[1] = s.textures.DDGIColor[1], s.textures.DDGIColor[0]

	s.ddgi.FrameIndex++
	if s.bounds.IsValid() {
		one := common.Vec3{1, 1, 1}
		s.ddgi.GridMin = s.bounds.Min.Sub(one)
		s.ddgi.GridMax = s.bounds.Max.Add(one)
	}
	s.ddgi.Valid = true
}
