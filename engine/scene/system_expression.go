package scene

import (
	"github.com/chewxy/math32"
)

var (
	mouthPresets = []ExpressionPreset{PresetAa, PresetIh, PresetOu, PresetEe, PresetOh}
	blinkPresets = []ExpressionPreset{PresetBlink, PresetBlinkLeft, PresetBlinkRight}
	lookPresets  = []ExpressionPreset{PresetLookUp, PresetLookDown, PresetLookLeft, PresetLookRight}
)

// runExpressionUpdateSystem animates procedural blinking and looking and writes the blended
// expression weights into the morph targets they bind. Expressions of different components
// may bind the same mesh, so components are processed in order.
func (s *scene) runExpressionUpdateSystem() {
	var weights []float32
	for i := range s.expressions.Len() {
		weights = s.updateExpression(s.expressions.At(i), weights)
	}
}

func (s *scene) updateExpression(e *ExpressionComponent, weights []float32) []float32 {
	s.updateBlink(e)
	s.updateLook(e)

	weights = weights[:0]
	for _, ex := range e.Expressions {
		w := ex.Weight
		if ex.Binary {
			if w > 0.5 {
				w = 1
			} else {
				w = 0
			}
		}
		weights = append(weights, w)
	}

	mouth, blink, look := float32(1), float32(1), float32(1)
	for i, ex := range e.Expressions {
		w := weights[i]
		if w <= 0 {
			continue
		}
		mouth = applyOverride(mouth, ex.OverrideMouth, w)
		blink = applyOverride(blink, ex.OverrideBlink, w)
		look = applyOverride(look, ex.OverrideLook, w)
	}
	scalePresets(e, weights, mouthPresets, mouth)
	scalePresets(e, weights, blinkPresets, blink)
	scalePresets(e, weights, lookPresets, look)

	for _, ex := range e.Expressions {
		for _, b := range ex.Bindings {
			if mesh := s.meshes.Get(b.MeshID); mesh != nil && b.Index >= 0 && b.Index < len(mesh.MorphTargets) {
				mesh.MorphTargets[b.Index].Weight = 0
			}
		}
	}
	for i, ex := range e.Expressions {
		for _, b := range ex.Bindings {
			mesh := s.meshes.Get(b.MeshID)
			if mesh == nil || b.Index < 0 || b.Index >= len(mesh.MorphTargets) {
				continue
			}
			t := &mesh.MorphTargets[b.Index]
			t.Weight = t.Weight + (b.Weight-t.Weight)*weights[i]
			mesh.DirtyMorph = true
		}
	}
	return weights
}

func applyOverride(factor float32, o ExpressionOverride, weight float32) float32 {
	switch o {
	case OverrideBlock:
		return 0
	case OverrideBlend:
		return factor * (1 - weight)
	}
	return factor
}

func scalePresets(e *ExpressionComponent, weights []float32, presets []ExpressionPreset, factor float32) {
	if factor == 1 {
		return
	}
	for _, p := range presets {
		if i := e.Presets[p]; i >= 0 && i < len(weights) {
			weights[i] *= factor
		}
	}
}

// updateBlink drives the blink preset as BlinkCount triangle pulses of BlinkLength seconds,
// once every 1/BlinkFrequency seconds.
func (s *scene) updateBlink(e *ExpressionComponent) {
	ex := e.PresetExpression(PresetBlink)
	if ex == nil || e.BlinkFrequency <= 0 || e.BlinkLength <= 0 {
		return
	}
	e.BlinkTimer += s.dt
	period := 1 / e.BlinkFrequency
	if e.BlinkTimer < period {
		return
	}
	t := (e.BlinkTimer - period) / e.BlinkLength
	if t >= float32(max(e.BlinkCount, 1)) {
		e.BlinkTimer = 0
		ex.Weight = 0
		return
	}
	frac := t - math32.Floor(t)
	ex.Weight = 1 - math32.Abs(frac*2-1)
}

// updateLook picks a random look direction every 1/LookFrequency seconds and eases it in
// and out over LookLength seconds.
func (s *scene) updateLook(e *ExpressionComponent) {
	if e.LookFrequency <= 0 || e.LookLength <= 0 {
		return
	}
	e.LookTimer += s.dt
	period := 1 / e.LookFrequency
	if e.LookTimer < period {
		return
	}
	if e.LookPreset < 0 {
		e.LookPreset = int(lookPresets[s.rng.IntN(len(lookPresets))])
	}
	ex := e.PresetExpression(ExpressionPreset(e.LookPreset))
	t := (e.LookTimer - period) / e.LookLength
	if t >= 1 {
		if ex != nil {
			ex.Weight = 0
		}
		e.LookTimer = 0
		e.LookPreset = -1
		return
	}
	if ex != nil {
		ex.Weight = math32.Sin(math32.Pi * t)
	}
}
