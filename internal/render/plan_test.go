package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isColorTarget reports whether t participates in the read-write hazard
// rule: a step must never sample the color texture it renders into.
func isColorTarget(t Target) bool {
	return t == TargetColor0 || t == TargetColor1 || t == TargetHistory
}

func TestBuildPlanMinimal(t *testing.T) {
	desc := Descriptor{
		Tonemap: TonemapParams{Mode: TonemapPassthrough, Exposure: 1, Gamma: 2.2},
	}

	plan := BuildPlan(desc, false)
	require.Len(t, plan, 4)
	assert.Equal(t, StageLinearDepth, plan[0].Stage)
	assert.Equal(t, StageCompose, plan[1].Stage)
	assert.Equal(t, StageTonemap, plan[2].Stage)
	assert.Equal(t, StageBlit, plan[3].Stage)
	assert.Equal(t, TargetBackbuffer, plan[3].Dst)
}

func TestBuildPlanNoReadWriteHazard(t *testing.T) {
	// every combination of the six optional passes, plus the highlight
	for bits := 0; bits < 128; bits++ {
		desc := Descriptor{
			AO:       AOParams{Enabled: bits&1 != 0, Radius: 6, Intensity: 2},
			DOF:      DOFParams{Enabled: bits&2 != 0, FocusDepth: 10, FocusScale: 5},
			Temporal: TemporalParams{Enabled: bits&4 != 0, FeedbackMin: 0.88, FeedbackMax: 0.97},
			Sharpen:  SharpenParams{Enabled: bits&8 != 0, Weight: 0.3},
			FXAA:     bits&16 != 0,
			Tonemap:  TonemapParams{Mode: TonemapACES, Exposure: 1, Gamma: 2.2},
		}
		if bits&32 != 0 {
			desc.Transparency = 7
		}
		highlight := bits&64 != 0

		for _, mode := range []TonemapMode{TonemapPassthrough, TonemapACES} {
			desc.Tonemap.Mode = mode
			plan := BuildPlan(desc, highlight)

			for i, step := range plan {
				if isColorTarget(step.Src) && isColorTarget(step.Dst) {
					assert.NotEqual(t, step.Src, step.Dst,
						"combo %07b mode %v step %d (%v) reads its own output", bits, mode, i, step.Stage)
				}
			}
		}
	}
}

func TestBuildPlanAlwaysEndsInBlit(t *testing.T) {
	for bits := 0; bits < 64; bits++ {
		desc := Descriptor{
			AO:       AOParams{Enabled: bits&1 != 0},
			DOF:      DOFParams{Enabled: bits&2 != 0},
			Temporal: TemporalParams{Enabled: bits&4 != 0},
			Sharpen:  SharpenParams{Enabled: bits&8 != 0},
			FXAA:     bits&16 != 0,
		}
		plan := BuildPlan(desc, bits&32 != 0)

		require.NotEmpty(t, plan)
		last := plan[len(plan)-1]
		assert.Equal(t, StageBlit, last.Stage)
		assert.Equal(t, TargetBackbuffer, last.Dst)
		assert.True(t, isColorTarget(last.Src),
			"combo %06b: blit reads a resolved color target", bits)

		// blit is the only writer of the backbuffer
		for _, step := range plan[:len(plan)-1] {
			assert.NotEqual(t, TargetBackbuffer, step.Dst)
		}
	}
}

func TestBuildPlanStageOrder(t *testing.T) {
	desc := DefaultDescriptor()
	desc.DOF.Enabled = true
	desc.Transparency = 7
	plan := BuildPlan(desc, true)

	pos := make(map[Stage]int)
	for i, step := range plan {
		pos[step.Stage] = i
	}

	// linear depth feeds everything downstream; the chain then runs
	// compose, AO, tonemap, DOF, transparency, FXAA, temporal resolve,
	// sharpen, blit
	assert.Equal(t, 0, pos[StageLinearDepth])
	assert.Less(t, pos[StageCompose], pos[StageAO])
	assert.Less(t, pos[StageAO], pos[StageHighlight])
	assert.Less(t, pos[StageHighlight], pos[StageTonemap])
	assert.Less(t, pos[StageTonemap], pos[StageDOF])
	assert.Less(t, pos[StageDOF], pos[StageTransparency])
	assert.Less(t, pos[StageTransparency], pos[StageFXAALuma])
	assert.Less(t, pos[StageFXAALuma], pos[StageFXAA])
	assert.Less(t, pos[StageFXAA], pos[StageTemporal])
	assert.Less(t, pos[StageTemporal], pos[StageSharpen])
	assert.Less(t, pos[StageSharpen], pos[StageBlit])
}

func TestBuildPlanTransparencyGated(t *testing.T) {
	desc := DefaultDescriptor()
	plan := BuildPlan(desc, false)
	for _, step := range plan {
		assert.NotEqual(t, StageTransparency, step.Stage,
			"no transparency input, no blend pass")
	}

	desc.Transparency = 7
	plan = BuildPlan(desc, false)

	var blend *PlanStep
	for i := range plan {
		if plan[i].Stage == StageTransparency {
			blend = &plan[i]
		}
	}
	require.NotNil(t, blend)

	// blends in place: the next processing stage reads the same target
	assert.Equal(t, TargetGBuffer, blend.Src)
	for i := range plan {
		if plan[i].Stage == StageTransparency && i+1 < len(plan) {
			assert.Equal(t, blend.Dst, plan[i+1].Src)
		}
	}
}

func TestBuildPlanFXAAOnHDRBracketed(t *testing.T) {
	desc := Descriptor{
		FXAA:    true,
		Tonemap: TonemapParams{Mode: TonemapPassthrough},
	}
	plan := BuildPlan(desc, false)

	var stages []Stage
	for _, step := range plan {
		stages = append(stages, step.Stage)
	}
	assert.Equal(t, []Stage{
		StageLinearDepth, StageCompose, StageTonemap,
		StageTonemapFast, StageFXAALuma, StageFXAA, StageTonemapFastInvert,
		StageBlit,
	}, stages)

	// with a real display transform the bracket is unnecessary
	desc.Tonemap.Mode = TonemapACES
	plan = BuildPlan(desc, false)
	for _, step := range plan {
		assert.NotEqual(t, StageTonemapFast, step.Stage)
		assert.NotEqual(t, StageTonemapFastInvert, step.Stage)
	}
}

func TestTargetAndStageStrings(t *testing.T) {
	assert.Equal(t, "color0", TargetColor0.String())
	assert.Equal(t, "backbuffer", TargetBackbuffer.String())
	assert.Equal(t, "compose", StageCompose.String())
	assert.Equal(t, "tonemap-fast-invert", StageTonemapFastInvert.String())
}
