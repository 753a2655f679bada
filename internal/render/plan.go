// internal/render/plan.go
//
// Pure construction of the per-frame pass sequence. The GL orchestrator
// executes exactly what BuildPlan returns, which keeps the ping-pong
// bookkeeping testable without a context.
package render

// Target tags the textures a plan step reads from or writes to. Only the
// two ping-pong color targets and the temporal history participate in the
// read-write hazard rule; TargetGBuffer and TargetInternal are owned by
// individual passes and never aliased.
type Target int

const (
	TargetGBuffer Target = iota
	TargetColor0
	TargetColor1
	TargetHistory
	TargetInternal
	TargetBackbuffer
)

func (t Target) String() string {
	switch t {
	case TargetGBuffer:
		return "gbuffer"
	case TargetColor0:
		return "color0"
	case TargetColor1:
		return "color1"
	case TargetHistory:
		return "history"
	case TargetInternal:
		return "internal"
	case TargetBackbuffer:
		return "backbuffer"
	}
	return "unknown"
}

// Stage identifies one pass of the chain.
type Stage int

const (
	StageLinearDepth Stage = iota
	StageVelocity
	StageCompose
	StageAO
	StageHighlight
	StageTonemap
	StageDOF
	StageTransparency
	StageTonemapFast
	StageFXAALuma
	StageFXAA
	StageTonemapFastInvert
	StageTemporal
	StageSharpen
	StageBlit
)

func (s Stage) String() string {
	switch s {
	case StageLinearDepth:
		return "linear-depth"
	case StageVelocity:
		return "velocity"
	case StageCompose:
		return "compose"
	case StageAO:
		return "ao"
	case StageHighlight:
		return "highlight"
	case StageTonemap:
		return "tonemap"
	case StageDOF:
		return "dof"
	case StageTransparency:
		return "transparency"
	case StageTonemapFast:
		return "tonemap-fast"
	case StageFXAALuma:
		return "fxaa-luma"
	case StageFXAA:
		return "fxaa"
	case StageTonemapFastInvert:
		return "tonemap-fast-invert"
	case StageTemporal:
		return "temporal"
	case StageSharpen:
		return "sharpen"
	case StageBlit:
		return "blit"
	}
	return "unknown"
}

// PlanStep is one pass execution: read Src, write Dst. StageAO and
// StageTransparency blend onto a target they do not sample, so neither
// flips the ping-pong pair.
type PlanStep struct {
	Stage Stage
	Src   Target
	Dst   Target
}

// BuildPlan derives the pass sequence for one frame. highlightActive is
// whether a non-empty selection mask is loaded; everything else comes from
// the descriptor. The returned plan always ends in StageBlit and never
// contains a step that samples the color target it writes.
func BuildPlan(desc Descriptor, highlightActive bool) []PlanStep {
	plan := make([]PlanStep, 0, 16)
	plan = append(plan, PlanStep{StageLinearDepth, TargetGBuffer, TargetInternal})

	if desc.Temporal.Enabled {
		plan = append(plan, PlanStep{StageVelocity, TargetGBuffer, TargetInternal})
	}

	curr := TargetColor0
	plan = append(plan, PlanStep{StageCompose, TargetGBuffer, curr})

	// flip returns the ping-pong slot not currently in use; after the
	// temporal pass curr is the history texture and either slot is free.
	flip := func() Target {
		if curr == TargetColor0 {
			return TargetColor1
		}
		return TargetColor0
	}

	if desc.AO.Enabled {
		// multiplicative blend onto the lit color, samples only the
		// pass-owned AO and depth textures
		plan = append(plan, PlanStep{StageAO, TargetInternal, curr})
	}

	if highlightActive {
		next := flip()
		plan = append(plan, PlanStep{StageHighlight, curr, next})
		curr = next
	}

	next := flip()
	plan = append(plan, PlanStep{StageTonemap, curr, next})
	curr = next

	if desc.DOF.Enabled {
		next = flip()
		plan = append(plan, PlanStep{StageDOF, curr, next})
		curr = next
	}

	if desc.Transparency != 0 {
		// alpha blend onto the current target, no swap
		plan = append(plan, PlanStep{StageTransparency, TargetGBuffer, curr})
	}

	if desc.FXAA {
		// FXAA on HDR input needs perceptual luma, so a passthrough
		// tonemap gets bracketed by the reversible fast operator.
		hdr := desc.Tonemap.Mode == TonemapPassthrough
		if hdr {
			next = flip()
			plan = append(plan, PlanStep{StageTonemapFast, curr, next})
			curr = next
		}
		next = flip()
		plan = append(plan, PlanStep{StageFXAALuma, curr, next})
		curr = next
		next = flip()
		plan = append(plan, PlanStep{StageFXAA, curr, next})
		curr = next
		if hdr {
			next = flip()
			plan = append(plan, PlanStep{StageTonemapFastInvert, curr, next})
			curr = next
		}
	}

	if desc.Temporal.Enabled {
		plan = append(plan, PlanStep{StageTemporal, curr, TargetHistory})
		curr = TargetHistory
	}

	if desc.Sharpen.Enabled {
		next = flip()
		plan = append(plan, PlanStep{StageSharpen, curr, next})
		curr = next
	}

	plan = append(plan, PlanStep{StageBlit, curr, TargetBackbuffer})
	return plan
}
