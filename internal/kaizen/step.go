package kaizen

// InferStep derives the PDCA step from the quadrants that hold at least one
// module. The latest populated phase wins: ACT, then CHECK, then DO, else PLAN.
func InferStep(populated map[Quadrant]bool) Step {
	switch {
	case populated[QuadrantAct]:
		return StepAct
	case populated[QuadrantCheck]:
		return StepCheck
	case populated[QuadrantDo]:
		return StepDo
	}
	return StepPlan
}

// PopulatedQuadrants collects the quadrants used by modules.
func PopulatedQuadrants(modules []Module) map[Quadrant]bool {
	out := make(map[Quadrant]bool, 4)
	for _, m := range modules {
		out[m.Quadrant] = true
	}
	return out
}
