package imagery

import (
	"fmt"
	"sort"
	"strings"
)

// Step identifies one processing operation a work unit may need.
type Step string

const (
	// StepMerge mosaics the tiles of a multi-tile acquisition into one raster.
	StepMerge Step = "merge"
	// StepPansharp fuses a multispectral/panchromatic pair.
	StepPansharp Step = "psh"
	// StepScale rescales a raster to unsigned 8-bit.
	StepScale Step = "scale"
	// StepSplit writes one single-band file per manifest band entry.
	StepSplit Step = "split"
)

// canonicalOrder fixes the presentation and execution ordering of steps.
var canonicalOrder = map[Step]int{
	StepMerge:    0,
	StepPansharp: 1,
	StepScale:    2,
	StepSplit:    3,
}

// PlanSteps computes the processing plan for an acquisition at discovery
// time. The plan never changes afterward; only the orchestrator's position
// within it does. Split is the implicit image-level finishing step and is
// not part of the plan.
func PlanSteps(tileCount int, dtype DType, sharpened bool) []Step {
	var steps []Step
	if tileCount > 1 {
		steps = append(steps, StepMerge)
	}
	if !sharpened {
		steps = append(steps, StepPansharp)
	}
	if dtype != DTypeUInt8 {
		steps = append(steps, StepScale)
	}
	sortSteps(steps)
	return steps
}

func sortSteps(steps []Step) {
	sort.SliceStable(steps, func(i, j int) bool {
		return canonicalOrder[steps[i]] < canonicalOrder[steps[j]]
	})
}

// ParseSteps converts a comma-separated plan string (as persisted in
// reports and the run ledger) back into a step list.
func ParseSteps(value string) ([]Step, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, ",")
	steps := make([]Step, 0, len(parts))
	for _, part := range parts {
		step := Step(strings.TrimSpace(part))
		if _, ok := canonicalOrder[step]; !ok {
			return nil, fmt.Errorf("unknown process step %q", part)
		}
		steps = append(steps, step)
	}
	sortSteps(steps)
	return steps, nil
}

// FormatSteps renders a plan as the comma-separated form used in
// reports and the run ledger.
func FormatSteps(steps []Step) string {
	parts := make([]string, len(steps))
	for i, step := range steps {
		parts[i] = string(step)
	}
	return strings.Join(parts, ",")
}
