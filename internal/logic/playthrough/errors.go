package playthrough

import (
	"fmt"
	"strings"
)

// Phases where a fatal inconsistency can surface.
const (
	PhaseSweep = "sweep"
	PhaseFinal = "final"
)

// InconsistencyError reports a fixed-point round that found required
// locations with none reachable. It always indicates an upstream
// world-construction or oracle defect, never a recoverable condition,
// so it carries enough detail to find the broken placement.
type InconsistencyError struct {
	Phase    string
	Sphere   int
	Stranded []string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s phase: no reachable locations in sphere %d, stranded: %s",
		e.Phase, e.Sphere, strings.Join(e.Stranded, ", "))
}
