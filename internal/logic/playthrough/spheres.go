package playthrough

import "multiworld.gg/internal/logic/world"

// sphere is one round of the forward fixed-point sweep: the locations
// whose items became collectible simultaneously, plus a snapshot of
// collection state from before the round was collected. Pruning trials
// re-derive completability from that snapshot, never from mutated live
// state.
type sphere struct {
	locations []*world.Location // (player, name) order
	pre       *world.State
}

// buildSpheres runs the forward sweep. Candidates are every location
// holding a progression item; each round the reachable subset becomes
// a sphere and its items are collected. An empty round with candidates
// left is fatal unless every stranded candidate belongs to a
// minimal-accessibility player, in which case the leftovers are
// recorded as deliberately unreachable excess.
func buildSpheres(w *world.World, oracle Oracle) ([]*sphere, []string, error) {
	state := w.State.Copy()
	candidates := w.ProgressionLocations()

	var spheres []*sphere
	for len(candidates) > 0 {
		var reachable, rest []*world.Location
		for _, l := range candidates {
			ok, err := oracle.CanReach(state, l)
			if err != nil {
				return nil, nil, err
			}
			if ok {
				reachable = append(reachable, l)
			} else {
				rest = append(rest, l)
			}
		}

		if len(reachable) == 0 {
			stranded := make([]string, 0, len(rest))
			relaxed := true
			for _, l := range rest {
				stranded = append(stranded, l.String())
				p := w.Player(l.Player)
				if p == nil || p.Accessibility != world.AccessMinimal {
					relaxed = false
				}
			}
			if relaxed {
				return spheres, stranded, nil
			}
			return nil, nil, &InconsistencyError{
				Phase:    PhaseSweep,
				Sphere:   len(spheres) + 1,
				Stranded: stranded,
			}
		}

		// Candidates were sorted, so each round's subset already is.
		pre := state.Copy()
		for _, l := range reachable {
			state.CollectLocation(l)
		}
		spheres = append(spheres, &sphere{locations: reachable, pre: pre})
		candidates = rest
	}
	return spheres, nil, nil
}
