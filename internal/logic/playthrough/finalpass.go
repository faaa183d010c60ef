package playthrough

import (
	"sort"

	"multiworld.gg/internal/logic/world"
)

// finalPass re-derives the minimized playthrough from scratch on a
// fresh state, one item at a time, so the finished output has a single
// deterministic fine-grained order regardless of how the earlier
// phases batched their work.
func finalPass(w *world.World, oracle Oracle, spheres []*sphere, tr *tracer) (*Playthrough, error) {
	state := w.NewState()
	pt := &Playthrough{Precollected: []string{}}

	// Round 0: surviving starting items, collected individually.
	k := 0
	for _, it := range w.PrecollectedProgression() {
		state.Collect(it)
		k++
		pt.Precollected = append(pt.Precollected, it.String())
		if err := tr.item(state, 0, k, nil); err != nil {
			return nil, err
		}
	}
	sort.Strings(pt.Precollected)
	if err := tr.round(state, 0, nil); err != nil {
		return nil, err
	}

	// Everything that survived pruning, across all spheres.
	var required []*world.Location
	for _, sp := range spheres {
		required = append(required, sp.locations...)
	}
	world.SortLocations(required)

	for n := 1; len(required) > 0; n++ {
		var reachable, rest []*world.Location
		for _, l := range required {
			ok, err := oracle.CanReach(state, l)
			if err != nil {
				return nil, err
			}
			if ok {
				reachable = append(reachable, l)
			} else {
				rest = append(rest, l)
			}
		}
		if len(reachable) == 0 {
			// The minimized set only contains load-bearing placements,
			// so a stranded round here means pruning or the oracle
			// misbehaved, not the world.
			stranded := make([]string, 0, len(rest))
			for _, l := range rest {
				stranded = append(stranded, l.String())
			}
			return nil, &InconsistencyError{Phase: PhaseFinal, Sphere: n, Stranded: stranded}
		}

		round := make(map[string]string, len(reachable))
		names := make([]string, 0, len(reachable))
		for i, l := range reachable {
			state.CollectLocation(l)
			round[l.String()] = l.Item.String()
			names = append(names, l.String())
			if err := tr.item(state, n, i+1, []string{l.String()}); err != nil {
				return nil, err
			}
		}
		if err := tr.round(state, n, names); err != nil {
			return nil, err
		}
		pt.Spheres = append(pt.Spheres, round)
		required = rest
	}
	return pt, nil
}
