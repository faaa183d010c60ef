package playthrough

import "multiworld.gg/internal/logic/world"

// prune walks the spheres latest-first and trial-removes each
// placement: detach the item, ask whether the game can still be beaten
// from the sphere's pre-round snapshot, and drop the location from the
// required set if so. Later spheres go first because their items are
// less entangled with earlier dependencies, so more trials succeed on
// the first attempt.
//
// A successful removal stays detached for the rest of the pass (trials
// against the snapshot must see every prior removal absent) and is put
// back by the ledger at teardown. A failed removal is reattached
// immediately.
func prune(oracle Oracle, spheres []*sphere, lg *ledger) error {
	for i := len(spheres) - 1; i >= 0; i-- {
		sp := spheres[i]
		kept := sp.locations[:0]
		for _, l := range sp.locations {
			lg.detach(l)
			ok, err := oracle.CanBeatGame(sp.pre)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			lg.reattachLast()
			kept = append(kept, l)
		}
		sp.locations = kept
	}
	return nil
}

// minimizePrecollected greedily removes each starting progression item
// that the game can be beaten without, testing against the live base
// state after every removal. Single pass in (player, name) order; if
// two starting items are mutually substitutable the earlier one wins.
// That approximate minimality is deliberate and part of the observable
// output shape.
func minimizePrecollected(w *world.World, oracle Oracle, lg *ledger) ([]string, error) {
	var excess []string
	for _, it := range w.PrecollectedProgression() {
		w.RemovePrecollected(it)
		w.State.Remove(it)
		lg.removedPrecollected(it)
		ok, err := oracle.CanBeatGame(w.State)
		if err != nil {
			// The ledger holds the removal; abort restores it.
			return nil, err
		}
		if ok {
			excess = append(excess, it.String())
			continue
		}
		lg.popPrecollected()
		w.Precollect(it)
		w.State.Collect(it)
	}
	return excess, nil
}
